package repository

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/librarydesk/internal/entity"
	"anoa.com/librarydesk/pkg/apperror"
	"anoa.com/librarydesk/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SearchField string

const (
	SearchByTitle    SearchField = "title"
	SearchByAuthor   SearchField = "author"
	SearchByCategory SearchField = "category"
)

type BookFilter struct {
	Status entity.BookStatus
}

type BookRepository interface {
	// CreateWithAuthor finds or creates the author by exact name and inserts
	// the book in the same transaction.
	CreateWithAuthor(ctx context.Context, book *entity.Book, authorName string) error
	// Update applies fields to the book; a non-nil authorName re-points the
	// book at the found or created author.
	Update(ctx context.Context, id uuid.UUID, fields map[string]any, authorName *string) error
	// Delete removes links, returned loan history and the book. Books that
	// are currently borrowed are refused with ErrConflict.
	Delete(ctx context.Context, id uuid.UUID) (*entity.Book, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Book, error)
	FindAll(ctx context.Context, filter BookFilter) ([]*entity.Book, error)
	FindByAuthor(ctx context.Context, authorID uuid.UUID) ([]*entity.Book, error)
	Search(ctx context.Context, field SearchField, query string) ([]*entity.Book, error)
	CategoriesForBooks(ctx context.Context, bookIDs []uuid.UUID) (map[uuid.UUID][]entity.Category, error)
	ActiveLoansForBooks(ctx context.Context, bookIDs []uuid.UUID) (map[uuid.UUID]entity.Loan, error)
	SetCover(ctx context.Context, id uuid.UUID, url string) (previous *string, err error)
	Count(ctx context.Context) (int64, error)
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) CreateWithAuthor(ctx context.Context, book *entity.Book, authorName string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		author, _, err := findOrCreateAuthor(tx, authorName, "")
		if err != nil {
			return err
		}

		book.AuthorID = author.ID
		if err := tx.Omit("Author").Create(book).Error; err != nil {
			return err
		}

		book.Author = author
		return nil
	})
	if err != nil {
		return database.TranslateError(err)
	}
	return nil
}

func (r *bookRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]any, authorName *string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book entity.Book
		if err := tx.Select("id").Where("id = ?", id).First(&book).Error; err != nil {
			return err
		}

		if authorName != nil {
			author, _, err := findOrCreateAuthor(tx, *authorName, "")
			if err != nil {
				return err
			}
			fields["author_id"] = author.ID
		}

		if len(fields) == 0 {
			return nil
		}

		return tx.Model(&entity.Book{}).Where("id = ?", id).Updates(fields).Error
	})
	return database.TranslateError(err)
}

func (r *bookRepository) Delete(ctx context.Context, id uuid.UUID) (*entity.Book, error) {
	var book entity.Book

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&book).Error; err != nil {
			return err
		}

		if book.Status == entity.BookBorrowed {
			return fmt.Errorf("book %s is currently borrowed: %w", book.ISBN, apperror.ErrConflict)
		}

		if err := tx.Where("book_id = ?", id).Delete(&entity.BookCategory{}).Error; err != nil {
			return err
		}

		if err := tx.Where("book_id = ? AND status <> ?", id, entity.LoanActive).Delete(&entity.Loan{}).Error; err != nil {
			return err
		}

		res := tx.Where("id = ? AND status = ?", id, entity.BookAvailable).Delete(&entity.Book{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Borrowed between the read and the delete.
			return fmt.Errorf("book %s is currently borrowed: %w", book.ISBN, apperror.ErrConflict)
		}
		return nil
	})
	if err != nil {
		return nil, database.TranslateError(err)
	}

	return &book, nil
}

func (r *bookRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Book, error) {
	var book entity.Book
	if err := r.db.WithContext(ctx).
		Joins("Author").
		Where("books.id = ?", id).
		First(&book).Error; err != nil {
		return nil, database.TranslateError(err)
	}
	return &book, nil
}

func (r *bookRepository) FindAll(ctx context.Context, filter BookFilter) ([]*entity.Book, error) {
	var books []*entity.Book
	query := r.db.WithContext(ctx).Joins("Author").Order("books.title ASC")

	if filter.Status != "" {
		query = query.Where("books.status = ?", filter.Status)
	}

	if err := query.Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) FindByAuthor(ctx context.Context, authorID uuid.UUID) ([]*entity.Book, error) {
	var books []*entity.Book
	if err := r.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("title ASC").
		Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) Search(ctx context.Context, field SearchField, query string) ([]*entity.Book, error) {
	pattern := database.ContainsPattern(query)
	q := r.db.WithContext(ctx).Joins("Author").Order("books.title ASC")

	switch field {
	case SearchByTitle:
		q = q.Where(`LOWER(books.title) LIKE ? ESCAPE '\'`, pattern)
	case SearchByAuthor:
		q = q.Where(`LOWER("Author"."name") LIKE ? ESCAPE '\'`, pattern)
	case SearchByCategory:
		matching := r.db.Table("book_categories").
			Select("book_categories.book_id").
			Joins("JOIN categories ON categories.id = book_categories.category_id").
			Where(`LOWER(categories.name) LIKE ? ESCAPE '\'`, pattern)
		q = q.Where("books.id IN (?)", matching)
	default:
		return nil, fmt.Errorf("unknown search field %q: %w", field, apperror.ErrBadRequest)
	}

	var books []*entity.Book
	if err := q.Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) CategoriesForBooks(ctx context.Context, bookIDs []uuid.UUID) (map[uuid.UUID][]entity.Category, error) {
	out := make(map[uuid.UUID][]entity.Category, len(bookIDs))
	if len(bookIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		BookID      uuid.UUID
		CategoryID  uuid.UUID
		Name        string
		Description string
	}
	if err := r.db.WithContext(ctx).
		Table("book_categories").
		Select("book_categories.book_id, categories.id AS category_id, categories.name, categories.description").
		Joins("JOIN categories ON categories.id = book_categories.category_id").
		Where("book_categories.book_id IN ?", bookIDs).
		Order("categories.name ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		out[row.BookID] = append(out[row.BookID], entity.Category{
			ID:          row.CategoryID,
			Name:        row.Name,
			Description: row.Description,
		})
	}
	return out, nil
}

func (r *bookRepository) ActiveLoansForBooks(ctx context.Context, bookIDs []uuid.UUID) (map[uuid.UUID]entity.Loan, error) {
	out := make(map[uuid.UUID]entity.Loan, len(bookIDs))
	if len(bookIDs) == 0 {
		return out, nil
	}

	var loans []entity.Loan
	if err := r.db.WithContext(ctx).
		Where("book_id IN ? AND status = ?", bookIDs, entity.LoanActive).
		Find(&loans).Error; err != nil {
		return nil, err
	}

	for _, l := range loans {
		out[l.BookID] = l
	}
	return out, nil
}

func (r *bookRepository) SetCover(ctx context.Context, id uuid.UUID, url string) (*string, error) {
	var previous *string

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book entity.Book
		if err := tx.Select("id", "cover_image").Where("id = ?", id).First(&book).Error; err != nil {
			return err
		}
		previous = book.CoverImage

		return tx.Model(&entity.Book{}).Where("id = ?", id).Update("cover_image", url).Error
	})
	if err != nil {
		return nil, database.TranslateError(err)
	}

	return previous, nil
}

func (r *bookRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entity.Book{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// findOrCreateAuthor returns the oldest author with exactly this name or
// inserts a new one through tx.
func findOrCreateAuthor(tx *gorm.DB, name, bio string) (*entity.Author, bool, error) {
	var author entity.Author
	err := tx.Where("name = ?", name).Order("created_at ASC").First(&author).Error
	if err == nil {
		return &author, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	author = entity.Author{Name: name, Bio: bio}
	if err := tx.Create(&author).Error; err != nil {
		return nil, false, err
	}
	return &author, true, nil
}
