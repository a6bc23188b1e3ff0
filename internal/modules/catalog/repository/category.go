package repository

import (
	"context"
	"errors"

	"anoa.com/librarydesk/internal/entity"
	"anoa.com/librarydesk/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CategoryRepository interface {
	Create(ctx context.Context, category *entity.Category) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Category, error)
	FindAll(ctx context.Context, filter string) ([]*entity.Category, error)
	// Delete removes the category's book links and then the category.
	Delete(ctx context.Context, id uuid.UUID) error
	// Link is idempotent: an existing pair is left as is.
	Link(ctx context.Context, bookID, categoryID uuid.UUID) (created bool, err error)
	Unlink(ctx context.Context, bookID, categoryID uuid.UUID) error
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *entity.Category) error {
	return database.TranslateError(r.db.WithContext(ctx).Create(category).Error)
}

func (r *categoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Category, error) {
	var category entity.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, database.TranslateError(err)
	}
	return &category, nil
}

func (r *categoryRepository) FindAll(ctx context.Context, filter string) ([]*entity.Category, error) {
	var categories []*entity.Category
	query := r.db.WithContext(ctx).Order("name ASC")

	if filter != "" {
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, database.ContainsPattern(filter))
	}

	if err := query.Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category entity.Category
		if err := tx.Select("id").First(&category, "id = ?", id).Error; err != nil {
			return err
		}

		if err := tx.Where("category_id = ?", id).Delete(&entity.BookCategory{}).Error; err != nil {
			return err
		}

		return tx.Delete(&entity.Category{}, "id = ?", id).Error
	})
	return database.TranslateError(err)
}

func (r *categoryRepository) Link(ctx context.Context, bookID, categoryID uuid.UUID) (bool, error) {
	created := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book entity.Book
		if err := tx.Select("id").First(&book, "id = ?", bookID).Error; err != nil {
			return err
		}
		var category entity.Category
		if err := tx.Select("id").First(&category, "id = ?", categoryID).Error; err != nil {
			return err
		}

		var existing entity.BookCategory
		err := tx.Where("book_id = ? AND category_id = ?", bookID, categoryID).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		link := &entity.BookCategory{BookID: bookID, CategoryID: categoryID}
		if err := tx.Omit("Book", "Category").Create(link).Error; err != nil {
			return err
		}
		created = true
		return nil
	})

	return created, database.TranslateError(err)
}

func (r *categoryRepository) Unlink(ctx context.Context, bookID, categoryID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("book_id = ? AND category_id = ?", bookID, categoryID).
		Delete(&entity.BookCategory{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return database.TranslateError(gorm.ErrRecordNotFound)
	}
	return nil
}
