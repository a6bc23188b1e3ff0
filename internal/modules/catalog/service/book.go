package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"anoa.com/librarydesk/internal/access"
	"anoa.com/librarydesk/internal/entity"
	"anoa.com/librarydesk/internal/modules/catalog/dto"
	"anoa.com/librarydesk/internal/modules/catalog/repository"
	"anoa.com/librarydesk/pkg/apperror"
	"anoa.com/librarydesk/pkg/storage"
	"github.com/google/uuid"
)

const coverFolder = "covers"

type BookService interface {
	ListBooks(ctx context.Context, filter dto.BookFilter) ([]dto.BookResponse, error)
	// AdminListBooks is the librarian view: every book plus its current loan.
	AdminListBooks(ctx context.Context, actor *access.Actor, filter dto.BookFilter) ([]dto.BookResponse, error)
	GetBook(ctx context.Context, id uuid.UUID) (*dto.BookResponse, error)
	SearchBooks(ctx context.Context, query, field string) ([]dto.BookResponse, error)
	AddBook(ctx context.Context, actor *access.Actor, req dto.CreateBookRequest) (*dto.BookResponse, error)
	EditBook(ctx context.Context, actor *access.Actor, id uuid.UUID, req dto.UpdateBookRequest) (*dto.BookResponse, error)
	DeleteBook(ctx context.Context, actor *access.Actor, id uuid.UUID) error
	UploadCover(ctx context.Context, actor *access.Actor, id uuid.UUID, file dto.CoverFile) (*dto.BookResponse, error)
	LinkCategory(ctx context.Context, actor *access.Actor, bookID, categoryID uuid.UUID) error
	UnlinkCategory(ctx context.Context, actor *access.Actor, bookID, categoryID uuid.UUID) error
}

type bookService struct {
	books        repository.BookRepository
	categories   repository.CategoryRepository
	imageStorage storage.ImageStorage
}

// NewBookService wires the book service. imageStorage may be nil, in which
// case cover uploads are refused.
func NewBookService(books repository.BookRepository, categories repository.CategoryRepository, imageStorage storage.ImageStorage) BookService {
	return &bookService{
		books:        books,
		categories:   categories,
		imageStorage: imageStorage,
	}
}

func (s *bookService) ListBooks(ctx context.Context, filter dto.BookFilter) ([]dto.BookResponse, error) {
	books, err := s.books.FindAll(ctx, repository.BookFilter{Status: entity.BookStatus(filter.Status)})
	if err != nil {
		return nil, err
	}
	return s.buildBookResponses(ctx, books)
}

func (s *bookService) AdminListBooks(ctx context.Context, actor *access.Actor, filter dto.BookFilter) ([]dto.BookResponse, error) {
	if err := access.Authorize(actor, access.ViewAdminCatalog); err != nil {
		return nil, err
	}

	books, err := s.books.FindAll(ctx, repository.BookFilter{Status: entity.BookStatus(filter.Status)})
	if err != nil {
		return nil, err
	}

	res, err := s.buildBookResponses(ctx, books)
	if err != nil {
		return nil, err
	}

	loans, err := s.books.ActiveLoansForBooks(ctx, bookIDs(books))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for i := range res {
		if l, ok := loans[res[i].ID]; ok {
			res[i].CurrentLoan = &dto.CurrentLoan{
				LoanID:    l.ID,
				UserID:    l.UserID,
				DueDate:   l.DueDate,
				IsOverdue: l.IsOverdue(now),
			}
		}
	}

	return res, nil
}

func (s *bookService) GetBook(ctx context.Context, id uuid.UUID) (*dto.BookResponse, error) {
	book, err := s.books.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := s.buildBookResponses(ctx, []*entity.Book{book})
	if err != nil {
		return nil, err
	}
	return &res[0], nil
}

func (s *bookService) SearchBooks(ctx context.Context, query, field string) ([]dto.BookResponse, error) {
	if field == "" {
		field = string(repository.SearchByTitle)
	}

	books, err := s.books.Search(ctx, repository.SearchField(field), strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}
	return s.buildBookResponses(ctx, books)
}

func (s *bookService) AddBook(ctx context.Context, actor *access.Actor, req dto.CreateBookRequest) (*dto.BookResponse, error) {
	if err := access.Authorize(actor, access.ManageCatalog); err != nil {
		return nil, err
	}

	authorName := strings.TrimSpace(req.AuthorName)
	if authorName == "" {
		return nil, fmt.Errorf("author name is required: %w", apperror.ErrInvalidInput)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", apperror.ErrInvalidInput)
	}
	isbn := strings.TrimSpace(req.ISBN)
	if isbn == "" {
		return nil, fmt.Errorf("isbn is required: %w", apperror.ErrInvalidInput)
	}

	book := &entity.Book{
		Title:           title,
		ISBN:            isbn,
		PublicationYear: req.PublicationYear,
		PageCount:       req.PageCount,
		ShelfNumber:     req.ShelfNumber,
		Status:          entity.BookAvailable,
	}

	if err := s.books.CreateWithAuthor(ctx, book, authorName); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, fmt.Errorf("isbn %s already exists: %w", book.ISBN, apperror.ErrConflict)
		}
		return nil, err
	}

	res := toBookResponse(book, nil)
	return &res, nil
}

func (s *bookService) EditBook(ctx context.Context, actor *access.Actor, id uuid.UUID, req dto.UpdateBookRequest) (*dto.BookResponse, error) {
	if err := access.Authorize(actor, access.ManageCatalog); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, fmt.Errorf("title cannot be blank: %w", apperror.ErrInvalidInput)
		}
		fields["title"] = title
	}
	if req.ISBN != nil {
		isbn := strings.TrimSpace(*req.ISBN)
		if isbn == "" {
			return nil, fmt.Errorf("isbn cannot be blank: %w", apperror.ErrInvalidInput)
		}
		fields["isbn"] = isbn
	}
	if req.PublicationYear != nil {
		fields["publication_year"] = *req.PublicationYear
	}
	if req.PageCount != nil {
		fields["page_count"] = *req.PageCount
	}
	if req.ShelfNumber != nil {
		fields["shelf_number"] = *req.ShelfNumber
	}

	var authorName *string
	if req.AuthorName != nil {
		name := strings.TrimSpace(*req.AuthorName)
		if name == "" {
			return nil, fmt.Errorf("author name is required: %w", apperror.ErrInvalidInput)
		}
		authorName = &name
	}

	if err := s.books.Update(ctx, id, fields, authorName); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, fmt.Errorf("isbn already exists: %w", apperror.ErrConflict)
		}
		return nil, err
	}

	return s.GetBook(ctx, id)
}

func (s *bookService) DeleteBook(ctx context.Context, actor *access.Actor, id uuid.UUID) error {
	if err := access.Authorize(actor, access.ManageCatalog); err != nil {
		return err
	}

	book, err := s.books.Delete(ctx, id)
	if err != nil {
		return err
	}

	if book.CoverImage != nil && s.imageStorage != nil {
		if err := s.imageStorage.DeleteImage(ctx, *book.CoverImage); err != nil {
			slog.Warn("failed to delete cover image", "book_id", book.ID, "error", err)
		}
	}

	return nil
}

func (s *bookService) UploadCover(ctx context.Context, actor *access.Actor, id uuid.UUID, file dto.CoverFile) (*dto.BookResponse, error) {
	if err := access.Authorize(actor, access.ManageCatalog); err != nil {
		return nil, err
	}
	if s.imageStorage == nil {
		return nil, fmt.Errorf("cover storage is not configured: %w", apperror.ErrInvalidOperation)
	}

	if _, err := s.books.FindByID(ctx, id); err != nil {
		return nil, err
	}

	url, err := s.imageStorage.UploadImage(ctx, file.Reader, coverFolder, file.FileName)
	if err != nil {
		return nil, err
	}

	previous, err := s.books.SetCover(ctx, id, url)
	if err != nil {
		// Do not leave an unreferenced upload behind.
		if delErr := s.imageStorage.DeleteImage(ctx, url); delErr != nil {
			slog.Warn("failed to delete orphan cover", "url", url, "error", delErr)
		}
		return nil, err
	}

	if previous != nil && *previous != url {
		if err := s.imageStorage.DeleteImage(ctx, *previous); err != nil {
			slog.Warn("failed to delete previous cover", "book_id", id, "error", err)
		}
	}

	return s.GetBook(ctx, id)
}

func (s *bookService) LinkCategory(ctx context.Context, actor *access.Actor, bookID, categoryID uuid.UUID) error {
	if err := access.Authorize(actor, access.ManageCatalog); err != nil {
		return err
	}

	_, err := s.categories.Link(ctx, bookID, categoryID)
	return err
}

func (s *bookService) UnlinkCategory(ctx context.Context, actor *access.Actor, bookID, categoryID uuid.UUID) error {
	if err := access.Authorize(actor, access.ManageCatalog); err != nil {
		return err
	}

	return s.categories.Unlink(ctx, bookID, categoryID)
}

func (s *bookService) buildBookResponses(ctx context.Context, books []*entity.Book) ([]dto.BookResponse, error) {
	categories, err := s.books.CategoriesForBooks(ctx, bookIDs(books))
	if err != nil {
		return nil, err
	}

	res := make([]dto.BookResponse, 0, len(books))
	for _, b := range books {
		res = append(res, toBookResponse(b, categories[b.ID]))
	}
	return res, nil
}

func bookIDs(books []*entity.Book) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
	}
	return ids
}
