package catalog

import (
	"context"
	"fmt"
	"strings"

	"anoa.com/librarydesk/internal/access"
	"anoa.com/librarydesk/internal/modules/catalog/dto"
	"anoa.com/librarydesk/internal/modules/catalog/repository"
	"anoa.com/librarydesk/pkg/apperror"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

type AuthorService interface {
	FindOrCreateAuthor(ctx context.Context, actor *access.Actor, req dto.CreateAuthorRequest) (res *dto.AuthorResponse, created bool, err error)
	ListAuthors(ctx context.Context, filter dto.AuthorFilter) ([]dto.AuthorResponse, error)
	GetAuthor(ctx context.Context, id uuid.UUID) (*dto.AuthorResponse, error)
}

type authorService struct {
	authors   repository.AuthorRepository
	books     repository.BookRepository
	sanitizer *bluemonday.Policy
}

func NewAuthorService(authors repository.AuthorRepository, books repository.BookRepository) AuthorService {
	return &authorService{
		authors:   authors,
		books:     books,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (s *authorService) FindOrCreateAuthor(ctx context.Context, actor *access.Actor, req dto.CreateAuthorRequest) (*dto.AuthorResponse, bool, error) {
	if err := access.Authorize(actor, access.ManageCatalog); err != nil {
		return nil, false, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, false, fmt.Errorf("author name is required: %w", apperror.ErrInvalidInput)
	}

	author, created, err := s.authors.FindOrCreate(ctx, name, s.sanitizer.Sanitize(strings.TrimSpace(req.Bio)))
	if err != nil {
		return nil, false, err
	}

	res := toAuthorResponse(author)
	return &res, created, nil
}

func (s *authorService) ListAuthors(ctx context.Context, filter dto.AuthorFilter) ([]dto.AuthorResponse, error) {
	authors, err := s.authors.FindAll(ctx, filter.Search)
	if err != nil {
		return nil, err
	}

	res := make([]dto.AuthorResponse, 0, len(authors))
	for _, a := range authors {
		res = append(res, toAuthorResponse(a))
	}
	return res, nil
}

func (s *authorService) GetAuthor(ctx context.Context, id uuid.UUID) (*dto.AuthorResponse, error) {
	author, err := s.authors.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	books, err := s.books.FindByAuthor(ctx, id)
	if err != nil {
		return nil, err
	}

	categories, err := s.books.CategoriesForBooks(ctx, bookIDs(books))
	if err != nil {
		return nil, err
	}

	res := toAuthorResponse(author)
	res.Books = make([]dto.BookResponse, 0, len(books))
	for _, b := range books {
		b.Author = author
		res.Books = append(res.Books, toBookResponse(b, categories[b.ID]))
	}
	return &res, nil
}
