package catalog

import (
	"context"
	"fmt"
	"strings"

	"anoa.com/librarydesk/internal/access"
	"anoa.com/librarydesk/internal/entity"
	"anoa.com/librarydesk/internal/modules/catalog/dto"
	"anoa.com/librarydesk/internal/modules/catalog/repository"
	"anoa.com/librarydesk/pkg/apperror"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

type CategoryService interface {
	CreateCategory(ctx context.Context, actor *access.Actor, req dto.CreateCategoryRequest) (*dto.CategoryResponse, error)
	GetAllCategories(ctx context.Context, filter dto.CategoryFilter) ([]dto.CategoryResponse, error)
	DeleteCategory(ctx context.Context, actor *access.Actor, id uuid.UUID) error
}

type categoryService struct {
	repo      repository.CategoryRepository
	sanitizer *bluemonday.Policy
}

func NewCategoryService(repo repository.CategoryRepository) CategoryService {
	return &categoryService{
		repo:      repo,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (s *categoryService) CreateCategory(ctx context.Context, actor *access.Actor, req dto.CreateCategoryRequest) (*dto.CategoryResponse, error) {
	if err := access.Authorize(actor, access.ManageCatalog); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("category name is required: %w", apperror.ErrInvalidInput)
	}

	category := &entity.Category{
		Name:        name,
		Description: s.sanitizer.Sanitize(strings.TrimSpace(req.Description)),
	}

	if err := s.repo.Create(ctx, category); err != nil {
		return nil, err
	}

	res := toCategoryResponse(category)
	return &res, nil
}

func (s *categoryService) GetAllCategories(ctx context.Context, filter dto.CategoryFilter) ([]dto.CategoryResponse, error) {
	categories, err := s.repo.FindAll(ctx, filter.Search)
	if err != nil {
		return nil, err
	}

	res := make([]dto.CategoryResponse, 0, len(categories))
	for _, c := range categories {
		res = append(res, toCategoryResponse(c))
	}
	return res, nil
}

func (s *categoryService) DeleteCategory(ctx context.Context, actor *access.Actor, id uuid.UUID) error {
	if err := access.Authorize(actor, access.ManageCatalog); err != nil {
		return err
	}

	return s.repo.Delete(ctx, id)
}
