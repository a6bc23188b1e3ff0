package repository

import (
	"context"

	"anoa.com/librarydesk/internal/entity"
	"anoa.com/librarydesk/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuthorRepository interface {
	// FindOrCreate returns the first author with exactly this name, creating
	// it when none exists. created reports whether a row was inserted.
	FindOrCreate(ctx context.Context, name, bio string) (author *entity.Author, created bool, err error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Author, error)
	FindAll(ctx context.Context, search string) ([]*entity.Author, error)
}

type authorRepository struct {
	db *gorm.DB
}

func NewAuthorRepository(db *gorm.DB) AuthorRepository {
	return &authorRepository{db: db}
}

func (r *authorRepository) FindOrCreate(ctx context.Context, name, bio string) (*entity.Author, bool, error) {
	var (
		author  *entity.Author
		created bool
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		author, created, err = findOrCreateAuthor(tx, name, bio)
		return err
	})
	if err != nil {
		return nil, false, database.TranslateError(err)
	}

	return author, created, nil
}

func (r *authorRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Author, error) {
	var author entity.Author
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&author).Error; err != nil {
		return nil, database.TranslateError(err)
	}
	return &author, nil
}

func (r *authorRepository) FindAll(ctx context.Context, search string) ([]*entity.Author, error) {
	var authors []*entity.Author
	query := r.db.WithContext(ctx).Order("name ASC")

	if search != "" {
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, database.ContainsPattern(search))
	}

	if err := query.Find(&authors).Error; err != nil {
		return nil, err
	}
	return authors, nil
}
