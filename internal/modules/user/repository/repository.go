package repository

import (
	"context"

	"anoa.com/librarydesk/internal/entity"
	"anoa.com/librarydesk/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindAll(ctx context.Context, filter UserFilter) ([]*entity.User, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	// DeleteWithLoans releases the books of the user's active loans, removes
	// every loan of the user and then the user, in one transaction.
	DeleteWithLoans(ctx context.Context, id uuid.UUID) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type UserFilter struct {
	Role   entity.Role
	Search string
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	return database.TranslateError(r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, database.TranslateError(err)
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, database.TranslateError(err)
	}
	return &user, nil
}

func (r *userRepository) FindAll(ctx context.Context, filter UserFilter) ([]*entity.User, error) {
	var users []*entity.User
	query := r.db.WithContext(ctx).Order("created_at DESC")

	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Search != "" {
		like := database.ContainsPattern(filter.Search)
		query = query.Where("(LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(email) LIKE ? ESCAPE '\\')", like, like)
	}

	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&entity.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return database.TranslateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return database.TranslateError(gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *userRepository) DeleteWithLoans(ctx context.Context, id uuid.UUID) (int64, error) {
	var removedLoans int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user entity.User
		if err := tx.Select("id").Where("id = ?", id).First(&user).Error; err != nil {
			return err
		}

		activeBooks := tx.Model(&entity.Loan{}).
			Select("book_id").
			Where("user_id = ? AND status = ?", id, entity.LoanActive)
		if err := tx.Model(&entity.Book{}).
			Where("id IN (?)", activeBooks).
			Update("status", entity.BookAvailable).Error; err != nil {
			return err
		}

		res := tx.Where("user_id = ?", id).Delete(&entity.Loan{})
		if res.Error != nil {
			return res.Error
		}
		removedLoans = res.RowsAffected

		return tx.Delete(&entity.User{}, "id = ?", id).Error
	})

	return removedLoans, database.TranslateError(err)
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entity.User{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
