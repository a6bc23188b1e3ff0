package repository

import (
	"context"
	"fmt"
	"time"

	"anoa.com/librarydesk/internal/entity"
	"anoa.com/librarydesk/pkg/apperror"
	"anoa.com/librarydesk/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LoanFilter struct {
	Status entity.LoanStatus
	UserID *uuid.UUID
}

// Discrepancy is a book whose status disagrees with its active loans.
type Discrepancy struct {
	BookID      uuid.UUID         `json:"book_id"`
	ISBN        string            `json:"isbn"`
	Title       string            `json:"title"`
	Status      entity.BookStatus `json:"status"`
	ActiveLoans int64             `json:"active_loans"`
}

// LoanRepository is the only writer of loans and of books.status.
type LoanRepository interface {
	// Borrow flips the book to borrowed and records the loan in one
	// transaction. The flip is conditional on the book being available, so
	// concurrent borrows of one copy cannot both succeed.
	Borrow(ctx context.Context, userID, bookID uuid.UUID, loanDate, dueDate time.Time) (*entity.Loan, error)
	// Return closes an active loan and makes its book available again.
	Return(ctx context.Context, loanID uuid.UUID, at time.Time) (*entity.Loan, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Loan, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Loan, error)
	ListAll(ctx context.Context, filter LoanFilter) ([]*entity.Loan, error)
	CountActive(ctx context.Context, userID *uuid.UUID) (int64, error)
	Discrepancies(ctx context.Context) ([]Discrepancy, error)
	CountBooks(ctx context.Context) (int64, error)
}

type loanRepository struct {
	db *gorm.DB
}

func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Borrow(ctx context.Context, userID, bookID uuid.UUID, loanDate, dueDate time.Time) (*entity.Loan, error) {
	var loan *entity.Loan

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.Book{}).
			Where("id = ? AND status = ?", bookID, entity.BookAvailable).
			Update("status", entity.BookBorrowed)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&entity.Book{}).Where("id = ?", bookID).Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return fmt.Errorf("book %s: %w", bookID, apperror.ErrNotFound)
			}
			return apperror.ErrUnavailable
		}

		loan = &entity.Loan{
			UserID:   userID,
			BookID:   bookID,
			LoanDate: loanDate,
			DueDate:  dueDate,
			Status:   entity.LoanActive,
		}
		return tx.Omit("User", "Book").Create(loan).Error
	})
	if err != nil {
		return nil, database.TranslateError(err)
	}

	return loan, nil
}

func (r *loanRepository) Return(ctx context.Context, loanID uuid.UUID, at time.Time) (*entity.Loan, error) {
	var loan entity.Loan

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", loanID).First(&loan).Error; err != nil {
			return err
		}

		res := tx.Model(&entity.Loan{}).
			Where("id = ? AND status = ?", loanID, entity.LoanActive).
			Updates(map[string]any{
				"status":      entity.LoanReturned,
				"return_date": at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("loan is already %s: %w", loan.Status, apperror.ErrInvalidOperation)
		}

		if err := tx.Model(&entity.Book{}).
			Where("id = ?", loan.BookID).
			Update("status", entity.BookAvailable).Error; err != nil {
			return err
		}

		loan.Status = entity.LoanReturned
		loan.ReturnDate = &at
		return nil
	})
	if err != nil {
		return nil, database.TranslateError(err)
	}

	return &loan, nil
}

func (r *loanRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Loan, error) {
	var loan entity.Loan
	if err := r.db.WithContext(ctx).
		Joins("Book").
		Where("loans.id = ?", id).
		First(&loan).Error; err != nil {
		return nil, database.TranslateError(err)
	}
	return &loan, nil
}

func (r *loanRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Loan, error) {
	var loans []*entity.Loan
	if err := r.db.WithContext(ctx).
		Joins("Book").
		Where("loans.user_id = ?", userID).
		Order("loans.loan_date DESC").
		Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepository) ListAll(ctx context.Context, filter LoanFilter) ([]*entity.Loan, error) {
	var loans []*entity.Loan
	query := r.db.WithContext(ctx).Joins("Book").Order("loans.loan_date DESC")

	if filter.Status != "" {
		query = query.Where("loans.status = ?", filter.Status)
	}
	if filter.UserID != nil {
		query = query.Where("loans.user_id = ?", *filter.UserID)
	}

	if err := query.Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepository) CountActive(ctx context.Context, userID *uuid.UUID) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&entity.Loan{}).Where("status = ?", entity.LoanActive)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *loanRepository) Discrepancies(ctx context.Context) ([]Discrepancy, error) {
	var rows []Discrepancy
	err := r.db.WithContext(ctx).
		Table("books").
		Select("books.id AS book_id, books.isbn, books.title, books.status, COUNT(loans.id) AS active_loans").
		Joins("LEFT JOIN loans ON loans.book_id = books.id AND loans.status = ?", entity.LoanActive).
		Group("books.id, books.isbn, books.title, books.status").
		Having("(books.status = ? AND COUNT(loans.id) <> 1) OR (books.status <> ? AND COUNT(loans.id) <> 0)",
			entity.BookBorrowed, entity.BookBorrowed).
		Order("books.title ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *loanRepository) CountBooks(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entity.Book{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
