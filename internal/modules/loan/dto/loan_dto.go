package dto

import (
	"time"

	"anoa.com/librarydesk/internal/entity"
	"github.com/google/uuid"
)

type LoanFilter struct {
	Status string `form:"status" binding:"omitempty,oneof=active returned overdue"`
	UserID string `form:"user_id" binding:"omitempty,uuid"`
}

type LoanBook struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
	ISBN  string    `json:"isbn"`
}

type LoanResponse struct {
	ID         uuid.UUID         `json:"id"`
	UserID     uuid.UUID         `json:"user_id"`
	Book       LoanBook          `json:"book"`
	LoanDate   time.Time         `json:"loan_date"`
	DueDate    time.Time         `json:"due_date"`
	ReturnDate *time.Time        `json:"return_date,omitempty"`
	Status     entity.LoanStatus `json:"status"`
	IsOverdue  bool              `json:"is_overdue"`
}

// BookEvent is published whenever a loan changes a book's availability.
type BookEvent struct {
	BookID uuid.UUID         `json:"book_id"`
	Status entity.BookStatus `json:"status"`
	LoanID uuid.UUID         `json:"loan_id"`
	At     time.Time         `json:"at"`
}

type AuditReport struct {
	CheckedAt     time.Time     `json:"checked_at"`
	BooksChecked  int64         `json:"books_checked"`
	Consistent    bool          `json:"consistent"`
	Discrepancies []Discrepancy `json:"discrepancies"`
}

type Discrepancy struct {
	BookID      uuid.UUID         `json:"book_id"`
	ISBN        string            `json:"isbn"`
	Title       string            `json:"title"`
	Status      entity.BookStatus `json:"status"`
	ActiveLoans int64             `json:"active_loans"`
}
