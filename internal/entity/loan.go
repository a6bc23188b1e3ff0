package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LoanStatus string

const (
	LoanActive   LoanStatus = "active"
	LoanReturned LoanStatus = "returned"
	LoanOverdue  LoanStatus = "overdue"
)

const DefaultLoanPeriod = 14 * 24 * time.Hour

type Loan struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	BookID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"book_id"`
	LoanDate   time.Time  `gorm:"not null;index" json:"loan_date"`
	DueDate    time.Time  `gorm:"not null" json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	Status     LoanStatus `gorm:"size:20;not null;default:active;index" json:"status"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`

	User *User `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	Book *Book `gorm:"constraint:OnDelete:RESTRICT" json:"book,omitempty"`
}

func (l *Loan) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == uuid.Nil {
		l.ID, err = uuid.NewV7()
	}
	if l.LoanDate.IsZero() {
		l.LoanDate = time.Now()
	}
	if l.DueDate.IsZero() {
		l.DueDate = l.LoanDate.Add(DefaultLoanPeriod)
	}
	if l.Status == "" {
		l.Status = LoanActive
	}
	return
}

// IsOverdue is derived at read time; the stored status is never moved to
// overdue automatically.
func (l *Loan) IsOverdue(now time.Time) bool {
	return l.Status == LoanActive && l.DueDate.Before(now)
}
