package dto

import (
	"io"
	"time"

	"anoa.com/librarydesk/internal/entity"
	"github.com/google/uuid"
)

type CreateBookRequest struct {
	Title           string  `json:"title" binding:"required,max=200"`
	ISBN            string  `json:"isbn" binding:"required,max=20"`
	AuthorName      string  `json:"author_name" binding:"required,max=100"`
	PublicationYear *int    `json:"publication_year" binding:"omitempty,min=0,max=9999"`
	PageCount       *int    `json:"page_count" binding:"omitempty,min=1"`
	ShelfNumber     *string `json:"shelf_number" binding:"omitempty,max=20"`
}

// UpdateBookRequest is a partial update; nil fields are left untouched.
type UpdateBookRequest struct {
	Title           *string `json:"title" binding:"omitempty,min=1,max=200"`
	ISBN            *string `json:"isbn" binding:"omitempty,min=1,max=20"`
	AuthorName      *string `json:"author_name" binding:"omitempty,min=1,max=100"`
	PublicationYear *int    `json:"publication_year" binding:"omitempty,min=0,max=9999"`
	PageCount       *int    `json:"page_count" binding:"omitempty,min=1"`
	ShelfNumber     *string `json:"shelf_number" binding:"omitempty,max=20"`
}

type BookFilter struct {
	Status string `form:"status" binding:"omitempty,oneof=available borrowed"`
}

type SearchQuery struct {
	Query string `form:"q"`
	By    string `form:"by"`
}

type CoverFile struct {
	Reader   io.Reader
	FileName string
}

type AuthorSummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type CategorySummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type BookResponse struct {
	ID              uuid.UUID         `json:"id"`
	ISBN            string            `json:"isbn"`
	Title           string            `json:"title"`
	PublicationYear *int              `json:"publication_year,omitempty"`
	PageCount       *int              `json:"page_count,omitempty"`
	ShelfNumber     *string           `json:"shelf_number,omitempty"`
	CoverImage      *string           `json:"cover_image,omitempty"`
	Status          entity.BookStatus `json:"status"`
	Author          *AuthorSummary    `json:"author,omitempty"`
	Categories      []CategorySummary `json:"categories"`
	CreatedAt       time.Time         `json:"created_at"`

	// Set on the admin catalog view only.
	CurrentLoan *CurrentLoan `json:"current_loan,omitempty"`
}

type CurrentLoan struct {
	LoanID    uuid.UUID `json:"loan_id"`
	UserID    uuid.UUID `json:"user_id"`
	DueDate   time.Time `json:"due_date"`
	IsOverdue bool      `json:"is_overdue"`
}

type CreateAuthorRequest struct {
	Name string `json:"name" binding:"required,max=100"`
	Bio  string `json:"bio"`
}

type AuthorFilter struct {
	Search string `form:"search"`
}

type AuthorResponse struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Bio       string         `json:"bio"`
	CreatedAt time.Time      `json:"created_at"`
	Books     []BookResponse `json:"books,omitempty"`
}

type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required,max=50"`
	Description string `json:"description"`
}

type CategoryFilter struct {
	Search string `form:"search"`
}

type CategoryResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

type LinkCategoryRequest struct {
	CategoryID string `json:"category_id" binding:"required,uuid"`
}
