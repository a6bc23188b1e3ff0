package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookStatus string

const (
	BookAvailable BookStatus = "available"
	BookBorrowed  BookStatus = "borrowed"
)

type Book struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ISBN            string     `gorm:"column:isbn;size:20;uniqueIndex;not null" json:"isbn"`
	Title           string     `gorm:"size:200;not null" json:"title"`
	PublicationYear *int       `json:"publication_year,omitempty"`
	PageCount       *int       `json:"page_count,omitempty"`
	ShelfNumber     *string    `gorm:"size:20" json:"shelf_number,omitempty"`
	CoverImage      *string    `gorm:"type:text" json:"cover_image,omitempty"`
	Status          BookStatus `gorm:"size:20;not null;default:available;index" json:"status"`
	AuthorID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"author_id"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`

	Author *Author `gorm:"constraint:OnDelete:RESTRICT" json:"author,omitempty"`
}

func (b *Book) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID, err = uuid.NewV7()
	}
	if b.Status == "" {
		b.Status = BookAvailable
	}
	return
}

func (b *Book) IsAvailable() bool {
	return b.Status == BookAvailable
}
