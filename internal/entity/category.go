package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:50;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	return
}

// BookCategory links a book to a category. Pairs are not unique at the
// storage level; the catalog service keeps linking idempotent.
type BookCategory struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookID     uuid.UUID `gorm:"type:uuid;not null;index" json:"book_id"`
	CategoryID uuid.UUID `gorm:"type:uuid;not null;index" json:"category_id"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`

	Book     *Book     `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	Category *Category `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
}

func (bc *BookCategory) BeforeCreate(tx *gorm.DB) (err error) {
	if bc.ID == uuid.Nil {
		bc.ID, err = uuid.NewV7()
	}
	return
}
