// Package testutil builds throwaway SQLite databases for package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"anoa.com/librarydesk/internal/entity"
	"anoa.com/librarydesk/pkg/database"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(entity.Models()...))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func CreateUser(t *testing.T, db *gorm.DB, email string, role entity.Role) *entity.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	u := &entity.User{
		Name:         email,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func CreateBook(t *testing.T, db *gorm.DB, title, isbn, authorName string) *entity.Book {
	t.Helper()

	var author entity.Author
	require.NoError(t, db.Where(entity.Author{Name: authorName}).FirstOrCreate(&author).Error)

	b := &entity.Book{Title: title, ISBN: isbn, AuthorID: author.ID, Status: entity.BookAvailable}
	require.NoError(t, db.Omit("Author").Create(b).Error)
	return b
}

// ActiveLoanCount counts active loans referencing a book.
func ActiveLoanCount(t *testing.T, db *gorm.DB, bookID any) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(&entity.Loan{}).
		Where("book_id = ? AND status = ?", bookID, entity.LoanActive).
		Count(&n).Error)
	return n
}

// AssertLedgerConsistent checks that every book is borrowed exactly when it
// has one active loan.
func AssertLedgerConsistent(t *testing.T, db *gorm.DB) {
	t.Helper()

	var books []entity.Book
	require.NoError(t, db.Find(&books).Error)

	for _, b := range books {
		n := ActiveLoanCount(t, db, b.ID)
		if b.Status == entity.BookBorrowed {
			require.EqualValuesf(t, 1, n, "book %s is borrowed with %d active loans", b.ISBN, n)
		} else {
			require.EqualValuesf(t, 0, n, "book %s is available with %d active loans", b.ISBN, n)
		}
	}
}
