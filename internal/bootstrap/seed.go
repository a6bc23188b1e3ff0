// Package bootstrap migrates the schema and loads demo data.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"anoa.com/librarydesk/internal/entity"
	catalogRepo "anoa.com/librarydesk/internal/modules/catalog/repository"
	userService "anoa.com/librarydesk/internal/modules/user/service"
	"anoa.com/librarydesk/pkg/apperror"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(entity.Models()...)
}

type seedAccount struct {
	name     string
	email    string
	password string
	role     entity.Role
}

var demoAccounts = []seedAccount{
	{name: "Yönetici", email: "admin@kutuphane.com", password: "admin123", role: entity.RoleAdmin},
	{name: "Kullanıcı", email: "kullanici@kutuphane.com", password: "test123", role: entity.RoleUser},
}

type seedBook struct {
	title  string
	isbn   string
	author string
	year   int
	pages  int
	shelf  string
	tags   []string
}

var sampleAuthors = map[string]string{
	"Yaşar Kemal":    "Türk romancı ve öykücü.",
	"Orhan Pamuk":    "Nobel Edebiyat Ödülü sahibi romancı.",
	"Sabahattin Ali": "Öykü, roman ve şiir yazarı.",
}

var sampleCategories = map[string]string{
	"Roman":       "Uzun anlatı türündeki eserler",
	"Şiir":        "Şiir kitapları",
	"Bilim Kurgu": "Bilim kurgu eserleri",
}

var sampleBooks = []seedBook{
	{title: "İnce Memed", isbn: "9789750806623", author: "Yaşar Kemal", year: 1955, pages: 436, shelf: "A-12", tags: []string{"Roman"}},
	{title: "Kara Kitap", isbn: "9789754700114", author: "Orhan Pamuk", year: 1990, pages: 472, shelf: "B-03", tags: []string{"Roman"}},
	{title: "Kürk Mantolu Madonna", isbn: "9789753638029", author: "Sabahattin Ali", year: 1943, pages: 160, shelf: "C-07", tags: []string{"Roman"}},
}

// SeedAdminUser creates an admin account unless the email already exists.
// It reports whether a row was inserted.
func SeedAdminUser(db *gorm.DB, name, email, password string) (bool, error) {
	return seedUser(db, seedAccount{name: name, email: email, password: password, role: entity.RoleAdmin})
}

// SeedDemoAccounts creates the demo admin and user accounts.
func SeedDemoAccounts(db *gorm.DB) error {
	for _, acc := range demoAccounts {
		created, err := seedUser(db, acc)
		if err != nil {
			return err
		}
		if created {
			slog.Info("demo account seeded", "email", acc.email, "role", acc.role)
		}
	}
	return nil
}

func seedUser(db *gorm.DB, acc seedAccount) (bool, error) {
	email := userService.NormalizeEmail(acc.email)

	var count int64
	if err := db.Model(&entity.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	hashed, err := userService.HashPassword(acc.password)
	if err != nil {
		return false, err
	}

	user := entity.User{
		Name:         acc.name,
		Email:        email,
		PasswordHash: hashed,
		Role:         acc.role,
		Active:       true,
	}
	if err := db.Create(&user).Error; err != nil {
		return false, err
	}
	return true, nil
}

// SeedSampleCatalog loads a small catalog. Books whose ISBN already exists
// are skipped, so running it twice is harmless.
func SeedSampleCatalog(ctx context.Context, db *gorm.DB) error {
	authors := catalogRepo.NewAuthorRepository(db)
	books := catalogRepo.NewBookRepository(db)
	categories := catalogRepo.NewCategoryRepository(db)

	categoryIDs := make(map[string]entity.Category, len(sampleCategories))
	for name, desc := range sampleCategories {
		var cat entity.Category
		if err := db.WithContext(ctx).
			Where(entity.Category{Name: name}).
			Attrs(entity.Category{Description: desc}).
			FirstOrCreate(&cat).Error; err != nil {
			return fmt.Errorf("seed category %s: %w", name, err)
		}
		categoryIDs[name] = cat
	}

	for name, bio := range sampleAuthors {
		if _, _, err := authors.FindOrCreate(ctx, name, bio); err != nil {
			return fmt.Errorf("seed author %s: %w", name, err)
		}
	}

	for _, sb := range sampleBooks {
		year, pages, shelf := sb.year, sb.pages, sb.shelf
		book := &entity.Book{
			Title:           sb.title,
			ISBN:            sb.isbn,
			PublicationYear: &year,
			PageCount:       &pages,
			ShelfNumber:     &shelf,
		}

		err := books.CreateWithAuthor(ctx, book, sb.author)
		if errors.Is(err, apperror.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("seed book %s: %w", sb.title, err)
		}

		for _, tag := range sb.tags {
			if _, err := categories.Link(ctx, book.ID, categoryIDs[tag].ID); err != nil {
				return fmt.Errorf("link %s to %s: %w", sb.title, tag, err)
			}
		}
	}

	slog.Info("sample catalog seeded", "books", len(sampleBooks))
	return nil
}
