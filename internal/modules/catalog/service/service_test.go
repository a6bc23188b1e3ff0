package catalog

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"anoa.com/librarydesk/internal/access"
	"anoa.com/librarydesk/internal/entity"
	"anoa.com/librarydesk/internal/modules/catalog/dto"
	"anoa.com/librarydesk/internal/modules/catalog/repository"
	"anoa.com/librarydesk/internal/testutil"
	"anoa.com/librarydesk/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeStorage struct {
	uploaded []string
	deleted  []string
	failNext bool
}

func (f *fakeStorage) UploadImage(_ context.Context, r io.Reader, folder, fileName string) (string, error) {
	if f.failNext {
		f.failNext = false
		return "", errors.New("upload failed")
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	url := "https://res.cloudinary.com/demo/image/upload/" + folder + "/" + fileName
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeStorage) DeleteImage(_ context.Context, fileURL string) error {
	f.deleted = append(f.deleted, fileURL)
	return nil
}

type fixture struct {
	db         *gorm.DB
	books      BookService
	authors    AuthorService
	categories CategoryService
	storage    *fakeStorage
	admin      *access.Actor
	member     *access.Actor
}

func newFixture(t *testing.T) *fixture {
	db := testutil.NewDB(t)
	bookRepo := repository.NewBookRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	authorRepo := repository.NewAuthorRepository(db)
	store := &fakeStorage{}

	admin := testutil.CreateUser(t, db, "admin@example.com", entity.RoleAdmin)
	member := testutil.CreateUser(t, db, "member@example.com", entity.RoleUser)

	return &fixture{
		db:         db,
		books:      NewBookService(bookRepo, categoryRepo, store),
		authors:    NewAuthorService(authorRepo, bookRepo),
		categories: NewCategoryService(categoryRepo),
		storage:    store,
		admin:      access.NewActor(admin),
		member:     access.NewActor(member),
	}
}

func intPtr(i int) *int { return &i }

func TestAddBook_WithNewAuthor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.books.AddBook(ctx, f.admin, dto.CreateBookRequest{
		Title:           "Kürk Mantolu Madonna",
		ISBN:            "9789753638029",
		AuthorName:      "  Sabahattin Ali ",
		PublicationYear: intPtr(1943),
		PageCount:       intPtr(160),
	})
	require.NoError(t, err)

	assert.Equal(t, entity.BookAvailable, res.Status)
	require.NotNil(t, res.Author)
	assert.Equal(t, "Sabahattin Ali", res.Author.Name)
	assert.Equal(t, 1943, *res.PublicationYear)

	authors, err := f.authors.ListAuthors(ctx, dto.AuthorFilter{})
	require.NoError(t, err)
	require.Len(t, authors, 1)
	assert.Equal(t, "Sabahattin Ali", authors[0].Name)

	_, err = f.books.AddBook(ctx, f.admin, dto.CreateBookRequest{Title: "Dup", ISBN: "9789753638029", AuthorName: "X"})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestAddBook_RejectsBlankFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  dto.CreateBookRequest
	}{
		{"blank title", dto.CreateBookRequest{Title: "   ", ISBN: "9789750806623", AuthorName: "Yaşar Kemal"}},
		{"blank isbn", dto.CreateBookRequest{Title: "İnce Memed", ISBN: " \t ", AuthorName: "Yaşar Kemal"}},
		{"blank author", dto.CreateBookRequest{Title: "İnce Memed", ISBN: "9789750806623", AuthorName: "  "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.books.AddBook(ctx, f.admin, tt.req)
			assert.ErrorIs(t, err, apperror.ErrInvalidInput)
		})
	}

	var books, authors int64
	require.NoError(t, f.db.Model(&entity.Book{}).Count(&books).Error)
	require.NoError(t, f.db.Model(&entity.Author{}).Count(&authors).Error)
	assert.Zero(t, books)
	assert.Zero(t, authors)
}

func TestCatalogWrites_RequireManageCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := uuid.New()

	_, err := f.books.AddBook(ctx, f.member, dto.CreateBookRequest{Title: "T", ISBN: "1", AuthorName: "A"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.books.AddBook(ctx, nil, dto.CreateBookRequest{Title: "T", ISBN: "1", AuthorName: "A"})
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	_, err = f.books.EditBook(ctx, f.member, id, dto.UpdateBookRequest{})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	assert.ErrorIs(t, f.books.DeleteBook(ctx, f.member, id), apperror.ErrForbidden)
	assert.ErrorIs(t, f.books.LinkCategory(ctx, f.member, id, id), apperror.ErrForbidden)

	_, err = f.books.AdminListBooks(ctx, f.member, dto.BookFilter{})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.categories.CreateCategory(ctx, f.member, dto.CreateCategoryRequest{Name: "Roman"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, _, err = f.authors.FindOrCreateAuthor(ctx, f.member, dto.CreateAuthorRequest{Name: "A"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	var n int64
	require.NoError(t, f.db.Model(&entity.Book{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestEditBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	book := testutil.CreateBook(t, f.db, "İnce Memed", "9789750806623", "Yaşar Kemal")

	title := "İnce Memed 1"
	shelf := "A-12"
	res, err := f.books.EditBook(ctx, f.admin, book.ID, dto.UpdateBookRequest{Title: &title, ShelfNumber: &shelf})
	require.NoError(t, err)
	assert.Equal(t, title, res.Title)
	assert.Equal(t, "A-12", *res.ShelfNumber)
	assert.Equal(t, "Yaşar Kemal", res.Author.Name)
	assert.Equal(t, entity.BookAvailable, res.Status)

	blank := "   "
	_, err = f.books.EditBook(ctx, f.admin, book.ID, dto.UpdateBookRequest{AuthorName: &blank})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = f.books.EditBook(ctx, f.admin, book.ID, dto.UpdateBookRequest{Title: &blank})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = f.books.EditBook(ctx, f.admin, book.ID, dto.UpdateBookRequest{ISBN: &blank})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	var stored entity.Book
	require.NoError(t, f.db.First(&stored, "id = ?", book.ID).Error)
	assert.Equal(t, title, stored.Title)
	assert.Equal(t, "9789750806623", stored.ISBN)

	_, err = f.books.EditBook(ctx, f.admin, uuid.New(), dto.UpdateBookRequest{Title: &title})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDeleteBook_RemovesCover(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	book := testutil.CreateBook(t, f.db, "Kara Kitap", "9789754700114", "Orhan Pamuk")

	res, err := f.books.UploadCover(ctx, f.admin, book.ID, dto.CoverFile{Reader: strings.NewReader("img"), FileName: "kara.png"})
	require.NoError(t, err)
	require.NotNil(t, res.CoverImage)

	require.NoError(t, f.books.DeleteBook(ctx, f.admin, book.ID))
	assert.Equal(t, []string{*res.CoverImage}, f.storage.deleted)

	_, err = f.books.GetBook(ctx, book.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUploadCover_ReplacesPrevious(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	book := testutil.CreateBook(t, f.db, "Kara Kitap", "9789754700114", "Orhan Pamuk")

	first, err := f.books.UploadCover(ctx, f.admin, book.ID, dto.CoverFile{Reader: strings.NewReader("a"), FileName: "one.png"})
	require.NoError(t, err)
	second, err := f.books.UploadCover(ctx, f.admin, book.ID, dto.CoverFile{Reader: strings.NewReader("b"), FileName: "two.png"})
	require.NoError(t, err)

	assert.NotEqual(t, *first.CoverImage, *second.CoverImage)
	assert.Equal(t, []string{*first.CoverImage}, f.storage.deleted)

	f.storage.failNext = true
	_, err = f.books.UploadCover(ctx, f.admin, book.ID, dto.CoverFile{Reader: strings.NewReader("c"), FileName: "three.png"})
	assert.Error(t, err)

	got, err := f.books.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, *second.CoverImage, *got.CoverImage)
}

func TestUploadCover_WithoutStorage(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewBookService(repository.NewBookRepository(db), repository.NewCategoryRepository(db), nil)
	admin := access.NewActor(testutil.CreateUser(t, db, "admin@example.com", entity.RoleAdmin))
	book := testutil.CreateBook(t, db, "Kara Kitap", "9789754700114", "Orhan Pamuk")

	_, err := svc.UploadCover(context.Background(), admin, book.ID, dto.CoverFile{Reader: strings.NewReader("a"), FileName: "a.png"})
	assert.ErrorIs(t, err, apperror.ErrInvalidOperation)
}

func TestSearchBooks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	testutil.CreateBook(t, f.db, "İnce Memed", "9789750806623", "Yaşar Kemal")
	testutil.CreateBook(t, f.db, "Kara Kitap", "9789754700114", "Orhan Pamuk")

	res, err := f.books.SearchBooks(ctx, "kara", "")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Kara Kitap", res[0].Title)

	res, err = f.books.SearchBooks(ctx, "KEMAL", "author")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "İnce Memed", res[0].Title)

	_, err = f.books.SearchBooks(ctx, "x", "publisher")
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
}

func TestLinkCategory_ShowsOnBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	book := testutil.CreateBook(t, f.db, "Dune", "555", "Frank Herbert")
	cat, err := f.categories.CreateCategory(ctx, f.admin, dto.CreateCategoryRequest{Name: "Bilim Kurgu", Description: "<b>uzay</b>"})
	require.NoError(t, err)
	assert.Equal(t, "uzay", cat.Description)

	require.NoError(t, f.books.LinkCategory(ctx, f.admin, book.ID, cat.ID))
	require.NoError(t, f.books.LinkCategory(ctx, f.admin, book.ID, cat.ID))

	got, err := f.books.GetBook(ctx, book.ID)
	require.NoError(t, err)
	require.Len(t, got.Categories, 1)
	assert.Equal(t, "Bilim Kurgu", got.Categories[0].Name)

	require.NoError(t, f.books.UnlinkCategory(ctx, f.admin, book.ID, cat.ID))
	got, err = f.books.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Categories)

	require.NoError(t, f.categories.DeleteCategory(ctx, f.admin, cat.ID))
	list, err := f.categories.GetAllCategories(ctx, dto.CategoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAdminListBooks_ShowsCurrentLoan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lent := testutil.CreateBook(t, f.db, "Lent", "1", "A")
	testutil.CreateBook(t, f.db, "Shelved", "2", "A")

	require.NoError(t, f.db.Model(&entity.Book{}).Where("id = ?", lent.ID).Update("status", entity.BookBorrowed).Error)
	loan := &entity.Loan{UserID: f.member.ID, BookID: lent.ID}
	require.NoError(t, f.db.Omit("User", "Book").Create(loan).Error)

	res, err := f.books.AdminListBooks(ctx, f.admin, dto.BookFilter{})
	require.NoError(t, err)
	require.Len(t, res, 2)

	for _, b := range res {
		if b.ID == lent.ID {
			require.NotNil(t, b.CurrentLoan)
			assert.Equal(t, loan.ID, b.CurrentLoan.LoanID)
			assert.Equal(t, f.member.ID, b.CurrentLoan.UserID)
			assert.False(t, b.CurrentLoan.IsOverdue)
		} else {
			assert.Nil(t, b.CurrentLoan)
		}
	}

	available, err := f.books.ListBooks(ctx, dto.BookFilter{Status: "available"})
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "Shelved", available[0].Title)
}

func TestGetAuthor_WithBooks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, created, err := f.authors.FindOrCreateAuthor(ctx, f.admin, dto.CreateAuthorRequest{Name: "Orhan Pamuk", Bio: "<script>x</script>Nobel"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Nobel", a.Bio)

	_, created, err = f.authors.FindOrCreateAuthor(ctx, f.admin, dto.CreateAuthorRequest{Name: "Orhan Pamuk"})
	require.NoError(t, err)
	assert.False(t, created)

	testutil.CreateBook(t, f.db, "Kara Kitap", "9789754700114", "Orhan Pamuk")
	testutil.CreateBook(t, f.db, "Benim Adım Kırmızı", "9789750806043", "Orhan Pamuk")

	got, err := f.authors.GetAuthor(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, got.Books, 2)

	_, err = f.authors.GetAuthor(ctx, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
