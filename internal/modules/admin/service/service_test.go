package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"anoa.com/librarydesk/internal/access"
	"anoa.com/librarydesk/internal/entity"
	"anoa.com/librarydesk/internal/modules/admin/dto"
	loanRepo "anoa.com/librarydesk/internal/modules/loan/repository"
	userRepo "anoa.com/librarydesk/internal/modules/user/repository"
	userService "anoa.com/librarydesk/internal/modules/user/service"
	"anoa.com/librarydesk/internal/testutil"
	"anoa.com/librarydesk/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	svc    AdminService
	loans  loanRepo.LoanRepository
	admin  *access.Actor
	member *access.Actor
}

func newFixture(t *testing.T) *fixture {
	db := testutil.NewDB(t)
	users := userRepo.NewUserRepository(db)
	loans := loanRepo.NewLoanRepository(db)
	auth := userService.NewAuthService(users, userService.Options{JWTSecret: "test"})

	return &fixture{
		db:     db,
		svc:    NewAdminService(users, loans, auth),
		loans:  loans,
		admin:  access.NewActor(testutil.CreateUser(t, db, "admin@kutuphane.com", entity.RoleAdmin)),
		member: access.NewActor(testutil.CreateUser(t, db, "kullanici@kutuphane.com", entity.RoleUser)),
	}
}

func boolPtr(b bool) *bool { return &b }
func strPtr(s string) *string { return &s }

func TestDeleteUser_CascadesLoans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	books := []*entity.Book{
		testutil.CreateBook(t, f.db, "A", "1", "X"),
		testutil.CreateBook(t, f.db, "B", "2", "X"),
		testutil.CreateBook(t, f.db, "C", "3", "X"),
	}

	now := time.Now()
	for _, b := range books {
		_, err := f.loans.Borrow(ctx, f.member.ID, b.ID, now, now.Add(entity.DefaultLoanPeriod))
		require.NoError(t, err)
	}
	returned, err := f.loans.ListByUser(ctx, f.member.ID)
	require.NoError(t, err)
	_, err = f.loans.Return(ctx, returned[0].ID, now)
	require.NoError(t, err)

	res, err := f.svc.DeleteUser(ctx, f.admin, f.member.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.RemovedLoans)

	var loans, users int64
	require.NoError(t, f.db.Model(&entity.Loan{}).Where("user_id = ?", f.member.ID).Count(&loans).Error)
	require.NoError(t, f.db.Model(&entity.User{}).Where("id = ?", f.member.ID).Count(&users).Error)
	assert.Zero(t, loans)
	assert.Zero(t, users)

	for _, b := range books {
		var got entity.Book
		require.NoError(t, f.db.First(&got, "id = ?", b.ID).Error)
		assert.Equal(t, entity.BookAvailable, got.Status)
	}
	testutil.AssertLedgerConsistent(t, f.db)
}

func TestDeleteUser_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.DeleteUser(ctx, f.admin, f.admin.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidOperation)

	_, err = f.svc.DeleteUser(ctx, f.member, f.admin.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.svc.DeleteUser(ctx, nil, f.admin.ID)
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	_, err = f.svc.DeleteUser(ctx, f.admin, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	var n int64
	require.NoError(t, f.db.Model(&entity.User{}).Count(&n).Error)
	assert.EqualValues(t, 2, n)
}

func TestCreateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.CreateUser(ctx, f.admin, dto.CreateUserInput{Name: "Librarian", Email: "lib@kutuphane.com", Password: "secret1", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, res.User.Role)
	assert.True(t, res.User.Active)

	_, err = f.svc.CreateUser(ctx, f.admin, dto.CreateUserInput{Name: "Dup", Email: "lib@kutuphane.com", Password: "secret1", Role: "user"})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = f.svc.CreateUser(ctx, f.admin, dto.CreateUserInput{Name: "Bad", Email: "bad@kutuphane.com", Password: "secret1", Role: "owner"})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = f.svc.CreateUser(ctx, f.member, dto.CreateUserInput{Name: "X", Email: "x@kutuphane.com", Password: "secret1", Role: "user"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestUpdateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.UpdateUser(ctx, f.admin, f.member.ID, dto.UpdateAdminUserInput{
		Name:   strPtr("Renamed"),
		Role:   strPtr("admin"),
		Active: boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", res.User.Name)
	assert.Equal(t, entity.RoleAdmin, res.User.Role)
	assert.False(t, res.User.Active)

	_, err = f.svc.UpdateUser(ctx, f.admin, f.admin.ID, dto.UpdateAdminUserInput{Role: strPtr("user")})
	assert.ErrorIs(t, err, apperror.ErrInvalidOperation)

	_, err = f.svc.UpdateUser(ctx, f.admin, f.admin.ID, dto.UpdateAdminUserInput{Active: boolPtr(false)})
	assert.ErrorIs(t, err, apperror.ErrInvalidOperation)

	_, err = f.svc.UpdateUser(ctx, f.admin, f.member.ID, dto.UpdateAdminUserInput{Password: strPtr(strings.Repeat("ü", 72))})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = f.svc.UpdateUser(ctx, f.admin, f.member.ID, dto.UpdateAdminUserInput{Name: strPtr("  ")})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = f.svc.UpdateUser(ctx, f.admin, uuid.New(), dto.UpdateAdminUserInput{Name: strPtr("Ghost")})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.svc.UpdateUser(ctx, f.member, f.admin.ID, dto.UpdateAdminUserInput{Name: strPtr("Hacked")})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestGetAllUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	book := testutil.CreateBook(t, f.db, "A", "1", "X")
	now := time.Now()
	_, err := f.loans.Borrow(ctx, f.member.ID, book.ID, now, now.Add(entity.DefaultLoanPeriod))
	require.NoError(t, err)

	all, err := f.svc.GetAllUsers(ctx, f.admin, dto.UserFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	users, err := f.svc.GetAllUsers(ctx, f.admin, dto.UserFilter{Role: "user"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.EqualValues(t, 1, users[0].ActiveLoans)

	found, err := f.svc.GetAllUsers(ctx, f.admin, dto.UserFilter{Search: "KULLANICI"})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = f.svc.GetAllUsers(ctx, f.member, dto.UserFilter{})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}
