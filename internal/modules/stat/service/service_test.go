package service

import (
	"context"
	"testing"
	"time"

	"anoa.com/librarydesk/internal/access"
	"anoa.com/librarydesk/internal/entity"
	loanRepo "anoa.com/librarydesk/internal/modules/loan/repository"
	userRepo "anoa.com/librarydesk/internal/modules/user/repository"
	"anoa.com/librarydesk/internal/testutil"
	"anoa.com/librarydesk/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboard(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	loans := loanRepo.NewLoanRepository(db)
	svc := NewStatService(userRepo.NewUserRepository(db), loans, nil, time.Minute)

	admin := access.NewActor(testutil.CreateUser(t, db, "admin@kutuphane.com", entity.RoleAdmin))
	member := access.NewActor(testutil.CreateUser(t, db, "kullanici@kutuphane.com", entity.RoleUser))

	first := testutil.CreateBook(t, db, "A", "1", "X")
	testutil.CreateBook(t, db, "B", "2", "X")

	now := time.Now()
	_, err := loans.Borrow(ctx, member.ID, first.ID, now, now.Add(entity.DefaultLoanPeriod))
	require.NoError(t, err)

	t.Run("admin", func(t *testing.T) {
		res, err := svc.Dashboard(ctx, admin)
		require.NoError(t, err)
		require.NotNil(t, res.BookCount)
		assert.EqualValues(t, 2, *res.BookCount)
		assert.EqualValues(t, 2, *res.UserCount)
		assert.EqualValues(t, 1, *res.ActiveLoans)
		assert.Nil(t, res.ActiveLoanCount)
	})

	t.Run("user", func(t *testing.T) {
		res, err := svc.Dashboard(ctx, member)
		require.NoError(t, err)
		require.NotNil(t, res.ActiveLoanCount)
		assert.EqualValues(t, 1, *res.ActiveLoanCount)
		assert.Nil(t, res.BookCount)
	})

	t.Run("anonymous", func(t *testing.T) {
		_, err := svc.Dashboard(ctx, nil)
		assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	})
}
