package service

import (
	"context"
	"strings"
	"testing"

	"anoa.com/librarydesk/internal/access"
	"anoa.com/librarydesk/internal/entity"
	"anoa.com/librarydesk/internal/modules/user/dto"
	"anoa.com/librarydesk/internal/modules/user/repository"
	"anoa.com/librarydesk/internal/testutil"
	"anoa.com/librarydesk/pkg/apperror"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, adminCode string) (AuthService, repository.UserRepository) {
	db := testutil.NewDB(t)
	repo := repository.NewUserRepository(db)
	return NewAuthService(repo, Options{JWTSecret: "test-secret", AdminRegistrationCode: adminCode}), repo
}

func TestRegisterUser(t *testing.T) {
	svc, repo := newTestService(t, "")
	ctx := context.Background()

	res, err := svc.RegisterUser(ctx, dto.RegisterInput{Name: "Ayşe", Email: " Ayse@Example.com ", Password: "secret1"}, entity.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, "ayse@example.com", res.User.Email)
	assert.Equal(t, entity.RoleUser, res.User.Role)
	assert.NotEmpty(t, res.AccessToken)

	stored, err := repo.FindByEmail(ctx, "ayse@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)

	_, err = svc.RegisterUser(ctx, dto.RegisterInput{Name: "Other", Email: "ayse@example.com", Password: "secret2"}, entity.RoleUser)
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestRegisterUser_RejectsUnknownRole(t *testing.T) {
	svc, _ := newTestService(t, "")

	_, err := svc.RegisterUser(context.Background(), dto.RegisterInput{Name: "x", Email: "x@example.com", Password: "secret1"}, entity.Role("root"))
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestRegisterUser_RejectsBlankName(t *testing.T) {
	svc, repo := newTestService(t, "")
	ctx := context.Background()

	_, err := svc.RegisterUser(ctx, dto.RegisterInput{Name: "   ", Email: "blank@example.com", Password: "secret1"}, entity.RoleUser)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = repo.FindByEmail(ctx, "blank@example.com")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestHashPassword_ByteLimit(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", 72))
	assert.NoError(t, err)

	// 72 characters, 144 bytes
	_, err = HashPassword(strings.Repeat("ş", 72))
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestRegisterUser_MultibytePasswordTooLong(t *testing.T) {
	svc, _ := newTestService(t, "")

	_, err := svc.RegisterUser(context.Background(), dto.RegisterInput{
		Name:     "Ayşe",
		Email:    "ayse@example.com",
		Password: strings.Repeat("ğ", 72),
	}, entity.RoleUser)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestRegisterAdmin(t *testing.T) {
	input := dto.RegisterAdminInput{
		RegisterInput: dto.RegisterInput{Name: "Admin", Email: "boss@example.com", Password: "secret1"},
		Code:          "open-sesame",
	}

	t.Run("disabled without code", func(t *testing.T) {
		svc, _ := newTestService(t, "")
		_, err := svc.RegisterAdmin(context.Background(), input)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})

	t.Run("wrong code", func(t *testing.T) {
		svc, _ := newTestService(t, "something-else")
		_, err := svc.RegisterAdmin(context.Background(), input)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})

	t.Run("correct code", func(t *testing.T) {
		svc, _ := newTestService(t, "open-sesame")
		res, err := svc.RegisterAdmin(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, entity.RoleAdmin, res.User.Role)
	})
}

func TestLogin(t *testing.T) {
	svc, repo := newTestService(t, "")
	ctx := context.Background()

	reg, err := svc.RegisterUser(ctx, dto.RegisterInput{Name: "Mehmet", Email: "mehmet@example.com", Password: "secret1"}, entity.RoleUser)
	require.NoError(t, err)

	res, err := svc.Login(ctx, dto.LoginInput{Email: "MEHMET@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", res.TokenType)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(res.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID.String(), claims.Subject)

	_, err = svc.Login(ctx, dto.LoginInput{Email: "mehmet@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)

	_, err = svc.Login(ctx, dto.LoginInput{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)

	require.NoError(t, repo.Update(ctx, reg.User.ID, map[string]any{"active": false}))
	_, err = svc.Login(ctx, dto.LoginInput{Email: "mehmet@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestMe(t *testing.T) {
	svc, _ := newTestService(t, "")
	ctx := context.Background()

	reg, err := svc.RegisterUser(ctx, dto.RegisterInput{Name: "Zeynep", Email: "zeynep@example.com", Password: "secret1"}, entity.RoleUser)
	require.NoError(t, err)

	me, err := svc.Me(ctx, &access.Actor{ID: reg.User.ID, Role: entity.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, "Zeynep", me.Name)

	_, err = svc.Me(ctx, nil)
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	_, err = svc.Me(ctx, &access.Actor{ID: uuid.New(), Role: entity.RoleUser})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
