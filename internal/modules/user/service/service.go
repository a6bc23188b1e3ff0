package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"anoa.com/librarydesk/internal/access"
	"anoa.com/librarydesk/internal/entity"
	"anoa.com/librarydesk/internal/modules/user/dto"
	"anoa.com/librarydesk/internal/modules/user/repository"
	"anoa.com/librarydesk/pkg/apperror"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	RegisterUser(ctx context.Context, input dto.RegisterInput, role entity.Role) (*dto.AuthResponse, error)
	RegisterAdmin(ctx context.Context, input dto.RegisterAdminInput) (*dto.AuthResponse, error)
	Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error)
	Me(ctx context.Context, actor *access.Actor) (*entity.User, error)
}

type Options struct {
	JWTSecret             string
	TokenTTL              time.Duration
	AdminRegistrationCode string
}

type authService struct {
	repo      repository.UserRepository
	secret    string
	tokenTTL  time.Duration
	adminCode string
}

func NewAuthService(repo repository.UserRepository, opts Options) AuthService {
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &authService{
		repo:      repo,
		secret:    opts.JWTSecret,
		tokenTTL:  ttl,
		adminCode: opts.AdminRegistrationCode,
	}
}

// maxPasswordBytes is bcrypt's input limit.
const maxPasswordBytes = 72

// HashPassword hashes a plain password with bcrypt's default cost.
func HashPassword(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", fmt.Errorf("password must be at most %d bytes: %w", maxPasswordBytes, apperror.ErrInvalidInput)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) RegisterUser(ctx context.Context, input dto.RegisterInput, role entity.Role) (*dto.AuthResponse, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("role %q: %w", role, apperror.ErrInvalidInput)
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", apperror.ErrInvalidInput)
	}

	hashed, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		Name:         name,
		Email:        NormalizeEmail(input.Email),
		PasswordHash: hashed,
		Role:         role,
		Active:       true,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, fmt.Errorf("email %s is already registered: %w", user.Email, apperror.ErrConflict)
		}
		return nil, err
	}

	return s.buildAuthResponse(user)
}

func (s *authService) RegisterAdmin(ctx context.Context, input dto.RegisterAdminInput) (*dto.AuthResponse, error) {
	if s.adminCode == "" {
		return nil, fmt.Errorf("admin registration is disabled: %w", apperror.ErrForbidden)
	}
	if subtle.ConstantTimeCompare([]byte(input.Code), []byte(s.adminCode)) != 1 {
		return nil, fmt.Errorf("invalid admin registration code: %w", apperror.ErrForbidden)
	}

	return s.RegisterUser(ctx, input.RegisterInput, entity.RoleAdmin)
}

func (s *authService) Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}

	if !user.Active {
		return nil, fmt.Errorf("account is deactivated: %w", apperror.ErrForbidden)
	}

	return s.buildAuthResponse(user)
}

func (s *authService) Me(ctx context.Context, actor *access.Actor) (*entity.User, error) {
	if actor == nil {
		return nil, apperror.ErrUnauthenticated
	}
	return s.repo.FindByID(ctx, actor.ID)
}

func (s *authService) buildAuthResponse(user *entity.User) (*dto.AuthResponse, error) {
	token, expiresAt, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresAt,
		User:        user,
	}, nil
}

func (s *authService) generateToken(user *entity.User) (string, int64, error) {
	expiresAt := time.Now().Add(s.tokenTTL)

	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", 0, err
	}

	return signed, expiresAt.Unix(), nil
}
