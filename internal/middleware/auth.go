package middleware

import (
	"errors"
	"fmt"
	"strings"

	"anoa.com/librarydesk/internal/access"
	userRepo "anoa.com/librarydesk/internal/modules/user/repository"
	"anoa.com/librarydesk/pkg/apperror"
	"anoa.com/librarydesk/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const actorKey = "actor"

type AuthMiddleware struct {
	userRepo userRepo.UserRepository
	secret   string
}

func NewAuthMiddleware(userRepo userRepo.UserRepository, secret string) *AuthMiddleware {
	return &AuthMiddleware{
		userRepo: userRepo,
		secret:   secret,
	}
}

// RequireAuth validates the bearer token, loads the user and stores the
// acting user on the request.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")

		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		// Browsers cannot set headers on websocket upgrades.
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			abort(c, fmt.Errorf("authorization required: %w", apperror.ErrUnauthenticated))
			return
		}

		userID, err := m.parseToken(tokenString)
		if err != nil {
			abort(c, fmt.Errorf("invalid or expired token: %w", apperror.ErrUnauthenticated))
			return
		}

		user, err := m.userRepo.FindByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				abort(c, fmt.Errorf("user no longer exists: %w", apperror.ErrUnauthenticated))
				return
			}
			abort(c, err)
			return
		}

		if !user.Active {
			abort(c, fmt.Errorf("account is deactivated: %w", apperror.ErrForbidden))
			return
		}

		c.Set(actorKey, access.NewActor(user))
		c.Next()
	}
}

// RequireCapability rejects actors whose role lacks the capability.
func (m *AuthMiddleware) RequireCapability(capability access.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := access.Authorize(ActorFrom(c), capability); err != nil {
			abort(c, err)
			return
		}
		c.Next()
	}
}

func (m *AuthMiddleware) parseToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.secret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return uuid.Nil, errors.New("invalid token claims")
	}

	return uuid.Parse(claims.Subject)
}

// ActorFrom returns the acting user set by RequireAuth, or nil.
func ActorFrom(c *gin.Context) *access.Actor {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	actor, _ := v.(*access.Actor)
	return actor
}

// SetActor is used by handler tests to bypass token parsing.
func SetActor(c *gin.Context, actor *access.Actor) {
	c.Set(actorKey, actor)
}

func abort(c *gin.Context, err error) {
	response.ResponseError(c, err)
	c.Abort()
}
