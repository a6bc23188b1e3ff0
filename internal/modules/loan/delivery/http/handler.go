package http

import (
	"log/slog"
	"net/http"
	"time"

	"anoa.com/librarydesk/internal/middleware"
	"anoa.com/librarydesk/internal/modules/loan/dto"
	"anoa.com/librarydesk/internal/modules/loan/service"
	"anoa.com/librarydesk/pkg/apperror"
	"anoa.com/librarydesk/pkg/ratelimit"
	"anoa.com/librarydesk/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

const borrowAction = "borrow"

type LoanHandler struct {
	service        service.LoanService
	redisClient    *redis.Client
	borrowCooldown time.Duration
	upgrader       websocket.Upgrader
}

func NewLoanHandler(service service.LoanService, redisClient *redis.Client, borrowCooldown time.Duration, allowedOrigins []string) *LoanHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	return &LoanHandler{
		service:        service,
		redisClient:    redisClient,
		borrowCooldown: borrowCooldown,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins[origin]
			},
		},
	}
}

func (h *LoanHandler) Borrow(c *gin.Context) {
	bookID, err := response.ParseUUIDParam(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	actor := middleware.ActorFrom(c)
	if actor == nil {
		response.ResponseError(c, apperror.ErrUnauthenticated)
		return
	}

	// Guard against double submits from the same user.
	allowed, err := ratelimit.CheckAndSet(c.Request.Context(), h.redisClient, actor.ID, borrowAction, h.borrowCooldown)
	if err != nil {
		slog.Warn("borrow cooldown check failed", "user_id", actor.ID, "error", err)
	} else if !allowed {
		ttl, _ := ratelimit.TTL(c.Request.Context(), h.redisClient, actor.ID, borrowAction)
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       apperror.ErrRateLimitExceeded.Error(),
			"retry_after": int(ttl.Seconds()),
		})
		return
	}

	loan, err := h.service.Borrow(c.Request.Context(), actor, bookID)
	if err != nil {
		if clearErr := ratelimit.Clear(c.Request.Context(), h.redisClient, actor.ID, borrowAction); clearErr != nil {
			slog.Warn("failed to clear borrow cooldown", "user_id", actor.ID, "error", clearErr)
		}
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": loan})
}

func (h *LoanHandler) Return(c *gin.Context) {
	loanID, err := response.ParseUUIDParam(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	loan, err := h.service.Return(c.Request.Context(), middleware.ActorFrom(c), loanID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": loan})
}

// ListMyLoans lists the caller's loans. Admins may pass user_id to look at
// another member.
func (h *LoanHandler) ListMyLoans(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	if actor == nil {
		response.ResponseError(c, apperror.ErrUnauthenticated)
		return
	}

	userID := actor.ID
	if raw := c.Query("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.ResponseError(c, apperror.ErrBadRequest)
			return
		}
		userID = id
	}

	loans, err := h.service.ListLoans(c.Request.Context(), actor, userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": loans})
}

func (h *LoanHandler) ListAllLoans(c *gin.Context) {
	var filter dto.LoanFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BindError(c, err)
		return
	}

	loans, err := h.service.ListAllLoans(c.Request.Context(), middleware.ActorFrom(c), filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": loans})
}

func (h *LoanHandler) Audit(c *gin.Context) {
	report, err := h.service.Audit(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}

// BookEvents streams book availability changes over a websocket.
func (h *LoanHandler) BookEvents(c *gin.Context) {
	if h.redisClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live updates are not available"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("failed to upgrade websocket", "error", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	pubsub := h.redisClient.Subscribe(ctx, service.BookEventsChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		slog.Warn("failed to subscribe to book events", "error", err)
		return
	}

	ch := pubsub.Channel()
	clientClosed := make(chan struct{})

	go func() {
		defer close(clientClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				slog.Debug("websocket write failed", "error", err)
				return
			}
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		}
	}
}
