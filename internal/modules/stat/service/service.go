package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"anoa.com/librarydesk/internal/access"
	loanRepo "anoa.com/librarydesk/internal/modules/loan/repository"
	"anoa.com/librarydesk/internal/modules/stat/dto"
	userRepo "anoa.com/librarydesk/internal/modules/user/repository"
	"github.com/redis/go-redis/v9"
)

const adminDashboardKey = "stats:dashboard:admin"

type StatService interface {
	Dashboard(ctx context.Context, actor *access.Actor) (*dto.Dashboard, error)
}

type statService struct {
	userRepo    userRepo.UserRepository
	loanRepo    loanRepo.LoanRepository
	redisClient *redis.Client
	cacheTTL    time.Duration
}

// NewStatService builds the dashboard service. A nil redis client disables
// caching.
func NewStatService(userRepo userRepo.UserRepository, loanRepo loanRepo.LoanRepository, redisClient *redis.Client, cacheTTL time.Duration) StatService {
	return &statService{
		userRepo:    userRepo,
		loanRepo:    loanRepo,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
	}
}

func (s *statService) Dashboard(ctx context.Context, actor *access.Actor) (*dto.Dashboard, error) {
	if actor == nil {
		return nil, access.Authorize(actor, access.ViewStats)
	}

	if !actor.Can(access.ViewStats) {
		count, err := s.loanRepo.CountActive(ctx, &actor.ID)
		if err != nil {
			return nil, err
		}
		return &dto.Dashboard{ActiveLoanCount: &count}, nil
	}

	if cached, ok := s.fromCache(ctx); ok {
		return cached, nil
	}

	books, err := s.loanRepo.CountBooks(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.loanRepo.CountActive(ctx, nil)
	if err != nil {
		return nil, err
	}

	res := &dto.Dashboard{BookCount: &books, UserCount: &users, ActiveLoans: &active}
	s.store(ctx, res)
	return res, nil
}

func (s *statService) fromCache(ctx context.Context) (*dto.Dashboard, bool) {
	if s.redisClient == nil || s.cacheTTL <= 0 {
		return nil, false
	}

	raw, err := s.redisClient.Get(ctx, adminDashboardKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("dashboard cache read failed", "error", err)
		}
		return nil, false
	}

	var res dto.Dashboard
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, false
	}
	return &res, true
}

func (s *statService) store(ctx context.Context, res *dto.Dashboard) {
	if s.redisClient == nil || s.cacheTTL <= 0 {
		return
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, adminDashboardKey, raw, s.cacheTTL).Err(); err != nil {
		slog.Warn("dashboard cache write failed", "error", err)
	}
}
