package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"anoa.com/librarydesk/internal/access"
	"anoa.com/librarydesk/internal/entity"
	"anoa.com/librarydesk/internal/modules/loan/dto"
	"anoa.com/librarydesk/internal/modules/loan/repository"
	"anoa.com/librarydesk/pkg/apperror"
	"github.com/google/uuid"
)

type LoanService interface {
	Borrow(ctx context.Context, actor *access.Actor, bookID uuid.UUID) (*dto.LoanResponse, error)
	Return(ctx context.Context, actor *access.Actor, loanID uuid.UUID) (*dto.LoanResponse, error)
	// ListLoans returns the loans of userID, newest first. Users may only
	// list their own loans.
	ListLoans(ctx context.Context, actor *access.Actor, userID uuid.UUID) ([]dto.LoanResponse, error)
	ListAllLoans(ctx context.Context, actor *access.Actor, filter dto.LoanFilter) ([]dto.LoanResponse, error)
	// Audit reports books whose status disagrees with their active loans.
	// It only reads.
	Audit(ctx context.Context, actor *access.Actor) (*dto.AuditReport, error)
}

type Options struct {
	LoanPeriod time.Duration
	Now        func() time.Time
}

type loanService struct {
	repo       repository.LoanRepository
	events     EventPublisher
	loanPeriod time.Duration
	now        func() time.Time
}

func NewLoanService(repo repository.LoanRepository, events EventPublisher, opts Options) LoanService {
	if opts.LoanPeriod <= 0 {
		opts.LoanPeriod = entity.DefaultLoanPeriod
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if events == nil {
		events = NewRedisPublisher(nil)
	}

	return &loanService{
		repo:       repo,
		events:     events,
		loanPeriod: opts.LoanPeriod,
		now:        opts.Now,
	}
}

func (s *loanService) Borrow(ctx context.Context, actor *access.Actor, bookID uuid.UUID) (*dto.LoanResponse, error) {
	if actor == nil {
		return nil, apperror.ErrUnauthenticated
	}

	now := s.now()
	loan, err := s.repo.Borrow(ctx, actor.ID, bookID, now, now.Add(s.loanPeriod))
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, dto.BookEvent{
		BookID: bookID,
		Status: entity.BookBorrowed,
		LoanID: loan.ID,
		At:     now,
	})

	// The loan is committed at this point; a failed reload only costs the
	// book details in the response.
	if loaded, err := s.repo.FindByID(ctx, loan.ID); err == nil {
		loan = loaded
	} else {
		slog.Warn("failed to reload borrowed loan", "loan_id", loan.ID, "error", err)
	}

	res := s.toLoanResponse(loan)
	return &res, nil
}

func (s *loanService) Return(ctx context.Context, actor *access.Actor, loanID uuid.UUID) (*dto.LoanResponse, error) {
	if actor == nil {
		return nil, apperror.ErrUnauthenticated
	}

	loan, err := s.repo.FindByID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if err := access.AuthorizeLoanReturn(actor, loan.UserID); err != nil {
		return nil, err
	}

	if loan.Status != entity.LoanActive {
		return nil, fmt.Errorf("loan is already %s: %w", loan.Status, apperror.ErrInvalidOperation)
	}

	now := s.now()
	returned, err := s.repo.Return(ctx, loanID, now)
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, dto.BookEvent{
		BookID: returned.BookID,
		Status: entity.BookAvailable,
		LoanID: returned.ID,
		At:     now,
	})

	returned.Book = loan.Book
	res := s.toLoanResponse(returned)
	return &res, nil
}

func (s *loanService) ListLoans(ctx context.Context, actor *access.Actor, userID uuid.UUID) ([]dto.LoanResponse, error) {
	if err := access.AuthorizeOwner(actor, userID); err != nil {
		return nil, err
	}

	loans, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.toLoanResponses(loans), nil
}

func (s *loanService) ListAllLoans(ctx context.Context, actor *access.Actor, filter dto.LoanFilter) ([]dto.LoanResponse, error) {
	if err := access.Authorize(actor, access.ViewAdminCatalog); err != nil {
		return nil, err
	}

	repoFilter := repository.LoanFilter{Status: entity.LoanStatus(filter.Status)}
	if filter.UserID != "" {
		id, err := uuid.Parse(filter.UserID)
		if err != nil {
			return nil, fmt.Errorf("user_id: %w", apperror.ErrBadRequest)
		}
		repoFilter.UserID = &id
	}

	loans, err := s.repo.ListAll(ctx, repoFilter)
	if err != nil {
		return nil, err
	}
	return s.toLoanResponses(loans), nil
}

func (s *loanService) Audit(ctx context.Context, actor *access.Actor) (*dto.AuditReport, error) {
	if err := access.Authorize(actor, access.ViewAdminCatalog); err != nil {
		return nil, err
	}

	total, err := s.repo.CountBooks(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.Discrepancies(ctx)
	if err != nil {
		return nil, err
	}

	report := &dto.AuditReport{
		CheckedAt:     s.now(),
		BooksChecked:  total,
		Consistent:    len(rows) == 0,
		Discrepancies: make([]dto.Discrepancy, 0, len(rows)),
	}
	for _, r := range rows {
		report.Discrepancies = append(report.Discrepancies, dto.Discrepancy{
			BookID:      r.BookID,
			ISBN:        r.ISBN,
			Title:       r.Title,
			Status:      r.Status,
			ActiveLoans: r.ActiveLoans,
		})
	}

	return report, nil
}

func (s *loanService) toLoanResponses(loans []*entity.Loan) []dto.LoanResponse {
	res := make([]dto.LoanResponse, 0, len(loans))
	for _, l := range loans {
		res = append(res, s.toLoanResponse(l))
	}
	return res
}

func (s *loanService) toLoanResponse(l *entity.Loan) dto.LoanResponse {
	res := dto.LoanResponse{
		ID:         l.ID,
		UserID:     l.UserID,
		Book:       dto.LoanBook{ID: l.BookID},
		LoanDate:   l.LoanDate,
		DueDate:    l.DueDate,
		ReturnDate: l.ReturnDate,
		Status:     l.Status,
		IsOverdue:  l.IsOverdue(s.now()),
	}
	if l.Book != nil {
		res.Book.Title = l.Book.Title
		res.Book.ISBN = l.Book.ISBN
	}
	return res
}
