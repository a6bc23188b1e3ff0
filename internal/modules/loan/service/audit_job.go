package service

import (
	"context"
	"log/slog"

	"anoa.com/librarydesk/internal/access"
)

const AuditJobName = "ledger-audit"

// AuditJob runs the ledger audit on a cron schedule and logs what it finds.
type AuditJob struct {
	loans    LoanService
	schedule string
}

func NewAuditJob(loans LoanService, schedule string) *AuditJob {
	return &AuditJob{loans: loans, schedule: schedule}
}

func (j *AuditJob) Name() string     { return AuditJobName }
func (j *AuditJob) Schedule() string { return j.schedule }

func (j *AuditJob) Execute(ctx context.Context) error {
	report, err := j.loans.Audit(ctx, access.SystemActor())
	if err != nil {
		return err
	}

	if report.Consistent {
		slog.Info("ledger audit clean", "books_checked", report.BooksChecked)
		return nil
	}

	for _, d := range report.Discrepancies {
		slog.Warn("ledger discrepancy",
			"book_id", d.BookID,
			"isbn", d.ISBN,
			"status", d.Status,
			"active_loans", d.ActiveLoans,
		)
	}
	return nil
}
