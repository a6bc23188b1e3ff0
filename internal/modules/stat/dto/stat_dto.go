package dto

// Dashboard holds the counters shown on the landing page. Admin fields are
// omitted for regular users and vice versa.
type Dashboard struct {
	BookCount       *int64 `json:"book_count,omitempty"`
	UserCount       *int64 `json:"user_count,omitempty"`
	ActiveLoans     *int64 `json:"active_loans,omitempty"`
	ActiveLoanCount *int64 `json:"active_loan_count,omitempty"`
}
