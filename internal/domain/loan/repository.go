package loan

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, loan *Loan) (*Loan, error)

	GetByID(ctx context.Context, loanID uuid.UUID) (*Loan, error)

	// Save writes the whole loan if its Version still matches the stored one,
	// then bumps Version and UpdatedAt on the argument. A stale Version yields
	// apperrors.ErrConflict. LoanCode and CreatedAt are never rewritten.
	Save(ctx context.Context, loan *Loan) error

	Find(ctx context.Context, q Query) ([]Listing, error)

	// Count ignores Skip, Limit and Sort.
	Count(ctx context.Context, q Query) (int64, error)

	MonthlyCollections(ctx context.Context, since time.Time) ([]MonthlyCollection, error)

	GetTransactions(ctx context.Context, ids []uuid.UUID) ([]Transaction, error)
}
