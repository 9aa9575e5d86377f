package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"loanbook/internal/domain/customer"
	"loanbook/internal/domain/loan"
	"loanbook/internal/pkg/apperrors"

	"github.com/google/uuid"
)

type LoanRepository struct {
	store *Store
}

var _ loan.Repository = (*LoanRepository)(nil)

func NewLoanRepository(store *Store) *LoanRepository {
	return &LoanRepository{store: store}
}

func (r *LoanRepository) Create(ctx context.Context, l *loan.Loan) (*loan.Loan, error) {
	if err := checkContext(ctx, "create loan"); err != nil {
		return nil, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.loans {
		if existing.LoanCode == l.LoanCode {
			return nil, fmt.Errorf("%w: loan code %s", apperrors.ErrAlreadyExists, l.LoanCode)
		}
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}

	now := r.store.now()
	created := cloneLoan(*l)
	created.Version = 1
	created.CreatedAt = now
	created.UpdatedAt = now
	r.store.loans[created.ID] = created

	out := cloneLoan(created)
	return &out, nil
}

func (r *LoanRepository) GetByID(ctx context.Context, loanID uuid.UUID) (*loan.Loan, error) {
	if err := checkContext(ctx, "get loan"); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	l, ok := r.store.loans[loanID]
	if !ok {
		return nil, fmt.Errorf("%w: loan with ID %s not found", apperrors.ErrNotFound, loanID)
	}
	out := cloneLoan(l)
	return &out, nil
}

func (r *LoanRepository) Save(ctx context.Context, l *loan.Loan) error {
	if err := checkContext(ctx, "save loan"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.loans[l.ID]
	if !ok {
		return fmt.Errorf("%w: loan with ID %s not found", apperrors.ErrNotFound, l.ID)
	}
	if current.Version != l.Version {
		return apperrors.NewStaleVersionError("loan", l.ID.String(), l.Version, current.Version)
	}

	next := cloneLoan(*l)
	next.LoanCode = current.LoanCode
	next.CreatedAt = current.CreatedAt
	next.Version = current.Version + 1
	next.UpdatedAt = r.store.now()
	r.store.loans[l.ID] = next

	l.Version = next.Version
	l.UpdatedAt = next.UpdatedAt
	return nil
}

func (r *LoanRepository) Find(ctx context.Context, q loan.Query) ([]loan.Listing, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := checkContext(ctx, "find loans"); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	matched := r.filter(q)
	r.store.mu.RUnlock()

	slices.SortStableFunc(matched, func(a, b loan.Listing) int {
		return compareListings(a, b, q.Sort)
	})

	if q.Skip >= len(matched) {
		return []loan.Listing{}, nil
	}
	matched = matched[q.Skip:]
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func (r *LoanRepository) Count(ctx context.Context, q loan.Query) (int64, error) {
	if err := q.Validate(); err != nil {
		return 0, err
	}
	if err := checkContext(ctx, "count loans"); err != nil {
		return 0, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return int64(len(r.filter(q))), nil
}

func (r *LoanRepository) MonthlyCollections(ctx context.Context, since time.Time) ([]loan.MonthlyCollection, error) {
	if err := checkContext(ctx, "monthly collections"); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	type monthKey struct{ year, month int }
	groups := make(map[monthKey]*loan.MonthlyCollection)
	for _, l := range r.store.loans {
		if l.Status != loan.StatusClosed || l.ClosedDate == nil || l.ClosedDate.Before(since) {
			continue
		}
		closed := l.ClosedDate.UTC()
		key := monthKey{closed.Year(), int(closed.Month())}
		g, ok := groups[key]
		if !ok {
			g = &loan.MonthlyCollection{Year: key.year, Month: key.month}
			groups[key] = g
		}
		g.TotalAmount += l.Principal
		g.Count++
	}

	out := make([]loan.MonthlyCollection, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	slices.SortFunc(out, func(a, b loan.MonthlyCollection) int {
		return cmp.Or(cmp.Compare(a.Year, b.Year), cmp.Compare(a.Month, b.Month))
	})
	return out, nil
}

func (r *LoanRepository) GetTransactions(ctx context.Context, ids []uuid.UUID) ([]loan.Transaction, error) {
	if err := checkContext(ctx, "get transactions"); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]loan.Transaction, 0, len(ids))
	for _, id := range ids {
		if t, ok := r.store.transactions[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// filter must be called with the read lock held.
func (r *LoanRepository) filter(q loan.Query) []loan.Listing {
	out := make([]loan.Listing, 0)
	for _, l := range r.store.loans {
		var cust *customer.Customer
		if q.Join != loan.JoinNone {
			if c, ok := r.store.customers[l.CustomerID]; ok {
				cust = &c
			} else if q.Join == loan.JoinInner {
				continue
			}
		}

		if !matchesAll(l, cust, q.Where) {
			continue
		}
		out = append(out, loan.Listing{Loan: cloneLoan(l), Customer: cust})
	}
	return out
}

func matchesAll(l loan.Loan, c *customer.Customer, where []loan.Predicate) bool {
	for _, p := range where {
		if !matches(l, c, p) {
			return false
		}
	}
	return true
}

func matches(l loan.Loan, c *customer.Customer, p loan.Predicate) bool {
	switch p := p.(type) {
	case loan.StatusIs:
		return l.Status == p.Status
	case loan.TypeIs:
		return l.Type == p.Type
	case loan.BookedBetween:
		return within(l.BookedDate, p.From, p.To)
	case loan.DueBetween:
		return within(l.DueDate, p.From, p.To)
	case loan.DueBefore:
		return l.DueDate.Before(p.Before)
	case loan.TextSearch:
		return searchMatches(l, c, p.Term)
	}
	return false
}

func within(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

func searchMatches(l loan.Loan, c *customer.Customer, term string) bool {
	term = strings.ToLower(term)
	fields := []string{l.LoanCode, l.Description}
	if c != nil {
		fields = append(fields, c.FirstName, c.LastName, c.Phone, c.CustomerCode)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func compareListings(a, b loan.Listing, keys []loan.SortKey) int {
	for _, key := range keys {
		var c int
		switch key {
		case loan.SortDueDateAsc:
			c = a.Loan.DueDate.Compare(b.Loan.DueDate)
		case loan.SortStatusRank:
			c = cmp.Compare(a.Loan.Status.Rank(), b.Loan.Status.Rank())
		case loan.SortUpdatedAtDesc:
			c = b.Loan.UpdatedAt.Compare(a.Loan.UpdatedAt)
		case loan.SortLoanCodeAsc:
			c = strings.Compare(a.Loan.LoanCode, b.Loan.LoanCode)
		}
		if c != 0 {
			return c
		}
	}
	return strings.Compare(a.Loan.ID.String(), b.Loan.ID.String())
}
