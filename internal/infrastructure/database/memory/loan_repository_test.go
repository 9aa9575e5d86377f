package memory

import (
	"context"
	"testing"
	"time"

	"loanbook/internal/domain/customer"
	"loanbook/internal/domain/loan"
	"loanbook/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)

func seedLoan(t *testing.T, repo *LoanRepository, code string, customerID uuid.UUID, due time.Time) *loan.Loan {
	t.Helper()
	l, err := loan.NewLoan(loan.NewLoanParams{
		LoanCode:     code,
		CustomerID:   customerID,
		Type:         "Business",
		Description:  "Loan " + code,
		Principal:    1000,
		InterestRate: 12,
		BookedDate:   due.AddDate(0, 0, -30),
		DueDate:      due,
	})
	require.NoError(t, err)
	created, err := repo.Create(context.Background(), l)
	require.NoError(t, err)
	return created
}

func TestLoanRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewStore(WithClock(func() time.Time { return base }))
	repo := NewLoanRepository(store)

	created := seedLoan(t, repo, "LN-1", uuid.New(), base)
	assert.Equal(t, int64(1), created.Version)
	assert.Equal(t, base, created.CreatedAt)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	got.Notes = append(got.Notes, loan.Note{Content: "local only"})
	again, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Notes)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	dup, _ := loan.NewLoan(loan.NewLoanParams{
		LoanCode: "LN-1", CustomerID: uuid.New(), Type: "Personal", Description: "dup",
		Principal: 1, InterestRate: 1, BookedDate: base, DueDate: base.AddDate(0, 0, 1),
	})
	_, err = repo.Create(ctx, dup)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestLoanRepository_SaveOptimistic(t *testing.T) {
	ctx := context.Background()
	clock := base
	store := NewStore(WithClock(func() time.Time { return clock }))
	repo := NewLoanRepository(store)
	created := seedLoan(t, repo, "LN-1", uuid.New(), base)

	first, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)

	clock = base.Add(time.Hour)
	_, err = first.AppendNote("first writer", "amina", clock)
	require.NoError(t, err)
	first.LoanCode = "LN-REWRITTEN"
	require.NoError(t, repo.Save(ctx, first))
	assert.Equal(t, int64(2), first.Version)
	assert.Equal(t, clock, first.UpdatedAt)

	_, err = second.AppendNote("second writer", "joseph", clock)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Save(ctx, second), apperrors.ErrConflict)

	stored, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "LN-1", stored.LoanCode)
	require.Len(t, stored.Notes, 1)
	assert.Equal(t, "first writer", stored.Notes[0].Content)

	missing := *stored
	missing.ID = uuid.New()
	assert.ErrorIs(t, repo.Save(ctx, &missing), apperrors.ErrNotFound)
}

func TestLoanRepository_FindAndCount(t *testing.T) {
	ctx := context.Background()
	store := NewStore(WithClock(func() time.Time { return base }))
	repo := NewLoanRepository(store)

	amina := customer.Customer{ID: uuid.New(), CustomerCode: "CUS-001", FirstName: "Amina", LastName: "Otieno", Phone: "0801234567"}
	joseph := customer.Customer{ID: uuid.New(), CustomerCode: "CUS-002", FirstName: "Joseph", LastName: "Kamau", Phone: "0722000111"}
	store.PutCustomer(amina)
	store.PutCustomer(joseph)

	a1 := seedLoan(t, repo, "LN-A1", amina.ID, base.AddDate(0, 0, 5))
	a2 := seedLoan(t, repo, "LN-A2", amina.ID, base.AddDate(0, 0, 1))
	j1 := seedLoan(t, repo, "LN-J1", joseph.ID, base.AddDate(0, 0, 5))
	orphan := seedLoan(t, repo, "LN-X1", uuid.New(), base.AddDate(0, 0, 3))

	closed, err := repo.GetByID(ctx, a1.ID)
	require.NoError(t, err)
	_, err = closed.Transition(loan.StatusClosed, base)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, closed))

	t.Run("Inner join drops orphans and sorts", func(t *testing.T) {
		got, err := repo.Find(ctx, loan.Query{
			Join: loan.JoinInner,
			Sort: []loan.SortKey{loan.SortDueDateAsc, loan.SortStatusRank, loan.SortLoanCodeAsc},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"LN-A2", "LN-J1", "LN-A1"}, codes(got))
		assert.Equal(t, "Amina", got[0].Customer.FirstName)
	})

	t.Run("Left join keeps orphans", func(t *testing.T) {
		got, err := repo.Find(ctx, loan.Query{Join: loan.JoinLeft, Sort: []loan.SortKey{loan.SortDueDateAsc}})
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, orphan.ID, got[1].Loan.ID)
		assert.Nil(t, got[1].Customer)
	})

	t.Run("No join has no customers", func(t *testing.T) {
		got, err := repo.Find(ctx, loan.Query{})
		require.NoError(t, err)
		require.Len(t, got, 4)
		for _, l := range got {
			assert.Nil(t, l.Customer)
		}
	})

	t.Run("Status filter and count", func(t *testing.T) {
		q := loan.Query{Where: []loan.Predicate{loan.StatusIs{Status: loan.StatusOpen}}, Limit: 1}
		n, err := repo.Count(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		got, err := repo.Find(ctx, q)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("Search by phone fragment", func(t *testing.T) {
		got, err := repo.Find(ctx, loan.Query{
			Where: []loan.Predicate{loan.TextSearch{Term: "0801"}},
			Join:  loan.JoinInner,
			Sort:  []loan.SortKey{loan.SortLoanCodeAsc},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"LN-A1", "LN-A2"}, codes(got))
	})

	t.Run("Search is case insensitive across fields", func(t *testing.T) {
		for _, term := range []string{"kamau", "cus-002", "ln-j1", "LOAN LN-J"} {
			got, err := repo.Find(ctx, loan.Query{Where: []loan.Predicate{loan.TextSearch{Term: term}}, Join: loan.JoinInner})
			require.NoError(t, err, term)
			assert.Equal(t, []string{"LN-J1"}, codes(got), term)
		}
	})

	t.Run("Date ranges are inclusive", func(t *testing.T) {
		from := a2.BookedDate
		to := j1.BookedDate
		got, err := repo.Find(ctx, loan.Query{
			Where: []loan.Predicate{loan.BookedBetween{From: &from, To: &to}},
			Sort:  []loan.SortKey{loan.SortLoanCodeAsc},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"LN-A1", "LN-A2", "LN-J1", "LN-X1"}, codes(got))

		dueFrom, dueTo := base.AddDate(0, 0, 1), base.AddDate(0, 0, 3)
		got, err = repo.Find(ctx, loan.Query{
			Where: []loan.Predicate{loan.DueBetween{From: &dueFrom, To: &dueTo}},
			Sort:  []loan.SortKey{loan.SortDueDateAsc},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"LN-A2", "LN-X1"}, codes(got))
	})

	t.Run("Due before is strict", func(t *testing.T) {
		n, err := repo.Count(ctx, loan.Query{Where: []loan.Predicate{loan.DueBefore{Before: base.AddDate(0, 0, 3)}}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("Skip past the end", func(t *testing.T) {
		got, err := repo.Find(ctx, loan.Query{Skip: 10, Limit: 5})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Rejects invalid query", func(t *testing.T) {
		_, err := repo.Find(ctx, loan.Query{Where: []loan.Predicate{loan.TextSearch{Term: "x"}}})
		assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	})

	t.Run("Cancelled context is a store failure", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := repo.Count(cctx, loan.Query{})
		assert.True(t, apperrors.IsStoreFailure(err))
	})
}

func TestLoanRepository_MonthlyCollections(t *testing.T) {
	ctx := context.Background()
	store := NewStore(WithClock(func() time.Time { return base }))
	repo := NewLoanRepository(store)
	now := time.Date(2024, time.July, 20, 0, 0, 0, 0, time.UTC)
	since := now.AddDate(0, -6, 0)

	closeAt := func(code string, at time.Time, principal float64) {
		l := seedLoan(t, repo, code, uuid.New(), base)
		l.Principal = principal
		_, err := l.Transition(loan.StatusClosed, at)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, l))
	}
	closeAt("LN-OLD", since.Add(-time.Hour), 999)
	closeAt("LN-FEB-1", time.Date(2024, time.February, 3, 0, 0, 0, 0, time.UTC), 100)
	closeAt("LN-FEB-2", time.Date(2024, time.February, 28, 23, 0, 0, 0, time.UTC), 50)
	closeAt("LN-JUN", time.Date(2024, time.June, 1, 0, 0, 0, 0, time.FixedZone("EAT", 3*3600)), 70)
	seedLoan(t, repo, "LN-OPEN", uuid.New(), base)

	got, err := repo.MonthlyCollections(ctx, since)
	require.NoError(t, err)
	assert.Equal(t, []loan.MonthlyCollection{
		{Year: 2024, Month: 2, TotalAmount: 150, Count: 2},
		{Year: 2024, Month: 5, TotalAmount: 70, Count: 1},
	}, got)

	var total int64
	for _, m := range got {
		total += m.Count
	}
	assert.Equal(t, int64(3), total)
}

func TestLoanRepository_GetTransactions(t *testing.T) {
	store := NewStore()
	repo := NewLoanRepository(store)
	tx := loan.Transaction{ID: uuid.New(), TransactionCode: "TX-1", Type: loan.TransactionCredit, Amount: 10}
	store.PutTransaction(tx)

	got, err := repo.GetTransactions(context.Background(), []uuid.UUID{uuid.New(), tx.ID})
	require.NoError(t, err)
	assert.Equal(t, []loan.Transaction{tx}, got)
}

func TestCustomerRepository(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewCustomerRepository(store)
	c := customer.Customer{ID: uuid.New(), FirstName: "Amina"}
	store.PutCustomer(c)

	got, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c, *got)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, customer.ErrNotFound)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func codes(listings []loan.Listing) []string {
	out := make([]string, 0, len(listings))
	for _, l := range listings {
		out = append(out, l.Loan.LoanCode)
	}
	return out
}
