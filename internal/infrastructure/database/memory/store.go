// Package memory keeps loans, customers and transactions in process memory.
// It backs tests and the "memory" database driver.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"loanbook/internal/domain/customer"
	"loanbook/internal/domain/loan"
	"loanbook/internal/pkg/apperrors"

	"github.com/google/uuid"
)

type Store struct {
	mu           sync.RWMutex
	loans        map[uuid.UUID]loan.Loan
	customers    map[uuid.UUID]customer.Customer
	transactions map[uuid.UUID]loan.Transaction
	now          func() time.Time
}

type StoreOption func(*Store)

func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithCustomers seeds the store with customers.
func WithCustomers(customers ...customer.Customer) StoreOption {
	return func(s *Store) {
		for _, c := range customers {
			s.customers[c.ID] = c
		}
	}
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		loans:        make(map[uuid.UUID]loan.Loan),
		customers:    make(map[uuid.UUID]customer.Customer),
		transactions: make(map[uuid.UUID]loan.Transaction),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PutCustomer inserts or replaces a customer. Customers are managed elsewhere;
// outside tests they arrive through WithCustomers.
func (s *Store) PutCustomer(c customer.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = c
}

func (s *Store) PutTransaction(t loan.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[t.ID] = t
}

func checkContext(ctx context.Context, operation string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.WrapDatabaseError(err, operation)
	}
	return nil
}

func cloneLoan(l loan.Loan) loan.Loan {
	l.Notes = slices.Clone(l.Notes)
	l.TransactionIDs = slices.Clone(l.TransactionIDs)
	if l.ClosedDate != nil {
		t := *l.ClosedDate
		l.ClosedDate = &t
	}
	if l.LastInterestUpdate != nil {
		t := *l.LastInterestUpdate
		l.LastInterestUpdate = &t
	}
	return l
}
