package memory

import (
	"context"
	"fmt"

	"loanbook/internal/domain/customer"

	"github.com/google/uuid"
)

type CustomerRepository struct {
	store *Store
}

var _ customer.Repository = (*CustomerRepository)(nil)

func NewCustomerRepository(store *Store) *CustomerRepository {
	return &CustomerRepository{store: store}
}

func (r *CustomerRepository) FindByID(ctx context.Context, customerID uuid.UUID) (*customer.Customer, error) {
	if err := checkContext(ctx, "find customer"); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	c, ok := r.store.customers[customerID]
	if !ok {
		return nil, fmt.Errorf("%w: id %s", customer.ErrNotFound, customerID)
	}
	return &c, nil
}

func (r *CustomerRepository) Count(ctx context.Context) (int64, error) {
	if err := checkContext(ctx, "count customers"); err != nil {
		return 0, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return int64(len(r.store.customers)), nil
}
