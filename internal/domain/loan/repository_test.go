package loan

import (
	"context"
	"time"

	"loanbook/internal/domain/customer"
	"loanbook/internal/event"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

var _ Repository = (*MockRepository)(nil)

func (m *MockRepository) Create(ctx context.Context, loan *Loan) (*Loan, error) {
	args := m.Called(ctx, loan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Loan), args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Loan), args.Error(1)
}

func (m *MockRepository) Save(ctx context.Context, loan *Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockRepository) Find(ctx context.Context, q Query) ([]Listing, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Listing), args.Error(1)
}

func (m *MockRepository) Count(ctx context.Context, q Query) (int64, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) MonthlyCollections(ctx context.Context, since time.Time) ([]MonthlyCollection, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]MonthlyCollection), args.Error(1)
}

func (m *MockRepository) GetTransactions(ctx context.Context, ids []uuid.UUID) ([]Transaction, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Transaction), args.Error(1)
}

type MockCustomerRepository struct {
	mock.Mock
}

var _ customer.Repository = (*MockCustomerRepository)(nil)

func (m *MockCustomerRepository) FindByID(ctx context.Context, customerID uuid.UUID) (*customer.Customer, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockCustomerRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

var _ event.Publisher = (*MockPublisher)(nil)

func (m *MockPublisher) PublishLoanCreated(ctx context.Context, e event.LoanCreatedEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockPublisher) PublishLoanStatusChanged(ctx context.Context, e event.LoanStatusChangedEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockPublisher) PublishLoanNoteAdded(ctx context.Context, e event.LoanNoteAddedEvent) error {
	return m.Called(ctx, e).Error(0)
}

type MockStatsInvalidator struct {
	mock.Mock
}

var _ StatsInvalidator = (*MockStatsInvalidator)(nil)

func (m *MockStatsInvalidator) InvalidateStats(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
