package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"loanbook/internal/domain/customer"
	"loanbook/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
)

var customerTest = &customer.Customer{
	ID:           uuid.MustParse("11111111-2222-3333-4444-555555555555"),
	CustomerCode: "CUS-001",
	FirstName:    "Ada",
	LastName:     "Obi",
	Phone:        "08031234567",
	Email:        "ada@example.com",
	Category:     "retail",
	CreatedAt:    time.Date(2023, 11, 2, 8, 0, 0, 0, time.UTC),
	UpdatedAt:    time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC),
}

func setupCustomerRepo(t *testing.T) (context.Context, *CustomerRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to open a stub database connection: %v", err)
	}

	ctx := context.Background()
	repo := NewCustomerRepository(mockPool, time.Second, logger)

	return ctx, repo, mockPool
}

func TestFindCustomerByIDReturnOne(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(findCustomerByIDSQL)).WithArgs(customerTest.ID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "customer_code", "first_name", "last_name", "phone", "email", "category", "created_at", "updated_at"}).
			AddRow(customerTest.ID, customerTest.CustomerCode, customerTest.FirstName, customerTest.LastName, customerTest.Phone,
				customerTest.Email, customerTest.Category, customerTest.CreatedAt, customerTest.UpdatedAt))

	customerResult, err := repo.FindByID(ctx, customerTest.ID)
	assert.NoError(t, err)
	assert.Equal(t, customerTest, customerResult)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestFindCustomerByIDReturnNone(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(findCustomerByIDSQL)).WithArgs(customerTest.ID).WillReturnError(pgx.ErrNoRows)

	customerResult, err := repo.FindByID(ctx, customerTest.ID)
	assert.ErrorIs(t, err, customer.ErrNotFound)
	assert.Nil(t, customerResult)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestFindCustomerByIDDatabaseError(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(findCustomerByIDSQL)).WithArgs(customerTest.ID).WillReturnError(errors.New("connection refused"))

	customerResult, err := repo.FindByID(ctx, customerTest.ID)
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
	assert.NotErrorIs(t, err, customer.ErrNotFound)
	assert.Nil(t, customerResult)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestCountCustomers(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(countCustomersSQL)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))

	total, err := repo.Count(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), total)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestCountCustomersDatabaseError(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(countCustomersSQL)).WillReturnError(errors.New("timeout"))

	_, err := repo.Count(ctx)
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
}

func TestNewCustomerRepositoryPanicsWithoutPool(t *testing.T) {
	assert.Panics(t, func() { NewCustomerRepository(nil, time.Second, logger) })
}
