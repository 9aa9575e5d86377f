package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"loanbook/internal/domain/customer"
	"loanbook/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const findCustomerByIDSQL = `
        SELECT id, customer_code, first_name, last_name, phone, COALESCE(email, ''), COALESCE(category, ''),
               created_at, updated_at
        FROM customers
        WHERE id = $1`

const countCustomersSQL = `SELECT COUNT(*) FROM customers`

type CustomerRepository struct {
	db           DBPool
	queryTimeout time.Duration
	logger       *slog.Logger
}

var _ customer.Repository = (*CustomerRepository)(nil)

func NewCustomerRepository(db DBPool, queryTimeout time.Duration, logger *slog.Logger) *CustomerRepository {
	if db == nil {
		panic("DBPool cannot be nil for CustomerRepository")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewCustomerRepository, using default stderr handler")
	}
	return &CustomerRepository{
		db:           db,
		queryTimeout: queryTimeout,
		logger:       logger.With("component", "CustomerRepository"),
	}
}

func (r *CustomerRepository) FindByID(ctx context.Context, customerID uuid.UUID) (*customer.Customer, error) {
	ctx, cancel := withQueryTimeout(ctx, r.queryTimeout)
	defer cancel()

	var c customer.Customer
	startTime := time.Now()
	err := r.db.QueryRow(ctx, findCustomerByIDSQL, customerID).Scan(
		&c.ID, &c.CustomerCode, &c.FirstName, &c.LastName, &c.Phone, &c.Email, &c.Category,
		&c.CreatedAt, &c.UpdatedAt,
	)
	observe("FindCustomerByID", startTime, err)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Customer not found", slog.Any("customer_id", customerID))
			return nil, fmt.Errorf("%w: customer with ID %s", customer.ErrNotFound, customerID)
		}
		r.logger.ErrorContext(ctx, "Failed to find customer by ID", slog.Any("customer_id", customerID), slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &c, nil
}

func (r *CustomerRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := withQueryTimeout(ctx, r.queryTimeout)
	defer cancel()

	var total int64
	startTime := time.Now()
	err := r.db.QueryRow(ctx, countCustomersSQL).Scan(&total)
	observe("CountCustomers", startTime, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to count customers", slog.Any("error", err))
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return total, nil
}
