package customer

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("customer not found")

type Repository interface {
	FindByID(ctx context.Context, customerID uuid.UUID) (*Customer, error)

	Count(ctx context.Context) (int64, error)
}
