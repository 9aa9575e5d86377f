package loan

import (
	"fmt"
	"time"

	"loanbook/internal/pkg/apperrors"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(s); t {
	case TransactionCredit, TransactionDebit:
		return t, nil
	}
	return "", apperrors.NewValidationError("type", fmt.Sprintf("unknown transaction type %q", s))
}

// Transaction is owned by the payments side; loans only hold references.
type Transaction struct {
	ID              uuid.UUID
	TransactionCode string
	Type            TransactionType
	Description     string
	ModeOfPayment   string
	EventID         string
	Amount          Money
	TxDate          time.Time
	LoanID          uuid.UUID
	CustomerID      uuid.UUID
}
