package dto

import (
	"errors"
	"testing"
	"time"

	"loanbook/internal/domain/customer"
	"loanbook/internal/domain/loan"
	"loanbook/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validationField(t *testing.T, err error) string {
	t.Helper()
	var ve *apperrors.ValidationError
	require.True(t, errors.As(err, &ve), "expected a validation error, got %v", err)
	return ve.Field
}

func TestCreateLoanRequest_ToParams(t *testing.T) {
	customerID := uuid.New()
	req := CreateLoanRequest{
		LoanCode:     "LN-42",
		CustomerID:   customerID.String(),
		Type:         "Personal",
		Description:  "Rent",
		Principal:    1500,
		InterestRate: 12,
		BookedDate:   "2024-02-01",
		DueDate:      "2024-03-02T00:00:00Z",
	}

	params, err := req.ToParams()
	require.NoError(t, err)
	assert.Equal(t, customerID, params.CustomerID)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), params.BookedDate)
	assert.True(t, params.DueDate.Equal(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "LN-42", params.LoanCode)

	bad := req
	bad.CustomerID = "nope"
	_, err = bad.ToParams()
	assert.Equal(t, "customerId", validationField(t, err))

	bad = req
	bad.BookedDate = "1 Feb 2024"
	_, err = bad.ToParams()
	assert.Equal(t, "bookedDate", validationField(t, err))

	bad = req
	bad.DueDate = ""
	_, err = bad.ToParams()
	assert.Equal(t, "dueDate", validationField(t, err))
}

func TestNewLoanResponse(t *testing.T) {
	closed := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	txID := uuid.New()
	l := &loan.Loan{
		ID:             uuid.New(),
		LoanCode:       "LN-1",
		Type:           loan.TypeEmergency,
		Principal:      1000.5,
		InterestRate:   36.5,
		BookedDate:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:        time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Status:         loan.StatusClosed,
		Balance:        1010.456,
		ClosedDate:     &closed,
		Notes:          []loan.Note{{Content: "paid", CreatedBy: "ada", CreatedAt: closed}},
		TransactionIDs: []uuid.UUID{txID},
	}

	resp := NewLoanResponse(l)
	assert.Equal(t, "1000.50", resp.Principal)
	assert.Equal(t, "1010.46", resp.Balance)
	assert.Equal(t, "36.5", resp.InterestRate)
	assert.Equal(t, "2024-03-01", resp.BookedDate)
	assert.Equal(t, "2024-03-31", resp.DueDate)
	assert.Equal(t, []string{txID.String()}, resp.TransactionIDs)
	require.Len(t, resp.Notes, 1)
	assert.Equal(t, "ada", resp.Notes[0].CreatedBy)
}

func TestNewLoanListResponse(t *testing.T) {
	result := &loan.ListResult{
		Items: []loan.ListItem{
			{Listing: loan.Listing{Loan: loan.Loan{LoanCode: "LN-1"}, Customer: &customer.Customer{FirstName: "Ada", LastName: "Obi"}}, DisplayBalance: 99.999},
			{Listing: loan.Listing{Loan: loan.Loan{LoanCode: "LN-2"}}},
		},
		Page: 1, Pages: 1, Total: 2, Limit: 50,
	}

	resp := NewLoanListResponse(result)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "100.00", resp.Data[0].DisplayBalance)
	assert.Equal(t, "Ada Obi", resp.Data[0].Customer.FullName)
	assert.Nil(t, resp.Data[1].Customer)
	assert.Empty(t, resp.Data[1].Notes)
	assert.NotNil(t, resp.Data[1].Notes)
	assert.Equal(t, PaginationResponse{Current: 1, Pages: 1, Total: 2, Limit: 50}, resp.Pagination)
}
