package dto

import (
	"strings"
	"time"

	"loanbook/internal/domain/loan"
	"loanbook/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = time.DateOnly

type CreateLoanRequest struct {
	LoanCode       string  `json:"loanCode,omitempty"`
	CustomerID     string  `json:"customerId"`
	Type           string  `json:"type"`
	Description    string  `json:"description"`
	Principal      float64 `json:"principal"`
	InterestRate   float64 `json:"interestRate"`
	BookedDate     string  `json:"bookedDate"`
	DueDate        string  `json:"dueDate"`
	Guarantor      string  `json:"guarantor,omitempty"`
	GuarantorPhone string  `json:"guarantorPhone,omitempty"`
}

// ToParams parses identifiers and dates; the remaining rules are enforced by
// loan.NewLoan.
func (r *CreateLoanRequest) ToParams() (loan.NewLoanParams, error) {
	customerID, err := uuid.Parse(strings.TrimSpace(r.CustomerID))
	if err != nil {
		return loan.NewLoanParams{}, apperrors.NewValidationError("customerId", "must be a valid UUID")
	}
	booked, err := ParseDate(r.BookedDate)
	if err != nil {
		return loan.NewLoanParams{}, apperrors.NewValidationError("bookedDate", "use YYYY-MM-DD")
	}
	due, err := ParseDate(r.DueDate)
	if err != nil {
		return loan.NewLoanParams{}, apperrors.NewValidationError("dueDate", "use YYYY-MM-DD")
	}

	return loan.NewLoanParams{
		LoanCode:       r.LoanCode,
		CustomerID:     customerID,
		Type:           r.Type,
		Description:    r.Description,
		Principal:      r.Principal,
		InterestRate:   r.InterestRate,
		BookedDate:     booked,
		DueDate:        due,
		Guarantor:      r.Guarantor,
		GuarantorPhone: r.GuarantorPhone,
	}, nil
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type AddNoteRequest struct {
	Content string `json:"content"`
}

// ParseDate accepts a calendar date or a full RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

type NoteResponse struct {
	Content   string    `json:"content"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type LoanResponse struct {
	ID                 string         `json:"id"`
	LoanCode           string         `json:"loanCode"`
	Type               string         `json:"type"`
	Description        string         `json:"description"`
	Principal          string         `json:"principal"`
	InterestRate       string         `json:"interestRate"`
	BookedDate         string         `json:"bookedDate"`
	DueDate            string         `json:"dueDate"`
	TenureDays         int            `json:"tenureDays"`
	Status             string         `json:"status"`
	Balance            string         `json:"balance"`
	ClosedDate         *time.Time     `json:"closedDate,omitempty"`
	LastInterestUpdate *time.Time     `json:"lastInterestUpdate,omitempty"`
	Guarantor          string         `json:"guarantor,omitempty"`
	GuarantorPhone     string         `json:"guarantorPhone,omitempty"`
	Notes              []NoteResponse `json:"notes"`
	TransactionIDs     []string       `json:"transactionIds"`
	CustomerID         string         `json:"customerId"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

type LoanListItemResponse struct {
	LoanResponse
	Customer       *CustomerResponse `json:"customer,omitempty"`
	DisplayBalance string            `json:"displayBalance"`
	IsOverdue      bool              `json:"isOverdue"`
}

type PaginationResponse struct {
	Current int   `json:"current"`
	Pages   int   `json:"pages"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
}

type LoanListResponse struct {
	Data       []LoanListItemResponse `json:"data"`
	Pagination PaginationResponse     `json:"pagination"`
}

type TransactionResponse struct {
	ID              string    `json:"id"`
	TransactionCode string    `json:"transactionCode"`
	Type            string    `json:"type"`
	Description     string    `json:"description,omitempty"`
	ModeOfPayment   string    `json:"modeOfPayment,omitempty"`
	EventID         string    `json:"eventId,omitempty"`
	Amount          string    `json:"amount"`
	TxDate          time.Time `json:"txDate"`
}

type LoanDetailResponse struct {
	LoanResponse
	Customer       *CustomerResponse     `json:"customer,omitempty"`
	Transactions   []TransactionResponse `json:"transactions"`
	CurrentBalance string                `json:"currentBalance"`
	IsOverdue      bool                  `json:"isOverdue"`
}

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type TokenRequest struct {
	Username string `json:"username"`
}

func formatMoney(m loan.Money) string {
	return decimal.NewFromFloat(m).StringFixed(2)
}

func NewNoteResponses(notes []loan.Note) []NoteResponse {
	resp := make([]NoteResponse, len(notes))
	for i, n := range notes {
		resp[i] = NoteResponse{Content: n.Content, CreatedBy: n.CreatedBy, CreatedAt: n.CreatedAt}
	}
	return resp
}

func NewLoanResponse(l *loan.Loan) LoanResponse {
	txIDs := make([]string, len(l.TransactionIDs))
	for i, id := range l.TransactionIDs {
		txIDs[i] = id.String()
	}

	return LoanResponse{
		ID:                 l.ID.String(),
		LoanCode:           l.LoanCode,
		Type:               string(l.Type),
		Description:        l.Description,
		Principal:          formatMoney(l.Principal),
		InterestRate:       decimal.NewFromFloat(l.InterestRate).String(),
		BookedDate:         l.BookedDate.Format(dateLayout),
		DueDate:            l.DueDate.Format(dateLayout),
		TenureDays:         l.TenureDays,
		Status:             string(l.Status),
		Balance:            formatMoney(l.Balance),
		ClosedDate:         l.ClosedDate,
		LastInterestUpdate: l.LastInterestUpdate,
		Guarantor:          l.Guarantor,
		GuarantorPhone:     l.GuarantorPhone,
		Notes:              NewNoteResponses(l.Notes),
		TransactionIDs:     txIDs,
		CustomerID:         l.CustomerID.String(),
		CreatedAt:          l.CreatedAt,
		UpdatedAt:          l.UpdatedAt,
	}
}

func NewLoanListItemResponse(listing loan.Listing, displayBalance loan.Money, isOverdue bool) LoanListItemResponse {
	return LoanListItemResponse{
		LoanResponse:   NewLoanResponse(&listing.Loan),
		Customer:       NewCustomerResponse(listing.Customer),
		DisplayBalance: formatMoney(displayBalance),
		IsOverdue:      isOverdue,
	}
}

// NewListingResponses derives the computed fields of each listing at now.
func NewListingResponses(listings []loan.Listing, now time.Time) []LoanListItemResponse {
	resp := make([]LoanListItemResponse, len(listings))
	for i, l := range listings {
		resp[i] = NewLoanListItemResponse(l, loan.DisplayBalance(l.Loan, now), loan.IsOverdue(l.Loan, now))
	}
	return resp
}

func NewLoanListResponse(result *loan.ListResult) LoanListResponse {
	data := make([]LoanListItemResponse, len(result.Items))
	for i, item := range result.Items {
		data[i] = NewLoanListItemResponse(item.Listing, item.DisplayBalance, item.IsOverdue)
	}
	return LoanListResponse{
		Data: data,
		Pagination: PaginationResponse{
			Current: result.Page,
			Pages:   result.Pages,
			Total:   result.Total,
			Limit:   result.Limit,
		},
	}
}

func NewTransactionResponse(t loan.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              t.ID.String(),
		TransactionCode: t.TransactionCode,
		Type:            string(t.Type),
		Description:     t.Description,
		ModeOfPayment:   t.ModeOfPayment,
		EventID:         t.EventID,
		Amount:          formatMoney(t.Amount),
		TxDate:          t.TxDate,
	}
}

func NewLoanDetailResponse(d *loan.LoanDetails) LoanDetailResponse {
	txs := make([]TransactionResponse, len(d.Transactions))
	for i, t := range d.Transactions {
		txs[i] = NewTransactionResponse(t)
	}
	return LoanDetailResponse{
		LoanResponse:   NewLoanResponse(d.Loan),
		Customer:       NewCustomerResponse(d.Customer),
		Transactions:   txs,
		CurrentBalance: formatMoney(d.CurrentBalance),
		IsOverdue:      d.IsOverdue,
	}
}
