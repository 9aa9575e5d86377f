package loan

import (
	"fmt"
	"math"
	"strings"
	"time"

	"loanbook/internal/pkg/apperrors"

	"github.com/google/uuid"
)

type Money = float64

type LoanType string

const (
	TypeBusiness  LoanType = "Business"
	TypePersonal  LoanType = "Personal"
	TypeEmergency LoanType = "Emergency"
)

func ParseLoanType(s string) (LoanType, error) {
	switch t := LoanType(strings.TrimSpace(s)); t {
	case TypeBusiness, TypePersonal, TypeEmergency:
		return t, nil
	}
	return "", apperrors.NewValidationError("type", fmt.Sprintf("unknown loan type %q", s))
}

type Status string

// Declaration order is significant: it is the tie-break order for listings.
const (
	StatusOpen      Status = "open"
	StatusClosed    Status = "closed"
	StatusDefaulted Status = "defaulted"
)

var statusRank = map[Status]int{
	StatusOpen:      0,
	StatusClosed:    1,
	StatusDefaulted: 2,
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.TrimSpace(s))
	if _, ok := statusRank[st]; !ok {
		return "", apperrors.NewValidationError("status", fmt.Sprintf("unknown loan status %q", s))
	}
	return st, nil
}

func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

func (s Status) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return len(statusRank)
}

func (s Status) IsTerminal() bool {
	return s == StatusClosed || s == StatusDefaulted
}

type Note struct {
	Content   string    `json:"content"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type Loan struct {
	ID                 uuid.UUID
	LoanCode           string
	Type               LoanType
	Description        string
	Principal          Money
	InterestRate       float64
	BookedDate         time.Time
	DueDate            time.Time
	TenureDays         int
	Status             Status
	Balance            Money
	ClosedDate         *time.Time
	LastInterestUpdate *time.Time
	Guarantor          string
	GuarantorPhone     string
	Notes              []Note
	TransactionIDs     []uuid.UUID
	CustomerID         uuid.UUID
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type NewLoanParams struct {
	LoanCode       string
	CustomerID     uuid.UUID
	Type           string
	Description    string
	Principal      Money
	InterestRate   float64
	BookedDate     time.Time
	DueDate        time.Time
	Guarantor      string
	GuarantorPhone string
}

func NewLoan(p NewLoanParams) (*Loan, error) {
	loanType, err := ParseLoanType(p.Type)
	if err != nil {
		return nil, err
	}
	if p.CustomerID == uuid.Nil {
		return nil, apperrors.NewValidationError("customerId", "customer reference is required")
	}
	if p.Principal <= 0 || math.IsNaN(p.Principal) || math.IsInf(p.Principal, 0) {
		return nil, apperrors.NewValidationError("principal", "principal must be greater than zero")
	}
	if p.InterestRate <= 0 || math.IsNaN(p.InterestRate) || math.IsInf(p.InterestRate, 0) {
		return nil, apperrors.NewValidationError("interestRate", "interest rate must be greater than zero")
	}
	if p.BookedDate.IsZero() {
		return nil, apperrors.NewValidationError("bookedDate", "booked date is required")
	}
	if !p.DueDate.After(p.BookedDate) {
		return nil, apperrors.NewValidationError("dueDate", "due date must be after booked date")
	}
	if strings.TrimSpace(p.Description) == "" {
		return nil, apperrors.NewValidationError("description", "description is required")
	}

	id := uuid.New()
	code := strings.TrimSpace(p.LoanCode)
	if code == "" {
		code = "LN-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:10])
	}

	return &Loan{
		ID:             id,
		LoanCode:       code,
		Type:           loanType,
		Description:    strings.TrimSpace(p.Description),
		Principal:      p.Principal,
		InterestRate:   p.InterestRate,
		BookedDate:     p.BookedDate,
		DueDate:        p.DueDate,
		TenureDays:     int(p.DueDate.Sub(p.BookedDate) / (24 * time.Hour)),
		Status:         StatusOpen,
		Balance:        0,
		Guarantor:      strings.TrimSpace(p.Guarantor),
		GuarantorPhone: strings.TrimSpace(p.GuarantorPhone),
		Notes:          []Note{},
		TransactionIDs: []uuid.UUID{},
		CustomerID:     p.CustomerID,
	}, nil
}

func roundTo(n float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(n*pow) / pow
}
