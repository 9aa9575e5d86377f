package event

import (
	"context"
	"time"
)

type LoanCreatedEvent struct {
	LoanID     string    `json:"loanId"`
	LoanCode   string    `json:"loanCode"`
	CustomerID string    `json:"customerId"`
	Type       string    `json:"type"`
	Principal  float64   `json:"principal"`
	DueDate    time.Time `json:"dueDate"`
	Timestamp  time.Time `json:"timestamp"`
}

type LoanStatusChangedEvent struct {
	LoanID     string     `json:"loanId"`
	LoanCode   string     `json:"loanCode"`
	OldStatus  string     `json:"oldStatus"`
	NewStatus  string     `json:"newStatus"`
	Balance    float64    `json:"balance"`
	ClosedDate *time.Time `json:"closedDate,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

type LoanNoteAddedEvent struct {
	LoanID    string    `json:"loanId"`
	LoanCode  string    `json:"loanCode"`
	CreatedBy string    `json:"createdBy"`
	NoteCount int       `json:"noteCount"`
	Timestamp time.Time `json:"timestamp"`
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

var _ Publisher = NoopPublisher{}

func (NoopPublisher) PublishLoanCreated(context.Context, LoanCreatedEvent) error { return nil }

func (NoopPublisher) PublishLoanStatusChanged(context.Context, LoanStatusChangedEvent) error {
	return nil
}

func (NoopPublisher) PublishLoanNoteAdded(context.Context, LoanNoteAddedEvent) error { return nil }
