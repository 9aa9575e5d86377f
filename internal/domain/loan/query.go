package loan

import (
	"fmt"
	"time"

	"loanbook/internal/domain/customer"
	"loanbook/internal/pkg/apperrors"
)

// Predicate is a closed set of filters a store adapter knows how to translate.
type Predicate interface {
	predicate()
}

type StatusIs struct{ Status Status }

type TypeIs struct{ Type LoanType }

// BookedBetween bounds are inclusive; a nil bound is open.
type BookedBetween struct{ From, To *time.Time }

// DueBetween bounds are inclusive; a nil bound is open.
type DueBetween struct{ From, To *time.Time }

// DueBefore matches loans whose due date is strictly before the instant.
type DueBefore struct{ Before time.Time }

// TextSearch is a case-insensitive substring match over the customer's first
// name, last name, phone and code and the loan's code and description.
type TextSearch struct{ Term string }

func (StatusIs) predicate()      {}
func (TypeIs) predicate()        {}
func (BookedBetween) predicate() {}
func (DueBetween) predicate()    {}
func (DueBefore) predicate()     {}
func (TextSearch) predicate()    {}

type SortKey int

const (
	SortDueDateAsc SortKey = iota + 1
	SortStatusRank
	SortUpdatedAtDesc
	SortLoanCodeAsc
)

type JoinMode int

const (
	JoinNone JoinMode = iota
	JoinInner
	JoinLeft
)

type Query struct {
	Where []Predicate
	Join  JoinMode
	Sort  []SortKey
	Skip  int
	// Limit of zero means no limit.
	Limit int
}

func (q Query) Validate() error {
	if q.Skip < 0 || q.Limit < 0 {
		return fmt.Errorf("%w: skip and limit must not be negative", apperrors.ErrInvalidArgument)
	}
	for _, p := range q.Where {
		if _, ok := p.(TextSearch); ok && q.Join == JoinNone {
			return fmt.Errorf("%w: text search requires a customer join", apperrors.ErrInvalidArgument)
		}
	}
	return nil
}

// Listing is a loan paired with its customer. Customer is nil for JoinNone
// queries and for left joins whose customer no longer resolves.
type Listing struct {
	Loan     Loan
	Customer *customer.Customer
}

type MonthlyCollection struct {
	Year        int
	Month       int
	TotalAmount Money
	Count       int64
}
