package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"loanbook/internal/domain/customer"
	"loanbook/internal/event"
	"loanbook/internal/infrastructure/monitoring"
	"loanbook/internal/pkg/apperrors"

	"github.com/google/uuid"
)

const (
	maxWriteAttempts    = 3
	defaultPageLimit    = 50
	maxPageLimit        = 200
	filterAll           = "all"
	operationStatus     = "update_status"
	operationAddNote    = "add_note"
	operationRefresh    = "refresh_balance"
	loanNotFoundMessage = "Loan not found"
)

type LoanService interface {
	CreateLoan(ctx context.Context, params NewLoanParams) (*Loan, error)

	GetLoan(ctx context.Context, loanID uuid.UUID) (*LoanDetails, error)

	ListLoans(ctx context.Context, params ListParams) (*ListResult, error)

	UpdateStatus(ctx context.Context, loanID uuid.UUID, target string) (*Loan, error)

	AddNote(ctx context.Context, loanID uuid.UUID, content, author string) ([]Note, error)

	RefreshBalance(ctx context.Context, loanID uuid.UUID) (*Loan, error)

	OpenLoanIDs(ctx context.Context) ([]uuid.UUID, error)
}

type ListParams struct {
	Status     string
	Type       string
	BookedFrom *time.Time
	BookedTo   *time.Time
	Search     string
	Page       int
	Limit      int
}

type ListItem struct {
	Listing
	DisplayBalance Money
	IsOverdue      bool
}

type ListResult struct {
	Items []ListItem
	Page  int
	Pages int
	Total int64
	Limit int
}

type LoanDetails struct {
	Loan           *Loan
	Customer       *customer.Customer
	Transactions   []Transaction
	CurrentBalance Money
	IsOverdue      bool
}

// StatsInvalidator drops cached portfolio figures after a write that moves them.
type StatsInvalidator interface {
	InvalidateStats(ctx context.Context) error
}

type ServiceOption func(*loanServiceImpl)

func WithStatsInvalidator(inv StatsInvalidator) ServiceOption {
	return func(s *loanServiceImpl) { s.stats = inv }
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *loanServiceImpl) { s.now = now }
}

func WithPageLimits(defaultLimit, maxLimit int) ServiceOption {
	return func(s *loanServiceImpl) {
		if defaultLimit > 0 {
			s.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			s.maxLimit = maxLimit
		}
	}
}

var _ LoanService = (*loanServiceImpl)(nil)

type loanServiceImpl struct {
	repo         Repository
	customers    customer.Repository
	pub          event.Publisher
	stats        StatsInvalidator
	logger       *slog.Logger
	now          func() time.Time
	defaultLimit int
	maxLimit     int
}

func NewLoanService(r Repository, customers customer.Repository, pub event.Publisher, logger *slog.Logger, opts ...ServiceOption) LoanService {
	if r == nil {
		panic("loan repository cannot be nil")
	}
	if customers == nil {
		panic("customer repository cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if pub == nil {
		pub = event.NoopPublisher{}
	}
	s := &loanServiceImpl{
		repo:         r,
		customers:    customers,
		pub:          pub,
		logger:       logger.With("component", "LoanService"),
		now:          time.Now,
		defaultLimit: defaultPageLimit,
		maxLimit:     maxPageLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *loanServiceImpl) CreateLoan(ctx context.Context, params NewLoanParams) (*Loan, error) {
	s.logger.InfoContext(ctx, "Creating new loan", "customerID", params.CustomerID)

	loan, err := NewLoan(params)
	if err != nil {
		s.logger.WarnContext(ctx, "Rejected new loan", "error", err)
		return nil, err
	}

	if _, err := s.customers.FindByID(ctx, params.CustomerID); err != nil {
		if errors.Is(err, customer.ErrNotFound) || errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Customer not found", "customerID", params.CustomerID)
			return nil, apperrors.NewValidationError("customerId", fmt.Sprintf("customer %s not found", params.CustomerID))
		}
		s.logger.ErrorContext(ctx, "Failed to verify customer", "customerID", params.CustomerID, "error", err)
		return nil, fmt.Errorf("failed to verify customer %s: %w", params.CustomerID, err)
	}

	created, err := s.repo.Create(ctx, loan)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to save loan", "loanCode", loan.LoanCode, "error", err)
		return nil, fmt.Errorf("failed to save loan: %w", err)
	}
	s.invalidateStats(ctx)

	s.publish(ctx, "loan.created", func(ctx context.Context) error {
		return s.pub.PublishLoanCreated(ctx, event.LoanCreatedEvent{
			LoanID:     created.ID.String(),
			LoanCode:   created.LoanCode,
			CustomerID: created.CustomerID.String(),
			Type:       string(created.Type),
			Principal:  created.Principal,
			DueDate:    created.DueDate,
			Timestamp:  s.now(),
		})
	})

	s.logger.InfoContext(ctx, "Loan created successfully", "loanID", created.ID, "loanCode", created.LoanCode)
	return created, nil
}

func (s *loanServiceImpl) GetLoan(ctx context.Context, loanID uuid.UUID) (*LoanDetails, error) {
	s.logger.InfoContext(ctx, "Getting loan details", "loanID", loanID)

	loan, err := s.repo.GetByID(ctx, loanID)
	if err != nil {
		s.logGetError(ctx, loanID, err)
		return nil, err
	}

	details := &LoanDetails{Loan: loan}

	cust, err := s.customers.FindByID(ctx, loan.CustomerID)
	switch {
	case err == nil:
		details.Customer = cust
	case errors.Is(err, customer.ErrNotFound) || errors.Is(err, apperrors.ErrNotFound):
		s.logger.WarnContext(ctx, "Loan references a missing customer", "loanID", loanID, "customerID", loan.CustomerID)
	default:
		s.logger.ErrorContext(ctx, "Failed to load loan customer", "loanID", loanID, "error", err)
		return nil, fmt.Errorf("failed to load customer for loan %s: %w", loanID, err)
	}

	if len(loan.TransactionIDs) > 0 {
		txs, err := s.repo.GetTransactions(ctx, loan.TransactionIDs)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to load loan transactions", "loanID", loanID, "error", err)
			return nil, fmt.Errorf("failed to load transactions for loan %s: %w", loanID, err)
		}
		details.Transactions = txs
	}

	now := s.now()
	details.CurrentBalance = CurrentBalance(*loan, now)
	details.IsOverdue = IsOverdue(*loan, now)
	return details, nil
}

func (s *loanServiceImpl) ListLoans(ctx context.Context, params ListParams) (*ListResult, error) {
	q, page, limit, err := s.BuildListQuery(params)
	if err != nil {
		s.logger.WarnContext(ctx, "Rejected loan listing", "error", err)
		return nil, err
	}

	total, err := s.repo.Count(ctx, q)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to count loans", "error", err)
		return nil, fmt.Errorf("failed to count loans: %w", err)
	}

	listings, err := s.repo.Find(ctx, q)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list loans", "error", err)
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}

	now := s.now()
	items := make([]ListItem, 0, len(listings))
	for _, l := range listings {
		items = append(items, ListItem{
			Listing:        l,
			DisplayBalance: DisplayBalance(l.Loan, now),
			IsOverdue:      IsOverdue(l.Loan, now),
		})
	}

	pages := int((total + int64(limit) - 1) / int64(limit))
	s.logger.DebugContext(ctx, "Listed loans", "page", page, "limit", limit, "total", total, "returned", len(items))
	return &ListResult{
		Items: items,
		Page:  page,
		Pages: pages,
		Total: total,
		Limit: limit,
	}, nil
}

// BuildListQuery validates the listing parameters and turns them into a store
// query. Page 0 and limit 0 fall back to the first page and default limit.
func (s *loanServiceImpl) BuildListQuery(params ListParams) (Query, int, int, error) {
	page := params.Page
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return Query{}, 0, 0, apperrors.NewValidationError("page", "page must be at least 1")
	}

	limit := params.Limit
	if limit == 0 {
		limit = s.defaultLimit
	}
	if limit < 1 || limit > s.maxLimit {
		return Query{}, 0, 0, apperrors.NewValidationError("limit", fmt.Sprintf("limit must be between 1 and %d", s.maxLimit))
	}

	var where []Predicate

	if st := strings.TrimSpace(params.Status); st != "" && st != filterAll {
		status, err := ParseStatus(st)
		if err != nil {
			return Query{}, 0, 0, err
		}
		where = append(where, StatusIs{Status: status})
	}

	if t := strings.TrimSpace(params.Type); t != "" && t != filterAll {
		loanType, err := ParseLoanType(t)
		if err != nil {
			return Query{}, 0, 0, err
		}
		where = append(where, TypeIs{Type: loanType})
	}

	if params.BookedFrom != nil || params.BookedTo != nil {
		if params.BookedFrom != nil && params.BookedTo != nil && params.BookedFrom.After(*params.BookedTo) {
			return Query{}, 0, 0, apperrors.NewValidationError("startDate", "start date must not be after end date")
		}
		where = append(where, BookedBetween{From: params.BookedFrom, To: params.BookedTo})
	}

	if term := strings.TrimSpace(params.Search); term != "" {
		where = append(where, TextSearch{Term: term})
	}

	q := Query{
		Where: where,
		Join:  JoinInner,
		Sort:  []SortKey{SortDueDateAsc, SortStatusRank, SortLoanCodeAsc},
		Skip:  (page - 1) * limit,
		Limit: limit,
	}
	return q, page, limit, nil
}

func (s *loanServiceImpl) UpdateStatus(ctx context.Context, loanID uuid.UUID, target string) (*Loan, error) {
	s.logger.InfoContext(ctx, "Updating loan status", "loanID", loanID, "target", target)

	status, err := ParseStatus(target)
	if err != nil {
		monitoring.RecordStatusTransition("unknown", target, "rejected")
		return nil, err
	}

	var from Status
	loan, err := s.mutate(ctx, operationStatus, loanID, func(l *Loan, now time.Time) (bool, error) {
		from = l.Status
		return l.Transition(status, now)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			monitoring.RecordStatusTransition(string(from), string(status), "rejected")
		} else {
			monitoring.RecordStatusTransition(string(from), string(status), "failed")
		}
		return nil, err
	}

	if from == status {
		monitoring.RecordStatusTransition(string(from), string(status), "noop")
		return loan, nil
	}
	monitoring.RecordStatusTransition(string(from), string(status), "success")
	s.invalidateStats(ctx)

	s.publish(ctx, "loan.status.changed", func(ctx context.Context) error {
		return s.pub.PublishLoanStatusChanged(ctx, event.LoanStatusChangedEvent{
			LoanID:     loan.ID.String(),
			LoanCode:   loan.LoanCode,
			OldStatus:  string(from),
			NewStatus:  string(loan.Status),
			Balance:    loan.Balance,
			ClosedDate: loan.ClosedDate,
			Timestamp:  s.now(),
		})
	})

	s.logger.InfoContext(ctx, "Loan status updated", "loanID", loanID, "from", from, "to", loan.Status)
	return loan, nil
}

func (s *loanServiceImpl) AddNote(ctx context.Context, loanID uuid.UUID, content, author string) ([]Note, error) {
	s.logger.InfoContext(ctx, "Adding note to loan", "loanID", loanID, "author", author)

	var notes []Note
	loan, err := s.mutate(ctx, operationAddNote, loanID, func(l *Loan, now time.Time) (bool, error) {
		appended, err := l.AppendNote(content, author, now)
		if err != nil {
			return false, err
		}
		notes = appended
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	monitoring.RecordNoteAdded()

	last := notes[len(notes)-1]
	s.publish(ctx, "loan.note.added", func(ctx context.Context) error {
		return s.pub.PublishLoanNoteAdded(ctx, event.LoanNoteAddedEvent{
			LoanID:    loan.ID.String(),
			LoanCode:  loan.LoanCode,
			CreatedBy: last.CreatedBy,
			NoteCount: len(notes),
			Timestamp: last.CreatedAt,
		})
	})

	return notes, nil
}

// RefreshBalance caches the accrued balance on an open loan. Loans that are
// no longer open are returned untouched.
func (s *loanServiceImpl) RefreshBalance(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	refreshed := false
	loan, err := s.mutate(ctx, operationRefresh, loanID, func(l *Loan, now time.Time) (bool, error) {
		if l.Status != StatusOpen {
			return false, nil
		}
		refreshed = true
		refreshedAt := now
		l.Balance = roundTo(CurrentBalance(*l, now), 2)
		l.LastInterestUpdate = &refreshedAt
		return true, nil
	})
	if err != nil {
		monitoring.RecordBalanceRefresh("failure")
		return nil, err
	}
	monitoring.RecordBalanceRefresh("success")
	if refreshed {
		s.invalidateStats(ctx)
	}
	return loan, nil
}

func (s *loanServiceImpl) OpenLoanIDs(ctx context.Context) ([]uuid.UUID, error) {
	listings, err := s.repo.Find(ctx, Query{
		Where: []Predicate{StatusIs{Status: StatusOpen}},
		Join:  JoinNone,
		Sort:  []SortKey{SortLoanCodeAsc},
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list open loans", "error", err)
		return nil, fmt.Errorf("failed to list open loans: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.Loan.ID)
	}
	return ids, nil
}

// mutate runs a read-modify-write against the latest stored loan. A write
// conflict re-reads and re-applies, so apply sees the state it is saved over.
func (s *loanServiceImpl) mutate(ctx context.Context, operation string, loanID uuid.UUID, apply func(l *Loan, now time.Time) (bool, error)) (*Loan, error) {
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		loan, err := s.repo.GetByID(ctx, loanID)
		if err != nil {
			s.logGetError(ctx, loanID, err)
			return nil, err
		}

		changed, err := apply(loan, s.now())
		if err != nil {
			s.logger.WarnContext(ctx, "Loan change rejected", "operation", operation, "loanID", loanID, "error", err)
			return nil, err
		}
		if !changed {
			return loan, nil
		}

		err = s.repo.Save(ctx, loan)
		if err == nil {
			return loan, nil
		}
		if !errors.Is(err, apperrors.ErrConflict) {
			s.logger.ErrorContext(ctx, "Failed to save loan", "operation", operation, "loanID", loanID, "error", err)
			return nil, fmt.Errorf("failed to save loan %s: %w", loanID, err)
		}

		monitoring.RecordWriteConflict(operation)
		s.logger.WarnContext(ctx, "Concurrent loan update detected, retrying",
			"operation", operation, "loanID", loanID, "attempt", attempt)
	}

	s.logger.ErrorContext(ctx, "Giving up on loan update after repeated conflicts", "operation", operation, "loanID", loanID)
	return nil, fmt.Errorf("%w: %s on loan %s did not settle after %d attempts",
		apperrors.ErrConflict, operation, loanID, maxWriteAttempts)
}

func (s *loanServiceImpl) logGetError(ctx context.Context, loanID uuid.UUID, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		s.logger.WarnContext(ctx, loanNotFoundMessage, "loanID", loanID)
		return
	}
	s.logger.ErrorContext(ctx, "Failed to get loan", "loanID", loanID, "error", err)
}

func (s *loanServiceImpl) publish(ctx context.Context, routingKey string, send func(ctx context.Context) error) {
	if err := send(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish loan event", "routingKey", routingKey, "error", err)
	}
}

func (s *loanServiceImpl) invalidateStats(ctx context.Context) {
	if s.stats == nil {
		return
	}
	if err := s.stats.InvalidateStats(ctx); err != nil {
		s.logger.WarnContext(ctx, "Failed to invalidate dashboard stats", "error", err)
	}
}
