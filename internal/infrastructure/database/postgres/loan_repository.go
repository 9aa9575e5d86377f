package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"loanbook/internal/domain/customer"
	"loanbook/internal/domain/loan"
	"loanbook/internal/infrastructure/monitoring"
	"loanbook/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"
)

type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

var _ DBPool = (*pgxpool.Pool)(nil)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

var errMsgFormat = "%w: %w"

const uniqueViolation = "23505"

const loanColumns = `l.id, l.loan_code, l.type, l.description, l.principal, l.interest_rate,
       l.booked_date, l.due_date, l.tenure_days, l.status, l.balance, l.closed_date,
       l.last_interest_update, l.guarantor, l.guarantor_phone, l.notes, l.transaction_ids,
       l.customer_id, l.version, l.created_at, l.updated_at`

const customerJoinColumns = `c.id, c.customer_code, c.first_name, c.last_name, c.phone, c.email, c.category`

const insertLoanSQL = `
        INSERT INTO loans (id, loan_code, type, description, principal, interest_rate, booked_date, due_date,
                           tenure_days, status, balance, closed_date, last_interest_update, guarantor,
                           guarantor_phone, notes, transaction_ids, customer_id, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, 1, NOW(), NOW())
        RETURNING version, created_at, updated_at`

const getLoanByIDSQL = `
        SELECT ` + loanColumns + `
        FROM loans l
        WHERE l.id = $1`

const saveLoanSQL = `
        UPDATE loans
        SET type = $1, description = $2, principal = $3, interest_rate = $4, booked_date = $5,
            due_date = $6, tenure_days = $7, status = $8, balance = $9, closed_date = $10,
            last_interest_update = $11, guarantor = $12, guarantor_phone = $13, notes = $14,
            transaction_ids = $15, customer_id = $16, version = version + 1, updated_at = NOW()
        WHERE id = $17 AND version = $18
        RETURNING version, updated_at`

const loanExistsSQL = `SELECT EXISTS (SELECT 1 FROM loans WHERE id = $1)`

const monthlyCollectionsSQL = `
        SELECT EXTRACT(YEAR FROM closed_date AT TIME ZONE 'UTC')::int AS year,
               EXTRACT(MONTH FROM closed_date AT TIME ZONE 'UTC')::int AS month,
               COALESCE(SUM(principal), 0)::float8 AS total_amount,
               COUNT(*) AS count
        FROM loans
        WHERE status = 'closed' AND closed_date >= $1
        GROUP BY year, month
        ORDER BY year ASC, month ASC`

const getTransactionsSQL = `
        SELECT id, transaction_code, type, description, mode_of_payment, event_id, amount, tx_date, loan_id, customer_id
        FROM transactions
        WHERE id = ANY($1)
        ORDER BY tx_date ASC`

type LoanRepository struct {
	db           DBPool
	queryTimeout time.Duration
	logger       *slog.Logger
}

var _ loan.Repository = (*LoanRepository)(nil)

func NewLoanRepository(db DBPool, queryTimeout time.Duration, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{db: db, queryTimeout: queryTimeout, logger: logger.With("component", "LoanRepository")}
}

func (r *LoanRepository) Create(ctx context.Context, l *loan.Loan) (*loan.Loan, error) {
	ctx, cancel := withQueryTimeout(ctx, r.queryTimeout)
	defer cancel()

	notes, err := json.Marshal(notesOrEmpty(l.Notes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode notes: %w", apperrors.ErrInternalServer, err)
	}

	created := *l
	startTime := time.Now()
	err = r.db.QueryRow(ctx, insertLoanSQL,
		l.ID, l.LoanCode, string(l.Type), l.Description, l.Principal, l.InterestRate, l.BookedDate, l.DueDate,
		l.TenureDays, string(l.Status), l.Balance, l.ClosedDate, l.LastInterestUpdate, l.Guarantor,
		l.GuarantorPhone, notes, idsOrEmpty(l.TransactionIDs), l.CustomerID,
	).Scan(&created.Version, &created.CreatedAt, &created.UpdatedAt)
	observe("CreateLoan", startTime, err)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			r.logger.WarnContext(ctx, "Loan code already exists", "loan_code", l.LoanCode)
			return nil, fmt.Errorf("%w: loan code %s", apperrors.ErrAlreadyExists, l.LoanCode)
		}
		r.logger.ErrorContext(ctx, "Failed to insert loan", "error", err)
		return nil, r.dbError(err)
	}
	r.logger.InfoContext(ctx, "Loan created in DB", "loan_id", created.ID, "loan_code", created.LoanCode)
	return &created, nil
}

func (r *LoanRepository) GetByID(ctx context.Context, loanID uuid.UUID) (*loan.Loan, error) {
	ctx, cancel := withQueryTimeout(ctx, r.queryTimeout)
	defer cancel()

	var s loanScanner
	startTime := time.Now()
	err := r.db.QueryRow(ctx, getLoanByIDSQL, loanID).Scan(s.dest()...)
	observe("GetLoanByID", startTime, err)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found", "loan_id", loanID)
			return nil, fmt.Errorf("%w: loan with ID %s not found", apperrors.ErrNotFound, loanID)
		}
		r.logger.ErrorContext(ctx, "Failed to get loan by ID", "loan_id", loanID, "error", err)
		return nil, r.dbError(err)
	}

	l, err := s.loan()
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LoanRepository) Save(ctx context.Context, l *loan.Loan) error {
	ctx, cancel := withQueryTimeout(ctx, r.queryTimeout)
	defer cancel()

	notes, err := json.Marshal(notesOrEmpty(l.Notes))
	if err != nil {
		return fmt.Errorf("%w: failed to encode notes: %w", apperrors.ErrInternalServer, err)
	}

	var version int64
	var updatedAt time.Time
	startTime := time.Now()
	err = r.db.QueryRow(ctx, saveLoanSQL,
		string(l.Type), l.Description, l.Principal, l.InterestRate, l.BookedDate,
		l.DueDate, l.TenureDays, string(l.Status), l.Balance, l.ClosedDate,
		l.LastInterestUpdate, l.Guarantor, l.GuarantorPhone, notes,
		idsOrEmpty(l.TransactionIDs), l.CustomerID, l.ID, l.Version,
	).Scan(&version, &updatedAt)
	observe("SaveLoan", startTime, err)

	if errors.Is(err, pgx.ErrNoRows) {
		return r.explainMissedSave(ctx, l)
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to save loan", "loan_id", l.ID, "error", err)
		return r.dbError(err)
	}

	l.Version = version
	l.UpdatedAt = updatedAt
	return nil
}

// explainMissedSave tells a deleted row apart from a stale version after an
// update matched nothing.
func (r *LoanRepository) explainMissedSave(ctx context.Context, l *loan.Loan) error {
	var exists bool
	if err := r.db.QueryRow(ctx, loanExistsSQL, l.ID).Scan(&exists); err != nil {
		r.logger.ErrorContext(ctx, "Failed to check loan existence", "loan_id", l.ID, "error", err)
		return r.dbError(err)
	}
	if !exists {
		return fmt.Errorf("%w: loan with ID %s not found", apperrors.ErrNotFound, l.ID)
	}
	r.logger.WarnContext(ctx, "Stale loan version on save", "loan_id", l.ID, "version", l.Version)
	return apperrors.NewStaleVersionError("loan", l.ID.String(), l.Version, 0)
}

func (r *LoanRepository) Find(ctx context.Context, q loan.Query) ([]loan.Listing, error) {
	query, args, err := buildListingSQL(q, false)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withQueryTimeout(ctx, r.queryTimeout)
	defer cancel()

	startTime := time.Now()
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		observe("FindLoans", startTime, err)
		r.logger.ErrorContext(ctx, "Failed to query loans", "error", err)
		return nil, r.dbError(err)
	}
	defer rows.Close()

	listings := make([]loan.Listing, 0)
	for rows.Next() {
		var s loanScanner
		var c customerScanner
		dest := s.dest()
		if q.Join != loan.JoinNone {
			dest = append(dest, c.dest()...)
		}
		if err := rows.Scan(dest...); err != nil {
			observe("FindLoans", startTime, err)
			r.logger.ErrorContext(ctx, "Failed to scan loan row", "error", err)
			return nil, r.dbError(err)
		}

		l, err := s.loan()
		if err != nil {
			return nil, err
		}
		listings = append(listings, loan.Listing{Loan: l, Customer: c.customer()})
	}

	err = rows.Err()
	observe("FindLoans", startTime, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error iterating loan rows", "error", err)
		return nil, r.dbError(err)
	}
	return listings, nil
}

func (r *LoanRepository) Count(ctx context.Context, q loan.Query) (int64, error) {
	query, args, err := buildListingSQL(q, true)
	if err != nil {
		return 0, err
	}

	ctx, cancel := withQueryTimeout(ctx, r.queryTimeout)
	defer cancel()

	var total int64
	startTime := time.Now()
	err = r.db.QueryRow(ctx, query, args...).Scan(&total)
	observe("CountLoans", startTime, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to count loans", "error", err)
		return 0, r.dbError(err)
	}
	return total, nil
}

func (r *LoanRepository) MonthlyCollections(ctx context.Context, since time.Time) ([]loan.MonthlyCollection, error) {
	ctx, cancel := withQueryTimeout(ctx, r.queryTimeout)
	defer cancel()

	startTime := time.Now()
	rows, err := r.db.Query(ctx, monthlyCollectionsSQL, since)
	if err != nil {
		observe("MonthlyCollections", startTime, err)
		r.logger.ErrorContext(ctx, "Failed to aggregate monthly collections", "error", err)
		return nil, r.dbError(err)
	}
	defer rows.Close()

	collections := make([]loan.MonthlyCollection, 0)
	for rows.Next() {
		var m loan.MonthlyCollection
		if err := rows.Scan(&m.Year, &m.Month, &m.TotalAmount, &m.Count); err != nil {
			observe("MonthlyCollections", startTime, err)
			return nil, r.dbError(err)
		}
		collections = append(collections, m)
	}

	err = rows.Err()
	observe("MonthlyCollections", startTime, err)
	if err != nil {
		return nil, r.dbError(err)
	}
	return collections, nil
}

func (r *LoanRepository) GetTransactions(ctx context.Context, ids []uuid.UUID) ([]loan.Transaction, error) {
	if len(ids) == 0 {
		return []loan.Transaction{}, nil
	}

	ctx, cancel := withQueryTimeout(ctx, r.queryTimeout)
	defer cancel()

	startTime := time.Now()
	rows, err := r.db.Query(ctx, getTransactionsSQL, ids)
	if err != nil {
		observe("GetTransactions", startTime, err)
		r.logger.ErrorContext(ctx, "Failed to query transactions", "error", err)
		return nil, r.dbError(err)
	}
	defer rows.Close()

	txs := make([]loan.Transaction, 0, len(ids))
	for rows.Next() {
		var t loan.Transaction
		var txType string
		if err := rows.Scan(&t.ID, &t.TransactionCode, &txType, &t.Description, &t.ModeOfPayment,
			&t.EventID, &t.Amount, &t.TxDate, &t.LoanID, &t.CustomerID); err != nil {
			observe("GetTransactions", startTime, err)
			return nil, r.dbError(err)
		}
		parsed, err := loan.ParseTransactionType(txType)
		if err != nil {
			err = fmt.Errorf("%w: transaction %s has unknown type %q", apperrors.ErrDatabase, t.ID, txType)
			observe("GetTransactions", startTime, err)
			r.logger.ErrorContext(ctx, "Stored transaction failed to decode", "transactionID", t.ID, "error", err)
			return nil, err
		}
		t.Type = parsed
		txs = append(txs, t)
	}

	err = rows.Err()
	observe("GetTransactions", startTime, err)
	if err != nil {
		return nil, r.dbError(err)
	}
	return txs, nil
}

func (r *LoanRepository) dbError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: query timed out after %s: %w", apperrors.ErrDatabase, r.queryTimeout, err)
	}
	return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
}

type loanScanner struct {
	l        loan.Loan
	loanType string
	status   string
	notes    []byte
}

func (s *loanScanner) dest() []any {
	return []any{
		&s.l.ID, &s.l.LoanCode, &s.loanType, &s.l.Description, &s.l.Principal, &s.l.InterestRate,
		&s.l.BookedDate, &s.l.DueDate, &s.l.TenureDays, &s.status, &s.l.Balance, &s.l.ClosedDate,
		&s.l.LastInterestUpdate, &s.l.Guarantor, &s.l.GuarantorPhone, &s.notes, &s.l.TransactionIDs,
		&s.l.CustomerID, &s.l.Version, &s.l.CreatedAt, &s.l.UpdatedAt,
	}
}

func (s *loanScanner) loan() (loan.Loan, error) {
	s.l.Type = loan.LoanType(s.loanType)
	s.l.Status = loan.Status(s.status)
	s.l.Notes = []loan.Note{}
	if len(s.notes) > 0 {
		if err := json.Unmarshal(s.notes, &s.l.Notes); err != nil {
			return loan.Loan{}, fmt.Errorf("%w: corrupt notes on loan %s: %w", apperrors.ErrDatabase, s.l.ID, err)
		}
	}
	if s.l.TransactionIDs == nil {
		s.l.TransactionIDs = []uuid.UUID{}
	}
	return s.l, nil
}

// customerScanner reads the nullable customer columns of a joined row.
type customerScanner struct {
	id        *uuid.UUID
	code      *string
	firstName *string
	lastName  *string
	phone     *string
	email     *string
	category  *string
}

func (s *customerScanner) dest() []any {
	return []any{&s.id, &s.code, &s.firstName, &s.lastName, &s.phone, &s.email, &s.category}
}

func (s *customerScanner) customer() *customer.Customer {
	if s.id == nil {
		return nil
	}
	return &customer.Customer{
		ID:           *s.id,
		CustomerCode: deref(s.code),
		FirstName:    deref(s.firstName),
		LastName:     deref(s.lastName),
		Phone:        deref(s.phone),
		Email:        deref(s.email),
		Category:     deref(s.category),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func notesOrEmpty(notes []loan.Note) []loan.Note {
	if notes == nil {
		return []loan.Note{}
	}
	return notes
}

func idsOrEmpty(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}

func withQueryTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func observe(queryName string, startTime time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		status = "error"
	}
	monitoring.RecordDBQuery(queryName, status, time.Since(startTime))
}

// buildListingSQL renders a loan query as SQL with positional arguments. With
// count set it renders the matching COUNT(*) without sort or paging.
func buildListingSQL(q loan.Query, count bool) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch {
	case count:
		sb.WriteString("SELECT COUNT(*)")
	case q.Join == loan.JoinNone:
		sb.WriteString("SELECT " + loanColumns)
	default:
		sb.WriteString("SELECT " + loanColumns + ", " + customerJoinColumns)
	}
	sb.WriteString(" FROM loans l")

	switch q.Join {
	case loan.JoinInner:
		sb.WriteString(" INNER JOIN customers c ON c.id = l.customer_id")
	case loan.JoinLeft:
		sb.WriteString(" LEFT JOIN customers c ON c.id = l.customer_id")
	}

	var conds []string
	for _, p := range q.Where {
		switch p := p.(type) {
		case loan.StatusIs:
			conds = append(conds, "l.status = "+arg(string(p.Status)))
		case loan.TypeIs:
			conds = append(conds, "l.type = "+arg(string(p.Type)))
		case loan.BookedBetween:
			conds = append(conds, rangeConds("l.booked_date", p.From, p.To, arg)...)
		case loan.DueBetween:
			conds = append(conds, rangeConds("l.due_date", p.From, p.To, arg)...)
		case loan.DueBefore:
			conds = append(conds, "l.due_date < "+arg(p.Before))
		case loan.TextSearch:
			ph := arg("%" + escapeLike(p.Term) + "%")
			conds = append(conds, fmt.Sprintf(
				"(c.first_name ILIKE %[1]s OR c.last_name ILIKE %[1]s OR c.phone ILIKE %[1]s"+
					" OR c.customer_code ILIKE %[1]s OR l.loan_code ILIKE %[1]s OR l.description ILIKE %[1]s)", ph))
		default:
			return "", nil, fmt.Errorf("%w: unsupported predicate %T", apperrors.ErrInvalidArgument, p)
		}
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	if count {
		return sb.String(), args, nil
	}

	order := make([]string, 0, len(q.Sort)+1)
	for _, key := range q.Sort {
		switch key {
		case loan.SortDueDateAsc:
			order = append(order, "l.due_date ASC")
		case loan.SortStatusRank:
			order = append(order, statusRankSQL+" ASC")
		case loan.SortUpdatedAtDesc:
			order = append(order, "l.updated_at DESC")
		case loan.SortLoanCodeAsc:
			order = append(order, "l.loan_code ASC")
		}
	}
	order = append(order, "l.id ASC")
	sb.WriteString(" ORDER BY " + strings.Join(order, ", "))

	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + arg(q.Limit))
	}
	if q.Skip > 0 {
		sb.WriteString(" OFFSET " + arg(q.Skip))
	}
	return sb.String(), args, nil
}

var statusRankSQL = fmt.Sprintf("CASE l.status WHEN '%s' THEN 0 WHEN '%s' THEN 1 ELSE 2 END",
	loan.StatusOpen, loan.StatusClosed)

func rangeConds(column string, from, to *time.Time, arg func(any) string) []string {
	var conds []string
	if from != nil {
		conds = append(conds, column+" >= "+arg(*from))
	}
	if to != nil {
		conds = append(conds, column+" <= "+arg(*to))
	}
	return conds
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}
