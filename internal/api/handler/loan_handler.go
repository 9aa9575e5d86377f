package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"loanbook/internal/api/handler/dto"
	mw "loanbook/internal/api/middleware"
	"loanbook/internal/domain/loan"
	"loanbook/internal/pkg/apperrors"
)

type LoanHandler struct {
	service loan.LoanService
	logger  *slog.Logger
}

func NewLoanHandler(s loan.LoanService, l *slog.Logger) *LoanHandler {
	return &LoanHandler{
		service: s,
		logger:  l.With("component", "LoanHandler"),
	}
}

// ListLoans returns one page of loans with their customers.
//
// @Summary List loans
// @Description Lists loans joined with their customers, ordered by due date, status and loan code. Loans whose customer no longer exists are omitted.
// @Tags Loans
// @Produce json
// @Param status query string false "Loan status (open, closed, defaulted or all)"
// @Param type query string false "Loan type (Business, Personal, Emergency or all)"
// @Param startDate query string false "Earliest booked date (YYYY-MM-DD)"
// @Param endDate query string false "Latest booked date, inclusive (YYYY-MM-DD)"
// @Param search query string false "Substring of customer name, phone or code, or loan code or description"
// @Param page query int false "Page number, starting at 1"
// @Param limit query int false "Page size"
// @Success 200 {object} dto.LoanListResponse "Loans page"
// @Failure 400 {object} dto.ErrorResponse "Invalid filter or paging parameter"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans [get]
// @Security BearerAuth
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	result, err := h.service.ListLoans(r.Context(), params)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewLoanListResponse(result))
}

// GetLoan retrieves one loan with its customer and transactions.
//
// @Summary Retrieve loan details
// @Description Returns the loan, its customer and transactions, the interest-accrued current balance and whether the loan is overdue.
// @Tags Loans
// @Produce json
// @Param loanID path string true "Loan ID (UUID)"
// @Success 200 {object} dto.LoanDetailResponse "Loan details"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID} [get]
// @Security BearerAuth
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	details, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewLoanDetailResponse(details))
}

// CreateLoan books a new loan for an existing customer.
//
// @Summary Create a new loan
// @Description Books an open loan. Tenure is derived from the booked and due dates; the balance accrues from the booked date.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.CreateLoanRequest true "Loan creation request payload"
// @Success 201 {object} dto.LoanResponse "Loan successfully created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload or validation error"
// @Failure 409 {object} dto.ErrorResponse "Loan code already in use"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans [post]
// @Security BearerAuth
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	params, err := req.ToParams()
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	created, err := h.service.CreateLoan(r.Context(), params)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.NewLoanResponse(created))
}

// UpdateStatus moves a loan to another status.
//
// @Summary Update loan status
// @Description Open loans may be closed or defaulted; closed and defaulted loans are final. Setting the current status again is accepted and changes nothing.
// @Tags Loans
// @Accept json
// @Produce json
// @Param loanID path string true "Loan ID (UUID)"
// @Param request body dto.UpdateStatusRequest true "Target status"
// @Success 200 {object} dto.LoanResponse "Updated loan"
// @Failure 400 {object} dto.ErrorResponse "Unknown status or transition not allowed"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/status [put]
// @Security BearerAuth
func (h *LoanHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req dto.UpdateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	updated, err := h.service.UpdateStatus(r.Context(), loanID, req.Status)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewLoanResponse(updated))
}

// AddNote appends a note authored by the authenticated user.
//
// @Summary Add a note to a loan
// @Description Appends a note and returns every note on the loan in insertion order.
// @Tags Loans
// @Accept json
// @Produce json
// @Param loanID path string true "Loan ID (UUID)"
// @Param request body dto.AddNoteRequest true "Note content"
// @Success 201 {array} dto.NoteResponse "Notes on the loan"
// @Failure 400 {object} dto.ErrorResponse "Empty note content"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/notes [post]
// @Security BearerAuth
func (h *LoanHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req dto.AddNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	notes, err := h.service.AddNote(r.Context(), loanID, req.Content, mw.UsernameFromContext(r.Context()))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.NewNoteResponses(notes))
}

func parseListParams(r *http.Request) (loan.ListParams, error) {
	q := r.URL.Query()
	params := loan.ListParams{
		Status: q.Get("status"),
		Type:   q.Get("type"),
		Search: q.Get("search"),
	}

	var err error
	if params.Page, err = parseIntParam(q.Get("page"), "page"); err != nil {
		return loan.ListParams{}, err
	}
	if params.Limit, err = parseIntParam(q.Get("limit"), "limit"); err != nil {
		return loan.ListParams{}, err
	}
	if params.BookedFrom, err = parseDateParam(q.Get("startDate"), "startDate", false); err != nil {
		return loan.ListParams{}, err
	}
	if params.BookedTo, err = parseDateParam(q.Get("endDate"), "endDate", true); err != nil {
		return loan.ListParams{}, err
	}
	return params, nil
}

func parseIntParam(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError(field, "must be an integer")
	}
	return n, nil
}

// parseDateParam reads a date filter. A bare end date covers that whole day.
func parseDateParam(raw, field string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := dto.ParseDate(raw)
	if err != nil {
		return nil, apperrors.NewValidationError(field, "use YYYY-MM-DD or RFC 3339")
	}
	if endOfDay && len(raw) == len(time.DateOnly) {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
