package loan

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"loanbook/internal/pkg/apperrors"
)

// Transition moves the loan to target and reports whether anything changed.
// A rejected transition leaves the loan untouched.
func (l *Loan) Transition(target Status, now time.Time) (bool, error) {
	if !target.Valid() {
		return false, apperrors.NewValidationError("status", fmt.Sprintf("unknown loan status %q", target))
	}
	if l.Status == target {
		return false, nil
	}
	if l.Status.IsTerminal() {
		return false, apperrors.NewValidationError("status",
			fmt.Sprintf("loan is %s and cannot move to %s", l.Status, target))
	}

	switch target {
	case StatusClosed:
		closedAt := now
		l.Status = StatusClosed
		l.ClosedDate = &closedAt
		l.Balance = 0
	case StatusDefaulted:
		if l.Balance == 0 {
			l.Balance = roundTo(CurrentBalance(*l, now), 2)
		}
		l.Status = StatusDefaulted
	}
	return true, nil
}

// AppendNote adds an audit note and returns a copy of the full note list.
func (l *Loan) AppendNote(content, author string, now time.Time) ([]Note, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.NewValidationError("content", "note content is required")
	}
	if strings.TrimSpace(author) == "" {
		author = "system"
	}

	l.Notes = append(l.Notes, Note{
		Content:   content,
		CreatedBy: author,
		CreatedAt: now,
	})
	return slices.Clone(l.Notes), nil
}
