package loan

import "time"

const daysInYear = 365

// CurrentBalance is principal plus simple daily interest accrued from the
// booked date up to now. Closed loans are settled and always report zero.
func CurrentBalance(l Loan, now time.Time) Money {
	if l.Status == StatusClosed {
		return 0
	}

	daysElapsed := int64(now.Sub(l.BookedDate) / (24 * time.Hour))
	if daysElapsed < 0 {
		daysElapsed = 0
	}

	dailyRate := l.InterestRate / 100 / daysInYear
	accrued := l.Principal * dailyRate * float64(daysElapsed)
	return l.Principal + accrued
}

func IsOverdue(l Loan, now time.Time) bool {
	return l.Status == StatusOpen && now.After(l.DueDate)
}

// DisplayBalance prefers the cached balance and falls back to accrual when
// the cache was never populated.
func DisplayBalance(l Loan, now time.Time) Money {
	if l.Status == StatusClosed {
		return 0
	}
	if l.Balance != 0 {
		return l.Balance
	}
	return CurrentBalance(l, now)
}
