package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"loanbook/internal/domain/loan"
	"loanbook/internal/infrastructure/monitoring"
	"loanbook/internal/pkg/apperrors"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// BalanceRefresher is the slice of loan.LoanService the job drives.
type BalanceRefresher interface {
	OpenLoanIDs(ctx context.Context) ([]uuid.UUID, error)
	RefreshBalance(ctx context.Context, loanID uuid.UUID) (*loan.Loan, error)
}

type RefreshBalancesJob struct {
	loans       BalanceRefresher
	concurrency int
	now         func() time.Time
	logger      *slog.Logger
}

func NewRefreshBalancesJob(loans BalanceRefresher, concurrency int, logger *slog.Logger) *RefreshBalancesJob {
	if loans == nil || logger == nil {
		panic("RefreshBalancesJob dependencies cannot be nil")
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &RefreshBalancesJob{
		loans:       loans,
		concurrency: concurrency,
		now:         time.Now,
		logger:      logger.With("job", "RefreshBalances"),
	}
}

func (j *RefreshBalancesJob) Run(ctx context.Context) error {
	startTime := j.now()
	j.logger.InfoContext(ctx, "Starting loan balance refresh job.")

	openLoanIDs, err := j.loans.OpenLoanIDs(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to get open loan IDs, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to get open loans: %w", err)
	}
	j.logger.InfoContext(ctx, "Fetched open loan IDs.", slog.Int("count", len(openLoanIDs)))

	if len(openLoanIDs) == 0 {
		j.logger.InfoContext(ctx, "No open loans found to refresh.")
		monitoring.RecordRefreshRun(startTime)
		return nil
	}

	var refreshedCount, skippedCount, errorCount atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)

	for _, loanID := range openLoanIDs {
		g.Go(func() error {
			logCtx := j.logger.With(slog.String("loanID", loanID.String()))

			refreshed, err := j.loans.RefreshBalance(gctx, loanID)
			if err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					logCtx.WarnContext(gctx, "Loan disappeared before its balance could be refreshed", slog.Any("error", err))
					skippedCount.Add(1)
					return nil
				}
				logCtx.ErrorContext(gctx, "Failed to refresh loan balance", slog.Any("error", err))
				errorCount.Add(1)
				return nil
			}

			if refreshed.Status != loan.StatusOpen {
				logCtx.DebugContext(gctx, "Loan left the open state before refresh, skipped.", slog.String("status", string(refreshed.Status)))
				skippedCount.Add(1)
				return nil
			}

			logCtx.DebugContext(gctx, "Loan balance refreshed.", slog.Float64("balance", refreshed.Balance))
			refreshedCount.Add(1)
			return nil
		})
	}

	_ = g.Wait()
	monitoring.RecordRefreshRun(startTime)

	summaryLog := j.logger.With(
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("total_open_loans", len(openLoanIDs)),
		slog.Int("loans_refreshed", int(refreshedCount.Load())),
		slog.Int("loans_skipped", int(skippedCount.Load())),
		slog.Int("errors_encountered", int(errorCount.Load())),
	)

	if n := errorCount.Load(); n > 0 {
		summaryLog.WarnContext(ctx, "Loan balance refresh job finished with errors.")
		return fmt.Errorf("job completed with %d errors", n)
	}
	summaryLog.InfoContext(ctx, "Loan balance refresh job finished successfully.")
	return nil
}
