package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"loanbook/internal/domain/customer"
	"loanbook/internal/domain/loan"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	recentLoansLimit   = 10
	upcomingDueLimit   = 10
	upcomingDueWindow  = 7 * 24 * time.Hour
	collectionsMonths  = 6
	percentageDecimals = 2
)

type Stats struct {
	TotalLoans         int64
	OpenLoans          int64
	ClosedLoans        int64
	TotalCustomers     int64
	TotalOutstanding   loan.Money
	OverdueLoans       int64
	MonthlyCollections []loan.MonthlyCollection
	CollectionRate     float64
	// AsOf is the clock reading the figures were computed for.
	AsOf               time.Time
}

type RecentActivity struct {
	RecentLoans []loan.Listing
	UpcomingDue []loan.Listing
}

// StatsCache holds the last computed Stats for a short while. Loan writes
// call InvalidateStats so the next read recomputes.
type StatsCache interface {
	GetStats(ctx context.Context) (*Stats, bool, error)
	SetStats(ctx context.Context, stats *Stats) error
	InvalidateStats(ctx context.Context) error
}

type DashboardService interface {
	Stats(ctx context.Context, now time.Time) (*Stats, error)

	RecentActivity(ctx context.Context, now time.Time) (*RecentActivity, error)
}

var _ DashboardService = (*dashboardService)(nil)

type dashboardService struct {
	loans     loan.Repository
	customers customer.Repository
	cache     StatsCache
	logger    *slog.Logger
}

func NewDashboardService(loans loan.Repository, customers customer.Repository, cache StatsCache, logger *slog.Logger) DashboardService {
	if loans == nil || customers == nil {
		panic("dashboard repositories cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if cache == nil {
		cache = NoopCache{}
	}
	return &dashboardService{
		loans:     loans,
		customers: customers,
		cache:     cache,
		logger:    logger.With("component", "DashboardService"),
	}
}

func (s *dashboardService) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	cached, ok, err := s.cache.GetStats(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to read cached dashboard stats", "error", err)
	} else if ok && sameDay(cached.AsOf, now) {
		s.logger.DebugContext(ctx, "Serving dashboard stats from cache")
		return cached, nil
	} else if ok {
		s.logger.DebugContext(ctx, "Cached dashboard stats are from another day", "asOf", cached.AsOf)
	}

	stats, err := s.computeStats(ctx, now)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetStats(ctx, stats); err != nil {
		s.logger.WarnContext(ctx, "Failed to cache dashboard stats", "error", err)
	}
	return stats, nil
}

func (s *dashboardService) computeStats(ctx context.Context, now time.Time) (*Stats, error) {
	stats := &Stats{AsOf: now}
	open := loan.StatusIs{Status: loan.StatusOpen}

	g, gctx := errgroup.WithContext(ctx)

	count := func(name string, dst *int64, where ...loan.Predicate) {
		g.Go(func() error {
			n, err := s.loans.Count(gctx, loan.Query{Where: where, Join: loan.JoinNone})
			if err != nil {
				return fmt.Errorf("failed to count %s loans: %w", name, err)
			}
			*dst = n
			return nil
		})
	}
	count("all", &stats.TotalLoans)
	count("open", &stats.OpenLoans, open)
	count("closed", &stats.ClosedLoans, loan.StatusIs{Status: loan.StatusClosed})
	count("overdue", &stats.OverdueLoans, open, loan.DueBefore{Before: now})

	g.Go(func() error {
		n, err := s.customers.Count(gctx)
		if err != nil {
			return fmt.Errorf("failed to count customers: %w", err)
		}
		stats.TotalCustomers = n
		return nil
	})

	g.Go(func() error {
		listings, err := s.loans.Find(gctx, loan.Query{Where: []loan.Predicate{open}, Join: loan.JoinNone})
		if err != nil {
			return fmt.Errorf("failed to load open loans: %w", err)
		}
		stats.TotalOutstanding = TotalOutstanding(listings, now)
		return nil
	})

	g.Go(func() error {
		since := now.AddDate(0, -collectionsMonths, 0)
		collections, err := s.loans.MonthlyCollections(gctx, since)
		if err != nil {
			return fmt.Errorf("failed to aggregate monthly collections: %w", err)
		}
		stats.MonthlyCollections = collections
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to compute dashboard stats", "error", err)
		return nil, err
	}

	if stats.MonthlyCollections == nil {
		stats.MonthlyCollections = []loan.MonthlyCollection{}
	}
	stats.CollectionRate = CollectionRate(stats.ClosedLoans, stats.TotalLoans)
	return stats, nil
}

func (s *dashboardService) RecentActivity(ctx context.Context, now time.Time) (*RecentActivity, error) {
	activity := &RecentActivity{}
	windowEnd := now.Add(upcomingDueWindow)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recent, err := s.loans.Find(gctx, loan.Query{
			Join:  loan.JoinLeft,
			Sort:  []loan.SortKey{loan.SortUpdatedAtDesc},
			Limit: recentLoansLimit,
		})
		if err != nil {
			return fmt.Errorf("failed to load recent loans: %w", err)
		}
		activity.RecentLoans = recent
		return nil
	})
	g.Go(func() error {
		due, err := s.loans.Find(gctx, loan.Query{
			Where: []loan.Predicate{
				loan.StatusIs{Status: loan.StatusOpen},
				loan.DueBetween{From: &now, To: &windowEnd},
			},
			Join:  loan.JoinLeft,
			Sort:  []loan.SortKey{loan.SortDueDateAsc},
			Limit: upcomingDueLimit,
		})
		if err != nil {
			return fmt.Errorf("failed to load upcoming due loans: %w", err)
		}
		activity.UpcomingDue = due
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to load recent activity", "error", err)
		return nil, err
	}
	return activity, nil
}

// TotalOutstanding sums the display balance of the given loans, rounded to cents.
func TotalOutstanding(listings []loan.Listing, now time.Time) loan.Money {
	sum := decimal.Zero
	for _, l := range listings {
		sum = sum.Add(decimal.NewFromFloat(loan.DisplayBalance(l.Loan, now)))
	}
	return sum.Round(2).InexactFloat64()
}

// CollectionRate is closed/total as a percentage with two decimals, 0 when
// there are no loans.
func CollectionRate(closed, total int64) float64 {
	if total == 0 {
		return 0
	}
	return decimal.NewFromInt(closed).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(total), percentageDecimals).
		InexactFloat64()
}

type NoopCache struct{}

func (NoopCache) GetStats(context.Context) (*Stats, bool, error) { return nil, false, nil }

func (NoopCache) SetStats(context.Context, *Stats) error { return nil }

func (NoopCache) InvalidateStats(context.Context) error { return nil }

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
