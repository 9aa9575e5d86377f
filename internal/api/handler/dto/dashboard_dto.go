package dto

import (
	"time"

	"loanbook/internal/domain/dashboard"
)

type MonthlyCollectionResponse struct {
	Year        int    `json:"year"`
	Month       int    `json:"month"`
	TotalAmount string `json:"totalAmount"`
	Count       int64  `json:"count"`
}

type DashboardStatsResponse struct {
	TotalLoans         int64                       `json:"totalLoans"`
	OpenLoans          int64                       `json:"openLoans"`
	ClosedLoans        int64                       `json:"closedLoans"`
	TotalCustomers     int64                       `json:"totalCustomers"`
	TotalOutstanding   string                      `json:"totalOutstanding"`
	OverdueLoans       int64                       `json:"overdueLoans"`
	MonthlyCollections []MonthlyCollectionResponse `json:"monthlyCollections"`
	CollectionRate     float64                     `json:"collectionRate"`
}

type RecentActivityResponse struct {
	RecentLoans []LoanListItemResponse `json:"recentLoans"`
	UpcomingDue []LoanListItemResponse `json:"upcomingDue"`
}

func NewDashboardStatsResponse(s *dashboard.Stats) DashboardStatsResponse {
	monthly := make([]MonthlyCollectionResponse, len(s.MonthlyCollections))
	for i, m := range s.MonthlyCollections {
		monthly[i] = MonthlyCollectionResponse{
			Year:        m.Year,
			Month:       m.Month,
			TotalAmount: formatMoney(m.TotalAmount),
			Count:       m.Count,
		}
	}
	return DashboardStatsResponse{
		TotalLoans:         s.TotalLoans,
		OpenLoans:          s.OpenLoans,
		ClosedLoans:        s.ClosedLoans,
		TotalCustomers:     s.TotalCustomers,
		TotalOutstanding:   formatMoney(s.TotalOutstanding),
		OverdueLoans:       s.OverdueLoans,
		MonthlyCollections: monthly,
		CollectionRate:     s.CollectionRate,
	}
}

func NewRecentActivityResponse(a *dashboard.RecentActivity, now time.Time) RecentActivityResponse {
	return RecentActivityResponse{
		RecentLoans: NewListingResponses(a.RecentLoans, now),
		UpcomingDue: NewListingResponses(a.UpcomingDue, now),
	}
}
