package handler

import (
	"log/slog"
	"net/http"
	"time"

	"loanbook/internal/api/handler/dto"
	"loanbook/internal/domain/dashboard"
)

type DashboardHandler struct {
	service dashboard.DashboardService
	now     func() time.Time
	logger  *slog.Logger
}

func NewDashboardHandler(s dashboard.DashboardService, now func() time.Time, l *slog.Logger) *DashboardHandler {
	if now == nil {
		now = time.Now
	}
	return &DashboardHandler{
		service: s,
		now:     now,
		logger:  l.With("component", "DashboardHandler"),
	}
}

// GetStats returns portfolio totals.
//
// @Summary Dashboard statistics
// @Description Loan counts by status, customer count, total outstanding balance, overdue count, closed principal per month for the last six months and the collection rate.
// @Tags Dashboard
// @Produce json
// @Success 200 {object} dto.DashboardStatsResponse "Portfolio statistics"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /dashboard/stats [get]
// @Security BearerAuth
func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), h.now())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewDashboardStatsResponse(stats))
}

// GetRecentActivity returns the latest updated loans and those falling due soon.
//
// @Summary Recent loan activity
// @Description The ten most recently updated loans and up to ten open loans due within the next seven days.
// @Tags Dashboard
// @Produce json
// @Success 200 {object} dto.RecentActivityResponse "Recent activity"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /dashboard/recent-activity [get]
// @Security BearerAuth
func (h *DashboardHandler) GetRecentActivity(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	activity, err := h.service.RecentActivity(r.Context(), now)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewRecentActivityResponse(activity, now))
}
