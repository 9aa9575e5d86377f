package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	StatusTransitions *prometheus.CounterVec
	NotesAdded        prometheus.Counter
	WriteConflicts    *prometheus.CounterVec
	BalancesRefreshed *prometheus.CounterVec
	LastRefreshRun    prometheus.Gauge
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loanbook_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		StatusTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanbook_loan_status_transitions_total",
				Help: "Loan status transition attempts by source, target and result.",
			},
			[]string{"from", "to", "result"},
		),
		NotesAdded: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "loanbook_loan_notes_added_total",
				Help: "Total number of notes appended to loans.",
			},
		),
		WriteConflicts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanbook_loan_write_conflicts_total",
				Help: "Optimistic concurrency conflicts on loan writes, by operation.",
			},
			[]string{"operation"},
		),
		BalancesRefreshed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanbook_balance_refresh_loans_total",
				Help: "Loans processed by the balance refresh job, by result.",
			},
			[]string{"result"},
		),
		LastRefreshRun: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "loanbook_balance_refresh_last_run_timestamp_seconds",
				Help: "Unix time of the last completed balance refresh run.",
			},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordStatusTransition(from, to, result string) {
	Business.StatusTransitions.WithLabelValues(from, to, result).Inc()
}

func RecordNoteAdded() {
	Business.NotesAdded.Inc()
}

func RecordWriteConflict(operation string) {
	Business.WriteConflicts.WithLabelValues(operation).Inc()
}

func RecordBalanceRefresh(result string) {
	Business.BalancesRefreshed.WithLabelValues(result).Inc()
}

func RecordRefreshRun(at time.Time) {
	Business.LastRefreshRun.Set(float64(at.Unix()))
}
