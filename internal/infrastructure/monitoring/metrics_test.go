package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordStatusTransition(t *testing.T) {
	Business.StatusTransitions.Reset()

	RecordStatusTransition("open", "closed", "success")
	RecordStatusTransition("open", "closed", "success")
	RecordStatusTransition("closed", "open", "rejected")

	assert.Equal(t, float64(2), testutil.ToFloat64(Business.StatusTransitions.WithLabelValues("open", "closed", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(Business.StatusTransitions.WithLabelValues("closed", "open", "rejected")))
}

func TestRecordNoteAddedAndConflicts(t *testing.T) {
	before := testutil.ToFloat64(Business.NotesAdded)
	RecordNoteAdded()
	assert.Equal(t, before+1, testutil.ToFloat64(Business.NotesAdded))

	Business.WriteConflicts.Reset()
	RecordWriteConflict("update_status")
	assert.Equal(t, float64(1), testutil.ToFloat64(Business.WriteConflicts.WithLabelValues("update_status")))
}

func TestRecordRefreshRun(t *testing.T) {
	at := time.Date(2026, 10, 1, 1, 0, 0, 0, time.UTC)
	RecordRefreshRun(at)
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(Business.LastRefreshRun))
}

func TestRecordDBQuery(t *testing.T) {
	DB.QueryDuration.Reset()
	RecordDBQuery("GetLoanByID", "success", 3*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(DB.QueryDuration))
}
