package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(submissions.WithLabelValues("conflict"))
	RecordSubmission("conflict")
	assert.Equal(t, before+1, testutil.ToFloat64(submissions.WithLabelValues("conflict")))

	beforeRows := testutil.ToFloat64(rowsWritten)
	RecordRowsWritten(3)
	assert.Equal(t, beforeRows+3, testutil.ToFloat64(rowsWritten))
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordResolution("keep")
	ObserveSheetCall("values.get", time.Now(), errors.New("boom"))

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `qplan_conflict_resolutions_total{resolution="keep"}`)
	assert.Contains(t, string(body), `qplan_sheet_call_duration_seconds_count{op="values.get",status="error"}`)
}
