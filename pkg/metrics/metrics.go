// Package metrics exposes Prometheus counters for submissions, conflict
// resolutions and spreadsheet calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	submissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qplan_submissions_total",
		Help: "Task submissions by outcome (saved, conflict, invalid, error).",
	}, []string{"outcome"})

	resolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qplan_conflict_resolutions_total",
		Help: "P0 conflict resolutions by choice.",
	}, []string{"resolution"})

	rowsWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "qplan_rows_written_total",
		Help: "Task rows appended to the planning sheet.",
	})

	sheetCalls = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qplan_sheet_call_duration_seconds",
		Help:    "Latency of spreadsheet round trips.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op", "status"})
)

func init() {
	registry.MustRegister(
		submissions,
		resolutions,
		rowsWritten,
		sheetCalls,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func RecordSubmission(outcome string) {
	submissions.WithLabelValues(outcome).Inc()
}

func RecordResolution(resolution string) {
	resolutions.WithLabelValues(resolution).Inc()
}

func RecordRowsWritten(n int) {
	rowsWritten.Add(float64(n))
}

// ObserveSheetCall records one spreadsheet call started at start.
func ObserveSheetCall(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	sheetCalls.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}
