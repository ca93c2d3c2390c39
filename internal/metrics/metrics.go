// Package metrics holds the Prometheus collectors for the weather ETL.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "weather_etl"

// Registry is the process-wide registry served on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// RowsInserted counts fact_weather rows written, by kind (backfill, live).
	RowsInserted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rows_inserted_total",
		Help:      "Observation rows inserted into fact_weather.",
	}, []string{"kind"})

	// FetchFailures counts failed provider calls.
	FetchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_failures_total",
		Help:      "Current-weather fetches that failed.",
	}, []string{"provider"})

	// Runs counts finished ETL runs by mode and outcome.
	Runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "ETL runs by mode and status.",
	}, []string{"mode", "status"})

	// Notifications counts failure alerts by delivery status.
	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Failure notifications by delivery status.",
	}, []string{"status"})

	// RunDuration observes wall time of each ETL run.
	RunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of ETL runs.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"mode"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		RowsInserted,
		FetchFailures,
		Runs,
		Notifications,
		RunDuration,
	)
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
