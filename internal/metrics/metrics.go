package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "legends_etl_stage_duration_seconds",
		Help:    "Duration of each ETL stage.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"task", "stage"})
	StageOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legends_etl_stage_outcomes_total", Help: "ETL stage outcomes.",
	}, []string{"task", "stage", "result"})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legends_etl_runs_total", Help: "Coordinator runs by result.",
	}, []string{"result"})
	LastRunSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "legends_etl_last_run_duration_seconds", Help: "Wall-clock duration of the most recent run.",
	})

	JoinUnmatchedRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "legends_etl_join_unmatched_rows", Help: "Rows dropped by the most recent mastery join.",
	}, []string{"side"})

	RowsLoaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legends_etl_rows_loaded_total", Help: "Rows upserted into the document store.",
	}, []string{"collection", "result"})

	DashboardReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legends_dashboard_reloads_total", Help: "Dashboard reloads of the final file.",
	}, []string{"result"})
	DashboardRows = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "legends_dashboard_rows", Help: "Rows currently served by the dashboard.",
	})
	DashboardClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "legends_dashboard_websocket_clients", Help: "Connected websocket clients.",
	})
)

// Push sends every registered metric to a Pushgateway. Batch runs exit
// before they could be scraped, so they push once at the end instead.
func Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(prometheus.DefaultGatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
