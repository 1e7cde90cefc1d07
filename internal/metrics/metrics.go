// Package metrics counts what a pipeline run did and writes the counters in
// the prometheus text format for a node exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder owns a private registry. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	registry       *prometheus.Registry
	recordsLoaded  *prometheus.CounterVec
	recordsSkipped *prometheus.CounterVec
	reportRuns     *prometheus.CounterVec
	reportRows     *prometheus.GaugeVec
	runDuration    prometheus.Gauge
	lastSuccess    prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		recordsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roomstat",
			Name:      "records_loaded_total",
			Help:      "Validated records submitted to the store.",
		}, []string{"kind"}),
		recordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roomstat",
			Name:      "records_skipped_total",
			Help:      "Source elements dropped during validation.",
		}, []string{"kind"}),
		reportRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roomstat",
			Name:      "report_runs_total",
			Help:      "Report query executions by outcome.",
		}, []string{"report", "status"}),
		reportRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "roomstat",
			Name:      "report_rows",
			Help:      "Rows returned by the last execution of each report.",
		}, []string{"report"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "roomstat",
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last pipeline run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "roomstat",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful pipeline run.",
		}),
	}
	r.registry.MustRegister(r.recordsLoaded, r.recordsSkipped, r.reportRuns, r.reportRows, r.runDuration, r.lastSuccess)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) RecordLoad(kind string, submitted, skipped int) {
	if r == nil {
		return
	}
	r.recordsLoaded.WithLabelValues(kind).Add(float64(submitted))
	r.recordsSkipped.WithLabelValues(kind).Add(float64(skipped))
}

func (r *Recorder) RecordReport(name string, rows int, err error) {
	if r == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.reportRuns.WithLabelValues(name, status).Inc()
	r.reportRows.WithLabelValues(name).Set(float64(rows))
}

func (r *Recorder) RecordRun(elapsed time.Duration, finished time.Time) {
	if r == nil {
		return
	}
	r.runDuration.Set(elapsed.Seconds())
	r.lastSuccess.Set(float64(finished.Unix()))
}

// WriteTextfile writes every metric to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
