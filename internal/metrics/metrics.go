// Package metrics records feed run outcomes for the node_exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder owns a private registry so a run only exports its own series.
type Recorder struct {
	reg *prometheus.Registry

	RecordsFetched  *prometheus.GaugeVec
	RowsWritten     *prometheus.GaugeVec
	RecordsExcluded *prometheus.GaugeVec
	RunDuration     *prometheus.GaugeVec
	LastSuccess     *prometheus.GaugeVec
	RunFailures     *prometheus.CounterVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		reg: reg,
		RecordsFetched: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "feedsync",
			Name:      "source_records",
			Help:      "Records returned by the SIS for the last run",
		}, []string{"feed"}),
		RowsWritten: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "feedsync",
			Name:      "rows_written",
			Help:      "Data rows in the last generated feed",
		}, []string{"feed"}),
		RecordsExcluded: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "feedsync",
			Name:      "records_excluded",
			Help:      "Records dropped by each filter in the last run",
		}, []string{"feed", "filter"}),
		RunDuration: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "feedsync",
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run in seconds",
		}, []string{"feed"}),
		LastSuccess: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "feedsync",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		}, []string{"feed"}),
		RunFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedsync",
			Name:      "run_failures_total",
			Help:      "Failed runs",
		}, []string{"feed"}),
	}
}

// Observe records a successful run.
func (r *Recorder) Observe(feed string, fetched, rows int, excluded map[string]int, d time.Duration) {
	r.RecordsFetched.WithLabelValues(feed).Set(float64(fetched))
	r.RowsWritten.WithLabelValues(feed).Set(float64(rows))
	for filter, n := range excluded {
		r.RecordsExcluded.WithLabelValues(feed, filter).Set(float64(n))
	}
	r.RunDuration.WithLabelValues(feed).Set(d.Seconds())
	r.LastSuccess.WithLabelValues(feed).SetToCurrentTime()
}

func (r *Recorder) ObserveFailure(feed string) {
	r.RunFailures.WithLabelValues(feed).Inc()
}

// Gatherer exposes the registry, mainly for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer { return r.reg }

// WriteTextfile writes the registry atomically in text exposition format.
// An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.reg)
}
