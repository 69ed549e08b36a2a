package main

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/BusterWarn/mfind"
)

// runMetrics exports the result of one search in the node_exporter textfile
// format, so a cron-driven mfind can be scraped.
type runMetrics struct {
	registry *prometheus.Registry

	dirsRead *prometheus.GaugeVec
	matches  *prometheus.GaugeVec
	errors   *prometheus.GaugeVec
	duration prometheus.Gauge
}

func newRunMetrics() *runMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &runMetrics{
		registry: reg,
		dirsRead: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mfind_worker_dirs_read",
			Help: "Directories read by each worker in the last run.",
		}, []string{"worker"}),
		matches: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mfind_worker_matches",
			Help: "Matches reported by each worker in the last run.",
		}, []string{"worker"}),
		errors: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mfind_worker_errors",
			Help: "IO errors seen by each worker in the last run.",
		}, []string{"worker"}),
		duration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mfind_run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
	}
}

func (m *runMetrics) observe(summary mfind.Summary) {
	for _, ws := range summary.Workers {
		id := strconv.Itoa(ws.ID)
		m.dirsRead.WithLabelValues(id).Set(float64(ws.DirsRead))
		m.matches.WithLabelValues(id).Set(float64(ws.Matches))
		m.errors.WithLabelValues(id).Set(float64(ws.Errors))
	}

	m.duration.Set(summary.Duration.Seconds())
}

// write replaces path atomically.
func (m *runMetrics) write(path string) error {
	err := prometheus.WriteToTextfile(path, m.registry)
	if err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}

	return nil
}
