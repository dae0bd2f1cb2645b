// Package metrics counts what mirror runs did. Each Run owns its registry so
// the totals can be pushed to a Pushgateway when a run ends, or scraped from
// the serve command.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "epicmirror"

// Run holds the collectors of one run.
type Run struct {
	Registry *prometheus.Registry

	images   *prometheus.CounterVec
	dates    *prometheus.CounterVec
	uploaded prometheus.Counter
	duration prometheus.Gauge
	started  time.Time
}

func NewRun() *Run {
	r := &Run{
		Registry: prometheus.NewRegistry(),
		images: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "images_total",
				Help:      "Images handled, by outcome (synced or the skip reason).",
			},
			[]string{"outcome"},
		),
		dates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "dates_total",
				Help:      "Dates handled, by final state.",
			},
			[]string{"state"},
		),
		uploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "uploaded_bytes_total",
			Help:      "Bytes written to the mirror.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		started: time.Now(),
	}
	r.Registry.MustRegister(r.images, r.dates, r.uploaded, r.duration)
	return r
}

func (r *Run) Image(outcome string) {
	r.images.WithLabelValues(outcome).Inc()
}

func (r *Run) Date(state string) {
	r.dates.WithLabelValues(state).Inc()
}

func (r *Run) Uploaded(n int) {
	r.uploaded.Add(float64(n))
}

// Start marks the beginning of a run. A long lived Run shared by several
// syncs reports the duration of the latest one.
func (r *Run) Start() {
	r.started = time.Now()
}

// Finish records the run duration.
func (r *Run) Finish() {
	r.duration.Set(time.Since(r.started).Seconds())
}

// Push sends the registry to the Pushgateway at url under job.
func (r *Run) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(r.Registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	slog.Debug("Pushed metrics", "url", url, "job", job)
	return nil
}
