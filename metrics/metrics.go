// Package metrics holds the prometheus collectors of the command runner.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors is safe to use through a nil pointer, in which case nothing is
// recorded.
type Collectors struct {
	Commands *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
	FeedSize prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Collectors {
	f := promauto.With(reg)
	return &Collectors{
		Commands: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rankfeed_commands_total",
				Help: "Commands processed, by operation and result",
			},
			[]string{"op", "result"},
		),
		Latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rankfeed_command_duration_seconds",
				Help:    "Time spent applying a command to the feed",
				Buckets: prometheus.ExponentialBuckets(100e-9, 4, 10),
			},
			[]string{"op"},
		),
		FeedSize: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "rankfeed_items",
				Help: "Items currently in the feed",
			},
		),
	}
}

func (c *Collectors) Observe(op, result string, d time.Duration, size int) {
	if c == nil {
		return
	}
	c.Commands.WithLabelValues(op, result).Inc()
	c.Latency.WithLabelValues(op).Observe(d.Seconds())
	c.FeedSize.Set(float64(size))
}
