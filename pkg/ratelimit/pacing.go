// Package ratelimit paces requests to the posts API.
package ratelimit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for request pacing.
var (
	pacingWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "postfeed_pacing_waits_total",
		Help: "Total pauses taken between page requests",
	})

	pacingWaitSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "postfeed_pacing_wait_seconds_total",
		Help: "Total time spent paused between page requests",
	})

	pacingInterruptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "postfeed_pacing_interrupts_total",
		Help: "Total pauses cut short by context cancellation",
	})
)

// Sleep pauses for d or until ctx is done, whichever comes first.
// It returns ctx.Err() when interrupted. A non-positive d returns at once.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	start := time.Now()
	timer := time.NewTimer(d)
	defer timer.Stop()

	pacingWaitsTotal.Inc()
	defer func() {
		pacingWaitSeconds.Add(time.Since(start).Seconds())
	}()

	select {
	case <-ctx.Done():
		pacingInterruptsTotal.Inc()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
