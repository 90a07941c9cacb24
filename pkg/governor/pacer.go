package governor

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for pacing.
var (
	tgPacerWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tg_pacer_wait_seconds",
		Help:    "Time spent waiting on the request pacer",
		Buckets: []float64{0.01, 0.1, 0.25, 0.5, 1, 2, 5},
	})
)

// Pacer enforces a minimum interval between request releases. A single
// Pacer shared by concurrent paginators bounds their aggregate rate, not
// just the per-caller rate: releases are serialized through one mutex.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewPacer creates a pacer with the given minimum interval between
// releases. A non-positive interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{interval: interval}
}

// Interval returns the configured minimum interval.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Wait blocks until at least the configured interval has elapsed since
// the previous release. The first release is immediate. Returns early
// with the context error if ctx is done while waiting.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.interval <= 0 {
		return ctx.Err()
	}

	start := time.Now()
	defer func() {
		tgPacerWaitSeconds.Observe(time.Since(start).Seconds())
	}()

	for {
		p.mu.Lock()
		now := time.Now()
		next := p.last.Add(p.interval)
		if !now.Before(next) {
			p.last = now
			p.mu.Unlock()
			return nil
		}
		wait := next.Sub(now)
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
			// Re-check under the lock; another caller may have been
			// released in the meantime.
		}
	}
}
