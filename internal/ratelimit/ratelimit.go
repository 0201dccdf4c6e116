package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Interval spaces out calls so that at most one passes per interval.
// A zero value Interval never blocks.
type Interval struct {
	limiter *rate.Limiter
}

// NewInterval creates a limiter releasing one call per interval. A
// non-positive interval disables limiting.
func NewInterval(interval time.Duration) *Interval {
	if interval <= 0 {
		return &Interval{}
	}
	return &Interval{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next call is allowed or ctx is done.
func (l *Interval) Wait(ctx context.Context) error {
	if l == nil || l.limiter == nil {
		return ctx.Err()
	}
	return l.limiter.Wait(ctx)
}

// Disabled reports whether the limiter lets every call through.
func (l *Interval) Disabled() bool {
	return l == nil || l.limiter == nil
}
