package core

import (
	"context"
	apperrors "transferly/pkg/errors"
)

const DefaultMaxConcurrentFlows = 40

// Limiter caps the number of flows talking to upstream services at once.
type Limiter struct {
	slots chan struct{}
}

func NewLimiter(max int) *Limiter {
	if max <= 0 {
		max = DefaultMaxConcurrentFlows
	}
	return &Limiter{slots: make(chan struct{}, max)}
}

// Run waits for a free slot, then calls fn. The slot is released even if fn
// panics. Giving up on the wait reports SERVICE_UNAVAILABLE.
func (l *Limiter) Run(ctx context.Context, fn func() error) error {
	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return apperrors.Unavailable("checkout")
	}
	defer func() { <-l.slots }()

	return fn()
}

func (l *Limiter) InUse() int {
	return len(l.slots)
}
