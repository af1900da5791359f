package pipeline

import "context"

// limiter is a counting semaphore bounding concurrent calls into one engine.
type limiter struct {
	ch chan struct{}
}

func newLimiter(capacity int) *limiter {
	if capacity <= 0 {
		capacity = 1
	}
	return &limiter{ch: make(chan struct{}, capacity)}
}

// acquire blocks until a slot is free or ctx is done.
func (l *limiter) acquire(ctx context.Context) error {
	select {
	case l.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *limiter) release() {
	<-l.ch
}
