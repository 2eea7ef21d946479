// Package ratelimit provides a FIFO batching limiter for outbound requests.
//
// All price-history fetches pass through one Limiter: at most maxPerWindow
// tasks may start within any rolling window, tasks start in enqueue order,
// and each task's outcome is independent of its batch-mates. Retry and
// backoff are the caller's responsibility.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bobmcallan/folio/internal/common"
)

// ErrClosed is returned for tasks submitted to (or still queued in) a closed limiter.
var ErrClosed = errors.New("rate limiter closed")

const defaultQueueDepth = 256

// Limiter releases queued tasks at a bounded rate. Start order is FIFO;
// completion order is not guaranteed since released tasks run concurrently.
type Limiter struct {
	max    int
	window time.Duration
	queue  chan *waiter
	done   chan struct{}
	logger *common.Logger

	closeOnce sync.Once
}

type waiter struct {
	ctx   context.Context
	ready chan struct{}
}

// New creates a limiter allowing maxPerWindow task starts per rolling window
// and starts its dispatcher. Close releases the dispatcher goroutine.
func New(maxPerWindow int, window time.Duration, logger *common.Logger) *Limiter {
	if maxPerWindow < 1 {
		maxPerWindow = 1
	}
	if window <= 0 {
		window = time.Second
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	l := &Limiter{
		max:    maxPerWindow,
		window: window,
		queue:  make(chan *waiter, defaultQueueDepth),
		done:   make(chan struct{}),
		logger: logger,
	}
	go l.dispatch()
	return l
}

// Do submits fn and blocks until it has run (or the context is cancelled
// while waiting). The returned error is fn's own error; a failing task never
// affects other queued tasks.
func (l *Limiter) Do(ctx context.Context, fn func(context.Context) error) error {
	w := &waiter{ctx: ctx, ready: make(chan struct{})}

	select {
	case l.queue <- w:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	}

	select {
	case <-w.ready:
		return fn(ctx)
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	}
}

// Do submits fn through the limiter and returns its typed result.
func Do[T any](ctx context.Context, l *Limiter, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := l.Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	return result, err
}

// Pending returns the number of tasks waiting in the queue.
func (l *Limiter) Pending() int {
	return len(l.queue)
}

// Close stops the dispatcher. Queued tasks receive ErrClosed.
func (l *Limiter) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
}

// dispatch releases waiters one at a time in queue order, holding each back
// until a start slot is available in the rolling window.
func (l *Limiter) dispatch() {
	starts := make([]time.Time, 0, l.max)

	for {
		select {
		case <-l.done:
			return
		case w := <-l.queue:
			if w.ctx.Err() != nil {
				continue // waiter gave up while queued
			}
			if !l.waitForSlot(w.ctx, &starts) {
				continue
			}
			close(w.ready)
		}
	}
}

// waitForSlot blocks until fewer than max starts fall inside the rolling
// window, then records a start. Returns false on cancellation or close.
func (l *Limiter) waitForSlot(ctx context.Context, starts *[]time.Time) bool {
	for {
		now := time.Now()

		s := *starts
		for len(s) > 0 && now.Sub(s[0]) >= l.window {
			s = s[1:]
		}
		*starts = s

		if len(s) < l.max {
			*starts = append(s, now)
			return true
		}

		wait := l.window - now.Sub(s[0])
		l.logger.Debug().Dur("wait", wait).Int("pending", len(l.queue)).Msg("Rate limit window full, holding task")

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-l.done:
			timer.Stop()
			return false
		}
	}
}
