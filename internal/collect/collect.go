// Package collect turns callback-driven, incremental producers into a single
// bounded result.
//
// A producer receives a Sink and pushes batches into it from any goroutine.
// The first terminal event (last batch with nothing pending, the item cap,
// a producer error, a timeout or a cancelled context) resolves the
// collection. Everything the producer does afterwards is ignored, and
// Obsolete reports true so a cooperative producer can stop early.
package collect

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Sink is the producer-facing side of a collection.
type Sink[T any] interface {
	// AddBatch appends ready items. last marks the final batch.
	AddBatch(items []T, last bool)
	// Expect announces n items whose values arrive later through Deliver,
	// e.g. after an asynchronous rendering step. last marks the final batch.
	Expect(n int, last bool)
	// Deliver supplies one previously announced item.
	Deliver(item T)
	// Fail reports a producer error. Items gathered so far are kept.
	Fail(message string)
	// Obsolete reports whether the consumer stopped listening.
	Obsolete() bool
}

// Outcome says how a collection was resolved.
type Outcome string

const (
	OutcomeComplete Outcome = "complete"
	OutcomeCapped   Outcome = "capped"
	OutcomeError    Outcome = "error"
	OutcomeTimeout  Outcome = "timeout"
	OutcomeCanceled Outcome = "canceled"
)

// Result is the resolved value of a collection. It never carries a hard
// failure: errors and timeouts degrade to whatever was gathered.
type Result[T any] struct {
	Items   []T
	Outcome Outcome
	// Err is the producer's error message when Outcome is OutcomeError.
	Err string
}

// Partial reports whether the items may be incomplete.
func (r Result[T]) Partial() bool {
	return r.Outcome != OutcomeComplete
}

// Options bounds a collection.
type Options struct {
	// Timeout is the wall-clock bound on Wait. Zero waits for the context only.
	Timeout time.Duration
	// Limit caps the number of items. Zero means unlimited.
	Limit int
}

// Collector is a single-resolution accumulator. It implements Sink and is
// scoped to one call; it must not be shared between calls.
type Collector[T any] struct {
	mu       sync.Mutex
	items    []T
	limit    int
	pending  int
	lastSeen bool
	resolved bool
	outcome  Outcome
	errMsg   string
	done     chan struct{}
}

var _ Sink[int] = (*Collector[int])(nil)

// New returns an unresolved collector holding at most limit items (0 = unlimited).
func New[T any](limit int) *Collector[T] {
	if limit < 0 {
		limit = 0
	}
	return &Collector[T]{limit: limit, done: make(chan struct{})}
}

func (c *Collector[T]) AddBatch(items []T, last bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resolved {
		return
	}
	c.appendLocked(items...)
	if last {
		c.lastSeen = true
	}
	c.settleLocked()
}

func (c *Collector[T]) Expect(n int, last bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resolved {
		return
	}
	if n > 0 {
		c.pending += n
	}
	if last {
		c.lastSeen = true
	}
	c.settleLocked()
}

func (c *Collector[T]) Deliver(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resolved {
		return
	}
	if c.pending > 0 {
		c.pending--
	}
	c.appendLocked(item)
	c.settleLocked()
}

func (c *Collector[T]) Fail(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resolved {
		return
	}
	c.errMsg = message
	c.resolveLocked(OutcomeError)
}

func (c *Collector[T]) Obsolete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolved
}

// Done is closed once the collection is resolved.
func (c *Collector[T]) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the collection resolves, timeout elapses or ctx ends,
// whichever is first, and returns a snapshot. A timeout or cancellation
// resolves the collection so later producer activity is inert.
func (c *Collector[T]) Wait(ctx context.Context, timeout time.Duration) Result[T] {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-c.done:
	case <-expired:
		c.abandon(OutcomeTimeout)
	case <-ctx.Done():
		c.abandon(OutcomeCanceled)
	}
	return c.snapshot()
}

func (c *Collector[T]) abandon(outcome Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.resolved {
		c.resolveLocked(outcome)
	}
}

func (c *Collector[T]) snapshot() Result[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]T, len(c.items))
	copy(items, c.items)
	return Result[T]{Items: items, Outcome: c.outcome, Err: c.errMsg}
}

// appendLocked adds items up to the cap, dropping the excess.
func (c *Collector[T]) appendLocked(items ...T) {
	if c.limit > 0 {
		room := c.limit - len(c.items)
		if room <= 0 {
			return
		}
		if len(items) > room {
			items = items[:room]
		}
	}
	c.items = append(c.items, items...)
}

func (c *Collector[T]) settleLocked() {
	switch {
	case c.lastSeen && c.pending == 0:
		c.resolveLocked(OutcomeComplete)
	case c.limit > 0 && len(c.items) >= c.limit:
		c.resolveLocked(OutcomeCapped)
	}
}

func (c *Collector[T]) resolveLocked(outcome Outcome) {
	c.resolved = true
	c.outcome = outcome
	close(c.done)
}

// Collect runs produce on its own goroutine against a fresh collector and
// waits for the result under opts. A producer that blocks, never calls
// back or panics cannot hold the caller past the timeout.
func Collect[T any](ctx context.Context, opts Options, produce func(Sink[T])) Result[T] {
	c := New[T](opts.Limit)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.Fail(fmt.Sprintf("producer panicked: %v", r))
			}
		}()
		produce(c)
	}()
	return c.Wait(ctx, opts.Timeout)
}
