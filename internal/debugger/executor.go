package debugger

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrExecutorClosed is returned by Invoke after Close.
var ErrExecutorClosed = errors.New("executor closed")

// Executor runs functions one at a time on a single designated goroutine.
// Operations that mutate debugger state are marshaled through it; the
// caller blocks until its function has run or its context ends.
type Executor struct {
	tasks     chan task
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type task struct {
	ctx    context.Context
	fn     func(context.Context) error
	result chan error
}

// NewExecutor starts the executor goroutine.
func NewExecutor() *Executor {
	e := &Executor{
		tasks: make(chan task),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go e.loop()
	return e
}

func (e *Executor) loop() {
	defer close(e.done)
	for {
		select {
		case t := <-e.tasks:
			t.result <- e.run(t)
		case <-e.quit:
			return
		}
	}
}

func (e *Executor) run(t task) (err error) {
	if err := t.ctx.Err(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("executor task panicked: %v", r)
		}
	}()
	return t.fn(t.ctx)
}

// Invoke runs fn on the executor goroutine and returns its error. If ctx
// ends first, Invoke returns ctx.Err(); a task that already started keeps
// running to completion but its result is discarded.
func (e *Executor) Invoke(ctx context.Context, fn func(context.Context) error) error {
	t := task{ctx: ctx, fn: fn, result: make(chan error, 1)}
	select {
	case e.tasks <- t:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.quit:
		return ErrExecutorClosed
	}
	select {
	case err := <-t.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the executor after the running task, if any, finishes.
func (e *Executor) Close() {
	e.closeOnce.Do(func() { close(e.quit) })
	<-e.done
}
