package debugger_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vajrock/debugger-mcp/internal/debugger"
	"github.com/vajrock/debugger-mcp/internal/debugger/debuggertest"
)

func TestResolveSession(t *testing.T) {
	t.Run("no sessions", func(t *testing.T) {
		d := debuggertest.New()
		if _, err := debugger.ResolveSession(d, ""); !errors.Is(err, debugger.ErrNoActiveSession) {
			t.Fatalf("expected ErrNoActiveSession, got %v", err)
		}
	})

	t.Run("single session without id", func(t *testing.T) {
		d := debuggertest.New()
		s := d.AddSession("s1", debugger.StatePaused)
		got, err := debugger.ResolveSession(d, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != s {
			t.Fatalf("expected %s, got %s", s.ID(), got.ID())
		}
	})

	t.Run("unknown id with sessions present", func(t *testing.T) {
		d := debuggertest.New()
		d.AddSession("s1", debugger.StatePaused)
		_, err := debugger.ResolveSession(d, "nope")
		if !errors.Is(err, debugger.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("explicit id", func(t *testing.T) {
		d := debuggertest.New()
		d.AddSession("s1", debugger.StatePaused)
		s2 := d.AddSession("s2", debugger.StateRunning)
		got, err := debugger.ResolveSession(d, "s2")
		if err != nil || got != s2 {
			t.Fatalf("expected s2, got %v, %v", got, err)
		}
	})

	t.Run("several sessions use current", func(t *testing.T) {
		d := debuggertest.New()
		d.AddSession("s1", debugger.StatePaused)
		s2 := d.AddSession("s2", debugger.StatePaused)
		d.SetCurrent(s2)
		got, err := debugger.ResolveSession(d, "")
		if err != nil || got != s2 {
			t.Fatalf("expected current session s2, got %v, %v", got, err)
		}
	})

	t.Run("several sessions without current pick first live", func(t *testing.T) {
		d := debuggertest.New()
		d.AddSession("s1", debugger.StateTerminated)
		s2 := d.AddSession("s2", debugger.StatePaused)
		d.SetCurrent(nil)
		got, err := debugger.ResolveSession(d, "")
		if err != nil || got != s2 {
			t.Fatalf("expected s2, got %v, %v", got, err)
		}
	})
}

func TestResolveRunSession(t *testing.T) {
	d := debuggertest.New()
	if _, err := debugger.ResolveRunSession(d, ""); !errors.Is(err, debugger.ErrNoActiveRunSession) {
		t.Fatalf("expected ErrNoActiveRunSession, got %v", err)
	}

	r1 := d.AddRunSession("r1", 4242)
	got, err := debugger.ResolveRunSession(d, "")
	if err != nil || got != r1 {
		t.Fatalf("expected r1, got %v, %v", got, err)
	}

	got, err = debugger.ResolveRunSession(d, "4242")
	if err != nil || got != r1 {
		t.Fatalf("expected lookup by pid to find r1, got %v, %v", got, err)
	}

	if _, err := debugger.ResolveRunSession(d, "9999"); !errors.Is(err, debugger.ErrRunSessionNotFound) {
		t.Fatalf("expected ErrRunSessionNotFound, got %v", err)
	}
}

func TestExecutorSerializes(t *testing.T) {
	e := debugger.NewExecutor()
	defer e.Close()

	var running, maxRunning atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := e.Invoke(context.Background(), func(context.Context) error {
				n := running.Add(1)
				for {
					m := maxRunning.Load()
					if n <= m || maxRunning.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				running.Add(-1)
				return nil
			})
			if err != nil {
				t.Errorf("invoke: %v", err)
			}
		}()
	}
	wg.Wait()

	if maxRunning.Load() != 1 {
		t.Fatalf("expected tasks to run one at a time, saw %d concurrently", maxRunning.Load())
	}
}

func TestExecutorPropagatesErrorsAndPanics(t *testing.T) {
	e := debugger.NewExecutor()
	defer e.Close()

	want := errors.New("boom")
	if err := e.Invoke(context.Background(), func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
	if err := e.Invoke(context.Background(), func(context.Context) error { panic("bad") }); err == nil {
		t.Fatal("expected panic to surface as error")
	}
	if err := e.Invoke(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatalf("executor unusable after panic: %v", err)
	}
}

func TestExecutorInvokeHonoursContext(t *testing.T) {
	e := debugger.NewExecutor()
	defer e.Close()

	block := make(chan struct{})
	started := make(chan struct{})
	go e.Invoke(context.Background(), func(context.Context) error { //nolint:errcheck
		close(started)
		<-block
		return nil
	})
	defer close(block)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := e.Invoke(ctx, func(context.Context) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestExecutorClosed(t *testing.T) {
	e := debugger.NewExecutor()
	e.Close()
	if err := e.Invoke(context.Background(), func(context.Context) error { return nil }); !errors.Is(err, debugger.ErrExecutorClosed) {
		t.Fatalf("expected ErrExecutorClosed, got %v", err)
	}
}
