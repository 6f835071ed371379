package tools

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/vajrock/debugger-mcp/internal/protocol"
)

func stubTool(name string) Tool {
	return New(name, "stub", nil, func(context.Context, Arguments) protocol.CallToolResult {
		return protocol.TextResult(name)
	})
}

func TestRegistryOrderAndReplace(t *testing.T) {
	r := NewRegistry()
	r.Register(stubTool("b"))
	r.Register(stubTool("a"))
	r.Register(stubTool("c"))

	var names []string
	for _, tool := range r.List() {
		names = append(names, tool.Name())
	}
	if fmt.Sprint(names) != "[b a c]" {
		t.Fatalf("expected registration order, got %v", names)
	}

	r.Unregister("a")
	r.Unregister("missing")
	if r.Count() != 2 {
		t.Fatalf("expected 2 tools, got %d", r.Count())
	}
	if _, ok := r.Get("a"); ok {
		t.Fatal("expected a to be gone")
	}
}

func TestRegistryResolvedToolSurvivesUnregister(t *testing.T) {
	r := NewRegistry()
	r.Register(stubTool("x"))
	tool, _ := r.Get("x")
	r.Unregister("x")

	if got := tool.Invoke(context.Background(), nil).Text(); got != "x" {
		t.Fatalf("expected in-flight tool to keep working, got %q", got)
	}
}

func TestRegistryOnChange(t *testing.T) {
	r := NewRegistry()
	var changes atomic.Int32
	r.OnChange(func() {
		// The hook runs outside the lock and may read the registry.
		_ = r.Count()
		changes.Add(1)
	})

	r.Register(stubTool("x"))
	r.Unregister("x")
	r.Unregister("x")
	if got := changes.Load(); got != 2 {
		t.Fatalf("expected 2 change notifications, got %d", got)
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := range 50 {
				name := fmt.Sprintf("t%d-%d", i, j)
				r.Register(stubTool(name))
				if j%2 == 0 {
					r.Unregister(name)
				}
			}
		}()
		go func() {
			defer wg.Done()
			for range 50 {
				for _, def := range r.Definitions() {
					if def.Name == "" {
						t.Error("empty tool name in snapshot")
					}
				}
			}
		}()
	}
	wg.Wait()

	if got := r.Count(); got != 8*25 {
		t.Fatalf("expected %d tools, got %d", 8*25, got)
	}
}

func TestArguments(t *testing.T) {
	args := Arguments{
		"f":     float64(3),
		"frac":  2.5,
		"s":     "12",
		"blank": " ",
		"b":     true,
		"bs":    "false",
		"nil":   nil,
	}

	if n, ok, err := args.Int("f"); !ok || err != nil || n != 3 {
		t.Fatalf("Int(f) = %d, %v, %v", n, ok, err)
	}
	if n, ok, err := args.Int("s"); !ok || err != nil || n != 12 {
		t.Fatalf("Int(s) = %d, %v, %v", n, ok, err)
	}
	if _, _, err := args.Int("frac"); err == nil {
		t.Fatal("expected error for fractional number")
	}
	if _, ok, err := args.Int("nil"); ok || err != nil {
		t.Fatalf("expected null to count as absent, got ok=%v err=%v", ok, err)
	}
	if s, ok := args.String("f"); !ok || s != "3" {
		t.Fatalf("String(f) = %q, %v", s, ok)
	}
	if _, ok := args.String("blank"); ok {
		t.Fatal("expected blank string to count as absent")
	}
	if b, err := args.Bool("bs", true); err != nil || b {
		t.Fatalf("Bool(bs) = %v, %v", b, err)
	}
	if b, err := args.Bool("missing", true); err != nil || !b {
		t.Fatalf("expected default, got %v, %v", b, err)
	}
	if _, err := args.RequireInt("missing"); err == nil || err.Error() != "Missing required parameter: missing" {
		t.Fatalf("unexpected error: %v", err)
	}
}
