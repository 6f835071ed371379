// Package tools implements the MCP tools exposed by the server and the
// registry that holds them.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/vajrock/debugger-mcp/internal/debugger"
	"github.com/vajrock/debugger-mcp/internal/metrics"
	"github.com/vajrock/debugger-mcp/internal/protocol"
)

// Tool is one named, schema-described operation.
//
// Invoke must not panic and must not return failures out of band: every
// failure is reported as a result with IsError set. InputSchema is advisory;
// tools check their own required arguments before touching the debugger.
type Tool interface {
	Name() string
	Description() string
	InputSchema() *jsonschema.Schema
	Invoke(ctx context.Context, args Arguments) protocol.CallToolResult
}

// Definition returns the tools/list entry for t.
func Definition(t Tool) protocol.ToolDefinition {
	return protocol.ToolDefinition{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: t.InputSchema(),
	}
}

// HandlerFunc implements a tool body.
type HandlerFunc func(ctx context.Context, args Arguments) protocol.CallToolResult

type funcTool struct {
	name        string
	description string
	schema      *jsonschema.Schema
	handler     HandlerFunc
}

// New builds a Tool from its parts. A nil schema means "no arguments".
func New(name, description string, schema *jsonschema.Schema, handler HandlerFunc) Tool {
	if schema == nil {
		schema = objectSchema(nil)
	}
	return &funcTool{name: name, description: description, schema: schema, handler: handler}
}

func (t *funcTool) Name() string                    { return t.name }
func (t *funcTool) Description() string             { return t.description }
func (t *funcTool) InputSchema() *jsonschema.Schema { return t.schema }

func (t *funcTool) Invoke(ctx context.Context, args Arguments) (result protocol.CallToolResult) {
	defer func() {
		if r := recover(); r != nil {
			result = protocol.Errorf("Tool %s failed: %v", t.name, r)
		}
	}()
	return t.handler(ctx, args)
}

// Timeouts bound the debugger operations tools perform.
type Timeouts struct {
	Frames    time.Duration
	Variables time.Duration
	Evaluate  time.Duration
	Executor  time.Duration
	Launch    time.Duration
}

// Deps are the collaborators the built-in tools use.
type Deps struct {
	Sessions    debugger.SessionProvider
	Runs        debugger.RunProvider
	Configs     debugger.ConfigurationProvider
	Breakpoints debugger.BreakpointManager
	Files       debugger.FileResolver
	// Executor serializes state-changing operations. Nil runs them inline.
	Executor *debugger.Executor
	Timeouts Timeouts
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

func (d *Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// mutate runs fn on the executor under the executor timeout.
func (d *Deps) mutate(ctx context.Context, fn func(context.Context) error) error {
	if d.Timeouts.Executor > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeouts.Executor)
		defer cancel()
	}
	if d.Executor == nil {
		return fn(ctx)
	}
	return d.Executor.Invoke(ctx, fn)
}

// launchContext bounds a session start by the launch timeout.
func (d *Deps) launchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.Timeouts.Launch > 0 {
		return context.WithTimeout(ctx, d.Timeouts.Launch)
	}
	return context.WithCancel(ctx)
}

// session resolves the session_id argument.
func (d *Deps) session(args Arguments) (debugger.Session, *protocol.CallToolResult) {
	id, _ := args.String(argSessionID)
	s, err := debugger.ResolveSession(d.Sessions, id)
	if err != nil {
		res := protocol.ErrorResult(capitalize(err.Error()))
		return nil, &res
	}
	return s, nil
}

// pausedSession resolves session_id and requires the session to be paused.
func (d *Deps) pausedSession(args Arguments, action string) (debugger.Session, *protocol.CallToolResult) {
	s, res := d.session(args)
	if res != nil {
		return nil, res
	}
	if s.State() != debugger.StatePaused {
		r := protocol.Errorf("Session must be paused to %s", action)
		return nil, &r
	}
	return s, nil
}

func failed(action string, err error) protocol.CallToolResult {
	return protocol.Errorf("Failed to %s: %v", action, err)
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return fmt.Sprintf("%c%s", s[0]-'a'+'A', s[1:])
}
