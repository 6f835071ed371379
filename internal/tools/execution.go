package tools

import (
	"context"
	"fmt"

	"github.com/vajrock/debugger-mcp/internal/debugger"
	"github.com/vajrock/debugger-mcp/internal/protocol"
)

// control describes one execution-control tool.
type control struct {
	name        string
	description string
	// verb is used in messages: "resume", "step over".
	verb string
	// from is the state the session must be in.
	from debugger.State
	run  func(debugger.Session) func(context.Context) error
}

var controls = []control{
	{
		name:        "resume",
		description: "Resumes a paused debug session.",
		verb:        "resume",
		from:        debugger.StatePaused,
		run:         func(s debugger.Session) func(context.Context) error { return s.Resume },
	},
	{
		name:        "pause",
		description: "Pauses a running debug session.",
		verb:        "pause",
		from:        debugger.StateRunning,
		run:         func(s debugger.Session) func(context.Context) error { return s.Pause },
	},
	{
		name:        "step_over",
		description: "Steps over the current line.",
		verb:        "step over",
		from:        debugger.StatePaused,
		run:         func(s debugger.Session) func(context.Context) error { return s.StepOver },
	},
	{
		name:        "step_into",
		description: "Steps into the call on the current line.",
		verb:        "step into",
		from:        debugger.StatePaused,
		run:         func(s debugger.Session) func(context.Context) error { return s.StepInto },
	},
	{
		name:        "step_out",
		description: "Steps out of the current function.",
		verb:        "step out",
		from:        debugger.StatePaused,
		run:         func(s debugger.Session) func(context.Context) error { return s.StepOut },
	},
}

func executionTool(d *Deps, c control) Tool {
	return New(c.name, c.description, sessionOnlySchema(),
		func(ctx context.Context, args Arguments) protocol.CallToolResult {
			s, res := d.session(args)
			if res != nil {
				return *res
			}
			switch state := s.State(); {
			case state == c.from:
			case c.from == debugger.StateRunning && state == debugger.StatePaused:
				return protocol.ErrorResult("Session is already paused")
			default:
				return protocol.Errorf("Session must be %s to %s (state: %s)", c.from, c.verb, state)
			}

			if err := d.mutate(ctx, c.run(s)); err != nil {
				return failed(c.verb, err)
			}
			return protocol.JSONResult(executionResult{
				SessionID: s.ID(),
				Action:    c.name,
				Status:    statusOK,
				NewState:  string(s.State()),
				Message:   fmt.Sprintf("%s requested for session %s", c.name, s.Name()),
			})
		})
}
