package tools

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/vajrock/debugger-mcp/internal/debugger"
	"github.com/vajrock/debugger-mcp/internal/protocol"
)

func listDebugSessions(d *Deps) Tool {
	return New("list_debug_sessions",
		"Lists all debug sessions and marks the current one.",
		nil,
		func(context.Context, Arguments) protocol.CallToolResult {
			sessions := d.Sessions.Sessions()
			var currentID string
			if cur := d.Sessions.Current(); cur != nil {
				currentID = cur.ID()
			}
			out := debugSessionListResult{
				Sessions:         make([]debugSessionInfo, 0, len(sessions)),
				CurrentSessionID: currentID,
			}
			for _, s := range sessions {
				out.Sessions = append(out.Sessions, debugSessionInfo{
					ID:        s.ID(),
					Name:      s.Name(),
					State:     string(s.State()),
					IsCurrent: s.ID() == currentID,
				})
			}
			out.TotalCount = len(out.Sessions)
			return protocol.JSONResult(out)
		})
}

func startDebugSession(d *Deps) Tool {
	schema := objectSchema(map[string]*jsonschema.Schema{
		argConfiguration: stringProp("Name of the run configuration to debug."),
	}, argConfiguration)

	return New("start_debug_session",
		"Starts a run configuration under the debugger and makes it the current session.",
		schema,
		func(ctx context.Context, args Arguments) protocol.CallToolResult {
			name, err := args.RequireString(argConfiguration)
			if err != nil {
				return protocol.ErrorResult(err.Error())
			}
			return startDebug(ctx, d, name)
		})
}

func stopDebugSession(d *Deps) Tool {
	return New("stop_debug_session",
		"Stops a debug session and terminates the debuggee.",
		sessionOnlySchema(),
		func(ctx context.Context, args Arguments) protocol.CallToolResult {
			s, res := d.session(args)
			if res != nil {
				return *res
			}
			if s.State() == debugger.StateTerminated {
				return protocol.JSONResult(stopResult{
					SessionID: s.ID(),
					Status:    statusAlreadyStopped,
					Message:   fmt.Sprintf("Debug session %s has already terminated", s.Name()),
				})
			}
			if err := d.mutate(ctx, s.Stop); err != nil {
				return failed("stop debug session", err)
			}
			return protocol.JSONResult(stopResult{
				SessionID: s.ID(),
				Status:    statusStopped,
				Message:   fmt.Sprintf("Debug session %s stopped", s.Name()),
			})
		})
}

func getDebugSessionStatus(d *Deps) Tool {
	return New("get_debug_session_status",
		"Reports the state of a debug session and where it is suspended.",
		sessionOnlySchema(),
		func(_ context.Context, args Arguments) protocol.CallToolResult {
			s, res := d.session(args)
			if res != nil {
				return *res
			}
			out := sessionStatusResult{
				SessionID:     s.ID(),
				Name:          s.Name(),
				State:         string(s.State()),
				SelectedFrame: s.SelectedFrame(),
			}
			if loc, ok := s.Location(); ok {
				out.IsPaused = true
				out.Location = &locationInfo{
					File:     loc.File,
					Line:     loc.Line,
					Function: loc.Function,
					ThreadID: loc.ThreadID,
					Reason:   loc.Reason,
				}
			}
			return protocol.JSONResult(out)
		})
}
