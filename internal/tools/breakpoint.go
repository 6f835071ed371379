package tools

import (
	"context"
	"path/filepath"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/vajrock/debugger-mcp/internal/debugger"
	"github.com/vajrock/debugger-mcp/internal/protocol"
)

func listBreakpoints(d *Deps) Tool {
	schema := objectSchema(map[string]*jsonschema.Schema{
		argFilePath: stringProp("Only list breakpoints in this file."),
	})

	return New("list_breakpoints",
		"Lists line breakpoints, optionally filtered by file.",
		schema,
		func(_ context.Context, args Arguments) protocol.CallToolResult {
			filter, filtered := args.String(argFilePath)
			if filtered {
				filter = filepath.Clean(filter)
			}
			bps := d.Breakpoints.Breakpoints()
			out := breakpointListResult{Breakpoints: make([]breakpointInfo, 0, len(bps))}
			for _, bp := range bps {
				if filtered && filepath.Clean(bp.File) != filter {
					continue
				}
				out.Breakpoints = append(out.Breakpoints, newBreakpointInfo(bp))
			}
			out.TotalCount = len(out.Breakpoints)
			return protocol.JSONResult(out)
		})
}

func setBreakpoint(d *Deps) Tool {
	schema := objectSchema(map[string]*jsonschema.Schema{
		argFilePath:      stringProp("Path of the source file."),
		argLine:          intProp("1-based line number.", bound(1), nil),
		argCondition:     stringProp("Only suspend when this expression is true."),
		argLogMessage:    stringProp("Log this message when hit. {expr} placeholders are evaluated."),
		argSuspendPolicy: enumProp("What a hit suspends. Default: all.", string(debugger.SuspendAll), string(debugger.SuspendThread), string(debugger.SuspendNone)),
		argEnabled:       boolProp("Whether the breakpoint is active. Default: true."),
		argTemporary:     boolProp("Remove the breakpoint after the first hit. Default: false."),
	}, argFilePath, argLine)

	return New("set_breakpoint",
		"Sets a line breakpoint. Setting a breakpoint on a line that already has one updates it.",
		schema,
		func(ctx context.Context, args Arguments) protocol.CallToolResult {
			path, err := args.RequireString(argFilePath)
			if err != nil {
				return protocol.ErrorResult(err.Error())
			}
			line, err := args.RequireInt(argLine)
			if err != nil {
				return protocol.ErrorResult(err.Error())
			}
			policy := debugger.SuspendAll
			if p, ok := args.String(argSuspendPolicy); ok {
				policy = debugger.SuspendPolicy(p)
				switch policy {
				case debugger.SuspendAll, debugger.SuspendThread, debugger.SuspendNone:
				default:
					return protocol.Errorf("Invalid suspend_policy %q: must be all, thread or none", p)
				}
			}
			enabled, err := args.Bool(argEnabled, true)
			if err != nil {
				return protocol.ErrorResult(err.Error())
			}
			temporary, err := args.Bool(argTemporary, false)
			if err != nil {
				return protocol.ErrorResult(err.Error())
			}

			file, err := d.Files.Resolve(path)
			if err != nil {
				return protocol.Errorf("File not found: %s", path)
			}
			if !d.Files.CanPutBreakpointAt(file, line) {
				return protocol.Errorf("Cannot set breakpoint at %s:%d (not a valid breakpoint location)", path, line)
			}

			req := debugger.LineBreakpoint{
				File:          file.Path,
				Line:          line,
				SuspendPolicy: policy,
				Enabled:       enabled,
				Temporary:     temporary,
			}
			req.Condition, _ = args.String(argCondition)
			req.LogMessage, _ = args.String(argLogMessage)

			existed := hasBreakpointAt(d.Breakpoints.Breakpoints(), file.Path, line)
			var bp debugger.Breakpoint
			err = d.mutate(ctx, func(ctx context.Context) error {
				var err error
				bp, err = d.Breakpoints.SetLineBreakpoint(ctx, req)
				return err
			})
			if err != nil {
				return failed("set breakpoint", err)
			}

			status := statusSet
			if existed {
				status = statusUpdated
			}
			return protocol.JSONResult(setBreakpointResult{
				BreakpointID: bp.ID,
				Status:       status,
				File:         bp.File,
				Line:         bp.Line,
				Verified:     bp.Verified,
				Message:      bp.Message,
			})
		})
}

func hasBreakpointAt(bps []debugger.Breakpoint, file string, line int) bool {
	for _, bp := range bps {
		if bp.Line == line && filepath.Clean(bp.File) == filepath.Clean(file) {
			return true
		}
	}
	return false
}

func removeBreakpoint(d *Deps) Tool {
	schema := objectSchema(map[string]*jsonschema.Schema{
		argBreakpointID: stringProp("ID returned by set_breakpoint or list_breakpoints."),
	}, argBreakpointID)

	return New("remove_breakpoint",
		"Removes a breakpoint by ID.",
		schema,
		func(ctx context.Context, args Arguments) protocol.CallToolResult {
			id, err := args.RequireString(argBreakpointID)
			if err != nil {
				return protocol.ErrorResult(err.Error())
			}
			var bp debugger.Breakpoint
			err = d.mutate(ctx, func(ctx context.Context) error {
				var err error
				bp, err = d.Breakpoints.RemoveBreakpoint(ctx, id)
				return err
			})
			if err != nil {
				return failed("remove breakpoint", err)
			}
			return protocol.JSONResult(removeBreakpointResult{
				BreakpointID: bp.ID,
				Status:       statusRemoved,
				File:         bp.File,
				Line:         bp.Line,
			})
		})
}
