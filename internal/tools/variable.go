package tools

import (
	"context"
	"errors"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/vajrock/debugger-mcp/internal/collect"
	"github.com/vajrock/debugger-mcp/internal/debugger"
	"github.com/vajrock/debugger-mcp/internal/protocol"
)

// frameIndex returns the frame_index argument or the session's selected frame.
func frameIndex(args Arguments) (index int, given bool, err error) {
	index, given, err = args.Int(argFrameIndex)
	if err == nil && given && index < 0 {
		err = errors.New("frame_index must not be negative")
	}
	return index, given, err
}

// checkFrameIndex rejects an index beyond the bottom of the stack. When the
// stack cannot be collected in time the index is let through.
func (d *Deps) checkFrameIndex(ctx context.Context, s debugger.Session, index int) *protocol.CallToolResult {
	if index == 0 {
		return nil
	}
	frames := collect.Collect(ctx, collect.Options{Timeout: d.Timeouts.Frames, Limit: index + 1},
		func(sink collect.Sink[debugger.Frame]) { s.Frames(ctx, sink) })
	if frames.Outcome == collect.OutcomeComplete && len(frames.Items) <= index {
		res := protocol.Errorf("Frame index %d is out of range (stack depth %d)", index, len(frames.Items))
		return &res
	}
	return nil
}

func getVariables(d *Deps) Tool {
	schema := objectSchema(map[string]*jsonschema.Schema{
		argSessionID:  sessionIDProp(),
		argFrameIndex: intProp("Frame to inspect. Defaults to the selected frame.", bound(0), nil),
	})

	return New("get_variables",
		"Returns the variables visible in a stack frame of a paused session.",
		schema,
		func(ctx context.Context, args Arguments) protocol.CallToolResult {
			index, given, err := frameIndex(args)
			if err != nil {
				return protocol.ErrorResult(err.Error())
			}

			s, res := d.pausedSession(args, "get variables")
			if res != nil {
				return *res
			}
			if !given {
				index = s.SelectedFrame()
			} else if res := d.checkFrameIndex(ctx, s, index); res != nil {
				return *res
			}

			result := collect.Collect(ctx, collect.Options{Timeout: d.Timeouts.Variables},
				func(sink collect.Sink[debugger.Variable]) { s.Variables(ctx, index, sink) })
			d.Metrics.Collection("variables", string(result.Outcome))
			if result.Partial() {
				d.logger().Debug("variable collection incomplete",
					"session", s.ID(), "frame", index, "outcome", result.Outcome, "variables", len(result.Items), "error", result.Err)
			}
			out := variablesResult{
				SessionID:  s.ID(),
				FrameIndex: index,
				Variables:  make([]variableInfo, 0, len(result.Items)),
			}
			for _, v := range result.Items {
				out.Variables = append(out.Variables, variableInfo{
					Name:        v.Name,
					Value:       v.Value,
					Type:        v.Type,
					HasChildren: v.HasChildren,
					Scope:       v.Scope,
				})
			}
			if result.Partial() {
				out.Partial = true
				out.Outcome = string(result.Outcome)
				out.Error = result.Err
			}
			return protocol.JSONResult(out)
		})
}

func evaluate(d *Deps) Tool {
	schema := objectSchema(map[string]*jsonschema.Schema{
		argExpression: stringProp("Expression to evaluate in the context of the frame."),
		argSessionID:  sessionIDProp(),
		argFrameIndex: intProp("Frame to evaluate in. Defaults to the selected frame.", bound(0), nil),
	}, argExpression)

	return New("evaluate",
		"Evaluates an expression in a stack frame of a paused session.",
		schema,
		func(ctx context.Context, args Arguments) protocol.CallToolResult {
			expr, err := args.RequireString(argExpression)
			if err != nil {
				return protocol.ErrorResult(err.Error())
			}
			index, given, err := frameIndex(args)
			if err != nil {
				return protocol.ErrorResult(err.Error())
			}

			s, res := d.pausedSession(args, "evaluate expressions")
			if res != nil {
				return *res
			}
			if !given {
				index = s.SelectedFrame()
			}

			ctx, cancel := withTimeout(ctx, d.Timeouts.Evaluate)
			defer cancel()
			v, err := s.Evaluate(ctx, expr, index)
			if err != nil {
				return failed("evaluate expression", err)
			}
			return protocol.JSONResult(evaluateResult{
				SessionID:   s.ID(),
				Expression:  expr,
				Result:      v.Result,
				Type:        v.Type,
				HasChildren: v.HasChildren,
			})
		})
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
