package tools

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/vajrock/debugger-mcp/internal/collect"
	"github.com/vajrock/debugger-mcp/internal/debugger"
	"github.com/vajrock/debugger-mcp/internal/protocol"
)

func getStackTrace(d *Deps) Tool {
	schema := objectSchema(map[string]*jsonschema.Schema{
		argSessionID: sessionIDProp(),
		argMaxFrames: intProp("Maximum number of frames to return. Default: 50.", bound(1), bound(maxFramesLimit)),
	})

	return New("get_stack_trace",
		"Returns the stack of the suspended thread. The frame marked is_current is the one used by get_variables and evaluate.",
		schema,
		func(ctx context.Context, args Arguments) protocol.CallToolResult {
			maxFrames, ok, err := args.Int(argMaxFrames)
			if err != nil {
				return protocol.ErrorResult(err.Error())
			}
			if !ok {
				maxFrames = defaultMaxFrames
			}
			if maxFrames < 1 || maxFrames > maxFramesLimit {
				return protocol.Errorf("max_frames must be between 1 and %d", maxFramesLimit)
			}

			s, res := d.pausedSession(args, "get the stack trace")
			if res != nil {
				return *res
			}

			result := collect.Collect(ctx, collect.Options{Timeout: d.Timeouts.Frames, Limit: maxFrames},
				func(sink collect.Sink[debugger.Frame]) { s.Frames(ctx, sink) })
			d.Metrics.Collection("frames", string(result.Outcome))
			if result.Partial() {
				d.logger().Debug("stack trace collection incomplete",
					"session", s.ID(), "outcome", result.Outcome, "frames", len(result.Items), "error", result.Err)
			}
			selected := s.SelectedFrame()
			out := stackTraceResult{
				SessionID:   s.ID(),
				Frames:      make([]stackFrameInfo, 0, len(result.Items)),
				TotalFrames: len(result.Items),
			}
			if loc, ok := s.Location(); ok {
				out.ThreadID = loc.ThreadID
			}
			for _, f := range result.Items {
				out.Frames = append(out.Frames, newStackFrameInfo(f, selected))
			}
			// A capped trace is exactly what was asked for.
			if result.Partial() && result.Outcome != collect.OutcomeCapped {
				out.Partial = true
				out.Outcome = string(result.Outcome)
				out.Error = result.Err
			}
			return protocol.JSONResult(out)
		})
}

func selectStackFrame(d *Deps) Tool {
	schema := objectSchema(map[string]*jsonschema.Schema{
		argSessionID:  sessionIDProp(),
		argFrameIndex: intProp("Index of the frame, as reported by get_stack_trace.", bound(0), nil),
	}, argFrameIndex)

	return New("select_stack_frame",
		"Selects the frame used by get_variables and evaluate when no frame_index is given.",
		schema,
		func(ctx context.Context, args Arguments) protocol.CallToolResult {
			index, err := args.RequireInt(argFrameIndex)
			if err != nil {
				return protocol.ErrorResult(err.Error())
			}
			if index < 0 {
				return protocol.ErrorResult("frame_index must not be negative")
			}

			s, res := d.pausedSession(args, "select a stack frame")
			if res != nil {
				return *res
			}

			var frame debugger.Frame
			err = d.mutate(ctx, func(ctx context.Context) error {
				var err error
				frame, err = s.SelectFrame(ctx, index)
				return err
			})
			if err != nil {
				return failed("select stack frame", err)
			}
			return protocol.JSONResult(selectFrameResult{
				SessionID: s.ID(),
				Frame:     newStackFrameInfo(frame, index),
				Message:   fmt.Sprintf("Selected frame %d: %s", index, frame.Function),
			})
		})
}
