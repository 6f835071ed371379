package dapbackend

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/google/go-dap"

	"github.com/vajrock/debugger-mcp/internal/debugger"
)

type breakpoint struct {
	debugger.Breakpoint
	// dapIDs maps session id to the adapter's id for this breakpoint.
	dapIDs map[string]int
}

const pendingMessage = "pending: installed when a debug session starts"

func (b *Backend) Breakpoints() []debugger.Breakpoint {
	b.bpMu.Lock()
	defer b.bpMu.Unlock()
	var out []debugger.Breakpoint
	for _, bps := range b.breakpoints {
		for _, bp := range bps {
			out = append(out, bp.Breakpoint)
		}
	}
	slices.SortFunc(out, func(x, y debugger.Breakpoint) int {
		xi, _ := strconv.Atoi(x.ID)
		yi, _ := strconv.Atoi(y.ID)
		return cmp.Compare(xi, yi)
	})
	return out
}

// SetLineBreakpoint creates or updates the breakpoint at (file, line) and
// pushes the file's breakpoints to every live session.
func (b *Backend) SetLineBreakpoint(ctx context.Context, req debugger.LineBreakpoint) (debugger.Breakpoint, error) {
	b.bpMu.Lock()
	var bp *breakpoint
	for _, existing := range b.breakpoints[req.File] {
		if existing.Line == req.Line {
			bp = existing
			break
		}
	}
	if bp == nil {
		b.nextBP++
		bp = &breakpoint{
			Breakpoint: debugger.Breakpoint{ID: strconv.Itoa(b.nextBP)},
			dapIDs:     make(map[string]int),
		}
		b.breakpoints[req.File] = append(b.breakpoints[req.File], bp)
	}
	bp.LineBreakpoint = req
	bp.Verified = false
	bp.Message = pendingMessage
	b.bpMu.Unlock()

	b.pushAll(ctx, req.File)

	b.bpMu.Lock()
	defer b.bpMu.Unlock()
	return bp.Breakpoint, nil
}

func (b *Backend) RemoveBreakpoint(ctx context.Context, id string) (debugger.Breakpoint, error) {
	b.bpMu.Lock()
	var removed *breakpoint
	for file, bps := range b.breakpoints {
		i := slices.IndexFunc(bps, func(bp *breakpoint) bool { return bp.ID == id })
		if i < 0 {
			continue
		}
		removed = bps[i]
		if bps = slices.Delete(bps, i, i+1); len(bps) == 0 {
			delete(b.breakpoints, file)
		} else {
			b.breakpoints[file] = bps
		}
		break
	}
	b.bpMu.Unlock()

	if removed == nil {
		return debugger.Breakpoint{}, fmt.Errorf("%w: %s", debugger.ErrBreakpointNotFound, id)
	}
	b.pushAll(ctx, removed.File)
	return removed.Breakpoint, nil
}

func (b *Backend) breakpointFiles() []string {
	b.bpMu.Lock()
	defer b.bpMu.Unlock()
	return slices.Sorted(maps.Keys(b.breakpoints))
}

func (b *Backend) pushAll(ctx context.Context, file string) {
	for _, s := range b.liveSessions() {
		if err := b.pushFile(ctx, s, file); err != nil {
			b.logger.Warn("could not update breakpoints", "session", s.id, "file", file, "error", err)
		}
	}
}

// pushFile replaces the breakpoints of file in session s with the enabled
// breakpoints the backend holds for it.
func (b *Backend) pushFile(ctx context.Context, s *Session, file string) error {
	b.bpMu.Lock()
	var (
		active []*breakpoint
		source []dap.SourceBreakpoint
	)
	for _, bp := range b.breakpoints[file] {
		if !bp.Enabled {
			delete(bp.dapIDs, s.id)
			bp.Verified = false
			bp.Message = "disabled"
			continue
		}
		active = append(active, bp)
		source = append(source, sourceBreakpoint(bp.LineBreakpoint))
	}
	b.bpMu.Unlock()

	resp, err := call[*dap.SetBreakpointsResponse](ctx, s.client, &dap.SetBreakpointsRequest{
		Request: newRequest("setBreakpoints"),
		Arguments: dap.SetBreakpointsArguments{
			Source:      dap.Source{Path: file},
			Breakpoints: source,
		},
	})

	b.bpMu.Lock()
	defer b.bpMu.Unlock()
	if err != nil {
		for _, bp := range active {
			bp.Message = err.Error()
		}
		return err
	}
	for i, bp := range active {
		if i >= len(resp.Body.Breakpoints) {
			break
		}
		got := resp.Body.Breakpoints[i]
		bp.dapIDs[s.id] = got.Id
		bp.Verified = got.Verified
		bp.Message = got.Message
	}
	return nil
}

func sourceBreakpoint(lb debugger.LineBreakpoint) dap.SourceBreakpoint {
	sb := dap.SourceBreakpoint{
		Line:       lb.Line,
		Condition:  lb.Condition,
		LogMessage: lb.LogMessage,
	}
	// A logpoint never suspends, which is how delve expresses "none".
	if lb.SuspendPolicy == debugger.SuspendNone && sb.LogMessage == "" {
		sb.LogMessage = fmt.Sprintf("hit %s:%d", lb.File, lb.Line)
	}
	return sb
}
