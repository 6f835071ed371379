package dapbackend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/go-dap"

	"github.com/vajrock/debugger-mcp/internal/collect"
	"github.com/vajrock/debugger-mcp/internal/debugger"
)

// framePage is the number of frames requested per stackTrace call.
const framePage = 20

// Session is one Delve DAP session.
type Session struct {
	id     string
	name   string
	config string
	logger *slog.Logger

	client *Client
	// proc is the dlv process; nil when the adapter is not ours.
	proc *exec.Cmd

	// onStop is called when the debuggee stops; hits lists the DAP ids of
	// the breakpoints that caused it.
	onStop func(s *Session, hits []int)

	releaseOnce sync.Once
	released    chan struct{}

	mu       sync.Mutex
	state    debugger.State
	loc      debugger.Location
	stopGen  int
	selected int
}

var _ debugger.Session = (*Session)(nil)

func newSession(id, name, config string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		id:       id,
		name:     name,
		config:   config,
		logger:   logger.With("session", id),
		state:    debugger.StateRunning,
		released: make(chan struct{}),
	}
}

func (s *Session) ID() string   { return s.id }
func (s *Session) Name() string { return s.name }

func (s *Session) State() debugger.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Location() (debugger.Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loc, s.state == debugger.StatePaused
}

func (s *Session) SelectedFrame() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

func (s *Session) setState(state debugger.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != debugger.StateTerminated {
		s.state = state
	}
}

func (s *Session) threadID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loc.ThreadID == 0 {
		return 1
	}
	return s.loc.ThreadID
}

// handleEvent runs on the client's reader goroutine.
func (s *Session) handleEvent(ev dap.EventMessage) {
	switch e := ev.(type) {
	case *dap.StoppedEvent:
		s.mu.Lock()
		s.state = debugger.StatePaused
		s.loc = debugger.Location{ThreadID: e.Body.ThreadId, Reason: e.Body.Reason}
		s.selected = 0
		s.stopGen++
		gen := s.stopGen
		s.mu.Unlock()

		s.logger.Debug("stopped", "thread", e.Body.ThreadId, "reason", e.Body.Reason)
		go s.refreshLocation(gen)
		if s.onStop != nil {
			go s.onStop(s, e.Body.HitBreakpointIds)
		}
	case *dap.ContinuedEvent:
		s.setState(debugger.StateRunning)
	case *dap.TerminatedEvent, *dap.ExitedEvent:
		s.mu.Lock()
		s.state = debugger.StateTerminated
		s.mu.Unlock()
		s.logger.Debug("debuggee terminated")
		// Closing the client waits for this goroutine.
		go func() {
			if err := s.release(); err != nil {
				s.logger.Warn("could not release adapter", "error", err)
			}
		}()
	case *dap.OutputEvent:
		s.logger.Debug("debuggee output", "category", e.Body.Category, "output", strings.TrimRight(e.Body.Output, "\n"))
	}
}

// refreshLocation fills in the source position of the stop identified by gen.
func (s *Session) refreshLocation(gen int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	frame, err := s.frameAt(ctx, 0)
	if err != nil {
		s.logger.Debug("could not resolve stop location", "error", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopGen == gen && s.state == debugger.StatePaused {
		s.loc.File = frame.File
		s.loc.Line = frame.Line
		s.loc.Function = frame.Function
	}
}

func (s *Session) Pause(ctx context.Context) error {
	_, err := s.client.Do(ctx, &dap.PauseRequest{
		Request:   newRequest("pause"),
		Arguments: dap.PauseArguments{ThreadId: s.threadID()},
	})
	return err
}

func (s *Session) Resume(ctx context.Context) error {
	_, err := s.client.Do(ctx, &dap.ContinueRequest{
		Request:   newRequest("continue"),
		Arguments: dap.ContinueArguments{ThreadId: s.threadID()},
	})
	if err == nil {
		s.setState(debugger.StateRunning)
	}
	return err
}

func (s *Session) StepOver(ctx context.Context) error {
	return s.step(ctx, &dap.NextRequest{
		Request:   newRequest("next"),
		Arguments: dap.NextArguments{ThreadId: s.threadID()},
	})
}

func (s *Session) StepInto(ctx context.Context) error {
	return s.step(ctx, &dap.StepInRequest{
		Request:   newRequest("stepIn"),
		Arguments: dap.StepInArguments{ThreadId: s.threadID()},
	})
}

func (s *Session) StepOut(ctx context.Context) error {
	return s.step(ctx, &dap.StepOutRequest{
		Request:   newRequest("stepOut"),
		Arguments: dap.StepOutArguments{ThreadId: s.threadID()},
	})
}

// step issues a stepping request. The session runs until the stopped
// event that ends the step arrives.
func (s *Session) step(ctx context.Context, req dap.RequestMessage) error {
	s.mu.Lock()
	gen := s.stopGen
	s.mu.Unlock()

	if _, err := s.client.Do(ctx, req); err != nil {
		return err
	}
	s.mu.Lock()
	if s.stopGen == gen && s.state == debugger.StatePaused {
		s.state = debugger.StateRunning
	}
	s.mu.Unlock()
	return nil
}

// Stop terminates the debuggee, disconnects and kills the adapter.
func (s *Session) Stop(ctx context.Context) error {
	var errs []error
	if s.client != nil {
		if _, err := s.client.Do(ctx, &dap.TerminateRequest{Request: newRequest("terminate")}); err != nil {
			s.logger.Debug("terminate request failed", "error", err)
		}
		_, err := s.client.Do(ctx, &dap.DisconnectRequest{
			Request:   newRequest("disconnect"),
			Arguments: &dap.DisconnectArguments{TerminateDebuggee: true},
		})
		if err != nil && !errors.Is(err, ErrClientClosed) {
			errs = append(errs, err)
		}
	}
	if err := s.release(); err != nil {
		errs = append(errs, err)
	}

	s.mu.Lock()
	s.state = debugger.StateTerminated
	s.mu.Unlock()
	return errors.Join(errs...)
}

// release closes the client and reaps the adapter. Only the first call
// does any work.
func (s *Session) release() error {
	var err error
	s.releaseOnce.Do(func() {
		defer close(s.released)
		if s.client != nil {
			s.client.Close()
		}
		if s.proc != nil && s.proc.Process != nil {
			if kerr := s.proc.Process.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
				err = fmt.Errorf("kill dlv: %w", kerr)
			}
			s.proc.Wait()
		}
		s.logger.Debug("adapter released")
	})
	return err
}

func (s *Session) Frames(ctx context.Context, sink collect.Sink[debugger.Frame]) {
	thread := s.threadID()
	start := 0
	for !sink.Obsolete() {
		resp, err := call[*dap.StackTraceResponse](ctx, s.client, &dap.StackTraceRequest{
			Request:   newRequest("stackTrace"),
			Arguments: dap.StackTraceArguments{ThreadId: thread, StartFrame: start, Levels: framePage},
		})
		if err != nil {
			sink.Fail(err.Error())
			return
		}

		frames := make([]debugger.Frame, len(resp.Body.StackFrames))
		for i, f := range resp.Body.StackFrames {
			frames[i] = convertFrame(start+i, f)
		}
		start += len(frames)
		last := len(frames) < framePage || (resp.Body.TotalFrames > 0 && start >= resp.Body.TotalFrames)
		sink.AddBatch(frames, last)
		if last {
			return
		}
	}
}

func convertFrame(index int, f dap.StackFrame) debugger.Frame {
	frame := debugger.Frame{
		Index:    index,
		ID:       f.Id,
		Function: f.Name,
		Line:     f.Line,
		Library:  f.PresentationHint == "subtle",
	}
	if f.Source != nil {
		frame.File = f.Source.Path
		if f.Source.PresentationHint == "deemphasize" || isLibraryPath(f.Source.Path) {
			frame.Library = true
		}
	}
	if frame.File != "" {
		frame.Presentation = fmt.Sprintf("%s (%s:%d)", f.Name, filepath.Base(frame.File), f.Line)
	} else {
		frame.Presentation = f.Name
	}
	return frame
}

func isLibraryPath(path string) bool {
	if path == "" {
		return true
	}
	p := filepath.ToSlash(path)
	return strings.Contains(p, "/pkg/mod/") || strings.Contains(p, "/go/src/runtime/") || strings.Contains(p, "/libexec/src/")
}

// frameAt fetches the frame at index of the stopped thread.
func (s *Session) frameAt(ctx context.Context, index int) (debugger.Frame, error) {
	resp, err := call[*dap.StackTraceResponse](ctx, s.client, &dap.StackTraceRequest{
		Request:   newRequest("stackTrace"),
		Arguments: dap.StackTraceArguments{ThreadId: s.threadID(), StartFrame: index, Levels: 1},
	})
	if err != nil {
		return debugger.Frame{}, err
	}
	if len(resp.Body.StackFrames) == 0 {
		return debugger.Frame{}, fmt.Errorf("no stack frame at index %d", index)
	}
	return convertFrame(index, resp.Body.StackFrames[0]), nil
}

func (s *Session) SelectFrame(ctx context.Context, frameIndex int) (debugger.Frame, error) {
	frame, err := s.frameAt(ctx, frameIndex)
	if err != nil {
		return debugger.Frame{}, err
	}
	s.mu.Lock()
	s.selected = frameIndex
	s.mu.Unlock()
	return frame, nil
}

// Variables requests the frame's scopes, then every scope's variables
// concurrently. Each scope is announced with Expect once its variables
// arrive; the scope that answers last closes the collection.
func (s *Session) Variables(ctx context.Context, frameIndex int, sink collect.Sink[debugger.Variable]) {
	frame, err := s.frameAt(ctx, frameIndex)
	if err != nil {
		sink.Fail(err.Error())
		return
	}
	scopes, err := call[*dap.ScopesResponse](ctx, s.client, &dap.ScopesRequest{
		Request:   newRequest("scopes"),
		Arguments: dap.ScopesArguments{FrameId: frame.ID},
	})
	if err != nil {
		sink.Fail(err.Error())
		return
	}
	if len(scopes.Body.Scopes) == 0 {
		sink.AddBatch(nil, true)
		return
	}

	var (
		mu        sync.Mutex
		remaining = len(scopes.Body.Scopes)
		wg        sync.WaitGroup
	)
	for _, scope := range scopes.Body.Scopes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := call[*dap.VariablesResponse](ctx, s.client, &dap.VariablesRequest{
				Request:   newRequest("variables"),
				Arguments: dap.VariablesArguments{VariablesReference: scope.VariablesReference},
			})

			mu.Lock()
			remaining--
			if err != nil {
				sink.Fail(fmt.Sprintf("scope %s: %v", scope.Name, err))
				mu.Unlock()
				return
			}
			sink.Expect(len(resp.Body.Variables), remaining == 0)
			mu.Unlock()

			for _, v := range resp.Body.Variables {
				if sink.Obsolete() {
					return
				}
				sink.Deliver(debugger.Variable{
					Name:        v.Name,
					Value:       v.Value,
					Type:        v.Type,
					HasChildren: v.VariablesReference > 0,
					Scope:       scope.Name,
				})
			}
		}()
	}
	wg.Wait()
}

func (s *Session) Evaluate(ctx context.Context, expression string, frameIndex int) (debugger.Value, error) {
	frame, err := s.frameAt(ctx, frameIndex)
	if err != nil {
		return debugger.Value{}, err
	}
	resp, err := call[*dap.EvaluateResponse](ctx, s.client, &dap.EvaluateRequest{
		Request: newRequest("evaluate"),
		Arguments: dap.EvaluateArguments{
			Expression: expression,
			FrameId:    frame.ID,
			Context:    "repl",
		},
	})
	if err != nil {
		return debugger.Value{}, err
	}
	return debugger.Value{
		Result:      resp.Body.Result,
		Type:        resp.Body.Type,
		HasChildren: resp.Body.VariablesReference > 0,
	}, nil
}
