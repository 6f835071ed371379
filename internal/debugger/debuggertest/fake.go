// Package debuggertest provides an in-memory debugger for tests.
package debuggertest

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/vajrock/debugger-mcp/internal/collect"
	"github.com/vajrock/debugger-mcp/internal/debugger"
)

// Debugger implements every collaborator interface in memory. All methods
// are safe for concurrent use. Calls counts collaborator invocations so
// tests can assert that nothing was touched.
type Debugger struct {
	mu          sync.Mutex
	sessions    []*Session
	current     *Session
	runs        []*RunSession
	currentRun  *RunSession
	configs     []debugger.RunConfiguration
	files       map[string]debugger.File
	invalid     map[string][]int
	breakpoints []debugger.Breakpoint
	nextBP      int
	calls       int

	// StartDebugFunc, when set, runs at the start of StartDebug without
	// holding the lock.
	StartDebugFunc func(ctx context.Context)
}

var (
	_ debugger.SessionProvider       = (*Debugger)(nil)
	_ debugger.RunProvider           = (*Debugger)(nil)
	_ debugger.BreakpointManager     = (*Debugger)(nil)
	_ debugger.ConfigurationProvider = (*Debugger)(nil)
	_ debugger.FileResolver          = (*Debugger)(nil)
)

// New returns an empty fake debugger.
func New() *Debugger {
	return &Debugger{
		files:   make(map[string]debugger.File),
		invalid: make(map[string][]int),
	}
}

func (d *Debugger) touch() {
	d.calls++
}

// Calls returns how many collaborator methods were invoked.
func (d *Debugger) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// AddSession registers a debug session and makes it current.
func (d *Debugger) AddSession(id string, state debugger.State) *Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := &Session{id: id, name: "session " + id, state: state, variables: make(map[int][]debugger.Variable)}
	if state == debugger.StatePaused {
		s.location = debugger.Location{ThreadID: 1, Reason: "breakpoint"}
	}
	d.sessions = append(d.sessions, s)
	d.current = s
	return s
}

// SetCurrent sets the current session; nil clears it.
func (d *Debugger) SetCurrent(s *Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = s
}

// AddRunSession registers a running process and makes it current.
func (d *Debugger) AddRunSession(id string, pid int) *RunSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := &RunSession{id: id, name: "run " + id, config: id, pid: pid}
	d.runs = append(d.runs, r)
	d.currentRun = r
	return r
}

// AddConfiguration registers a run configuration.
func (d *Debugger) AddConfiguration(cfg debugger.RunConfiguration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.configs = append(d.configs, cfg)
}

// AddFile registers a source file with n lines; invalid lines reject breakpoints.
func (d *Debugger) AddFile(path string, lines int, invalid ...int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.files[path] = debugger.File{Path: path, Name: filepath.Base(path), Lines: lines}
	d.invalid[path] = invalid
}

func (d *Debugger) Sessions() []debugger.Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.touch()
	out := make([]debugger.Session, 0, len(d.sessions))
	for _, s := range d.sessions {
		out = append(out, s)
	}
	return out
}

func (d *Debugger) Current() debugger.Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.touch()
	if d.current == nil {
		return nil
	}
	return d.current
}

func (d *Debugger) StartDebug(ctx context.Context, configuration string) (debugger.Session, error) {
	if d.StartDebugFunc != nil {
		d.StartDebugFunc(ctx)
	}
	d.mu.Lock()
	found := slices.ContainsFunc(d.configs, func(c debugger.RunConfiguration) bool { return c.Name == configuration })
	d.touch()
	d.mu.Unlock()
	if !found {
		return nil, fmt.Errorf("%w: %s", debugger.ErrConfigNotFound, configuration)
	}
	return d.AddSession(fmt.Sprintf("debug-%s", configuration), debugger.StateRunning), nil
}

func (d *Debugger) RunSessions() []debugger.RunSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.touch()
	out := make([]debugger.RunSession, 0, len(d.runs))
	for _, r := range d.runs {
		out = append(out, r)
	}
	return out
}

func (d *Debugger) CurrentRun() debugger.RunSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.touch()
	if d.currentRun == nil {
		return nil
	}
	return d.currentRun
}

func (d *Debugger) StartRun(_ context.Context, configuration string) (debugger.RunSession, error) {
	d.mu.Lock()
	found := slices.ContainsFunc(d.configs, func(c debugger.RunConfiguration) bool { return c.Name == configuration })
	d.touch()
	pid := 1000 + len(d.runs)
	d.mu.Unlock()
	if !found {
		return nil, fmt.Errorf("%w: %s", debugger.ErrConfigNotFound, configuration)
	}
	r := d.AddRunSession("run-"+configuration, pid)
	r.config = configuration
	return r, nil
}

func (d *Debugger) Configurations() []debugger.RunConfiguration {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.touch()
	return slices.Clone(d.configs)
}

func (d *Debugger) Resolve(path string) (debugger.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.touch()
	f, ok := d.files[path]
	if !ok {
		return debugger.File{}, fmt.Errorf("%w: %s", debugger.ErrFileNotFound, path)
	}
	return f, nil
}

func (d *Debugger) CanPutBreakpointAt(file debugger.File, line int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.touch()
	if line < 1 || line > file.Lines {
		return false
	}
	return !slices.Contains(d.invalid[file.Path], line)
}

func (d *Debugger) Breakpoints() []debugger.Breakpoint {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.touch()
	return slices.Clone(d.breakpoints)
}

func (d *Debugger) SetLineBreakpoint(_ context.Context, bp debugger.LineBreakpoint) (debugger.Breakpoint, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.touch()
	for i, existing := range d.breakpoints {
		if existing.File == bp.File && existing.Line == bp.Line {
			d.breakpoints[i].LineBreakpoint = bp
			return d.breakpoints[i], nil
		}
	}
	d.nextBP++
	created := debugger.Breakpoint{ID: strconv.Itoa(d.nextBP), LineBreakpoint: bp, Verified: true}
	d.breakpoints = append(d.breakpoints, created)
	return created, nil
}

func (d *Debugger) RemoveBreakpoint(_ context.Context, id string) (debugger.Breakpoint, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.touch()
	for i, bp := range d.breakpoints {
		if bp.ID == id {
			d.breakpoints = slices.Delete(d.breakpoints, i, i+1)
			return bp, nil
		}
	}
	return debugger.Breakpoint{}, fmt.Errorf("%w: %s", debugger.ErrBreakpointNotFound, id)
}

// Session is an in-memory debug session.
type Session struct {
	mu        sync.Mutex
	id        string
	name      string
	state     debugger.State
	location  debugger.Location
	frames    []debugger.Frame
	variables map[int][]debugger.Variable
	selected  int
	actions   []string

	// FramesFunc, when set, replaces the default frame producer.
	FramesFunc func(ctx context.Context, sink collect.Sink[debugger.Frame])
	// VariablesFunc, when set, replaces the default variable producer.
	VariablesFunc func(ctx context.Context, frameIndex int, sink collect.Sink[debugger.Variable])
	// EvaluateFunc, when set, replaces the default evaluator.
	EvaluateFunc func(expression string, frameIndex int) (debugger.Value, error)
}

var _ debugger.Session = (*Session)(nil)

// SetFrames sets the frames reported while paused.
func (s *Session) SetFrames(frames ...debugger.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = frames
}

// SetVariables sets the variables reported for frameIndex.
func (s *Session) SetVariables(frameIndex int, vars ...debugger.Variable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variables[frameIndex] = vars
}

// SetState forces the session state.
func (s *Session) SetState(state debugger.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// Actions returns the control actions applied so far.
func (s *Session) Actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.actions)
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
	return s.location, s.state == debugger.StatePaused
}

func (s *Session) transition(action string, from []debugger.State, to debugger.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if from != nil && !slices.Contains(from, s.state) {
		return fmt.Errorf("cannot %s a %s session", action, s.state)
	}
	s.actions = append(s.actions, action)
	s.state = to
	return nil
}

var pausedOnly = []debugger.State{debugger.StatePaused}

func (s *Session) Pause(context.Context) error {
	return s.transition("pause", []debugger.State{debugger.StateRunning}, debugger.StatePaused)
}

func (s *Session) Resume(context.Context) error {
	return s.transition("resume", pausedOnly, debugger.StateRunning)
}

// Steps complete immediately and leave the session paused.
func (s *Session) StepOver(context.Context) error {
	return s.transition("step_over", pausedOnly, debugger.StatePaused)
}

func (s *Session) StepInto(context.Context) error {
	return s.transition("step_into", pausedOnly, debugger.StatePaused)
}

func (s *Session) StepOut(context.Context) error {
	return s.transition("step_out", pausedOnly, debugger.StatePaused)
}

func (s *Session) Stop(context.Context) error {
	return s.transition("stop", nil, debugger.StateTerminated)
}

func (s *Session) Frames(ctx context.Context, sink collect.Sink[debugger.Frame]) {
	if s.FramesFunc != nil {
		s.FramesFunc(ctx, sink)
		return
	}
	s.mu.Lock()
	frames := slices.Clone(s.frames)
	s.mu.Unlock()
	sink.AddBatch(frames, true)
}

func (s *Session) Variables(ctx context.Context, frameIndex int, sink collect.Sink[debugger.Variable]) {
	if s.VariablesFunc != nil {
		s.VariablesFunc(ctx, frameIndex, sink)
		return
	}
	s.mu.Lock()
	vars := slices.Clone(s.variables[frameIndex])
	s.mu.Unlock()
	sink.AddBatch(vars, true)
}

func (s *Session) SelectFrame(_ context.Context, frameIndex int) (debugger.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if frameIndex < 0 || frameIndex >= len(s.frames) {
		return debugger.Frame{}, fmt.Errorf("no stack frame at index %d", frameIndex)
	}
	s.selected = frameIndex
	return s.frames[frameIndex], nil
}

func (s *Session) SelectedFrame() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

func (s *Session) Evaluate(_ context.Context, expression string, frameIndex int) (debugger.Value, error) {
	if s.EvaluateFunc != nil {
		return s.EvaluateFunc(expression, frameIndex)
	}
	return debugger.Value{Result: expression, Type: "string"}, nil
}

// RunSession is an in-memory run session.
type RunSession struct {
	mu         sync.Mutex
	id         string
	name       string
	config     string
	pid        int
	terminated bool
}

var _ debugger.RunSession = (*RunSession)(nil)

func (r *RunSession) ID() string            { return r.id }
func (r *RunSession) Name() string          { return r.name }
func (r *RunSession) Configuration() string { return r.config }

func (r *RunSession) ProcessID() (int, bool) {
	return r.pid, r.pid > 0
}

func (r *RunSession) Terminated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.terminated
}

func (r *RunSession) Terminate(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.terminated = true
	return nil
}
