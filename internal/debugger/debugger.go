// Package debugger defines the narrow capability interfaces the tool layer
// consumes from a debugger implementation, and the policies that sit on top
// of them (session resolution and the single-threaded executor).
package debugger

import (
	"context"
	"errors"

	"github.com/vajrock/debugger-mcp/internal/collect"
)

var (
	ErrNoActiveSession    = errors.New("no active debug session")
	ErrSessionNotFound    = errors.New("session not found")
	ErrNoActiveRunSession = errors.New("no active run session")
	ErrRunSessionNotFound = errors.New("run session not found")
	ErrNotPaused          = errors.New("session is not paused")
	ErrFileNotFound       = errors.New("file not found")
	ErrBreakpointNotFound = errors.New("breakpoint not found")
	ErrConfigNotFound     = errors.New("run configuration not found")
)

// State is a debug session's execution state.
type State string

const (
	StateRunning    State = "running"
	StatePaused     State = "paused"
	StateTerminated State = "terminated"
)

// Frame is one stack frame as reported by the debugger.
type Frame struct {
	Index    int
	ID       int
	Function string
	File     string
	Line     int
	// Library is set for frames outside the user's code.
	Library      bool
	Presentation string
}

// Variable is one rendered variable.
type Variable struct {
	Name        string
	Value       string
	Type        string
	HasChildren bool
	Scope       string
}

// Value is the result of an expression evaluation.
type Value struct {
	Result      string
	Type        string
	HasChildren bool
}

// Location is where a paused session stopped.
type Location struct {
	ThreadID int
	Reason   string
	File     string
	Line     int
	Function string
}

// Session is one live debugger attachment.
type Session interface {
	ID() string
	Name() string
	State() State
	// Location describes where the session is suspended; ok is false while running.
	Location() (loc Location, ok bool)

	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	StepOver(ctx context.Context) error
	StepInto(ctx context.Context) error
	StepOut(ctx context.Context) error
	Stop(ctx context.Context) error

	// Frames pushes the suspended thread's stack frames into sink.
	Frames(ctx context.Context, sink collect.Sink[Frame])
	// Variables pushes the variables visible in frame frameIndex into sink.
	Variables(ctx context.Context, frameIndex int, sink collect.Sink[Variable])
	// SelectFrame makes frameIndex the default frame for later inspection.
	SelectFrame(ctx context.Context, frameIndex int) (Frame, error)
	SelectedFrame() int
	Evaluate(ctx context.Context, expression string, frameIndex int) (Value, error)
}

// SessionProvider enumerates debug sessions.
type SessionProvider interface {
	Sessions() []Session
	// Current is the most recently activated session, or nil.
	Current() Session
	// StartDebug launches the named run configuration under the debugger.
	StartDebug(ctx context.Context, configuration string) (Session, error)
}

// SuspendPolicy selects what a breakpoint hit suspends.
type SuspendPolicy string

const (
	SuspendAll    SuspendPolicy = "all"
	SuspendThread SuspendPolicy = "thread"
	SuspendNone   SuspendPolicy = "none"
)

// LineBreakpoint describes a breakpoint to create or update.
type LineBreakpoint struct {
	File          string
	Line          int
	Condition     string
	LogMessage    string
	SuspendPolicy SuspendPolicy
	Enabled       bool
	Temporary     bool
}

// Breakpoint is a breakpoint known to the manager.
type Breakpoint struct {
	ID string
	LineBreakpoint
	Verified bool
	Message  string
}

// BreakpointManager owns line breakpoints. SetLineBreakpoint is idempotent
// per (file, line): setting an existing location updates it in place.
type BreakpointManager interface {
	Breakpoints() []Breakpoint
	SetLineBreakpoint(ctx context.Context, bp LineBreakpoint) (Breakpoint, error)
	RemoveBreakpoint(ctx context.Context, id string) (Breakpoint, error)
}

// RunSession is a plain process launched from a run configuration.
type RunSession interface {
	ID() string
	Name() string
	Configuration() string
	ProcessID() (pid int, ok bool)
	Terminated() bool
	Terminate(ctx context.Context) error
}

// RunProvider enumerates run sessions.
type RunProvider interface {
	RunSessions() []RunSession
	CurrentRun() RunSession
	StartRun(ctx context.Context, configuration string) (RunSession, error)
}

// RunConfiguration is a named launch recipe.
type RunConfiguration struct {
	Name     string
	Type     string
	Program  string
	Args     []string
	CanRun   bool
	CanDebug bool
}

// ConfigurationProvider lists run configurations.
type ConfigurationProvider interface {
	Configurations() []RunConfiguration
}

// File is a resolved source file.
type File struct {
	Path  string
	Name  string
	Lines int
}

// FileResolver maps paths to debuggable files.
type FileResolver interface {
	Resolve(path string) (File, error)
	CanPutBreakpointAt(file File, line int) bool
}
