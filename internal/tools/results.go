package tools

import (
	"github.com/vajrock/debugger-mcp/internal/debugger"
)

// Status values reported by state-changing tools.
const (
	statusStopped        = "stopped"
	statusAlreadyStopped = "already_stopped"
	statusSet            = "set"
	statusUpdated        = "updated"
	statusRemoved        = "removed"
	statusStarted        = "started"
	statusOK             = "ok"
)

type runConfigurationInfo struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Program  string   `json:"program,omitempty"`
	Args     []string `json:"args,omitempty"`
	CanRun   bool     `json:"can_run"`
	CanDebug bool     `json:"can_debug"`
}

type runConfigurationListResult struct {
	Configurations []runConfigurationInfo `json:"configurations"`
	TotalCount     int                    `json:"total_count"`
}

type runSessionInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Configuration string `json:"configuration,omitempty"`
	State         string `json:"state"`
	ProcessID     *int   `json:"process_id,omitempty"`
}

func newRunSessionInfo(r debugger.RunSession) runSessionInfo {
	info := runSessionInfo{
		ID:            r.ID(),
		Name:          r.Name(),
		Configuration: r.Configuration(),
		State:         string(debugger.StateRunning),
	}
	if r.Terminated() {
		info.State = string(debugger.StateTerminated)
	}
	if pid, ok := r.ProcessID(); ok {
		info.ProcessID = &pid
	}
	return info
}

type runSessionListResult struct {
	Sessions   []runSessionInfo `json:"sessions"`
	TotalCount int              `json:"total_count"`
}

type startResult struct {
	SessionID     string `json:"session_id"`
	Name          string `json:"name"`
	Configuration string `json:"configuration"`
	Mode          string `json:"mode"`
	State         string `json:"state"`
	ProcessID     *int   `json:"process_id,omitempty"`
}

type stopResult struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

type debugSessionInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	State     string `json:"state"`
	IsCurrent bool   `json:"is_current"`
}

type debugSessionListResult struct {
	Sessions         []debugSessionInfo `json:"sessions"`
	TotalCount       int                `json:"total_count"`
	CurrentSessionID string             `json:"current_session_id,omitempty"`
}

type locationInfo struct {
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Function string `json:"function,omitempty"`
	ThreadID int    `json:"thread_id"`
	Reason   string `json:"reason,omitempty"`
}

type sessionStatusResult struct {
	SessionID     string        `json:"session_id"`
	Name          string        `json:"name"`
	State         string        `json:"state"`
	IsPaused      bool          `json:"is_paused"`
	Location      *locationInfo `json:"location,omitempty"`
	SelectedFrame int           `json:"selected_frame"`
}

type breakpointInfo struct {
	ID            string `json:"id"`
	File          string `json:"file"`
	Line          int    `json:"line"`
	Condition     string `json:"condition,omitempty"`
	LogMessage    string `json:"log_message,omitempty"`
	SuspendPolicy string `json:"suspend_policy"`
	Enabled       bool   `json:"enabled"`
	Temporary     bool   `json:"temporary"`
	Verified      bool   `json:"verified"`
	Message       string `json:"message,omitempty"`
}

func newBreakpointInfo(bp debugger.Breakpoint) breakpointInfo {
	return breakpointInfo{
		ID:            bp.ID,
		File:          bp.File,
		Line:          bp.Line,
		Condition:     bp.Condition,
		LogMessage:    bp.LogMessage,
		SuspendPolicy: string(bp.SuspendPolicy),
		Enabled:       bp.Enabled,
		Temporary:     bp.Temporary,
		Verified:      bp.Verified,
		Message:       bp.Message,
	}
}

type breakpointListResult struct {
	Breakpoints []breakpointInfo `json:"breakpoints"`
	TotalCount  int              `json:"total_count"`
}

type setBreakpointResult struct {
	BreakpointID string `json:"breakpoint_id"`
	Status       string `json:"status"`
	File         string `json:"file"`
	Line         int    `json:"line"`
	Verified     bool   `json:"verified"`
	Message      string `json:"message,omitempty"`
}

type removeBreakpointResult struct {
	BreakpointID string `json:"breakpoint_id"`
	Status       string `json:"status"`
	File         string `json:"file"`
	Line         int    `json:"line"`
}

type executionResult struct {
	SessionID string `json:"session_id"`
	Action    string `json:"action"`
	Status    string `json:"status"`
	NewState  string `json:"new_state"`
	Message   string `json:"message"`
}

type stackFrameInfo struct {
	Index        int    `json:"index"`
	File         string `json:"file,omitempty"`
	Line         int    `json:"line,omitempty"`
	Function     string `json:"function"`
	IsCurrent    bool   `json:"is_current"`
	IsLibrary    bool   `json:"is_library"`
	Presentation string `json:"presentation,omitempty"`
}

func newStackFrameInfo(f debugger.Frame, selected int) stackFrameInfo {
	p := f.Presentation
	if r := []rune(p); len(r) > presentationLimit {
		p = string(r[:presentationLimit])
	}
	return stackFrameInfo{
		Index:        f.Index,
		File:         f.File,
		Line:         f.Line,
		Function:     f.Function,
		IsCurrent:    f.Index == selected,
		IsLibrary:    f.Library,
		Presentation: p,
	}
}

type stackTraceResult struct {
	SessionID   string           `json:"session_id"`
	ThreadID    int              `json:"thread_id,omitempty"`
	Frames      []stackFrameInfo `json:"frames"`
	TotalFrames int              `json:"total_frames"`
	Partial     bool             `json:"partial,omitempty"`
	Outcome     string           `json:"outcome,omitempty"`
	Error       string           `json:"error,omitempty"`
}

type selectFrameResult struct {
	SessionID string         `json:"session_id"`
	Frame     stackFrameInfo `json:"frame"`
	Message   string         `json:"message"`
}

type variableInfo struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Type        string `json:"type,omitempty"`
	HasChildren bool   `json:"has_children"`
	Scope       string `json:"scope,omitempty"`
}

type variablesResult struct {
	SessionID  string         `json:"session_id"`
	FrameIndex int            `json:"frame_index"`
	Variables  []variableInfo `json:"variables"`
	Partial    bool           `json:"partial,omitempty"`
	Outcome    string         `json:"outcome,omitempty"`
	Error      string         `json:"error,omitempty"`
}

type evaluateResult struct {
	SessionID   string `json:"session_id"`
	Expression  string `json:"expression"`
	Result      string `json:"result"`
	Type        string `json:"type,omitempty"`
	HasChildren bool   `json:"has_children"`
}
