package tools_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vajrock/debugger-mcp/internal/collect"
	"github.com/vajrock/debugger-mcp/internal/debugger"
	"github.com/vajrock/debugger-mcp/internal/debugger/debuggertest"
	"github.com/vajrock/debugger-mcp/internal/protocol"
	"github.com/vajrock/debugger-mcp/internal/tools"
)

// testSetup holds a registry wired to an in-memory debugger.
type testSetup struct {
	dbg      *debuggertest.Debugger
	registry *tools.Registry
	ctx      context.Context
}

func setupTools(t *testing.T) *testSetup {
	t.Helper()

	dbg := debuggertest.New()
	exec := debugger.NewExecutor()
	t.Cleanup(exec.Close)

	reg := tools.NewRegistry()
	reg.RegisterBuiltins(&tools.Deps{
		Sessions:    dbg,
		Runs:        dbg,
		Configs:     dbg,
		Breakpoints: dbg,
		Files:       dbg,
		Executor:    exec,
		Timeouts: tools.Timeouts{
			Frames:    500 * time.Millisecond,
			Variables: 500 * time.Millisecond,
			Evaluate:  time.Second,
			Executor:  time.Second,
		},
	})
	return &testSetup{dbg: dbg, registry: reg, ctx: context.Background()}
}

// call invokes the named tool and fails the test if it does not exist.
func (ts *testSetup) call(t *testing.T, name string, args map[string]any) protocol.CallToolResult {
	t.Helper()
	tool, ok := ts.registry.Get(name)
	if !ok {
		t.Fatalf("tool %s not registered", name)
	}
	return tool.Invoke(ts.ctx, args)
}

// callOK invokes a tool, requires success and decodes its JSON payload into out.
func (ts *testSetup) callOK(t *testing.T, name string, args map[string]any, out any) {
	t.Helper()
	res := ts.call(t, name, args)
	if res.IsError {
		t.Fatalf("%s failed: %s", name, res.Text())
	}
	if out == nil {
		return
	}
	if err := json.Unmarshal([]byte(res.Text()), out); err != nil {
		t.Fatalf("decode %s result: %v\n%s", name, err, res.Text())
	}
}

func expectError(t *testing.T, res protocol.CallToolResult, contains string) {
	t.Helper()
	if !res.IsError {
		t.Fatalf("expected error result, got %s", res.Text())
	}
	if !strings.Contains(res.Text(), contains) {
		t.Fatalf("expected error containing %q, got %q", contains, res.Text())
	}
}

func TestBuiltinsRegistered(t *testing.T) {
	ts := setupTools(t)

	want := []string{
		"list_run_configurations", "run_configuration", "list_run_sessions", "stop_run_session",
		"list_debug_sessions", "start_debug_session", "stop_debug_session", "get_debug_session_status",
		"list_breakpoints", "set_breakpoint", "remove_breakpoint",
		"resume", "pause", "step_over", "step_into", "step_out",
		"get_stack_trace", "select_stack_frame", "get_variables", "evaluate",
	}
	if got := ts.registry.Count(); got != len(want) {
		t.Fatalf("expected %d tools, got %d", len(want), got)
	}
	defs := ts.registry.Definitions()
	for i, name := range want {
		if defs[i].Name != name {
			t.Fatalf("tool %d: expected %s, got %s", i, name, defs[i].Name)
		}
		if defs[i].InputSchema == nil || defs[i].InputSchema.Type != "object" {
			t.Fatalf("tool %s: expected object input schema", name)
		}
	}
}

func TestRequiredArgumentsCheckedFirst(t *testing.T) {
	tests := []struct {
		tool string
		args map[string]any
		want string
	}{
		{"set_breakpoint", map[string]any{"line": float64(3)}, "Missing required parameter: file_path"},
		{"set_breakpoint", map[string]any{"file_path": "main.go"}, "Missing required parameter: line"},
		{"set_breakpoint", map[string]any{"file_path": "main.go", "line": "x"}, "must be an integer"},
		{"remove_breakpoint", nil, "Missing required parameter: breakpoint_id"},
		{"run_configuration", nil, "Missing required parameter: name"},
		{"start_debug_session", map[string]any{"configuration_name": "  "}, "Missing required parameter: configuration_name"},
		{"evaluate", map[string]any{"frame_index": float64(0)}, "Missing required parameter: expression"},
		{"select_stack_frame", nil, "Missing required parameter: frame_index"},
		{"get_stack_trace", map[string]any{"max_frames": float64(0)}, "max_frames must be between 1 and 200"},
		{"get_stack_trace", map[string]any{"max_frames": float64(201)}, "max_frames must be between 1 and 200"},
		{"get_variables", map[string]any{"frame_index": float64(-1)}, "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.tool+"/"+tt.want, func(t *testing.T) {
			ts := setupTools(t)
			ts.dbg.AddSession("s1", debugger.StatePaused)
			before := ts.dbg.Calls()

			expectError(t, ts.call(t, tt.tool, tt.args), tt.want)

			if after := ts.dbg.Calls(); after != before {
				t.Fatalf("expected no collaborator calls, got %d", after-before)
			}
		})
	}
}

func TestSetBreakpoint(t *testing.T) {
	ts := setupTools(t)
	ts.dbg.AddFile("/src/main.go", 20, 4)

	var first struct {
		BreakpointID string `json:"breakpoint_id"`
		Status       string `json:"status"`
		Line         int    `json:"line"`
	}
	ts.callOK(t, "set_breakpoint", map[string]any{"file_path": "/src/main.go", "line": float64(10)}, &first)
	if first.Status != "set" || first.Line != 10 {
		t.Fatalf("unexpected result: %+v", first)
	}

	// Same location again updates in place.
	var second struct {
		BreakpointID string `json:"breakpoint_id"`
		Status       string `json:"status"`
	}
	ts.callOK(t, "set_breakpoint", map[string]any{
		"file_path": "/src/main.go", "line": float64(10), "condition": "i > 3",
	}, &second)
	if second.BreakpointID != first.BreakpointID || second.Status != "updated" {
		t.Fatalf("expected update of %s, got %+v", first.BreakpointID, second)
	}

	bps := ts.dbg.Breakpoints()
	if len(bps) != 1 || bps[0].Condition != "i > 3" || bps[0].SuspendPolicy != debugger.SuspendAll || !bps[0].Enabled {
		t.Fatalf("unexpected breakpoints: %+v", bps)
	}

	t.Run("line zero is rejected by the tool", func(t *testing.T) {
		expectError(t, ts.call(t, "set_breakpoint", map[string]any{"file_path": "/src/main.go", "line": float64(0)}),
			"Cannot set breakpoint at /src/main.go:0")
	})
	t.Run("invalid line", func(t *testing.T) {
		expectError(t, ts.call(t, "set_breakpoint", map[string]any{"file_path": "/src/main.go", "line": float64(4)}),
			"not a valid breakpoint location")
	})
	t.Run("unknown file", func(t *testing.T) {
		expectError(t, ts.call(t, "set_breakpoint", map[string]any{"file_path": "/src/other.go", "line": float64(1)}),
			"File not found: /src/other.go")
	})
	t.Run("bad suspend policy", func(t *testing.T) {
		expectError(t, ts.call(t, "set_breakpoint", map[string]any{
			"file_path": "/src/main.go", "line": float64(2), "suspend_policy": "some",
		}), "Invalid suspend_policy")
	})
}

func TestListAndRemoveBreakpoints(t *testing.T) {
	ts := setupTools(t)
	ts.dbg.AddFile("/src/a.go", 10)
	ts.dbg.AddFile("/src/b.go", 10)
	ts.callOK(t, "set_breakpoint", map[string]any{"file_path": "/src/a.go", "line": float64(1)}, nil)
	ts.callOK(t, "set_breakpoint", map[string]any{"file_path": "/src/b.go", "line": float64(2), "temporary": true}, nil)

	var list struct {
		Breakpoints []struct {
			ID        string `json:"id"`
			File      string `json:"file"`
			Temporary bool   `json:"temporary"`
		} `json:"breakpoints"`
		TotalCount int `json:"total_count"`
	}
	ts.callOK(t, "list_breakpoints", map[string]any{"file_path": "/src/b.go"}, &list)
	if list.TotalCount != 1 || list.Breakpoints[0].File != "/src/b.go" || !list.Breakpoints[0].Temporary {
		t.Fatalf("unexpected filtered list: %+v", list)
	}

	ts.callOK(t, "remove_breakpoint", map[string]any{"breakpoint_id": list.Breakpoints[0].ID}, nil)
	ts.callOK(t, "list_breakpoints", nil, &list)
	if list.TotalCount != 1 || list.Breakpoints[0].File != "/src/a.go" {
		t.Fatalf("unexpected list after remove: %+v", list)
	}

	expectError(t, ts.call(t, "remove_breakpoint", map[string]any{"breakpoint_id": "99"}), "Failed to remove breakpoint")
}

func TestExecutionControl(t *testing.T) {
	ts := setupTools(t)
	s := ts.dbg.AddSession("s1", debugger.StatePaused)

	for _, step := range []string{"step_over", "step_into", "step_out", "resume"} {
		ts.callOK(t, step, nil, nil)
	}
	if s.State() != debugger.StateRunning {
		t.Fatalf("expected running after resume, got %s", s.State())
	}

	expectError(t, ts.call(t, "step_over", nil), "Session must be paused to step over")

	var res struct {
		Action   string `json:"action"`
		NewState string `json:"new_state"`
	}
	ts.callOK(t, "pause", nil, &res)
	if res.Action != "pause" || res.NewState != "paused" {
		t.Fatalf("unexpected pause result: %+v", res)
	}
	expectError(t, ts.call(t, "pause", nil), "Session is already paused")

	got := s.Actions()
	want := []string{"step_over", "step_into", "step_out", "resume", "pause"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("expected actions %v, got %v", want, got)
	}
}

func TestSessionResolutionErrors(t *testing.T) {
	ts := setupTools(t)
	expectError(t, ts.call(t, "resume", nil), "No active debug session")

	ts.dbg.AddSession("s1", debugger.StatePaused)
	expectError(t, ts.call(t, "resume", map[string]any{"session_id": "nope"}), "Session not found: nope")
}

func TestStopDebugSession(t *testing.T) {
	ts := setupTools(t)
	ts.dbg.AddSession("s1", debugger.StateRunning)

	var res struct {
		Status string `json:"status"`
	}
	ts.callOK(t, "stop_debug_session", map[string]any{"session_id": "s1"}, &res)
	if res.Status != "stopped" {
		t.Fatalf("expected stopped, got %q", res.Status)
	}
	ts.callOK(t, "stop_debug_session", map[string]any{"session_id": "s1"}, &res)
	if res.Status != "already_stopped" {
		t.Fatalf("expected already_stopped, got %q", res.Status)
	}
}

func TestDebugSessionListAndStatus(t *testing.T) {
	ts := setupTools(t)
	ts.dbg.AddSession("s1", debugger.StateRunning)
	s2 := ts.dbg.AddSession("s2", debugger.StatePaused)

	var list struct {
		Sessions []struct {
			ID        string `json:"id"`
			IsCurrent bool   `json:"is_current"`
		} `json:"sessions"`
		CurrentSessionID string `json:"current_session_id"`
	}
	ts.callOK(t, "list_debug_sessions", nil, &list)
	if len(list.Sessions) != 2 || list.CurrentSessionID != "s2" || !list.Sessions[1].IsCurrent || list.Sessions[0].IsCurrent {
		t.Fatalf("unexpected list: %+v", list)
	}

	var status struct {
		SessionID string `json:"session_id"`
		IsPaused  bool   `json:"is_paused"`
		Location  *struct {
			ThreadID int    `json:"thread_id"`
			Reason   string `json:"reason"`
		} `json:"location"`
	}
	ts.callOK(t, "get_debug_session_status", nil, &status)
	if status.SessionID != s2.ID() || !status.IsPaused || status.Location == nil || status.Location.ThreadID != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestRunConfigurations(t *testing.T) {
	ts := setupTools(t)
	ts.dbg.AddConfiguration(debugger.RunConfiguration{Name: "app", Type: "go", Program: "./cmd/app", CanRun: true, CanDebug: true})

	var configs struct {
		Configurations []struct {
			Name     string `json:"name"`
			CanDebug bool   `json:"can_debug"`
		} `json:"configurations"`
		TotalCount int `json:"total_count"`
	}
	ts.callOK(t, "list_run_configurations", nil, &configs)
	if configs.TotalCount != 1 || configs.Configurations[0].Name != "app" || !configs.Configurations[0].CanDebug {
		t.Fatalf("unexpected configurations: %+v", configs)
	}

	var started struct {
		SessionID string `json:"session_id"`
		Mode      string `json:"mode"`
		ProcessID *int   `json:"process_id"`
	}
	ts.callOK(t, "run_configuration", map[string]any{"name": "app"}, &started)
	if started.Mode != "run" || started.ProcessID == nil {
		t.Fatalf("unexpected run result: %+v", started)
	}

	ts.callOK(t, "run_configuration", map[string]any{"name": "app", "mode": "debug"}, &started)
	if started.Mode != "debug" || started.SessionID != "debug-app" {
		t.Fatalf("unexpected debug result: %+v", started)
	}

	expectError(t, ts.call(t, "run_configuration", map[string]any{"name": "app", "mode": "profile"}), "Invalid mode")
	expectError(t, ts.call(t, "start_debug_session", map[string]any{"configuration_name": "missing"}),
		"Failed to start debug session: run configuration not found: missing")
}

func TestRunSessions(t *testing.T) {
	ts := setupTools(t)
	ts.dbg.AddRunSession("r1", 4242)
	ts.dbg.AddRunSession("r2", 0)

	var list struct {
		Sessions []struct {
			ID        string `json:"id"`
			ProcessID *int   `json:"process_id"`
		} `json:"sessions"`
	}
	ts.callOK(t, "list_run_sessions", nil, &list)
	if len(list.Sessions) != 2 || list.Sessions[0].ProcessID == nil || *list.Sessions[0].ProcessID != 4242 || list.Sessions[1].ProcessID != nil {
		t.Fatalf("unexpected run sessions: %+v", list)
	}

	var res struct {
		SessionID string `json:"session_id"`
		Status    string `json:"status"`
	}
	ts.callOK(t, "stop_run_session", map[string]any{"session_id": "4242"}, &res)
	if res.SessionID != "r1" || res.Status != "stopped" {
		t.Fatalf("unexpected stop result: %+v", res)
	}
	ts.callOK(t, "stop_run_session", map[string]any{"session_id": "r1"}, &res)
	if res.Status != "already_stopped" {
		t.Fatalf("expected already_stopped, got %q", res.Status)
	}
	expectError(t, ts.call(t, "stop_run_session", map[string]any{"session_id": "r9"}), "Run session not found: r9")
}

func frames(n int) []debugger.Frame {
	out := make([]debugger.Frame, n)
	for i := range out {
		out[i] = debugger.Frame{Index: i, Function: fmt.Sprintf("main.f%d", i), File: "/src/main.go", Line: i + 1}
	}
	return out
}

type stackTrace struct {
	Frames []struct {
		Index        int    `json:"index"`
		IsCurrent    bool   `json:"is_current"`
		IsLibrary    bool   `json:"is_library"`
		Presentation string `json:"presentation"`
	} `json:"frames"`
	TotalFrames int    `json:"total_frames"`
	Partial     bool   `json:"partial"`
	Outcome     string `json:"outcome"`
}

func TestGetStackTrace(t *testing.T) {
	ts := setupTools(t)
	s := ts.dbg.AddSession("s1", debugger.StatePaused)
	fs := frames(60)
	fs[1].Library = true
	fs[2].Presentation = strings.Repeat("x", 400)
	s.SetFrames(fs...)

	var st stackTrace
	ts.callOK(t, "get_stack_trace", nil, &st)
	if st.TotalFrames != 50 || st.Partial {
		t.Fatalf("expected 50 frames by default, got %d (partial=%v)", st.TotalFrames, st.Partial)
	}
	if !st.Frames[0].IsCurrent || st.Frames[1].IsCurrent || !st.Frames[1].IsLibrary {
		t.Fatalf("unexpected frame flags: %+v", st.Frames[:2])
	}
	if got := len(st.Frames[2].Presentation); got != 150 {
		t.Fatalf("expected presentation truncated to 150, got %d", got)
	}

	ts.callOK(t, "get_stack_trace", map[string]any{"max_frames": float64(5)}, &st)
	if st.TotalFrames != 5 {
		t.Fatalf("expected 5 frames, got %d", st.TotalFrames)
	}

	s.SetState(debugger.StateRunning)
	expectError(t, ts.call(t, "get_stack_trace", nil), "Session must be paused")
}

func TestGetStackTraceTimeoutReturnsPartial(t *testing.T) {
	ts := setupTools(t)
	s := ts.dbg.AddSession("s1", debugger.StatePaused)
	s.FramesFunc = func(_ context.Context, sink collect.Sink[debugger.Frame]) {
		sink.AddBatch(frames(3), false)
		// The last batch never arrives.
	}

	var st stackTrace
	ts.callOK(t, "get_stack_trace", nil, &st)
	if st.TotalFrames != 3 || !st.Partial || st.Outcome != "timeout" {
		t.Fatalf("expected 3 partial frames after timeout, got %+v", st)
	}
}

func TestGetStackTraceProducerError(t *testing.T) {
	ts := setupTools(t)
	s := ts.dbg.AddSession("s1", debugger.StatePaused)
	s.FramesFunc = func(_ context.Context, sink collect.Sink[debugger.Frame]) {
		sink.Fail("thread is gone")
	}

	var st struct {
		stackTrace
		Error string `json:"error"`
	}
	ts.callOK(t, "get_stack_trace", nil, &st)
	if st.TotalFrames != 0 || !st.Partial || st.Outcome != "error" || st.Error != "thread is gone" {
		t.Fatalf("expected an empty degraded trace, got %+v", st)
	}
}

func TestGetVariablesProducerError(t *testing.T) {
	ts := setupTools(t)
	s := ts.dbg.AddSession("s1", debugger.StatePaused)
	s.VariablesFunc = func(_ context.Context, _ int, sink collect.Sink[debugger.Variable]) {
		sink.Fail("scope Locals: connection reset")
	}

	var vars struct {
		Variables []json.RawMessage `json:"variables"`
		Partial   bool              `json:"partial"`
		Outcome   string            `json:"outcome"`
		Error     string            `json:"error"`
	}
	ts.callOK(t, "get_variables", nil, &vars)
	if len(vars.Variables) != 0 || !vars.Partial || vars.Outcome != "error" || vars.Error != "scope Locals: connection reset" {
		t.Fatalf("expected empty degraded variables, got %+v", vars)
	}
}

func TestGetVariablesFrameOutOfRange(t *testing.T) {
	ts := setupTools(t)
	s := ts.dbg.AddSession("s1", debugger.StatePaused)
	s.SetFrames(frames(3)...)
	s.SetVariables(2, debugger.Variable{Name: "x", Value: "1"})

	expectError(t, ts.call(t, "get_variables", map[string]any{"frame_index": float64(3)}),
		"Frame index 3 is out of range (stack depth 3)")
	ts.callOK(t, "get_variables", map[string]any{"frame_index": float64(2)}, nil)
}

func TestSelectStackFrame(t *testing.T) {
	ts := setupTools(t)
	s := ts.dbg.AddSession("s1", debugger.StatePaused)
	s.SetFrames(frames(4)...)
	s.SetVariables(2, debugger.Variable{Name: "x", Value: "1", Type: "int", Scope: "Locals"})

	ts.callOK(t, "select_stack_frame", map[string]any{"frame_index": float64(2)}, nil)
	if s.SelectedFrame() != 2 {
		t.Fatalf("expected frame 2 selected, got %d", s.SelectedFrame())
	}

	var st stackTrace
	ts.callOK(t, "get_stack_trace", nil, &st)
	if !st.Frames[2].IsCurrent || st.Frames[0].IsCurrent {
		t.Fatalf("expected frame 2 current: %+v", st.Frames)
	}

	var vars struct {
		FrameIndex int `json:"frame_index"`
		Variables  []struct {
			Name  string `json:"name"`
			Scope string `json:"scope"`
		} `json:"variables"`
	}
	ts.callOK(t, "get_variables", nil, &vars)
	if vars.FrameIndex != 2 || len(vars.Variables) != 1 || vars.Variables[0].Name != "x" {
		t.Fatalf("expected variables of selected frame, got %+v", vars)
	}

	expectError(t, ts.call(t, "select_stack_frame", map[string]any{"frame_index": float64(9)}), "Failed to select stack frame")
}

func TestGetVariablesWithEnrichment(t *testing.T) {
	ts := setupTools(t)
	s := ts.dbg.AddSession("s1", debugger.StatePaused)
	s.VariablesFunc = func(_ context.Context, _ int, sink collect.Sink[debugger.Variable]) {
		sink.AddBatch([]debugger.Variable{{Name: "a", Value: "1"}}, false)
		sink.Expect(2, true)
		var wg sync.WaitGroup
		for _, name := range []string{"b", "c"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				sink.Deliver(debugger.Variable{Name: name, Value: "rendered", HasChildren: true})
			}()
		}
		wg.Wait()
	}

	var vars struct {
		Variables []struct {
			Name        string `json:"name"`
			HasChildren bool   `json:"has_children"`
		} `json:"variables"`
		Partial bool `json:"partial"`
	}
	ts.callOK(t, "get_variables", map[string]any{"frame_index": float64(0)}, &vars)
	if len(vars.Variables) != 3 || vars.Partial {
		t.Fatalf("expected 3 complete variables, got %+v", vars)
	}
}

func TestEvaluate(t *testing.T) {
	ts := setupTools(t)
	s := ts.dbg.AddSession("s1", debugger.StatePaused)
	s.EvaluateFunc = func(expression string, frameIndex int) (debugger.Value, error) {
		if expression == "boom" {
			return debugger.Value{}, fmt.Errorf("could not find symbol value for boom")
		}
		return debugger.Value{Result: fmt.Sprintf("%s@%d", expression, frameIndex), Type: "int"}, nil
	}

	var res struct {
		Result string `json:"result"`
		Type   string `json:"type"`
	}
	ts.callOK(t, "evaluate", map[string]any{"expression": "x + 1", "frame_index": float64(3)}, &res)
	if res.Result != "x + 1@3" || res.Type != "int" {
		t.Fatalf("unexpected evaluation: %+v", res)
	}
	expectError(t, ts.call(t, "evaluate", map[string]any{"expression": "boom"}),
		"Failed to evaluate expression: could not find symbol value for boom")
}

func TestToolPanicBecomesErrorResult(t *testing.T) {
	tool := tools.New("explode", "panics", nil, func(context.Context, tools.Arguments) protocol.CallToolResult {
		panic("kaboom")
	})
	res := tool.Invoke(context.Background(), nil)
	expectError(t, res, "kaboom")
}

func TestDefinitionsDeclareRequired(t *testing.T) {
	ts := setupTools(t)
	for _, def := range ts.registry.Definitions() {
		data, err := json.Marshal(def)
		if err != nil {
			t.Fatalf("marshal %s: %v", def.Name, err)
		}
		var decoded struct {
			InputSchema map[string]json.RawMessage `json:"inputSchema"`
		}
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal %s: %v", def.Name, err)
		}
		if _, ok := decoded.InputSchema["required"]; !ok {
			t.Errorf("%s: input schema has no required array: %s", def.Name, data)
		}
	}
}

func TestStartDebugDoesNotBlockOtherSessions(t *testing.T) {
	ts := setupTools(t)
	ts.dbg.AddConfiguration(debugger.RunConfiguration{Name: "slow", Type: "go", Program: "./cmd/slow", CanDebug: true})
	other := ts.dbg.AddSession("other", debugger.StatePaused)

	entered := make(chan struct{})
	release := make(chan struct{})
	ts.dbg.StartDebugFunc = func(context.Context) {
		close(entered)
		<-release
	}

	launched := make(chan protocol.CallToolResult, 1)
	go func() {
		launched <- ts.call(t, "start_debug_session", map[string]any{"configuration_name": "slow"})
	}()
	<-entered

	// The launch is still building; a step elsewhere must not queue behind it.
	res := ts.call(t, "step_over", map[string]any{"session_id": "other"})
	close(release)
	if res.IsError {
		t.Fatalf("step_over waited for the launch: %s", res.Text())
	}
	if got := other.Actions(); len(got) != 1 || got[0] != "step_over" {
		t.Fatalf("expected one step_over on other, got %v", got)
	}

	select {
	case res := <-launched:
		if res.IsError {
			t.Fatalf("start_debug_session failed: %s", res.Text())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("start_debug_session did not return")
	}
}
