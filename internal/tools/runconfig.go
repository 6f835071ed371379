package tools

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/vajrock/debugger-mcp/internal/debugger"
	"github.com/vajrock/debugger-mcp/internal/protocol"
)

const (
	modeRun   = "run"
	modeDebug = "debug"
)

func listRunConfigurations(d *Deps) Tool {
	return New("list_run_configurations",
		"Lists the run configurations that can be started with run_configuration or start_debug_session.",
		nil,
		func(context.Context, Arguments) protocol.CallToolResult {
			configs := d.Configs.Configurations()
			out := runConfigurationListResult{Configurations: make([]runConfigurationInfo, 0, len(configs))}
			for _, c := range configs {
				out.Configurations = append(out.Configurations, runConfigurationInfo{
					Name:     c.Name,
					Type:     c.Type,
					Program:  c.Program,
					Args:     c.Args,
					CanRun:   c.CanRun,
					CanDebug: c.CanDebug,
				})
			}
			out.TotalCount = len(out.Configurations)
			return protocol.JSONResult(out)
		})
}

func runConfiguration(d *Deps) Tool {
	schema := objectSchema(map[string]*jsonschema.Schema{
		argName: stringProp("Name of the run configuration."),
		argMode: enumProp("Start the program plainly (run) or under the debugger (debug). Default: run.", modeRun, modeDebug),
	}, argName)

	return New("run_configuration",
		"Starts a run configuration, either as a plain process or under the debugger.",
		schema,
		func(ctx context.Context, args Arguments) protocol.CallToolResult {
			name, err := args.RequireString(argName)
			if err != nil {
				return protocol.ErrorResult(err.Error())
			}
			mode, ok := args.String(argMode)
			if !ok {
				mode = modeRun
			}
			if mode != modeRun && mode != modeDebug {
				return protocol.Errorf("Invalid mode %q: must be run or debug", mode)
			}

			if mode == modeDebug {
				return startDebug(ctx, d, name)
			}

			// Launching is not thread-affine and can take long; it stays off the executor.
			launchCtx, cancel := d.launchContext(ctx)
			defer cancel()
			started, err := d.Runs.StartRun(launchCtx, name)
			if err != nil {
				return failed("run configuration", err)
			}
			info := newRunSessionInfo(started)
			return protocol.JSONResult(startResult{
				SessionID:     info.ID,
				Name:          info.Name,
				Configuration: name,
				Mode:          modeRun,
				State:         info.State,
				ProcessID:     info.ProcessID,
			})
		})
}

func startDebug(ctx context.Context, d *Deps, configuration string) protocol.CallToolResult {
	// Building and launching run off the executor so steps on other
	// sessions are not queued behind a compile.
	ctx, cancel := d.launchContext(ctx)
	defer cancel()
	started, err := d.Sessions.StartDebug(ctx, configuration)
	if err != nil {
		return failed("start debug session", err)
	}
	return protocol.JSONResult(startResult{
		SessionID:     started.ID(),
		Name:          started.Name(),
		Configuration: configuration,
		Mode:          modeDebug,
		State:         string(started.State()),
	})
}

func listRunSessions(d *Deps) Tool {
	return New("list_run_sessions",
		"Lists processes started with run_configuration in run mode.",
		nil,
		func(context.Context, Arguments) protocol.CallToolResult {
			sessions := d.Runs.RunSessions()
			out := runSessionListResult{Sessions: make([]runSessionInfo, 0, len(sessions))}
			for _, s := range sessions {
				out.Sessions = append(out.Sessions, newRunSessionInfo(s))
			}
			out.TotalCount = len(out.Sessions)
			return protocol.JSONResult(out)
		})
}

func stopRunSession(d *Deps) Tool {
	schema := objectSchema(map[string]*jsonschema.Schema{
		argSessionID: stringProp("Run session ID or process ID. Uses the current run session if omitted."),
	})

	return New("stop_run_session",
		"Terminates a process started with run_configuration.",
		schema,
		func(ctx context.Context, args Arguments) protocol.CallToolResult {
			id, _ := args.String(argSessionID)
			run, err := debugger.ResolveRunSession(d.Runs, id)
			if err != nil {
				return protocol.ErrorResult(capitalize(err.Error()))
			}
			if run.Terminated() {
				return protocol.JSONResult(stopResult{
					SessionID: run.ID(),
					Status:    statusAlreadyStopped,
					Message:   fmt.Sprintf("Run session %s has already terminated", run.Name()),
				})
			}
			if err := d.mutate(ctx, run.Terminate); err != nil {
				return failed("stop run session", err)
			}
			return protocol.JSONResult(stopResult{
				SessionID: run.ID(),
				Status:    statusStopped,
				Message:   fmt.Sprintf("Run session %s stopped", run.Name()),
			})
		})
}
