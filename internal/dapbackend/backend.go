package dapbackend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/go-dap"

	"github.com/vajrock/debugger-mcp/internal/config"
	"github.com/vajrock/debugger-mcp/internal/debugger"
)

// cleanupTimeout bounds stopping a session the backend gave up on and
// retiring temporary breakpoints.
const cleanupTimeout = 5 * time.Second

// Backend owns the debug sessions, run sessions and breakpoints of one
// server. It implements every provider interface of package debugger
// except FileResolver.
type Backend struct {
	delve   config.Delve
	configs []config.RunConfiguration
	logger  *slog.Logger

	mu         sync.Mutex
	sessions   []*Session
	current    *Session
	runs       []*runSession
	currentRun *runSession
	nextID     int
	nextPort   int
	exec       *debugger.Executor

	bpMu        sync.Mutex
	breakpoints map[string][]*breakpoint // by file
	nextBP      int
}

var (
	_ debugger.SessionProvider       = (*Backend)(nil)
	_ debugger.RunProvider           = (*Backend)(nil)
	_ debugger.BreakpointManager     = (*Backend)(nil)
	_ debugger.ConfigurationProvider = (*Backend)(nil)
)

// New creates a backend from the delve section and run configurations.
func New(cfg *config.Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		delve:       cfg.Delve,
		configs:     slices.Clone(cfg.RunConfigurations),
		logger:      logger.With("component", "dap"),
		nextPort:    cfg.Delve.BasePort,
		breakpoints: make(map[string][]*breakpoint),
	}
}

// UseExecutor routes the breakpoint changes the backend makes on its own
// through e.
func (b *Backend) UseExecutor(e *debugger.Executor) {
	b.mu.Lock()
	b.exec = e
	b.mu.Unlock()
}

func (b *Backend) executor() *debugger.Executor {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exec
}

func (b *Backend) Configurations() []debugger.RunConfiguration {
	out := make([]debugger.RunConfiguration, 0, len(b.configs))
	for _, c := range b.configs {
		out = append(out, debugger.RunConfiguration{
			Name:     c.Name,
			Type:     "go " + c.Mode,
			Program:  c.Program,
			Args:     slices.Clone(c.Args),
			CanRun:   true,
			CanDebug: true,
		})
	}
	return out
}

func (b *Backend) configuration(name string) (config.RunConfiguration, error) {
	for _, c := range b.configs {
		if c.Name == name {
			return c, nil
		}
	}
	return config.RunConfiguration{}, fmt.Errorf("%w: %s", debugger.ErrConfigNotFound, name)
}

func (b *Backend) Sessions() []debugger.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]debugger.Session, len(b.sessions))
	for i, s := range b.sessions {
		out[i] = s
	}
	return out
}

func (b *Backend) Current() debugger.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return nil
	}
	return b.current
}

func (b *Backend) setCurrent(s *Session) {
	b.mu.Lock()
	b.current = s
	b.mu.Unlock()
}

// StartDebug launches dlv for the named configuration and returns once the
// program runs with every known breakpoint installed.
func (b *Backend) StartDebug(ctx context.Context, configuration string) (debugger.Session, error) {
	rc, err := b.configuration(configuration)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.nextID++
	id := "debug-" + strconv.Itoa(b.nextID)
	port := b.nextPort
	b.nextPort++
	b.mu.Unlock()

	addr := net.JoinHostPort(b.delve.Address, strconv.Itoa(port))
	proc, err := startAdapter(ctx, b.delve.Binary, addr)
	if err != nil {
		return nil, err
	}

	s := newSession(id, rc.Name, rc.Name, b.logger)
	s.proc = proc
	s.onStop = b.stopped
	client, err := Dial(ctx, addr, s.handleEvent, s.logger)
	if err != nil {
		b.abandon(s)
		return nil, err
	}
	s.client = client

	if err := b.launch(ctx, s, rc); err != nil {
		b.abandon(s)
		return nil, fmt.Errorf("launch %s: %w", rc.Name, err)
	}

	b.mu.Lock()
	b.sessions = append(b.sessions, s)
	b.current = s
	b.mu.Unlock()
	b.logger.Info("debug session started", "session", id, "configuration", rc.Name, "addr", addr)
	return s, nil
}

// abandon stops a session that failed to start.
func (b *Backend) abandon(s *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		b.logger.Debug("could not stop abandoned session", "session", s.id, "error", err)
	}
}

// launch runs the DAP startup sequence: initialize, launch, breakpoints,
// configurationDone.
func (b *Backend) launch(ctx context.Context, s *Session, rc config.RunConfiguration) error {
	_, err := s.client.Do(ctx, &dap.InitializeRequest{
		Request: newRequest("initialize"),
		Arguments: dap.InitializeRequestArguments{
			ClientID:             "debugger-mcp",
			ClientName:           "debugger-mcp",
			AdapterID:            "go",
			PathFormat:           "path",
			LinesStartAt1:        true,
			ColumnsStartAt1:      true,
			SupportsVariableType: true,
		},
	})
	if err != nil {
		return err
	}

	args, err := launchArguments(rc)
	if err != nil {
		return err
	}
	if _, err := s.client.Do(ctx, &dap.LaunchRequest{Request: newRequest("launch"), Arguments: args}); err != nil {
		return err
	}

	for _, file := range b.breakpointFiles() {
		if err := b.pushFile(ctx, s, file); err != nil {
			b.logger.Warn("could not install breakpoints", "session", s.id, "file", file, "error", err)
		}
	}

	_, err = s.client.Do(ctx, &dap.ConfigurationDoneRequest{Request: newRequest("configurationDone")})
	return err
}

func launchArguments(rc config.RunConfiguration) (json.RawMessage, error) {
	args := map[string]any{
		"request": "launch",
		"mode":    rc.Mode,
		"program": rc.Program,
	}
	if len(rc.Args) > 0 {
		args["args"] = rc.Args
	}
	if rc.Dir != "" {
		args["cwd"] = rc.Dir
	}
	if len(rc.Env) > 0 {
		env := make(map[string]string, len(rc.Env))
		for _, kv := range rc.Env {
			k, v, _ := strings.Cut(kv, "=")
			env[k] = v
		}
		args["env"] = env
	}
	return json.Marshal(args)
}

// stopped makes s current and retires temporary breakpoints it hit.
func (b *Backend) stopped(s *Session, hits []int) {
	b.setCurrent(s)
	if len(hits) == 0 {
		return
	}

	var retired []string
	b.bpMu.Lock()
	for _, bps := range b.breakpoints {
		for _, bp := range bps {
			if id, ok := bp.dapIDs[s.id]; ok && bp.Temporary && slices.Contains(hits, id) {
				retired = append(retired, bp.ID)
			}
		}
	}
	b.bpMu.Unlock()
	if len(retired) == 0 {
		return
	}

	remove := func(ctx context.Context) error {
		for _, id := range retired {
			if _, err := b.RemoveBreakpoint(ctx, id); err != nil {
				b.logger.Debug("could not remove temporary breakpoint", "id", id, "error", err)
			}
		}
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	var err error
	if e := b.executor(); e != nil {
		err = e.Invoke(ctx, remove)
	} else {
		err = remove(ctx)
	}
	if err != nil {
		b.logger.Warn("could not retire temporary breakpoints", "session", s.id, "error", err)
	}
}

func (b *Backend) liveSessions() []*Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*Session
	for _, s := range b.sessions {
		if s.State() != debugger.StateTerminated {
			out = append(out, s)
		}
	}
	return out
}

// Close stops every debug session and terminates every run session. The
// adapters of sessions that already finished are reaped as well.
func (b *Backend) Close(ctx context.Context) error {
	b.mu.Lock()
	sessions := slices.Clone(b.sessions)
	runs := slices.Clone(b.runs)
	b.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		var err error
		if s.State() == debugger.StateTerminated {
			err = s.release()
		} else {
			err = s.Stop(ctx)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", s.id, err))
		}
	}
	for _, r := range runs {
		if r.Terminated() {
			continue
		}
		if err := r.Terminate(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, fmt.Errorf("terminate %s: %w", r.id, err))
		}
	}
	return errors.Join(errs...)
}
