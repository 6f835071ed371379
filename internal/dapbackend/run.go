package dapbackend

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/vajrock/debugger-mcp/internal/config"
	"github.com/vajrock/debugger-mcp/internal/debugger"
)

// terminateGrace is how long a run session gets to exit after SIGINT.
const terminateGrace = 3 * time.Second

// runSession is a run configuration started without the debugger.
type runSession struct {
	id     string
	name   string
	config string
	cmd    *exec.Cmd
	done   chan struct{}
	err    error
}

var _ debugger.RunSession = (*runSession)(nil)

func (r *runSession) ID() string            { return r.id }
func (r *runSession) Name() string          { return r.name }
func (r *runSession) Configuration() string { return r.config }

func (r *runSession) ProcessID() (int, bool) {
	if r.cmd.Process == nil {
		return 0, false
	}
	return r.cmd.Process.Pid, true
}

func (r *runSession) Terminated() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Terminate interrupts the process and kills it if it has not exited
// after a grace period or when ctx ends.
func (r *runSession) Terminate(ctx context.Context) error {
	if r.Terminated() {
		return nil
	}
	if err := r.cmd.Process.Signal(os.Interrupt); err != nil {
		return r.kill()
	}
	select {
	case <-r.done:
		return nil
	case <-time.After(terminateGrace):
	case <-ctx.Done():
	}
	return r.kill()
}

func (r *runSession) kill() error {
	if err := r.cmd.Process.Kill(); err != nil && r.Terminated() {
		return nil
	} else if err != nil {
		return err
	}
	<-r.done
	return nil
}

// runCommand builds the command that runs rc without the debugger.
func runCommand(rc config.RunConfiguration) *exec.Cmd {
	var cmd *exec.Cmd
	switch rc.Mode {
	case "exec":
		cmd = exec.Command(rc.Program, rc.Args...)
	case "test":
		cmd = exec.Command("go", append([]string{"test", rc.Program}, rc.Args...)...)
	default:
		cmd = exec.Command("go", append([]string{"run", rc.Program}, rc.Args...)...)
	}
	cmd.Dir = rc.Dir
	if len(rc.Env) > 0 {
		cmd.Env = append(os.Environ(), rc.Env...)
	}
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	return cmd
}

func (b *Backend) RunSessions() []debugger.RunSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]debugger.RunSession, len(b.runs))
	for i, r := range b.runs {
		out[i] = r
	}
	return out
}

func (b *Backend) CurrentRun() debugger.RunSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.currentRun == nil {
		return nil
	}
	return b.currentRun
}

func (b *Backend) StartRun(_ context.Context, configuration string) (debugger.RunSession, error) {
	rc, err := b.configuration(configuration)
	if err != nil {
		return nil, err
	}

	cmd := runCommand(rc)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", rc.Name, err)
	}

	b.mu.Lock()
	b.nextID++
	r := &runSession{
		id:     "run-" + strconv.Itoa(b.nextID),
		name:   rc.Name,
		config: rc.Name,
		cmd:    cmd,
		done:   make(chan struct{}),
	}
	b.runs = append(b.runs, r)
	b.currentRun = r
	b.mu.Unlock()

	go func() {
		r.err = cmd.Wait()
		close(r.done)
		b.logger.Info("run session exited", "session", r.id, "configuration", r.name, "error", r.err)
	}()
	b.logger.Info("run session started", "session", r.id, "configuration", rc.Name, "pid", cmd.Process.Pid)
	return r, nil
}
