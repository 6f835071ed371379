package dapbackend

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// startAdapter runs `dlv dap --listen addr` and waits until it accepts
// connections.
func startAdapter(ctx context.Context, binary, addr string) (*exec.Cmd, error) {
	cmd := exec.Command(binary, "dap", "--listen", addr)
	cmd.Stderr = os.Stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", binary, err)
	}

	ready := make(chan error, 1)
	go func() {
		r := bufio.NewReader(stdout)
		for {
			s, err := r.ReadString('\n')
			if err != nil {
				ready <- fmt.Errorf("%s exited before listening: %w", binary, err)
				return
			}
			if strings.HasPrefix(s, "DAP server listening at") {
				ready <- nil
				break
			}
		}
		// Keep draining so the adapter never blocks on a full pipe.
		io.Copy(io.Discard, r)
	}()

	select {
	case err := <-ready:
		if err != nil {
			cmd.Process.Kill()
			cmd.Wait()
			return nil, err
		}
		return cmd, nil
	case <-ctx.Done():
		cmd.Process.Kill()
		cmd.Wait()
		return nil, ctx.Err()
	}
}
