package agent

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// Terminate kills a running invocation identified by either a tmux session
// name or a bare pid (PlanState.HasSubprocess's exclusive handle), used by
// the operator-invoked "stop" flow (spec.md §4.8).
func Terminate(ctx context.Context, tmuxSession string, pid int) error {
	if tmuxSession != "" {
		cmd := exec.CommandContext(ctx, "tmux", "kill-session", "-t", tmuxSession)
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("agent: cannot kill tmux session %s: %w", tmuxSession, err)
		}
		return nil
	}
	if pid > 0 {
		proc, err := os.FindProcess(pid)
		if err != nil {
			return fmt.Errorf("agent: cannot find process %d: %w", pid, err)
		}
		if err := proc.Signal(syscall.SIGTERM); err != nil && err != syscall.ESRCH {
			return fmt.Errorf("agent: cannot signal process %d: %w", pid, err)
		}
	}
	return nil
}
