package action

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// CommandRunner executes command bindings as external processes through
// the platform shell. The dispatcher runs it on its own goroutine so a
// slow command never stalls the tick loop.
type CommandRunner struct {
	// Timeout bounds each command's runtime.
	Timeout time.Duration
}

// NewCommandRunner returns a runner with a 5 second timeout.
func NewCommandRunner() *CommandRunner {
	return &CommandRunner{Timeout: 5 * time.Second}
}

// Run executes the command line and waits for it to finish or time out.
func (r *CommandRunner) Run(command string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.Timeout)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(ctx, "/bin/sh", "-c", command)
	}

	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("command %q: %w: %s", command, err, msg)
		}
		return fmt.Errorf("command %q: %w", command, err)
	}
	return nil
}
