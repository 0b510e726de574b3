package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces/gateways"
)

// CommandRunner executes external processes, elevating through sudo when asked
type CommandRunner struct {
	defaultTimeout time.Duration
	elevate        bool
	sudoPath       string
	logger         interfaces.Logger
}

// NewCommandRunner creates a command runner. Elevation is only applied when
// the current process is not already root.
func NewCommandRunner(logger interfaces.Logger) *CommandRunner {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &CommandRunner{
		defaultTimeout: 60 * time.Minute,
		elevate:        os.Geteuid() != 0,
		sudoPath:       "sudo",
		logger:         logger,
	}
}

// WithElevation overrides whether privileged commands are prefixed with sudo
func (r *CommandRunner) WithElevation(elevate bool) *CommandRunner {
	r.elevate = elevate
	return r
}

// Run executes a command to completion
func (r *CommandRunner) Run(ctx context.Context, c gateways.Command) *gateways.CommandResult {
	startTime := time.Now()
	result := &gateways.CommandResult{}

	// Interactive commands belong to the operator, no deadline
	execCtx := ctx
	timeout := c.Timeout
	if !c.Interactive {
		if timeout == 0 {
			timeout = r.defaultTimeout
		}
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	name, args := r.commandLine(c)

	//nolint:gosec // G204: command lines are built from fixed installer steps
	cmd := exec.CommandContext(execCtx, name, args...)

	if c.Dir != "" {
		cmd.Dir = c.Dir
	}

	if len(c.Env) > 0 {
		env := os.Environ()
		for key, value := range c.Env {
			env = append(env, fmt.Sprintf("%s=%s", key, value))
		}
		cmd.Env = env
	}

	var stdout, stderr bytes.Buffer
	if c.Interactive {
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	} else {
		cmd.Stdin = c.Stdin
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	r.logger.Debug("Executing command",
		interfaces.F("step", c.Description),
		interfaces.F("command", name+" "+strings.Join(args, " ")),
		interfaces.F("dir", c.Dir),
	)

	err := cmd.Run()
	result.Duration = time.Since(startTime)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		result.Error = err
		var exitErr *exec.ExitError
		//nolint:gocritic // ifElseChain: checking different error types, not suitable for switch
		if execCtx.Err() == context.DeadlineExceeded {
			result.Started = true
			result.Error = fmt.Errorf("command timeout after %v", timeout)
			result.ExitCode = -1
		} else if errors.As(err, &exitErr) {
			result.Started = true
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
		return result
	}

	result.Started = true
	result.Success = true
	result.ExitCode = 0
	return result
}

func (r *CommandRunner) commandLine(c gateways.Command) (string, []string) {
	if c.Privileged && r.elevate {
		return r.sudoPath, append([]string{c.Name}, c.Args...)
	}
	return c.Name, c.Args
}
