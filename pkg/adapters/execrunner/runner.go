// Package execrunner starts encoder processes with os/exec.
package execrunner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/user/karaexport/pkg/ports"
)

// Runner implements ports.ProcessRunner on the local operating system.
type Runner struct {
	logger ports.Logger
	env    []string
}

// New creates a runner. Extra environment variables are appended to the
// current process environment.
func New(logger ports.Logger, env ...string) *Runner {
	return &Runner{
		logger: logger.WithComponent("exec"),
		env:    env,
	}
}

// Start launches name with stdin and stderr piped and stdout discarded.
// The child runs in its own process group so that signals reach any helper
// processes it spawns. ctx only bounds the launch; cancellation of a running
// child goes through Terminate and Kill.
func (r *Runner) Start(ctx context.Context, name string, args ...string) (ports.Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(name, args...)
	cmd.Stdout = io.Discard
	setProcessGroup(cmd)
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}

	r.logger.Debug("Started %s (pid %d)", name, cmd.Process.Pid)
	return &process{cmd: cmd, stdin: stdin, stderr: stderr, logger: r.logger}, nil
}

// Output runs name to completion and returns its combined output.
func (r *Runner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}
	return cmd.CombinedOutput()
}

type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr io.Reader
	logger ports.Logger
}

func (p *process) Pid() int              { return p.cmd.Process.Pid }
func (p *process) Stdin() io.WriteCloser { return p.stdin }
func (p *process) Stderr() io.Reader     { return p.stderr }

// Wait blocks until the child exits. A non-zero exit is returned as
// *exec.ExitError, which carries ExitCode.
func (p *process) Wait() error {
	return p.cmd.Wait()
}

func (p *process) Terminate() error {
	p.logger.Debug("Sending SIGTERM to pid %d", p.Pid())
	return ignoreDone(terminate(p.cmd))
}

func (p *process) Kill() error {
	p.logger.Debug("Killing pid %d", p.Pid())
	return ignoreDone(kill(p.cmd))
}

// ignoreDone treats signalling an already finished process as success.
func ignoreDone(err error) error {
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// ExitCode extracts the exit status from a Wait error. It returns 0 for a
// nil error and -1 when the status is unknown.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
