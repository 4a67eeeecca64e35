package ports

import (
	"context"
	"io"
)

// ProcessRunner launches external programs such as the ffmpeg encoder.
type ProcessRunner interface {
	// Start launches name with args, with stdin and stderr piped.
	// Stdout is discarded.
	Start(ctx context.Context, name string, args ...string) (Process, error)

	// Output runs name to completion and returns its combined stdout and stderr.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Process is a running child process.
type Process interface {
	// Pid returns the operating system process ID.
	Pid() int

	// Stdin is the write end of the child's standard input.
	Stdin() io.WriteCloser

	// Stderr is the read end of the child's standard error.
	Stderr() io.Reader

	// Wait blocks until the process exits. It must be called exactly once.
	// A non-zero exit is reported as an error implementing ExitCode() int.
	Wait() error

	// Terminate asks the process to exit gracefully.
	Terminate() error

	// Kill stops the process immediately.
	Kill() error
}
