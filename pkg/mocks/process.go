package mocks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/user/karaexport/pkg/ports"
)

// ExitError mimics *exec.ExitError for a simulated non-zero exit.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// ExitCode returns the simulated exit status.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// Call records a process invocation.
type Call struct {
	Name string
	Args []string
}

// ProcessRunner is a mock implementation of ports.ProcessRunner.
type ProcessRunner struct {
	mu sync.Mutex

	StartFunc  func(ctx context.Context, name string, args ...string) (ports.Process, error)
	OutputFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

	// Recorded calls for verification
	StartCalls  []Call
	OutputCalls []Call
}

func (m *ProcessRunner) Start(ctx context.Context, name string, args ...string) (ports.Process, error) {
	m.mu.Lock()
	m.StartCalls = append(m.StartCalls, Call{Name: name, Args: append([]string(nil), args...)})
	m.mu.Unlock()
	if m.StartFunc != nil {
		return m.StartFunc(ctx, name, args...)
	}
	return nil, errors.New("mocks: no process configured")
}

func (m *ProcessRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	m.OutputCalls = append(m.OutputCalls, Call{Name: name, Args: append([]string(nil), args...)})
	m.mu.Unlock()
	if m.OutputFunc != nil {
		return m.OutputFunc(ctx, name, args...)
	}
	return nil, errors.New("mocks: no output configured")
}

// StartCount returns the number of Start calls.
func (m *ProcessRunner) StartCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.StartCalls)
}

// Process is an in-memory child process backed by pipes.
// Use Serve to script its behavior.
type Process struct {
	stdinR  *io.PipeReader
	stdinW  *io.PipeWriter
	stderrR *io.PipeReader
	stderrW *io.PipeWriter

	exitOnce sync.Once
	exited   chan struct{}
	exitErr  error

	mu             sync.Mutex
	TerminateCalls int
	KillCalls      int

	// IgnoreTerminate makes Terminate a no-op so tests can exercise Kill.
	IgnoreTerminate bool
}

// NewProcess creates a process whose pipes are open and which has not exited.
func NewProcess() *Process {
	stdinR, stdinW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	return &Process{
		stdinR:  stdinR,
		stdinW:  stdinW,
		stderrR: stderrR,
		stderrW: stderrW,
		exited:  make(chan struct{}),
	}
}

// Serve runs fn on a goroutine with the child's view of stdin and stderr.
// When fn returns, the pipes are closed and the process exits with fn's code.
func (p *Process) Serve(fn func(stdin io.Reader, stderr io.Writer) int) {
	go func() {
		code := fn(p.stdinR, p.stderrW)
		p.exit(code)
	}()
}

// ConsumeAndExit drains stdin until it is closed, writes stderr lines, then
// exits with code. It returns a function reporting the bytes received.
func (p *Process) ConsumeAndExit(code int, stderrLines ...string) func() int64 {
	var mu sync.Mutex
	var received int64
	p.Serve(func(stdin io.Reader, stderr io.Writer) int {
		n, _ := io.Copy(io.Discard, stdin)
		mu.Lock()
		received = n
		mu.Unlock()
		for _, line := range stderrLines {
			fmt.Fprintln(stderr, line)
		}
		return code
	})
	return func() int64 {
		mu.Lock()
		defer mu.Unlock()
		return received
	}
}

// Hang drains stdin but keeps running after it is closed, like an encoder
// stuck finalizing. Only Terminate or Kill make it exit.
func (p *Process) Hang() {
	p.Serve(func(stdin io.Reader, stderr io.Writer) int {
		io.Copy(io.Discard, stdin)
		<-p.exited
		return 0
	})
}

func (p *Process) exit(code int) {
	p.exitOnce.Do(func() {
		p.stderrW.Close()
		p.stdinR.CloseWithError(io.ErrClosedPipe)
		if code != 0 {
			p.exitErr = &ExitError{Code: code}
		}
		close(p.exited)
	})
}

// Exited reports whether the process has exited.
func (p *Process) Exited() bool {
	select {
	case <-p.exited:
		return true
	default:
		return false
	}
}

func (p *Process) Pid() int { return 4242 }

func (p *Process) Stdin() io.WriteCloser { return p.stdinW }

func (p *Process) Stderr() io.Reader { return p.stderrR }

func (p *Process) Wait() error {
	<-p.exited
	return p.exitErr
}

func (p *Process) Terminate() error {
	p.mu.Lock()
	p.TerminateCalls++
	ignore := p.IgnoreTerminate
	p.mu.Unlock()
	if !ignore {
		p.exit(255)
	}
	return nil
}

func (p *Process) Kill() error {
	p.mu.Lock()
	p.KillCalls++
	p.mu.Unlock()
	p.exit(137)
	return nil
}

// Signals returns the number of Terminate and Kill calls.
func (p *Process) Signals() (terminate, kill int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.TerminateCalls, p.KillCalls
}

var (
	_ ports.ProcessRunner = (*ProcessRunner)(nil)
	_ ports.Process       = (*Process)(nil)
)
