//go:build unix

package execrunner

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/user/karaexport/pkg/adapters/logger"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestRunner_StartPipes(t *testing.T) {
	requireShell(t)
	r := New(logger.NewNoop())

	p, err := r.Start(context.Background(), "sh", "-c", "cat >&2")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if p.Pid() <= 0 {
		t.Errorf("Pid = %d", p.Pid())
	}

	if _, err := io.WriteString(p.Stdin(), "frame data\n"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	p.Stdin().Close()

	out, err := io.ReadAll(p.Stderr())
	if err != nil {
		t.Fatalf("read stderr failed: %v", err)
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if string(out) != "frame data\n" {
		t.Errorf("stderr = %q", out)
	}
}

func TestRunner_ExitCode(t *testing.T) {
	requireShell(t)
	r := New(logger.NewNoop())

	p, err := r.Start(context.Background(), "sh", "-c", "exit 3")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	p.Stdin().Close()
	io.Copy(io.Discard, p.Stderr())
	err = p.Wait()

	var coder interface{ ExitCode() int }
	if !errors.As(err, &coder) || coder.ExitCode() != 3 {
		t.Errorf("Wait error = %v, want exit code 3", err)
	}
	if ExitCode(err) != 3 {
		t.Errorf("ExitCode = %d, want 3", ExitCode(err))
	}
	if ExitCode(nil) != 0 {
		t.Error("ExitCode(nil) should be 0")
	}
}

func TestRunner_Terminate(t *testing.T) {
	requireShell(t)
	r := New(logger.NewNoop())

	p, err := r.Start(context.Background(), "sh", "-c", "sleep 30")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	go io.Copy(io.Discard, p.Stderr())

	if err := p.Terminate(); err != nil {
		t.Fatalf("Terminate failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- p.Wait() }()
	select {
	case err := <-done:
		if err == nil {
			t.Error("expected a signal exit error")
		}
	case <-time.After(5 * time.Second):
		p.Kill()
		t.Fatal("process did not exit after Terminate")
	}

	if err := p.Kill(); err != nil {
		t.Errorf("Kill after exit should be a no-op, got %v", err)
	}
}

func TestRunner_Output(t *testing.T) {
	requireShell(t)
	r := New(logger.NewNoop())

	out, err := r.Output(context.Background(), "sh", "-c", "echo out; echo err >&2")
	if err != nil {
		t.Fatalf("Output failed: %v", err)
	}
	if !strings.Contains(string(out), "out") || !strings.Contains(string(out), "err") {
		t.Errorf("output = %q", out)
	}
}

func TestRunner_StartMissingBinary(t *testing.T) {
	r := New(logger.NewNoop())
	if _, err := r.Start(context.Background(), "/nonexistent/ffmpeg"); err == nil {
		t.Error("expected error for missing binary")
	}
}

func TestRunner_StartCancelledContext(t *testing.T) {
	r := New(logger.NewNoop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Start(ctx, "sh"); err == nil {
		t.Error("expected error for cancelled context")
	}
}
