package logger

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/user/karaexport/pkg/ports"
)

func newTestConsole(level ports.LogLevel, opts ...Option) (*ConsoleLogger, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	opts = append([]Option{WithWriters(&out, &errOut)}, opts...)
	return NewConsole(level, opts...), &out, &errOut
}

func TestConsoleLevels(t *testing.T) {
	l, out, errOut := newTestConsole(ports.LevelInfo)

	l.Debug("hidden frame %d", 1)
	l.Info("wrote %d frames", 3)
	l.Warn("dropped %d frames", 2)
	l.Error("encoder exited with %d", 1)

	if strings.Contains(out.String(), "hidden") {
		t.Errorf("debug line printed at info level: %q", out.String())
	}
	if out.String() != "wrote 3 frames\n" {
		t.Errorf("stdout = %q", out.String())
	}
	if errOut.String() != "dropped 2 frames\nencoder exited with 1\n" {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestConsoleQuiet(t *testing.T) {
	l, out, errOut := newTestConsole(ports.LevelQuiet)
	l.Error("boom")
	if out.Len() != 0 || errOut.Len() != 0 {
		t.Errorf("quiet logger printed %q / %q", out.String(), errOut.String())
	}
}

func TestConsoleComponentNesting(t *testing.T) {
	l, out, _ := newTestConsole(ports.LevelDebug)

	l.WithComponent("export").WithComponent("ffmpeg").Debug("frame=%d", 10)
	l.WithComponent("capture").Info("ready")

	want := "[export/ffmpeg] frame=10\n[capture] ready\n"
	if out.String() != want {
		t.Errorf("got %q, want %q", out.String(), want)
	}
}

func TestConsoleColor(t *testing.T) {
	l, out, errOut := newTestConsole(ports.LevelDebug, WithColor(true))

	l.WithComponent("export").Debug("chunk")
	l.Warn("slow")

	if !strings.HasPrefix(out.String(), colorGray) || !strings.Contains(out.String(), colorCyan+"[export]") {
		t.Errorf("debug line not colored: %q", out.String())
	}
	if !strings.HasPrefix(errOut.String(), colorYellow) {
		t.Errorf("warn line not colored: %q", errOut.String())
	}
}

func TestConsoleElapsed(t *testing.T) {
	l, out, _ := newTestConsole(ports.LevelInfo, WithElapsed(time.Now().Add(-2500*time.Millisecond)))
	l.Info("done")
	if !strings.HasSuffix(out.String(), "s done\n") || !strings.Contains(out.String(), "2.") {
		t.Errorf("missing elapsed prefix: %q", out.String())
	}
}

func TestConsoleConcurrentLines(t *testing.T) {
	l, out, _ := newTestConsole(ports.LevelInfo)
	writer := l.WithComponent("writer")
	monitor := l.WithComponent("monitor")

	var wg sync.WaitGroup
	for _, log := range []ports.Logger{writer, monitor} {
		wg.Add(1)
		go func(log ports.Logger) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				log.Info("line %d", i)
			}
		}(log)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 200 {
		t.Fatalf("got %d lines, want 200", len(lines))
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "[writer] line ") && !strings.HasPrefix(line, "[monitor] line ") {
			t.Fatalf("interleaved line %q", line)
		}
	}
}

func TestNoopDiscards(t *testing.T) {
	var l ports.Logger = NewNoop()
	if l.WithComponent("x") != l {
		t.Error("noop WithComponent should return itself")
	}
	l.Error("ignored %d", 1)
}
