// Package logger implements ports.Logger for the command line.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/mattn/go-isatty"
	"github.com/user/karaexport/pkg/ports"
)

const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
)

// Option configures a ConsoleLogger.
type Option func(*ConsoleLogger)

// WithWriters sends debug and info lines to out and warnings and errors to
// errOut. Color is re-detected from out.
func WithWriters(out, errOut io.Writer) Option {
	return func(l *ConsoleLogger) {
		l.out = &lockedWriters{out: out, errOut: errOut}
		l.color = isTerminal(out)
	}
}

// WithColor forces color on or off.
func WithColor(on bool) Option {
	return func(l *ConsoleLogger) { l.color = on }
}

// WithElapsed prefixes every line with the seconds since start.
func WithElapsed(start time.Time) Option {
	return func(l *ConsoleLogger) { l.start = start }
}

// lockedWriters is shared by a logger and all of its component loggers so
// lines from the writer and monitor goroutines never interleave.
type lockedWriters struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
}

func (w *lockedWriters) println(toErr bool, line string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if toErr {
		fmt.Fprintln(w.errOut, line)
		return
	}
	fmt.Fprintln(w.out, line)
}

// ConsoleLogger writes translated messages to stdout and stderr.
type ConsoleLogger struct {
	level     ports.LogLevel
	component string
	color     bool
	start     time.Time
	out       *lockedWriters
}

// NewConsole creates a console logger. Color is enabled when stdout is a
// terminal.
func NewConsole(level ports.LogLevel, opts ...Option) *ConsoleLogger {
	l := &ConsoleLogger{
		level: level,
		color: isTerminal(os.Stdout),
		out:   &lockedWriters{out: os.Stdout, errOut: os.Stderr},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (l *ConsoleLogger) Debug(msg string, args ...interface{}) {
	l.log(ports.LevelDebug, msg, args...)
}

func (l *ConsoleLogger) Info(msg string, args ...interface{}) {
	l.log(ports.LevelInfo, msg, args...)
}

func (l *ConsoleLogger) Warn(msg string, args ...interface{}) {
	l.log(ports.LevelWarn, msg, args...)
}

func (l *ConsoleLogger) Error(msg string, args ...interface{}) {
	l.log(ports.LevelError, msg, args...)
}

// WithComponent returns a logger tagged with component. Tags nest, so the
// encoder relay under the export logger prints as [export/ffmpeg].
func (l *ConsoleLogger) WithComponent(component string) ports.Logger {
	child := *l
	if l.component != "" {
		child.component = l.component + "/" + component
	} else {
		child.component = component
	}
	return &child
}

func (l *ConsoleLogger) log(level ports.LogLevel, msg string, args ...interface{}) {
	if level < l.level {
		return
	}

	line := l10n.F(msg, args...)
	if l.component != "" {
		tag := "[" + l.component + "]"
		if l.color {
			tag = colorCyan + tag + colorReset
		}
		line = tag + " " + line
	}
	if !l.start.IsZero() {
		line = fmt.Sprintf("%7.1fs %s", time.Since(l.start).Seconds(), line)
	}

	if l.color {
		switch level {
		case ports.LevelDebug:
			line = colorGray + line + colorReset
		case ports.LevelWarn:
			line = colorYellow + line + colorReset
		case ports.LevelError:
			line = colorRed + line + colorReset
		}
	}

	l.out.println(level >= ports.LevelWarn, line)
}

var _ ports.Logger = (*ConsoleLogger)(nil)
