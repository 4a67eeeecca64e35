// Package ports defines the interfaces the export pipeline consumes:
// logging, file system access, rendering, encoder processes and output
// verification.
package ports

import "strings"

// LogLevel orders log severities. A logger prints messages at or above its level.
type LogLevel int

const (
	// LevelDebug covers per-frame and per-process detail inside components.
	LevelDebug LogLevel = iota
	// LevelInfo covers export-level progress.
	LevelInfo
	// LevelWarn covers dropped frames and advisory validation results.
	LevelWarn
	// LevelError covers failures that end an export.
	LevelError
	// LevelQuiet prints nothing.
	LevelQuiet
)

var levelNames = [...]string{"debug", "info", "warn", "error", "quiet"}

func (l LogLevel) String() string {
	if l >= 0 && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLogLevel reads a level name case-insensitively. "warning" is
// accepted for warn. Unknown names give LevelInfo.
func ParseLogLevel(s string) LogLevel {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		return LevelWarn
	}
	for i, name := range levelNames {
		if name == s {
			return LogLevel(i)
		}
	}
	return LevelInfo
}

// Logger is the logging port. msg is a translation key and a printf format;
// implementations translate it before formatting args.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// WithComponent returns a logger that tags its lines with component.
	WithComponent(component string) Logger
}
