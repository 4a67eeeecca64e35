package ffmpeg

import "strings"

// ParseLogLevel extracts the log level from an ffmpeg stderr line.
// Lines carrying a "[level] " prefix, optionally after a "[component @ 0x...] "
// prefix, keep their level. Other lines are classified by keywords.
// It returns the level and the message with the level tag stripped.
func ParseLogLevel(line string) (level, msg string) {
	if lvl, rest, ok := bracketLevel(line); ok {
		return lvl, rest
	}
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "error") || strings.Contains(lower, "failed") ||
		strings.Contains(lower, "invalid") || strings.Contains(lower, "unknown encoder"):
		return "error", line
	case strings.Contains(lower, "warning") || strings.Contains(lower, "deprecated"):
		return "warning", line
	default:
		return "info", line
	}
}

func bracketLevel(line string) (string, string, bool) {
	if len(line) < 3 || line[0] != '[' {
		return "", "", false
	}
	end := strings.Index(line, "] ")
	if end == -1 {
		return "", "", false
	}
	if bracket := line[1:end]; isLogLevel(bracket) {
		return bracket, line[end+2:], true
	}

	component := line[:end+2]
	rest := line[end+2:]
	if len(rest) > 2 && rest[0] == '[' {
		if next := strings.Index(rest, "] "); next != -1 && isLogLevel(rest[1:next]) {
			return rest[1:next], component + rest[next+2:], true
		}
	}
	return "", "", false
}

func isLogLevel(s string) bool {
	switch s {
	case "quiet", "panic", "fatal", "error", "warning", "info", "verbose", "debug", "trace":
		return true
	}
	return false
}
