package ffmpeg

import (
	"fmt"
	"strings"
)

// Category groups encoder failures by what the user can do about them.
type Category string

const (
	CategoryMissingInput      Category = "missing_input"
	CategoryPermissionDenied  Category = "permission_denied"
	CategoryUnsupportedCodec  Category = "unsupported_codec"
	CategoryUnsupportedFormat Category = "unsupported_format"
	CategoryInvalidData       Category = "invalid_data"
	CategoryInvalidArgument   Category = "invalid_argument"
	CategoryDiskFull          Category = "disk_full"
	CategoryBrokenPipe        Category = "broken_pipe"
	CategoryNetwork           Category = "network"
	CategoryTerminated        Category = "terminated"
	CategoryConversion        Category = "conversion_failed"
	CategoryUnknown           Category = "unknown"
)

// EncoderError is a classified non-zero encoder exit.
type EncoderError struct {
	Category Category
	ExitCode int
	Message  string   // human readable
	Detail   string   // the stderr line that matched, or the last error line
	Stderr   []string // tail of the encoder's stderr
	hints    []string
}

func (e *EncoderError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("ffmpeg: %s (exit %d): %s", e.Message, e.ExitCode, e.Detail)
	}
	return fmt.Sprintf("ffmpeg: %s (exit %d)", e.Message, e.ExitCode)
}

// Suggestions returns at least one recovery hint.
func (e *EncoderError) Suggestions() []string {
	return e.hints
}

type failurePattern struct {
	needles  []string
	category Category
	message  string
}

// failurePatterns are checked in order; "Conversion failed!" is printed
// after most other failures so it comes last.
var failurePatterns = []failurePattern{
	{[]string{"no such file or directory"}, CategoryMissingInput, "input or output file not found"},
	{[]string{"permission denied"}, CategoryPermissionDenied, "permission denied"},
	{[]string{"no space left on device"}, CategoryDiskFull, "disk is full"},
	{[]string{"unknown encoder", "encoder not found"}, CategoryUnsupportedCodec, "encoder not available"},
	{[]string{"invalid data found"}, CategoryInvalidData, "invalid input data"},
	{[]string{"broken pipe"}, CategoryBrokenPipe, "pipe to the encoder was closed"},
	{[]string{"protocol not found", "server returned 404", "connection refused"}, CategoryNetwork, "network or protocol error"},
	{[]string{"immediate exit requested", "exiting normally, received signal"}, CategoryTerminated, "encoder was terminated"},
	{[]string{"invalid argument"}, CategoryInvalidArgument, "invalid encoder argument"},
	{[]string{"conversion failed"}, CategoryConversion, "conversion failed"},
}

var categoryHints = map[Category][]string{
	CategoryMissingInput:      {"Check that the audio file and output directory exist"},
	CategoryPermissionDenied:  {"Check write permissions for the output directory", "Choose a different output location"},
	CategoryUnsupportedCodec:  {"Install an ffmpeg build that includes the codec", "Choose a different video or audio codec"},
	CategoryUnsupportedFormat: {"Choose a different container format", "Check that the codec is compatible with the container"},
	CategoryInvalidData:       {"Check that the audio file is not corrupted", "Re-encode the audio file to a common format such as WAV"},
	CategoryInvalidArgument:   {"Review the export settings for unsupported values", "Reset the export settings to a preset"},
	CategoryDiskFull:          {"Free up disk space", "Choose an output location on a different drive", "Lower the bitrate or resolution"},
	CategoryBrokenPipe:        {"The encoder stopped reading frames; check the encoder log", "Retry the export"},
	CategoryNetwork:           {"Check the output path or URL", "Check network connectivity"},
	CategoryTerminated:        {"The export was interrupted; start it again"},
	CategoryConversion:        {"Check the encoder log for the first error", "Try a different codec or preset"},
	CategoryUnknown:           {"Check the encoder log for details", "Try a different codec or preset"},
}

// Hints returns the recovery suggestions for a category.
func Hints(c Category) []string {
	if h, ok := categoryHints[c]; ok {
		return append([]string(nil), h...)
	}
	return append([]string(nil), categoryHints[CategoryUnknown]...)
}

const stderrTail = 20

// Classify turns an exit code and the encoder's stderr into an EncoderError.
func Classify(exitCode int, stderr []string) *EncoderError {
	e := &EncoderError{ExitCode: exitCode, Stderr: tail(stderr, stderrTail)}

	for _, p := range failurePatterns {
		if line, ok := findLine(stderr, p.needles...); ok {
			e.Category, e.Message, e.Detail = p.category, p.message, line
			e.hints = Hints(p.category)
			return e
		}
	}

	lastErr, hasErr := lastErrorLine(stderr)
	lower := strings.ToLower(lastErr)
	switch {
	case hasErr && strings.Contains(lower, "codec"):
		e.Category, e.Message = CategoryUnsupportedCodec, "codec error"
	case hasErr && strings.Contains(lower, "format"):
		e.Category, e.Message = CategoryUnsupportedFormat, "format error"
	default:
		e.Category, e.Message = CategoryUnknown, fmt.Sprintf("encoder exited with code %d", exitCode)
	}
	e.Detail = lastErr
	e.hints = Hints(e.Category)
	return e
}

// findLine returns the first line containing any needle, case-insensitively.
func findLine(lines []string, needles ...string) (string, bool) {
	for _, line := range lines {
		lower := strings.ToLower(line)
		for _, n := range needles {
			if strings.Contains(lower, n) {
				return strings.TrimSpace(line), true
			}
		}
	}
	return "", false
}

func lastErrorLine(lines []string) (string, bool) {
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" || IsProgressLine(line) {
			continue
		}
		level, _ := ParseLogLevel(line)
		if level == "error" || level == "fatal" || level == "panic" {
			return line, true
		}
	}
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line != "" && !IsProgressLine(line) {
			return line, true
		}
	}
	return "", false
}

func tail(lines []string, n int) []string {
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return append([]string(nil), lines...)
}
