package export

import (
	"errors"
	"fmt"
	"strings"

	"github.com/user/karaexport/pkg/ffmpeg"
)

// Errors returned by the export package.
var (
	ErrAlreadyRunning       = errors.New("export: an export is already running")
	ErrNotRunning           = errors.New("export: no export is running")
	ErrCancelled            = errors.New("export: cancelled")
	ErrTooManyFrameFailures = errors.New("export: too many consecutive frame failures")
	ErrFrameMissing         = errors.New("export: frame source returned no frame")
	ErrFrameFormat          = errors.New("export: frame is not RGBA8")
	ErrFrameSize            = errors.New("export: frame size does not match the export resolution")
	ErrFrameOrder           = errors.New("export: frame out of order")
)

// StreamingIOError reports a failed write to or close of the encoder's input.
// When the encoder exited with a classified failure, Encoder carries it.
type StreamingIOError struct {
	Op      string // "write" or "close"
	Err     error
	Encoder *ffmpeg.EncoderError
}

func (e *StreamingIOError) Error() string {
	msg := fmt.Sprintf("export: encoder input %s failed: %v", e.Op, e.Err)
	if e.Encoder != nil {
		msg += " (" + e.Encoder.Error() + ")"
	}
	return msg
}

func (e *StreamingIOError) Unwrap() []error {
	if e.Encoder != nil {
		return []error{e.Err, e.Encoder}
	}
	return []error{e.Err}
}

// Suggestions returns recovery hints for the failed stream.
func (e *StreamingIOError) Suggestions() []string {
	if e.Encoder != nil {
		return e.Encoder.Suggestions()
	}
	return ffmpeg.Hints(ffmpeg.CategoryBrokenPipe)
}

type suggester interface {
	Suggestions() []string
}

type keywordHint struct {
	keywords []string
	hints    []string
}

// keywordHints is consulted for errors that carry no suggestions of their own.
var keywordHints = []keywordHint{
	{[]string{"ffmpeg: binary not found", "executable file not found", "not available"}, []string{
		"Install ffmpeg and make sure it is on PATH",
		"Set FFMPEG_PATH or the ffmpeg_path config option",
	}},
	{[]string{"permission"}, []string{
		"Check write permissions for the output directory",
		"Choose a different output location",
	}},
	{[]string{"codec", "encoder"}, []string{
		"Choose a different codec",
		"Install an ffmpeg build that includes the codec",
	}},
	{[]string{"disk", "no space"}, []string{
		"Free up disk space",
		"Choose an output location on a different drive",
	}},
	{[]string{"memory"}, []string{
		"Close other applications to free memory",
		"Lower the export resolution",
	}},
	{[]string{"gpu", "render", "capture"}, []string{
		"Update the graphics drivers",
		"Lower the export quality or resolution",
	}},
}

var genericHints = []string{
	"Check the log for details and try again",
	"Reset the export settings to a preset",
}

// Suggest returns at least one recovery hint for err.
func Suggest(err error) []string {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCancelled) {
		return []string{"The export was cancelled; start it again when ready"}
	}
	var s suggester
	if errors.As(err, &s) {
		if hints := s.Suggestions(); len(hints) > 0 {
			return hints
		}
	}
	if errors.Is(err, ErrTooManyFrameFailures) {
		return []string{
			"Check that the renderer produces frames at the export resolution",
			"Lower the export quality or resolution",
		}
	}

	msg := strings.ToLower(err.Error())
	for _, kh := range keywordHints {
		for _, k := range kh.keywords {
			if strings.Contains(msg, k) {
				return append([]string(nil), kh.hints...)
			}
		}
	}
	return append([]string(nil), genericHints...)
}
