package pipeline

import (
	"errors"
	"slices"
	"strings"

	"github.com/user/karaexport/pkg/capture"
	"github.com/user/karaexport/pkg/export"
	"github.com/user/karaexport/pkg/ffmpeg"
	"github.com/user/karaexport/pkg/ports"
	"github.com/user/karaexport/pkg/timeline"
)

// =============================================================================
// Preflight Stage Types
// =============================================================================

// CheckLevel is the severity of a preflight check.
type CheckLevel string

const (
	CheckInfo    CheckLevel = "info"
	CheckWarning CheckLevel = "warning"
	CheckError   CheckLevel = "error"
)

// Check is one preflight finding.
type Check struct {
	Level      CheckLevel `json:"level"`
	Name       string     `json:"name"`
	Message    string     `json:"message"`
	Suggestion string     `json:"suggestion,omitempty"`
}

// PreflightInput contains everything checked before rendering starts.
type PreflightInput struct {
	Settings    ffmpeg.ExportSettings
	Capture     capture.Settings
	AudioPath   string
	Duration    float64 // seconds
	TotalFrames int64
	Overwrite   bool
}

// PreflightResult lists the findings of the requirements check.
type PreflightResult struct {
	Checks         []Check                 `json:"checks"`
	Validation     ffmpeg.ValidationResult `json:"validation"`
	EstimatedBytes int64                   `json:"estimatedBytes"`
	FreeBytes      uint64                  `json:"freeBytes"`
	AudioFound     bool                    `json:"audioFound"`
}

// Add appends a finding.
func (r *PreflightResult) Add(level CheckLevel, name, message, suggestion string) {
	r.Checks = append(r.Checks, Check{Level: level, Name: name, Message: message, Suggestion: suggestion})
}

// Filter returns the findings of one level.
func (r PreflightResult) Filter(level CheckLevel) []Check {
	var out []Check
	for _, c := range r.Checks {
		if c.Level == level {
			out = append(out, c)
		}
	}
	return out
}

// OK reports whether no check failed.
func (r PreflightResult) OK() bool {
	return len(r.Filter(CheckError)) == 0
}

// Err returns a *PreflightError when any check failed.
func (r PreflightResult) Err() error {
	if r.OK() {
		return nil
	}
	return &PreflightError{Checks: r.Filter(CheckError)}
}

// ErrPreflight is matched by every *PreflightError.
var ErrPreflight = errors.New("pipeline: export requirements not met")

// PreflightError reports failed requirement checks.
type PreflightError struct {
	Checks []Check
}

func (e *PreflightError) Error() string {
	msgs := make([]string, len(e.Checks))
	for i, c := range e.Checks {
		msgs[i] = c.Name + ": " + c.Message
	}
	return ErrPreflight.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *PreflightError) Is(target error) bool {
	return target == ErrPreflight
}

// Suggestions returns the distinct suggestions of the failed checks.
func (e *PreflightError) Suggestions() []string {
	var out []string
	for _, c := range e.Checks {
		if c.Suggestion != "" && !slices.Contains(out, c.Suggestion) {
			out = append(out, c.Suggestion)
		}
	}
	if len(out) == 0 {
		out = append(out, "Fix the reported problems and try again")
	}
	return out
}

// =============================================================================
// Export Stage Types
// =============================================================================

// ExportInput is one render-and-encode pass.
type ExportInput struct {
	Settings  ffmpeg.ExportSettings
	Capture   capture.Settings
	Timeline  timeline.Timeline
	AudioPath string
}

// ExportResult combines the encoder and capture outcomes.
type ExportResult struct {
	Export  export.Result        `json:"export"`
	Capture capture.SessionStats `json:"capture"`
}

// =============================================================================
// Verify Stage Types
// =============================================================================

// VerifyInput describes what the output file should contain.
type VerifyInput struct {
	Path           string
	Container      string
	Width          int
	Height         int
	ExpectedFrames int64
	ExpectAudio    bool
}

// VerifyResult reports what was found in the output file.
type VerifyResult struct {
	FileSize int64           `json:"fileSize"`
	Probed   bool            `json:"probed"`
	Info     ports.MediaInfo `json:"info"`
	Warnings []string        `json:"warnings,omitempty"`
}
