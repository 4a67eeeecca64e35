// Package preflight implements the export requirements check.
package preflight

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/user/karaexport/pkg/ffmpeg"
	"github.com/user/karaexport/pkg/pipeline"
	"github.com/user/karaexport/pkg/pixfmt"
	"github.com/user/karaexport/pkg/ports"
)

const (
	// SpaceMargin is how many times the estimated output size must be free.
	SpaceMargin = 2

	gib = 1 << 30
)

// Validator checks export settings against the installed encoder.
type Validator interface {
	Validate(ctx context.Context, s ffmpeg.ExportSettings) ffmpeg.ValidationResult
}

// Stage checks that an export can run before any frame is rendered.
type Stage struct {
	validator Validator
	fs        ports.FileSystem
	logger    ports.Logger
}

// NewStage creates a new preflight stage.
func NewStage(validator Validator, fs ports.FileSystem, logger ports.Logger) *Stage {
	return &Stage{
		validator: validator,
		fs:        fs,
		logger:    logger.WithComponent("preflight"),
	}
}

// Execute runs every check. Failed checks are reported in the result; the
// returned error is non-nil only when the result has errors.
func (s *Stage) Execute(ctx context.Context, input pipeline.PreflightInput) (pipeline.PreflightResult, error) {
	var result pipeline.PreflightResult

	s.checkSettings(ctx, input, &result)
	s.checkCapture(input, &result)
	s.checkOutput(input, &result)
	s.checkAudio(input, &result)
	s.checkSpace(input, &result)

	for _, c := range result.Checks {
		s.logger.Debug("Preflight %s %s: %s", c.Level, c.Name, c.Message)
	}
	return result, result.Err()
}

func (s *Stage) checkSettings(ctx context.Context, input pipeline.PreflightInput, r *pipeline.PreflightResult) {
	vr := s.validator.Validate(ctx, input.Settings)
	r.Validation = vr
	for _, d := range vr.Errors {
		r.Add(pipeline.CheckError, d.Field, d.Message, d.Suggestion)
	}
	for _, d := range vr.Warnings {
		r.Add(pipeline.CheckWarning, d.Field, d.Message, d.Suggestion)
	}
}

func (s *Stage) checkCapture(input pipeline.PreflightInput, r *pipeline.PreflightResult) {
	c := input.Capture
	if err := c.Validate(); err != nil {
		r.Add(pipeline.CheckError, "capture", err.Error(), "Fix the capture settings")
		return
	}
	if c.Width != input.Settings.Width || c.Height != input.Settings.Height {
		r.Add(pipeline.CheckError, "capture",
			fmt.Sprintf("capture size %dx%d differs from export size %dx%d", c.Width, c.Height, input.Settings.Width, input.Settings.Height),
			"Render at the export resolution")
	}
	if c.PixelFormat != pixfmt.RGBA8 {
		r.Add(pipeline.CheckError, "capture",
			fmt.Sprintf("capture pixel format %s cannot be streamed, the encoder pipe takes %s", c.PixelFormat, pixfmt.RGBA8),
			"Capture in rgba")
	}
	if c.FPS != input.Settings.FPS {
		r.Add(pipeline.CheckError, "capture",
			fmt.Sprintf("capture frame rate %v differs from export frame rate %v", c.FPS, input.Settings.FPS),
			"Render at the export frame rate")
	}
	if input.TotalFrames <= 0 {
		r.Add(pipeline.CheckError, "duration", "the timeline has no frames", "Use a positive song duration")
	}
}

func (s *Stage) checkOutput(input pipeline.PreflightInput, r *pipeline.PreflightResult) {
	path := input.Settings.OutputPath
	if path == "" {
		return
	}
	dir := filepath.Dir(path)
	exists, err := s.fs.Exists(dir)
	if dir != "." && (err != nil || !exists) {
		if err := s.fs.MkdirAll(dir); err != nil {
			r.Add(pipeline.CheckError, "output_dir", fmt.Sprintf("cannot create output directory: %v", err),
				"Choose a different output directory or check permissions")
			return
		}
		r.Add(pipeline.CheckInfo, "output_dir", "created output directory "+dir, "")
	}

	exists, err = s.fs.Exists(path)
	switch {
	case err != nil:
		r.Add(pipeline.CheckWarning, "output", fmt.Sprintf("cannot check output file: %v", err), "")
	case exists && !input.Overwrite:
		r.Add(pipeline.CheckError, "output", "output file already exists: "+path,
			"Enable overwrite or choose a different filename")
	case exists:
		r.Add(pipeline.CheckInfo, "output", "existing output will be overwritten: "+path, "")
	}
}

func (s *Stage) checkAudio(input pipeline.PreflightInput, r *pipeline.PreflightResult) {
	if input.AudioPath == "" {
		r.Add(pipeline.CheckWarning, "audio", "no audio track configured", "Add an audio file for a karaoke export")
		return
	}
	exists, err := s.fs.Exists(input.AudioPath)
	if err != nil || !exists {
		r.Add(pipeline.CheckWarning, "audio", "audio file not found: "+input.AudioPath,
			"Check the audio path; the video will be exported without sound")
		return
	}
	r.AudioFound = true
}

func (s *Stage) checkSpace(input pipeline.PreflightInput, r *pipeline.PreflightResult) {
	if input.Settings.OutputPath == "" {
		return
	}
	r.EstimatedBytes = input.Settings.EstimatedBytes(input.Duration)

	free, err := s.fs.FreeSpace(filepath.Dir(input.Settings.OutputPath))
	if err != nil {
		r.Add(pipeline.CheckInfo, "disk_space", fmt.Sprintf("could not check disk space: %v", err), "")
		return
	}
	r.FreeBytes = free
	if free < uint64(r.EstimatedBytes)*SpaceMargin {
		r.Add(pipeline.CheckWarning, "disk_space",
			fmt.Sprintf("low disk space: %.1f GB available, %.1f GB estimated", float64(free)/gib, float64(r.EstimatedBytes)/gib),
			"Free up disk space or choose a different output location")
	}
}
