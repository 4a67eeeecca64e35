// Package verify implements the output verification stage.
package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/karaexport/pkg/ffmpeg"
	"github.com/user/karaexport/pkg/pipeline"
	"github.com/user/karaexport/pkg/ports"
)

var (
	ErrEmptyOutput   = errors.New("verify: output file is empty")
	ErrMissingOutput = errors.New("verify: output file not found")
)

// Stage checks the encoded file against what was exported.
type Stage struct {
	prober ports.MediaProber
	fs     ports.FileSystem
	logger ports.Logger
}

// NewStage creates a new verify stage. A nil prober only checks the file size.
func NewStage(prober ports.MediaProber, fs ports.FileSystem, logger ports.Logger) *Stage {
	return &Stage{
		prober: prober,
		fs:     fs,
		logger: logger.WithComponent("verify"),
	}
}

// Execute verifies the output. Missing or empty output and unreadable
// containers are errors; mismatches against the expectation are warnings.
func (s *Stage) Execute(ctx context.Context, input pipeline.VerifyInput) (pipeline.VerifyResult, error) {
	var result pipeline.VerifyResult

	exists, err := s.fs.Exists(input.Path)
	if err != nil {
		return result, fmt.Errorf("check output: %w", err)
	}
	if !exists {
		return result, fmt.Errorf("%w: %s", ErrMissingOutput, input.Path)
	}
	size, err := s.fs.Size(input.Path)
	if err != nil {
		return result, fmt.Errorf("output size: %w", err)
	}
	result.FileSize = size
	if size == 0 {
		return result, fmt.Errorf("%w: %s", ErrEmptyOutput, input.Path)
	}

	container := ffmpeg.ParseContainer(input.Container)
	if s.prober == nil || !s.prober.Supports(container) {
		s.logger.Debug("Skipping container probe for %s", container)
		return result, nil
	}

	info, err := s.prober.ProbeFile(input.Path)
	if err != nil {
		return result, fmt.Errorf("probe output: %w", err)
	}
	result.Probed = true
	result.Info = info

	if input.Width > 0 && (info.Width != input.Width || info.Height != input.Height) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("output is %dx%d, expected %dx%d", info.Width, info.Height, input.Width, input.Height))
	}
	if input.ExpectedFrames > 0 && info.VideoFrames > 0 {
		if diff := int64(info.VideoFrames) - input.ExpectedFrames; diff > 1 || diff < -1 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("output has %d frames, expected %d", info.VideoFrames, input.ExpectedFrames))
		}
	}
	if input.ExpectAudio && info.AudioTracks == 0 {
		result.Warnings = append(result.Warnings, "output has no audio track")
	}
	for _, w := range result.Warnings {
		s.logger.Warn("Output check: %s", w)
	}
	return result, nil
}
