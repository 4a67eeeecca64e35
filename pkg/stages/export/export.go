// Package export implements the render-and-encode stage.
package export

import (
	"context"
	"fmt"

	"github.com/user/karaexport/pkg/capture"
	coord "github.com/user/karaexport/pkg/export"
	"github.com/user/karaexport/pkg/pipeline"
	"github.com/user/karaexport/pkg/ports"
)

// Stage renders every frame of the timeline and streams it to the encoder.
type Stage struct {
	engine      *capture.Engine
	coordinator *coord.Coordinator
	logger      ports.Logger
	sessionOpts []capture.SessionOption
}

// NewStage creates a new export stage. The engine is initialized for each
// run and released afterwards.
func NewStage(engine *capture.Engine, coordinator *coord.Coordinator, logger ports.Logger, opts ...capture.SessionOption) *Stage {
	return &Stage{
		engine:      engine,
		coordinator: coordinator,
		logger:      logger.WithComponent("export"),
		sessionOpts: opts,
	}
}

// Execute runs one export. A capture session that ends early, for example
// because too many frames failed to render, fails the stage even when the
// encoder finished cleanly.
func (s *Stage) Execute(ctx context.Context, input pipeline.ExportInput) (pipeline.ExportResult, error) {
	var result pipeline.ExportResult

	if err := s.engine.Initialize(input.Capture); err != nil {
		return result, fmt.Errorf("initialize capture: %w", err)
	}
	defer s.engine.Release()

	session := capture.NewSession(s.engine, s.logger, s.sessionOpts...)
	source, err := session.FrameSource(ctx, input.Timeline)
	if err != nil {
		return result, fmt.Errorf("frame source: %w", err)
	}
	defer session.Cancel()

	total := int64(input.Timeline.Len())
	s.logger.Debug("Streaming %d frames to the encoder", total)
	if err := s.coordinator.Start(ctx, input.Settings, source, total, input.AudioPath); err != nil {
		return result, err
	}

	// The coordinator watches ctx itself; waiting without it keeps the
	// result of a cancelled export.
	res, err := s.coordinator.Wait(context.Background())
	session.Cancel()
	result.Export = res
	result.Capture = session.Stats()

	if err == nil {
		if cerr := session.Err(); cerr != nil {
			err = fmt.Errorf("capture ended early after %d frames: %w", result.Capture.Captured, cerr)
		}
	}
	if cerr := s.coordinator.Cleanup(); cerr != nil {
		s.logger.Debug("Cleanup failed: %v", cerr)
	}
	return result, err
}
