// Package orchestrator coordinates the stages of an export run.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/user/karaexport/pkg/capture"
	"github.com/user/karaexport/pkg/export"
	"github.com/user/karaexport/pkg/ffmpeg"
	"github.com/user/karaexport/pkg/pipeline"
	"github.com/user/karaexport/pkg/ports"
	"github.com/user/karaexport/pkg/timeline"
)

// DefaultMaxRetries is how many times a failed export is retried.
const DefaultMaxRetries = 3

// Status is the lifecycle state of an export run.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusValidating Status = "validating"
	StatusPreparing  Status = "preparing"
	StatusRendering  Status = "rendering"
	StatusFinalizing Status = "finalizing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether s ends a run.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Config contains all configuration for the orchestrator.
type Config struct {
	Export    ffmpeg.ExportSettings
	Capture   capture.Settings
	Duration  float64 // song length in seconds
	AudioPath string
	Overwrite bool

	// Verify probes the output file after encoding.
	Verify bool

	// MaxRetries bounds how often a transient export failure is retried.
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Export:     ffmpeg.DefaultExportSettings(),
		Capture:    capture.DefaultSettings(),
		Verify:     true,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: time.Second,
	}
}

// RunResult contains the results of a run for summary generation.
type RunResult struct {
	Status      Status                   `json:"status"`
	Attempts    int                      `json:"attempts"`
	Settings    ffmpeg.ExportSettings    `json:"settings"`
	Duration    float64                  `json:"duration"`
	TotalFrames int                      `json:"totalFrames"`
	AudioOffset float64                  `json:"audioOffset"`
	Preflight   pipeline.PreflightResult `json:"preflight"`
	Export      export.Result            `json:"export"`
	Capture     capture.SessionStats     `json:"capture"`
	Verify      *pipeline.VerifyResult   `json:"verify,omitempty"`
	Elapsed     time.Duration            `json:"elapsed"`
	Error       string                   `json:"error,omitempty"`
	Suggestions []string                 `json:"suggestions,omitempty"`
}

// Orchestrator coordinates the execution of all pipeline stages.
type Orchestrator struct {
	preflightStage pipeline.Stage[pipeline.PreflightInput, pipeline.PreflightResult]
	exportStage    pipeline.Stage[pipeline.ExportInput, pipeline.ExportResult]
	verifyStage    pipeline.Stage[pipeline.VerifyInput, pipeline.VerifyResult]
	sink           ports.DebugSink
	logger         ports.Logger

	mu       sync.Mutex
	status   Status
	onStatus func(Status)
}

// New creates a new Orchestrator.
func New(
	preflightStage pipeline.Stage[pipeline.PreflightInput, pipeline.PreflightResult],
	exportStage pipeline.Stage[pipeline.ExportInput, pipeline.ExportResult],
	verifyStage pipeline.Stage[pipeline.VerifyInput, pipeline.VerifyResult],
	sink ports.DebugSink,
	logger ports.Logger,
) *Orchestrator {
	stageLog := logger.WithComponent("stage")
	if verifyStage != nil {
		verifyStage = pipeline.Timed("verify", verifyStage, stageLog)
	}
	return &Orchestrator{
		preflightStage: pipeline.Timed("preflight", preflightStage, stageLog),
		exportStage:    pipeline.Timed("export", exportStage, stageLog),
		verifyStage:    verifyStage,
		sink:           sink,
		logger:         logger,
		status:         StatusIdle,
	}
}

// OnStatus registers a callback invoked on every status change.
func (o *Orchestrator) OnStatus(fn func(Status)) {
	o.mu.Lock()
	o.onStatus = fn
	o.mu.Unlock()
}

// Status returns the current status.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

func (o *Orchestrator) setStatus(s Status) {
	o.mu.Lock()
	o.status = s
	fn := o.onStatus
	o.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

// Run executes the complete pipeline. Cancelling ctx cancels the export and
// ends the run with StatusCancelled.
func (o *Orchestrator) Run(ctx context.Context, config Config) (RunResult, error) {
	start := time.Now()
	result := RunResult{Settings: config.Export, Duration: config.Duration}
	o.logger.Info("Starting export to %s", config.Export.OutputPath)

	// 1. Requirements
	o.setStatus(StatusValidating)
	tl, err := timeline.Generate(config.Duration, config.Export.FPS, 0)
	if err != nil {
		return o.fail(result, start, fmt.Errorf("timeline: %w", err))
	}
	tl = tl.WithAudioSync(config.Capture.AudioOffset())
	result.TotalFrames = tl.Len()
	result.AudioOffset = tl.AudioOffset()

	pre, err := o.preflightStage.Execute(ctx, pipeline.PreflightInput{
		Settings:    config.Export,
		Capture:     config.Capture,
		AudioPath:   config.AudioPath,
		Duration:    config.Duration,
		TotalFrames: int64(tl.Len()),
		Overwrite:   config.Overwrite,
	})
	result.Preflight = pre
	for _, c := range pre.Filter(pipeline.CheckWarning) {
		o.logger.Warn("%s: %s", c.Name, c.Message)
	}
	if err != nil {
		return o.fail(result, start, err)
	}

	// 2. Render and encode
	o.setStatus(StatusPreparing)
	o.logger.Info("Rendering %d frames at %dx%d, %.2f fps", tl.Len(), config.Export.Width, config.Export.Height, config.Export.FPS)
	input := pipeline.ExportInput{
		Settings:  config.Export,
		Capture:   config.Capture,
		Timeline:  tl,
		AudioPath: config.AudioPath,
	}
	o.setStatus(StatusRendering)
	exp, attempts, err := o.exportWithRetry(ctx, input, config)
	result.Attempts = attempts
	result.Export = exp.Export
	result.Capture = exp.Capture
	o.saveStats(result)
	if err != nil {
		return o.fail(result, start, err)
	}
	o.logger.Info("Encoded %d frames (%d bytes) in %v", exp.Export.FramesWritten, exp.Export.BytesWritten, exp.Export.Elapsed.Round(time.Millisecond))

	// 3. Verify
	o.setStatus(StatusFinalizing)
	if config.Verify && o.verifyStage != nil {
		v, err := o.verifyStage.Execute(ctx, pipeline.VerifyInput{
			Path:           config.Export.OutputPath,
			Container:      config.Export.Container,
			Width:          config.Export.Width,
			Height:         config.Export.Height,
			ExpectedFrames: int64(exp.Export.FramesWritten),
			ExpectAudio:    pre.AudioFound && config.Export.AudioCodec != "",
		})
		result.Verify = &v
		if err != nil {
			return o.fail(result, start, fmt.Errorf("verify output: %w", err))
		}
	}

	result.Status = StatusCompleted
	result.Elapsed = time.Since(start)
	o.setStatus(StatusCompleted)
	o.logger.Info("Output saved to %s", config.Export.OutputPath)
	return result, nil
}

func (o *Orchestrator) exportWithRetry(ctx context.Context, input pipeline.ExportInput, config Config) (pipeline.ExportResult, int, error) {
	attempt := 0
	for {
		attempt++
		res, err := o.exportStage.Execute(ctx, input)
		if err == nil || attempt > config.MaxRetries || !Retryable(err) || ctx.Err() != nil {
			return res, attempt, err
		}
		o.logger.Warn("Export attempt %d of %d failed: %v", attempt, config.MaxRetries+1, err)
		select {
		case <-time.After(config.RetryDelay):
		case <-ctx.Done():
			return res, attempt, ctx.Err()
		}
		o.logger.Info("Retrying export (attempt %d/%d)", attempt+1, config.MaxRetries+1)
	}
}

// Retryable reports whether an export failure may succeed on another try.
// Configuration problems, cancellation and deterministic encoder failures
// are not retried.
func Retryable(err error) bool {
	if IsCancelled(err) {
		return false
	}
	var cfgErr *ffmpeg.ConfigurationError
	if errors.As(err, &cfgErr) || errors.Is(err, pipeline.ErrPreflight) || errors.Is(err, capture.ErrInvalidSettings) {
		return false
	}
	var encErr *ffmpeg.EncoderError
	if errors.As(err, &encErr) {
		switch encErr.Category {
		case ffmpeg.CategoryBrokenPipe, ffmpeg.CategoryNetwork, ffmpeg.CategoryTerminated, ffmpeg.CategoryUnknown:
			return true
		}
		return false
	}
	var ioErr *export.StreamingIOError
	return errors.As(err, &ioErr) || errors.Is(err, export.ErrTooManyFrameFailures) || errors.Is(err, capture.ErrTooManyDropped)
}

// IsCancelled reports whether err ends a run by cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, export.ErrCancelled) || errors.Is(err, capture.ErrCancelled) || errors.Is(err, context.Canceled)
}

func (o *Orchestrator) fail(result RunResult, start time.Time, err error) (RunResult, error) {
	result.Elapsed = time.Since(start)
	result.Error = err.Error()
	result.Suggestions = export.Suggest(err)
	if IsCancelled(err) {
		result.Status = StatusCancelled
		o.setStatus(StatusCancelled)
		o.logger.Warn("Export cancelled")
		return result, err
	}
	result.Status = StatusFailed
	o.setStatus(StatusFailed)
	o.logger.Error("Export failed: %v", err)
	for _, s := range result.Suggestions {
		o.logger.Info("Suggestion: %s", s)
	}
	return result, err
}

func (o *Orchestrator) saveStats(result RunResult) {
	if o.sink == nil || !o.sink.Enabled() {
		return
	}
	data, err := json.MarshalIndent(struct {
		Attempts int                  `json:"attempts"`
		Export   export.Result        `json:"export"`
		Capture  capture.SessionStats `json:"capture"`
	}{result.Attempts, result.Export, result.Capture}, "", "  ")
	if err != nil {
		o.logger.Debug("Encoding stats failed: %v", err)
		return
	}
	if err := o.sink.SaveStatsJSON(data); err != nil {
		o.logger.Debug("Saving stats failed: %v", err)
	}
}
