package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/user/karaexport/pkg/adapters/logger"
	"github.com/user/karaexport/pkg/export"
	"github.com/user/karaexport/pkg/ffmpeg"
	"github.com/user/karaexport/pkg/mocks"
	"github.com/user/karaexport/pkg/pipeline"
)

// mockPreflightStage is a mock for the preflight stage.
type mockPreflightStage struct {
	result pipeline.PreflightResult
	err    error
	input  pipeline.PreflightInput
}

func (m *mockPreflightStage) Execute(ctx context.Context, input pipeline.PreflightInput) (pipeline.PreflightResult, error) {
	m.input = input
	return m.result, m.err
}

// mockExportStage fails with the queued errors before succeeding.
type mockExportStage struct {
	mu     sync.Mutex
	result pipeline.ExportResult
	errs   []error
	calls  int
	input  pipeline.ExportInput
}

func (m *mockExportStage) Execute(ctx context.Context, input pipeline.ExportInput) (pipeline.ExportResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.input = input
	m.calls++
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return pipeline.ExportResult{}, err
	}
	return m.result, nil
}

// mockVerifyStage is a mock for the verify stage.
type mockVerifyStage struct {
	result pipeline.VerifyResult
	err    error
	called bool
	input  pipeline.VerifyInput
}

func (m *mockVerifyStage) Execute(ctx context.Context, input pipeline.VerifyInput) (pipeline.VerifyResult, error) {
	m.called = true
	m.input = input
	return m.result, m.err
}

func testConfig() Config {
	config := DefaultConfig()
	config.Export.OutputPath = "out/song.mp4"
	config.Export.Width = 64
	config.Export.Height = 64
	config.Export.FPS = 10
	config.Capture.Width = 64
	config.Capture.Height = 64
	config.Capture.FPS = 10
	config.Capture.AudioSync.Enabled = false
	config.Duration = 2
	config.AudioPath = "song.wav"
	config.RetryDelay = time.Millisecond
	return config
}

func okExport() *mockExportStage {
	return &mockExportStage{result: pipeline.ExportResult{
		Export: export.Result{OutputPath: "out/song.mp4", FramesWritten: 20, BytesWritten: 1024},
	}}
}

func TestOrchestrator_Run(t *testing.T) {
	pre := &mockPreflightStage{result: pipeline.PreflightResult{AudioFound: true}}
	exp := okExport()
	ver := &mockVerifyStage{result: pipeline.VerifyResult{FileSize: 1024, Probed: true}}
	sink := mocks.NewDebugSink(true)

	orch := New(pre, exp, ver, sink, logger.NewNoop())
	var statuses []Status
	orch.OnStatus(func(s Status) { statuses = append(statuses, s) })

	result, err := orch.Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != StatusCompleted || orch.Status() != StatusCompleted {
		t.Errorf("status = %s, want completed", result.Status)
	}
	want := []Status{StatusValidating, StatusPreparing, StatusRendering, StatusFinalizing, StatusCompleted}
	if len(statuses) != len(want) {
		t.Fatalf("statuses = %v, want %v", statuses, want)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Errorf("statuses[%d] = %s, want %s", i, statuses[i], want[i])
		}
	}

	if pre.input.TotalFrames != 20 {
		t.Errorf("preflight TotalFrames = %d, want 20", pre.input.TotalFrames)
	}
	if exp.input.Timeline.Len() != 20 {
		t.Errorf("timeline length = %d, want 20", exp.input.Timeline.Len())
	}
	if result.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", result.Attempts)
	}
	if !ver.called || ver.input.ExpectedFrames != 20 || !ver.input.ExpectAudio {
		t.Errorf("verify input = %+v", ver.input)
	}
	if result.Verify == nil || result.Verify.FileSize != 1024 {
		t.Errorf("verify result = %+v", result.Verify)
	}
	if len(sink.StatsJSON) == 0 {
		t.Error("expected stats to be saved")
	}
}

func TestOrchestrator_Run_AudioSyncShiftsTimeline(t *testing.T) {
	exp := okExport()
	orch := New(&mockPreflightStage{}, exp, &mockVerifyStage{}, nil, logger.NewNoop())

	config := testConfig()
	config.Capture.AudioSync.Enabled = true
	config.Capture.AudioSync.OffsetSeconds = 0.1

	result, err := orch.Run(context.Background(), config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AudioOffset != 0.1 {
		t.Errorf("audio offset = %v, want 0.1", result.AudioOffset)
	}
	if ts := exp.input.Timeline.At(0).Timestamp; ts != 0.1 {
		t.Errorf("first timestamp = %v, want 0.1", ts)
	}
}

func TestOrchestrator_Run_PreflightFailure(t *testing.T) {
	checks := []pipeline.Check{{Level: pipeline.CheckError, Name: "output", Message: "exists", Suggestion: "Enable overwrite"}}
	pre := &mockPreflightStage{
		result: pipeline.PreflightResult{Checks: checks},
		err:    &pipeline.PreflightError{Checks: checks},
	}
	exp := okExport()

	orch := New(pre, exp, &mockVerifyStage{}, nil, logger.NewNoop())
	result, err := orch.Run(context.Background(), testConfig())
	if !errors.Is(err, pipeline.ErrPreflight) {
		t.Fatalf("expected ErrPreflight, got %v", err)
	}
	if exp.calls != 0 {
		t.Error("export should not run after a failed preflight")
	}
	if result.Status != StatusFailed {
		t.Errorf("status = %s, want failed", result.Status)
	}
	if len(result.Suggestions) != 1 || result.Suggestions[0] != "Enable overwrite" {
		t.Errorf("suggestions = %v", result.Suggestions)
	}
}

func TestOrchestrator_Run_InvalidDuration(t *testing.T) {
	pre := &mockPreflightStage{}
	orch := New(pre, okExport(), &mockVerifyStage{}, nil, logger.NewNoop())

	config := testConfig()
	config.Duration = 0
	if _, err := orch.Run(context.Background(), config); err == nil {
		t.Fatal("expected error for zero duration")
	}
	if orch.Status() != StatusFailed {
		t.Errorf("status = %s, want failed", orch.Status())
	}
}

func TestOrchestrator_Run_RetriesTransientFailure(t *testing.T) {
	exp := okExport()
	exp.errs = []error{
		&ffmpeg.EncoderError{Category: ffmpeg.CategoryBrokenPipe, ExitCode: 1},
		&export.StreamingIOError{Op: "write", Err: errors.New("broken pipe")},
	}

	orch := New(&mockPreflightStage{}, exp, &mockVerifyStage{}, nil, logger.NewNoop())
	result, err := orch.Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exp.calls != 3 || result.Attempts != 3 {
		t.Errorf("calls = %d, attempts = %d, want 3", exp.calls, result.Attempts)
	}
}

func TestOrchestrator_Run_RetriesAreBounded(t *testing.T) {
	exp := okExport()
	for range 5 {
		exp.errs = append(exp.errs, export.ErrTooManyFrameFailures)
	}

	config := testConfig()
	config.MaxRetries = 2
	orch := New(&mockPreflightStage{}, exp, &mockVerifyStage{}, nil, logger.NewNoop())
	result, err := orch.Run(context.Background(), config)
	if !errors.Is(err, export.ErrTooManyFrameFailures) {
		t.Fatalf("expected ErrTooManyFrameFailures, got %v", err)
	}
	if exp.calls != 3 {
		t.Errorf("calls = %d, want 3", exp.calls)
	}
	if result.Status != StatusFailed {
		t.Errorf("status = %s, want failed", result.Status)
	}
}

func TestOrchestrator_Run_NoRetryForConfigurationError(t *testing.T) {
	exp := okExport()
	exp.errs = []error{&ffmpeg.ConfigurationError{Diagnostics: []ffmpeg.Diagnostic{{Field: "fps", Message: "invalid"}}}}

	orch := New(&mockPreflightStage{}, exp, &mockVerifyStage{}, nil, logger.NewNoop())
	_, err := orch.Run(context.Background(), testConfig())
	if err == nil {
		t.Fatal("expected error")
	}
	if exp.calls != 1 {
		t.Errorf("calls = %d, want 1", exp.calls)
	}
}

func TestOrchestrator_Run_Cancelled(t *testing.T) {
	exp := okExport()
	exp.errs = []error{export.ErrCancelled}
	ver := &mockVerifyStage{}

	orch := New(&mockPreflightStage{}, exp, ver, nil, logger.NewNoop())
	result, err := orch.Run(context.Background(), testConfig())
	if !errors.Is(err, export.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if result.Status != StatusCancelled || orch.Status() != StatusCancelled {
		t.Errorf("status = %s, want cancelled", result.Status)
	}
	if exp.calls != 1 {
		t.Errorf("calls = %d, want 1", exp.calls)
	}
	if ver.called {
		t.Error("verify should not run after cancellation")
	}
}

func TestOrchestrator_Run_VerifyFailure(t *testing.T) {
	ver := &mockVerifyStage{err: errors.New("verify: output is empty")}
	orch := New(&mockPreflightStage{}, okExport(), ver, nil, logger.NewNoop())

	result, err := orch.Run(context.Background(), testConfig())
	if err == nil {
		t.Fatal("expected error")
	}
	if result.Status != StatusFailed {
		t.Errorf("status = %s, want failed", result.Status)
	}
}

func TestOrchestrator_Run_VerifyDisabled(t *testing.T) {
	ver := &mockVerifyStage{}
	orch := New(&mockPreflightStage{}, okExport(), ver, nil, logger.NewNoop())

	config := testConfig()
	config.Verify = false
	result, err := orch.Run(context.Background(), config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ver.called || result.Verify != nil {
		t.Error("verify should be skipped")
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"broken pipe", &ffmpeg.EncoderError{Category: ffmpeg.CategoryBrokenPipe}, true},
		{"unknown", &ffmpeg.EncoderError{Category: ffmpeg.CategoryUnknown}, true},
		{"unsupported codec", &ffmpeg.EncoderError{Category: ffmpeg.CategoryUnsupportedCodec}, false},
		{"disk full", &ffmpeg.EncoderError{Category: ffmpeg.CategoryDiskFull}, false},
		{"configuration", &ffmpeg.ConfigurationError{}, false},
		{"cancelled", export.ErrCancelled, false},
		{"context", context.Canceled, false},
		{"stdin write", &export.StreamingIOError{Op: "write", Err: errors.New("EPIPE")}, true},
		{"frame failures", export.ErrTooManyFrameFailures, true},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestStatus_Terminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusFailed, StatusCancelled} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusIdle, StatusValidating, StatusRendering} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
