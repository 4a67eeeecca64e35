// Package capture renders frames for a timeline and hands them off as
// encoder-ready byte buffers.
package capture

import (
	"errors"
	"fmt"
	"image/color"
	"time"

	"github.com/user/karaexport/pkg/pixfmt"
)

var (
	// ErrInvalidSettings is returned by Settings.Validate.
	ErrInvalidSettings = errors.New("capture: invalid settings")
	// ErrNotInitialized is returned when rendering before Initialize.
	ErrNotInitialized = errors.New("capture: engine not initialized")
	// ErrNoRenderers is returned when no layer renderer is configured.
	ErrNoRenderers = errors.New("capture: no renderers configured")
	// ErrCaptureFailed wraps every per-frame failure. Callers count and skip these.
	ErrCaptureFailed = errors.New("capture: frame capture failed")
	// ErrAlreadyCapturing is returned when a session is started twice.
	ErrAlreadyCapturing = errors.New("capture: session already running")
	// ErrTooManyDropped is returned when dropped frames exceed the session tolerance.
	ErrTooManyDropped = errors.New("capture: too many dropped frames")
	// ErrCancelled is returned when a session stops because Cancel was called.
	ErrCancelled = errors.New("capture: cancelled")
)

// AudioSync shifts frame timestamps to line up with the audio track.
type AudioSync struct {
	Enabled       bool    `json:"enabled" yaml:"enabled"`
	OffsetSeconds float64 `json:"offsetSeconds" yaml:"offset_seconds"`
}

// Settings controls a capture session. They must not change while a
// session is running.
type Settings struct {
	Width          int
	Height         int
	FPS            float64
	PixelFormat    pixfmt.Format
	Quality        float64 // 0.1 to 1.0; below 1.0 detail is reduced by resampling
	AudioSync      AudioSync
	FlipVertically bool
	BufferSize     int // frames rendered ahead when UseThreading is set
	UseThreading   bool
	ClearColor     color.NRGBA
}

// DefaultSettings returns 1080p30 RGBA capture with bottom-up readback correction.
func DefaultSettings() Settings {
	return Settings{
		Width:          1920,
		Height:         1080,
		FPS:            30,
		PixelFormat:    pixfmt.RGBA8,
		Quality:        1.0,
		AudioSync:      AudioSync{Enabled: true},
		FlipVertically: true,
		BufferSize:     10,
		UseThreading:   false,
		ClearColor:     color.NRGBA{A: 255},
	}
}

// Validate checks the settings for values the engine cannot honor.
func (s Settings) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: resolution %dx%d", ErrInvalidSettings, s.Width, s.Height)
	}
	if s.FPS <= 0 {
		return fmt.Errorf("%w: fps %v", ErrInvalidSettings, s.FPS)
	}
	if s.Quality < 0.1 || s.Quality > 1.0 {
		return fmt.Errorf("%w: quality %v outside 0.1-1.0", ErrInvalidSettings, s.Quality)
	}
	if pixfmt.ExpectedSize(s.Width, s.Height, s.PixelFormat) == 0 {
		return fmt.Errorf("%w: pixel format %s", ErrInvalidSettings, s.PixelFormat)
	}
	if s.PixelFormat == pixfmt.YUV420P && (s.Width%2 != 0 || s.Height%2 != 0) {
		return fmt.Errorf("%w: yuv420p needs even dimensions, got %dx%d", ErrInvalidSettings, s.Width, s.Height)
	}
	if s.UseThreading && s.BufferSize <= 0 {
		return fmt.Errorf("%w: buffer size %d", ErrInvalidSettings, s.BufferSize)
	}
	return nil
}

// AudioOffset returns the effective sync offset in seconds.
func (s Settings) AudioOffset() float64 {
	if !s.AudioSync.Enabled {
		return 0
	}
	return s.AudioSync.OffsetSeconds
}

// CapturedFrame is one rendered frame in its target pixel format.
// len(Data) always equals pixfmt.ExpectedSize(Width, Height, PixelFormat).
type CapturedFrame struct {
	FrameNumber    uint64
	Timestamp      float64
	Width          int
	Height         int
	PixelFormat    pixfmt.Format
	Data           []byte
	CapturedAt     time.Time
	RenderDuration time.Duration
}
