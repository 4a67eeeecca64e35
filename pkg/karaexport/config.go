// Package karaexport provides a high-level API for exporting karaoke videos.
package karaexport

import (
	"fmt"
	"time"

	"github.com/user/karaexport/pkg/capture"
	"github.com/user/karaexport/pkg/ffmpeg"
	"github.com/user/karaexport/pkg/orchestrator"
)

// QualityPreset represents a video quality preset name.
type QualityPreset string

const (
	QualityHigh      QualityPreset = ffmpeg.QualityHigh
	QualityMedium    QualityPreset = ffmpeg.QualityMedium
	QualityLow       QualityPreset = ffmpeg.QualityLow
	QualityUltrafast QualityPreset = ffmpeg.QualityUltrafast
	QualityLossless  QualityPreset = ffmpeg.QualityLossless
)

// Target is a playback target preset name.
type Target string

const (
	TargetDefault Target = ""
	TargetWeb     Target = "web"
	TargetMobile  Target = "mobile"
)

// Config represents the configuration for one karaoke export.
type Config struct {
	// Video size
	Width  int
	Height int
	FPS    float64

	// Encoding
	Quality QualityPreset
	Target  Target
	HWAccel string // "", nvenc, qsv, vaapi or videotoolbox
	Bitrate int    // kbps; 0 keeps the preset's rate control

	// Capture
	RenderQuality float64 // 0.1 to 1.0
	Threaded      bool

	// Audio sync offset in seconds, applied to every frame timestamp.
	AudioOffset float64

	// Run
	Overwrite  bool
	Verify     bool
	MaxRetries int
}

// ConfigBuilder provides a fluent interface for building Config.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder creates a new ConfigBuilder with 1080p30 medium quality defaults.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{config: defaults()}
}

// NewWebConfigBuilder creates a ConfigBuilder for progressive browser playback.
func NewWebConfigBuilder() *ConfigBuilder {
	cfg := defaults()
	cfg.Target = TargetWeb
	return &ConfigBuilder{config: cfg}
}

// NewMobileConfigBuilder creates a ConfigBuilder for 720p playback on phones.
func NewMobileConfigBuilder() *ConfigBuilder {
	cfg := defaults()
	cfg.Width, cfg.Height = 1280, 720
	cfg.Target = TargetMobile
	return &ConfigBuilder{config: cfg}
}

func defaults() Config {
	return Config{
		Width:         1920,
		Height:        1080,
		FPS:           30,
		Quality:       QualityMedium,
		RenderQuality: 1.0,
		Verify:        true,
		MaxRetries:    orchestrator.DefaultMaxRetries,
	}
}

// Build returns the final Config, applying constraints.
func (b *ConfigBuilder) Build() Config {
	cfg := b.config

	// yuv420p needs even dimensions
	cfg.Width &^= 1
	cfg.Height &^= 1

	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if cfg.RenderQuality <= 0 || cfg.RenderQuality > 1 {
		cfg.RenderQuality = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return cfg
}

// WithSize sets the output video size.
func (b *ConfigBuilder) WithSize(width, height int) *ConfigBuilder {
	b.config.Width = width
	b.config.Height = height
	return b
}

// WithResolution applies a named resolution (480p, 720p, 1080p, 1080p-hq, 4k)
// including its recommended bitrate.
func (b *ConfigBuilder) WithResolution(name string) (*ConfigBuilder, error) {
	r, ok := ffmpeg.LookupResolution(name)
	if !ok {
		return b, fmt.Errorf("karaexport: unknown resolution %q", name)
	}
	b.config.Width = r.Width
	b.config.Height = r.Height
	b.config.Bitrate = r.Bitrate
	return b, nil
}

// WithFPS sets the frame rate.
func (b *ConfigBuilder) WithFPS(fps float64) *ConfigBuilder {
	b.config.FPS = fps
	return b
}

// WithQualityPreset applies a quality preset.
func (b *ConfigBuilder) WithQualityPreset(preset QualityPreset) *ConfigBuilder {
	b.config.Quality = preset
	return b
}

// WithTarget selects the web or mobile preset.
func (b *ConfigBuilder) WithTarget(target Target) *ConfigBuilder {
	b.config.Target = target
	return b
}

// WithHWAccel enables a hardware encoder backend.
func (b *ConfigBuilder) WithHWAccel(backend string) *ConfigBuilder {
	b.config.HWAccel = backend
	return b
}

// WithBitrate sets a fixed video bitrate in kbps, replacing CRF.
func (b *ConfigBuilder) WithBitrate(kbps int) *ConfigBuilder {
	b.config.Bitrate = kbps
	return b
}

// WithRenderQuality sets the capture detail level (0.1 to 1.0).
func (b *ConfigBuilder) WithRenderQuality(q float64) *ConfigBuilder {
	b.config.RenderQuality = q
	return b
}

// WithThreading renders frames ahead of the encoder on a separate goroutine.
func (b *ConfigBuilder) WithThreading(on bool) *ConfigBuilder {
	b.config.Threaded = on
	return b
}

// WithAudioOffset shifts frame timestamps to line up with the audio.
func (b *ConfigBuilder) WithAudioOffset(seconds float64) *ConfigBuilder {
	b.config.AudioOffset = seconds
	return b
}

// WithOverwrite allows replacing an existing output file.
func (b *ConfigBuilder) WithOverwrite(overwrite bool) *ConfigBuilder {
	b.config.Overwrite = overwrite
	return b
}

// WithVerify enables probing the output after encoding.
func (b *ConfigBuilder) WithVerify(verify bool) *ConfigBuilder {
	b.config.Verify = verify
	return b
}

// WithMaxRetries sets how often a transient failure is retried.
func (b *ConfigBuilder) WithMaxRetries(n int) *ConfigBuilder {
	b.config.MaxRetries = n
	return b
}

// ExportSettings resolves the presets into encoder settings.
func (c Config) ExportSettings(outputPath string) (ffmpeg.ExportSettings, error) {
	var s ffmpeg.ExportSettings
	switch c.Target {
	case TargetWeb:
		s = ffmpeg.WebSettings(outputPath, c.Width, c.Height, c.FPS)
	case TargetMobile:
		s = ffmpeg.MobileSettings(outputPath, c.Width, c.Height, c.FPS)
	case TargetDefault:
		var err error
		s, err = ffmpeg.OptimizedSettings(outputPath, c.Width, c.Height, c.FPS, string(c.Quality), c.HWAccel)
		if err != nil {
			return ffmpeg.ExportSettings{}, err
		}
	default:
		return ffmpeg.ExportSettings{}, fmt.Errorf("karaexport: unknown target %q", c.Target)
	}
	s.HWAccel = c.HWAccel
	if c.Bitrate > 0 {
		s.Bitrate = c.Bitrate
		s.CRF = nil
	}
	return s, nil
}

// ToOrchestratorConfig converts Config to orchestrator.Config for a song of
// the given duration in seconds.
func (c Config) ToOrchestratorConfig(outputPath, audioPath string, duration float64) (orchestrator.Config, error) {
	s, err := c.ExportSettings(outputPath)
	if err != nil {
		return orchestrator.Config{}, err
	}

	capSettings := capture.DefaultSettings()
	capSettings.Width = c.Width
	capSettings.Height = c.Height
	capSettings.FPS = c.FPS
	capSettings.Quality = c.RenderQuality
	capSettings.UseThreading = c.Threaded
	capSettings.AudioSync = capture.AudioSync{Enabled: c.AudioOffset != 0, OffsetSeconds: c.AudioOffset}

	return orchestrator.Config{
		Export:     s,
		Capture:    capSettings,
		Duration:   duration,
		AudioPath:  audioPath,
		Overwrite:  c.Overwrite,
		Verify:     c.Verify,
		MaxRetries: c.MaxRetries,
		RetryDelay: time.Second,
	}, nil
}
