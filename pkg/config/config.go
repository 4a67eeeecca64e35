// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"image/color"
	"os"
	"time"

	"github.com/user/karaexport/pkg/adapters/ggrenderer"
	"github.com/user/karaexport/pkg/capture"
	"github.com/user/karaexport/pkg/export"
	"github.com/user/karaexport/pkg/ffmpeg"
	"github.com/user/karaexport/pkg/orchestrator"
	"gopkg.in/yaml.v3"
)

// Config represents the full configuration for karaexport.
type Config struct {
	// Input/Output
	OutputPath string      `yaml:"output"`
	Overwrite  bool        `yaml:"overwrite"`
	Duration   float64     `yaml:"duration"` // seconds; 0 ends with the last lyric line
	Audio      AudioConfig `yaml:"audio"`

	// Encoding
	Export  ffmpeg.ExportSettings `yaml:"export"`
	Encoder EncoderConfig         `yaml:"encoder"`

	// Rendering
	Capture CaptureConfig `yaml:"capture"`
	Theme   ThemeConfig   `yaml:"theme"`
	Lyrics  []LyricLine   `yaml:"lyrics"`

	// Run
	MaxRetries   int  `yaml:"max_retries"`
	RetryDelayMs int  `yaml:"retry_delay_ms"`
	Verify       bool `yaml:"verify"`

	// Debug
	Debug      bool   `yaml:"debug"`
	DebugDir   string `yaml:"debug_dir"`
	DebugEvery uint64 `yaml:"debug_every"` // save every Nth frame
}

// AudioConfig names the soundtrack and its sync offset.
type AudioConfig struct {
	Path          string  `yaml:"path"`
	Sync          bool    `yaml:"sync"`
	OffsetSeconds float64 `yaml:"offset_seconds"`
}

// EncoderConfig tunes the encoder process.
type EncoderConfig struct {
	FFmpegPath             string `yaml:"ffmpeg_path"`
	ChunkSize              int    `yaml:"chunk_size"`
	MaxConsecutiveFailures int    `yaml:"max_consecutive_failures"`
	TerminateTimeoutMs     int    `yaml:"terminate_timeout_ms"`
	KillTimeoutMs          int    `yaml:"kill_timeout_ms"`
	JoinTimeoutMs          int    `yaml:"join_timeout_ms"`
}

// CaptureConfig controls frame rendering. Size and rate follow the export.
type CaptureConfig struct {
	Quality          float64 `yaml:"quality"`
	Threaded         bool    `yaml:"threaded"`
	BufferSize       int     `yaml:"buffer_size"`
	FlipVertically   bool    `yaml:"flip_vertically"`
	MaxDroppedFrames int     `yaml:"max_dropped_frames"`
	ClearColor       string  `yaml:"clear_color"`
}

// ThemeConfig represents theming options.
type ThemeConfig struct {
	BackgroundTop    string  `yaml:"background_top"`
	BackgroundBottom string  `yaml:"background_bottom"`
	BackgroundImage  string  `yaml:"background_image"`
	FontPath         string  `yaml:"font_path"`
	FontSize         float64 `yaml:"font_size"`
	TextColor        string  `yaml:"text_color"`
	HighlightColor   string  `yaml:"highlight_color"`
	OutlineColor     string  `yaml:"outline_color"`
	UpcomingColor    string  `yaml:"upcoming_color"`
	LyricPosition    float64 `yaml:"lyric_position"`
	ShowProgress     bool    `yaml:"show_progress"`
	ProgressHeight   int     `yaml:"progress_height"`
	ProgressColor    string  `yaml:"progress_color"`
	TrackColor       string  `yaml:"track_color"`
}

// LyricLine is one timed line. Syllables are optional; without them the
// whole line is highlighted linearly between Start and End.
type LyricLine struct {
	Text      string     `yaml:"text"`
	Start     float64    `yaml:"start"`
	End       float64    `yaml:"end"`
	Syllables []Syllable `yaml:"syllables"`
}

// Syllable is one sung unit of a lyric line.
type Syllable struct {
	Text  string  `yaml:"text"`
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	capDefaults := capture.DefaultSettings()
	return Config{
		OutputPath: "output.mp4",
		Audio:      AudioConfig{Sync: true},

		Export: ffmpeg.DefaultExportSettings(),
		Encoder: EncoderConfig{
			ChunkSize:              export.DefaultChunkSize,
			MaxConsecutiveFailures: export.DefaultMaxFailures,
			TerminateTimeoutMs:     int(export.DefaultTerminateTimeout.Milliseconds()),
			KillTimeoutMs:          int(export.DefaultKillTimeout.Milliseconds()),
			JoinTimeoutMs:          int(export.DefaultJoinTimeout.Milliseconds()),
		},

		Capture: CaptureConfig{
			Quality:          capDefaults.Quality,
			BufferSize:       capDefaults.BufferSize,
			FlipVertically:   capDefaults.FlipVertically,
			MaxDroppedFrames: 10,
			ClearColor:       "#000000",
		},
		Theme: ThemeConfig{
			BackgroundTop:    "#1a1a2e",
			BackgroundBottom: "#16213e",
			FontSize:         48,
			TextColor:        "#ffffff",
			HighlightColor:   "#ffd600",
			OutlineColor:     "#000000",
			UpcomingColor:    "#c8c8c8",
			LyricPosition:    0.8,
			ShowProgress:     true,
			ProgressHeight:   6,
			ProgressColor:    "#4ade80",
			TrackColor:       "#333355",
		},

		MaxRetries:   orchestrator.DefaultMaxRetries,
		RetryDelayMs: 1000,
		Verify:       true,

		DebugDir:   "./debug",
		DebugEvery: 30,
	}
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// SongDuration returns Duration, or the end of the last lyric line when
// Duration is not set.
func (c Config) SongDuration() float64 {
	if c.Duration > 0 {
		return c.Duration
	}
	var end float64
	for _, l := range c.Lyrics {
		end = max(end, l.End)
	}
	return end
}

// ParseColor parses a #rrggbb or #rrggbbaa hex color. Anything else is black.
func ParseColor(hex string) color.Color {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 && len(hex) != 8 {
		return color.Black
	}

	var c [4]uint8
	c[3] = 255
	for i := 0; i < len(hex); i += 2 {
		c[i/2] = hexValue(hex[i])<<4 | hexValue(hex[i+1])
	}
	return color.NRGBA{R: c[0], G: c[1], B: c[2], A: c[3]}
}

func hexValue(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}

// LyricLines converts the configured lyrics for the renderer.
func (c Config) LyricLines() []ggrenderer.Line {
	lines := make([]ggrenderer.Line, len(c.Lyrics))
	for i, l := range c.Lyrics {
		line := ggrenderer.Line{Text: l.Text, Start: l.Start, End: l.End}
		for _, s := range l.Syllables {
			line.Syllables = append(line.Syllables, ggrenderer.Syllable{Text: s.Text, Start: s.Start, End: s.End})
		}
		lines[i] = line
	}
	return lines
}

// LyricStyle returns the renderer style for the theme.
func (c Config) LyricStyle() ggrenderer.LyricStyle {
	style := ggrenderer.DefaultLyricStyle()
	style.FontPath = c.Theme.FontPath
	if c.Theme.FontSize > 0 {
		style.FontSize = c.Theme.FontSize
	}
	if c.Theme.LyricPosition > 0 && c.Theme.LyricPosition < 1 {
		style.Position = c.Theme.LyricPosition
	}
	style.Base = ParseColor(c.Theme.TextColor)
	style.Highlight = ParseColor(c.Theme.HighlightColor)
	style.Outline = ParseColor(c.Theme.OutlineColor)
	style.Upcoming = ParseColor(c.Theme.UpcomingColor)
	return style
}

// CaptureSettings returns capture settings matching the export size and rate.
func (c Config) CaptureSettings() capture.Settings {
	s := capture.DefaultSettings()
	s.Width = c.Export.Width
	s.Height = c.Export.Height
	s.FPS = c.Export.FPS
	s.Quality = c.Capture.Quality
	s.UseThreading = c.Capture.Threaded
	s.BufferSize = c.Capture.BufferSize
	s.FlipVertically = c.Capture.FlipVertically
	s.AudioSync = capture.AudioSync{Enabled: c.Audio.Sync, OffsetSeconds: c.Audio.OffsetSeconds}
	s.ClearColor = color.NRGBAModel.Convert(ParseColor(c.Capture.ClearColor)).(color.NRGBA)
	return s
}

// ExportSettings returns the encoder settings with the output path applied.
func (c Config) ExportSettings() ffmpeg.ExportSettings {
	s := c.Export.Clone()
	if c.OutputPath != "" {
		s.OutputPath = c.OutputPath
	}
	return s
}

// ToOrchestratorConfig converts Config to orchestrator.Config.
func (c Config) ToOrchestratorConfig() orchestrator.Config {
	return orchestrator.Config{
		Export:     c.ExportSettings(),
		Capture:    c.CaptureSettings(),
		Duration:   c.SongDuration(),
		AudioPath:  c.Audio.Path,
		Overwrite:  c.Overwrite,
		Verify:     c.Verify,
		MaxRetries: c.MaxRetries,
		RetryDelay: time.Duration(c.RetryDelayMs) * time.Millisecond,
	}
}

// Timeouts returns the encoder terminate, kill and join timeouts.
func (c Config) Timeouts() (terminate, kill, join time.Duration) {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	return ms(c.Encoder.TerminateTimeoutMs), ms(c.Encoder.KillTimeoutMs), ms(c.Encoder.JoinTimeoutMs)
}
