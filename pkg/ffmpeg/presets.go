package ffmpeg

import (
	"fmt"
	"slices"
)

// Quality levels accepted by OptimizedSettings.
const (
	QualityHigh      = "high"
	QualityMedium    = "medium"
	QualityLow       = "low"
	QualityUltrafast = "ultrafast"
	QualityLossless  = "lossless"
)

// QualityLevels lists the quality levels from best to fastest.
var QualityLevels = []string{QualityHigh, QualityMedium, QualityLow, QualityUltrafast, QualityLossless}

// OptimizedSettings returns H.264/AAC settings tuned for a quality level.
// With hwaccel set the preset is adjusted to one the backend handles well.
func OptimizedSettings(outputPath string, width, height int, fps float64, quality, hwaccel string) (ExportSettings, error) {
	s := DefaultExportSettings()
	s.OutputPath = outputPath
	s.Width, s.Height, s.FPS = width, height, fps
	s.HWAccel = hwaccel

	switch quality {
	case QualityHigh:
		s.CRF = IntPtr(18)
		s.Preset = "slow"
		s.AudioBitrate = 192
		s.Tune = "film"
		s.Profile = "high"
	case QualityMedium:
		s.CRF = IntPtr(23)
		s.Preset = "medium"
		s.AudioBitrate = 128
		s.Profile = "main"
	case QualityLow:
		s.CRF = IntPtr(28)
		s.Preset = "fast"
		s.AudioBitrate = 96
		s.Profile = "baseline"
	case QualityUltrafast:
		s.CRF = nil
		s.Bitrate = 2000
		s.Preset = "ultrafast"
		s.AudioBitrate = 128
		s.Profile = "baseline"
	case QualityLossless:
		s.CRF = IntPtr(0)
		s.Preset = "medium"
		s.AudioBitrate = 320
		s.PixelFormat = "yuv444p"
	default:
		return ExportSettings{}, fmt.Errorf("ffmpeg: unknown quality %q", quality)
	}

	switch hwaccel {
	case HWAccelNVENC:
		s.Preset = "fast"
	case HWAccelQSV, HWAccelVAAPI:
		s.Preset = "medium"
	}
	return s, nil
}

// WebSettings returns settings for progressive playback in browsers.
func WebSettings(outputPath string, width, height int, fps float64) ExportSettings {
	s := DefaultExportSettings()
	s.OutputPath = outputPath
	s.Width, s.Height, s.FPS = width, height, fps
	s.Profile = "main"
	s.Level = "3.1"
	s.Metadata = map[string]string{"title": "Web Video"}
	return s
}

// MobileSettings returns settings for older and low-power phones.
func MobileSettings(outputPath string, width, height int, fps float64) ExportSettings {
	s := DefaultExportSettings()
	s.OutputPath = outputPath
	s.Width, s.Height, s.FPS = width, height, fps
	s.CRF = IntPtr(26)
	s.Preset = "fast"
	s.Profile = "baseline"
	s.Level = "3.0"
	s.AudioBitrate = 96
	return s
}

// Resolution is a named output size with its recommended bitrate.
type Resolution struct {
	Name    string
	Width   int
	Height  int
	Bitrate int // kbps
}

// Resolutions lists the named output sizes.
var Resolutions = []Resolution{
	{"480p", 854, 480, 1500},
	{"720p", 1280, 720, 4000},
	{"1080p", 1920, 1080, 8000},
	{"1080p-hq", 1920, 1080, 15000},
	{"4k", 3840, 2160, 25000},
}

// LookupResolution finds a named resolution.
func LookupResolution(name string) (Resolution, bool) {
	i := slices.IndexFunc(Resolutions, func(r Resolution) bool { return r.Name == name })
	if i < 0 {
		return Resolution{}, false
	}
	return Resolutions[i], true
}
