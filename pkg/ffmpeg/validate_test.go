package ffmpeg

import (
	"errors"
	"strings"
	"testing"
)

func fullCaps() Capabilities {
	return Capabilities{
		Available: true,
		Version:   "6.1",
		Encoders:  append(append([]string{}, VideoCodecs...), AudioCodecs...),
		Formats:   []string{"mp4", "matroska", "webm", "avi"},
		Filters:   []string{"scale", "fps"},
		HWAccel:   []string{HWAccelNVENC},
	}
}

func hasField(ds []Diagnostic, field string) bool {
	for _, d := range ds {
		if d.Field == field {
			return true
		}
	}
	return false
}

func TestValidate_Defaults(t *testing.T) {
	r := Validate(DefaultExportSettings(), fullCaps())
	if !r.Valid() {
		t.Fatalf("defaults invalid: %+v", r.Errors)
	}
	if len(r.Warnings) != 0 {
		t.Errorf("unexpected warnings: %+v", r.Warnings)
	}
	if r.Err() != nil {
		t.Errorf("Err() = %v", r.Err())
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ExportSettings)
		field  string
	}{
		{"fps zero", func(s *ExportSettings) { s.FPS = 0 }, "fps"},
		{"negative width", func(s *ExportSettings) { s.Width = -1 }, "resolution"},
		{"crf high", func(s *ExportSettings) { s.CRF = IntPtr(60) }, "crf"},
		{"crf negative", func(s *ExportSettings) { s.CRF = IntPtr(-1) }, "crf"},
		{"bad codec", func(s *ExportSettings) { s.VideoCodec = "mpeg2video" }, "video_codec"},
		{"bad audio codec", func(s *ExportSettings) { s.AudioCodec = "flac" }, "audio_codec"},
		{"bad container", func(s *ExportSettings) { s.Container = "flv" }, "container"},
		{"bad hwaccel", func(s *ExportSettings) { s.HWAccel = "cuda9" }, "hwaccel"},
		{"missing hwaccel", func(s *ExportSettings) { s.HWAccel = HWAccelQSV }, "hwaccel"},
		{"negative bitrate", func(s *ExportSettings) { s.Bitrate = -5 }, "bitrate"},
		{"audio bitrate zero", func(s *ExportSettings) { s.AudioBitrate = 0 }, "audio_bitrate"},
		{"negative sample rate", func(s *ExportSettings) { s.AudioSampleRate = -1 }, "audio_sample_rate"},
		{"negative channels", func(s *ExportSettings) { s.AudioChannels = -2 }, "audio_channels"},
		{"threads negative", func(s *ExportSettings) { s.Threads = -2 }, "threads"},
		{"unknown preset", func(s *ExportSettings) { s.Preset = "turbo" }, "preset"},
		{"no output", func(s *ExportSettings) { s.OutputPath = "" }, "output_path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultExportSettings()
			tt.mutate(&s)
			r := Validate(s, fullCaps())
			if r.Valid() {
				t.Fatal("expected errors")
			}
			if !hasField(r.Errors, tt.field) {
				t.Errorf("errors %+v missing field %s", r.Errors, tt.field)
			}
			var cfgErr *ConfigurationError
			if !errors.As(r.Err(), &cfgErr) {
				t.Fatalf("Err() = %T, want *ConfigurationError", r.Err())
			}
			if len(cfgErr.Suggestions()) == 0 {
				t.Error("ConfigurationError without suggestions")
			}
		})
	}
}

func TestValidate_Warnings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ExportSettings)
		field  string
	}{
		{"odd resolution", func(s *ExportSettings) { s.Width = 1921 }, "resolution"},
		{"huge resolution", func(s *ExportSettings) { s.Width, s.Height = 8000, 4500 }, "resolution"},
		{"tiny resolution", func(s *ExportSettings) { s.Width, s.Height = 32, 32 }, "resolution"},
		{"high fps", func(s *ExportSettings) { s.FPS = 144 }, "fps"},
		{"low fps", func(s *ExportSettings) { s.FPS = 0.5 }, "fps"},
		{"low crf", func(s *ExportSettings) { s.CRF = IntPtr(5) }, "crf"},
		{"high crf", func(s *ExportSettings) { s.CRF = IntPtr(40) }, "crf"},
		{"low bitrate", func(s *ExportSettings) { s.CRF = nil; s.Bitrate = 50 }, "bitrate"},
		{"high bitrate", func(s *ExportSettings) { s.CRF = nil; s.Bitrate = 60000 }, "bitrate"},
		{"low audio", func(s *ExportSettings) { s.AudioBitrate = 32 }, "audio_bitrate"},
		{"high audio", func(s *ExportSettings) { s.AudioBitrate = 512 }, "audio_bitrate"},
		{"sample rate", func(s *ExportSettings) { s.AudioSampleRate = 12345 }, "audio_sample_rate"},
		{"channels", func(s *ExportSettings) { s.AudioChannels = 3 }, "audio_channels"},
		{"vp9 in mp4", func(s *ExportSettings) { s.VideoCodec = CodecVP9 }, "container"},
		{"h265 in webm", func(s *ExportSettings) { s.VideoCodec = CodecH265; s.Container = ContainerWebM }, "container"},
		{"crf and bitrate", func(s *ExportSettings) { s.Bitrate = 4000 }, "crf"},
		{"ultrafast low crf", func(s *ExportSettings) { s.Preset = "ultrafast"; s.CRF = IntPtr(15) }, "preset"},
		{"hwaccel slow preset", func(s *ExportSettings) { s.HWAccel = HWAccelNVENC; s.Preset = "veryslow" }, "preset"},
		{"many threads", func(s *ExportSettings) { s.Threads = 64 }, "threads"},
		{"unknown filter", func(s *ExportSettings) { s.Filters = []string{"deband=1"} }, "filters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultExportSettings()
			tt.mutate(&s)
			r := Validate(s, fullCaps())
			if !r.Valid() {
				t.Fatalf("unexpected errors: %+v", r.Errors)
			}
			if !hasField(r.Warnings, tt.field) {
				t.Errorf("warnings %+v missing field %s", r.Warnings, tt.field)
			}
			for _, w := range r.Warnings {
				if w.Suggestion == "" {
					t.Errorf("warning %s without suggestion", w)
				}
			}
		})
	}
}

func TestValidate_ZeroAudioRateAndChannelsKeepInput(t *testing.T) {
	s := DefaultExportSettings()
	s.AudioSampleRate = 0
	s.AudioChannels = 0
	r := Validate(s, fullCaps())
	if !r.Valid() {
		t.Fatalf("unexpected errors: %+v", r.Errors)
	}
	if hasField(r.Warnings, "audio_sample_rate") || hasField(r.Warnings, "audio_channels") {
		t.Errorf("zero rate or channels warned: %+v", r.Warnings)
	}
}

func TestValidate_Unavailable(t *testing.T) {
	r := Validate(DefaultExportSettings(), Capabilities{Error: "not found"})
	if r.Valid() || !hasField(r.Errors, "ffmpeg") {
		t.Errorf("expected ffmpeg error, got %+v", r.Errors)
	}
	if !strings.Contains(r.Err().Error(), "not available") {
		t.Errorf("Err() = %v", r.Err())
	}
}

func TestValidate_EncoderMissingFromBuild(t *testing.T) {
	caps := fullCaps()
	caps.Encoders = []string{CodecH264, AudioAAC}
	s := DefaultExportSettings()
	s.VideoCodec = CodecAV1
	s.Container = ContainerMKV
	r := Validate(s, caps)
	if !hasField(r.Errors, "video_codec") {
		t.Errorf("expected video_codec error, got %+v", r.Errors)
	}
}
