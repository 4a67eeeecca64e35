package karaexport

import (
	"testing"

	"github.com/user/karaexport/pkg/ffmpeg"
)

func TestConfigBuilder_Defaults(t *testing.T) {
	cfg := NewConfigBuilder().Build()
	if cfg.Width != 1920 || cfg.Height != 1080 || cfg.FPS != 30 {
		t.Errorf("size = %dx%d@%v", cfg.Width, cfg.Height, cfg.FPS)
	}
	if cfg.Quality != QualityMedium {
		t.Errorf("Quality = %s, want medium", cfg.Quality)
	}

	s, err := cfg.ExportSettings("song.mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.CRF == nil || *s.CRF != 23 || s.Preset != "medium" {
		t.Errorf("settings = crf %v preset %s", s.CRF, s.Preset)
	}
}

func TestConfigBuilder_Constraints(t *testing.T) {
	cfg := NewConfigBuilder().
		WithSize(1281, 721).
		WithFPS(0).
		WithRenderQuality(3).
		WithMaxRetries(-1).
		Build()

	if cfg.Width != 1280 || cfg.Height != 720 {
		t.Errorf("size = %dx%d, want 1280x720", cfg.Width, cfg.Height)
	}
	if cfg.FPS != 30 {
		t.Errorf("FPS = %v, want 30", cfg.FPS)
	}
	if cfg.RenderQuality != 1 {
		t.Errorf("RenderQuality = %v, want 1", cfg.RenderQuality)
	}
	if cfg.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", cfg.MaxRetries)
	}
}

func TestConfigBuilder_QualityPresets(t *testing.T) {
	tests := []struct {
		preset     QualityPreset
		crf        *int
		wantPreset string
	}{
		{QualityHigh, ffmpeg.IntPtr(18), "slow"},
		{QualityLow, ffmpeg.IntPtr(28), "fast"},
		{QualityLossless, ffmpeg.IntPtr(0), "medium"},
		{QualityUltrafast, nil, "ultrafast"},
	}
	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			s, err := NewConfigBuilder().WithQualityPreset(tt.preset).Build().ExportSettings("out.mp4")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (s.CRF == nil) != (tt.crf == nil) || (s.CRF != nil && *s.CRF != *tt.crf) {
				t.Errorf("CRF = %v, want %v", s.CRF, tt.crf)
			}
			if s.Preset != tt.wantPreset {
				t.Errorf("Preset = %s, want %s", s.Preset, tt.wantPreset)
			}
		})
	}

	if _, err := NewConfigBuilder().WithQualityPreset("best").Build().ExportSettings("out.mp4"); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestConfigBuilder_HWAccelAdjustsPreset(t *testing.T) {
	s, err := NewConfigBuilder().WithQualityPreset(QualityHigh).WithHWAccel(ffmpeg.HWAccelNVENC).Build().ExportSettings("out.mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Preset != "fast" || s.HWAccel != ffmpeg.HWAccelNVENC {
		t.Errorf("preset = %s hwaccel = %s", s.Preset, s.HWAccel)
	}
}

func TestConfigBuilder_Targets(t *testing.T) {
	web, err := NewWebConfigBuilder().Build().ExportSettings("web.mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if web.Profile != "main" || web.Level != "3.1" {
		t.Errorf("web = profile %s level %s", web.Profile, web.Level)
	}

	mobileCfg := NewMobileConfigBuilder().Build()
	if mobileCfg.Width != 1280 || mobileCfg.Height != 720 {
		t.Errorf("mobile size = %dx%d", mobileCfg.Width, mobileCfg.Height)
	}
	mobile, err := mobileCfg.ExportSettings("mobile.mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mobile.Profile != "baseline" || mobile.AudioBitrate != 96 {
		t.Errorf("mobile = profile %s audio %d", mobile.Profile, mobile.AudioBitrate)
	}

	if _, err := NewConfigBuilder().WithTarget("tv").Build().ExportSettings("x.mp4"); err == nil {
		t.Error("expected error for unknown target")
	}
}

func TestConfigBuilder_WithResolution(t *testing.T) {
	b, err := NewConfigBuilder().WithResolution("4k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := b.Build()
	if cfg.Width != 3840 || cfg.Height != 2160 || cfg.Bitrate != 25000 {
		t.Errorf("4k = %dx%d %dk", cfg.Width, cfg.Height, cfg.Bitrate)
	}

	s, err := cfg.ExportSettings("out.mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Bitrate != 25000 || s.CRF != nil {
		t.Errorf("bitrate = %d crf = %v, want 25000 and no CRF", s.Bitrate, s.CRF)
	}

	if _, err := NewConfigBuilder().WithResolution("8k"); err == nil {
		t.Error("expected error for unknown resolution")
	}
}

func TestConfig_ToOrchestratorConfig(t *testing.T) {
	cfg := NewConfigBuilder().
		WithSize(640, 360).
		WithFPS(24).
		WithAudioOffset(-0.2).
		WithThreading(true).
		WithOverwrite(true).
		Build()

	oc, err := cfg.ToOrchestratorConfig("song.mp4", "song.wav", 180)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if oc.Export.OutputPath != "song.mp4" || oc.AudioPath != "song.wav" || oc.Duration != 180 {
		t.Errorf("config = %+v", oc)
	}
	if oc.Capture.Width != 640 || oc.Capture.Height != 360 || oc.Capture.FPS != 24 {
		t.Errorf("capture = %dx%d@%v", oc.Capture.Width, oc.Capture.Height, oc.Capture.FPS)
	}
	if oc.Capture.AudioOffset() != -0.2 {
		t.Errorf("AudioOffset = %v", oc.Capture.AudioOffset())
	}
	if !oc.Capture.UseThreading || !oc.Overwrite || !oc.Verify {
		t.Errorf("flags not applied: %+v", oc)
	}
}
