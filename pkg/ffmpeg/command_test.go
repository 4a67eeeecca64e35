package ffmpeg

import (
	"strings"
	"testing"
)

func TestBuildArgs_DefaultCRF(t *testing.T) {
	s := DefaultExportSettings()
	s.OutputPath = "/tmp/out.mp4"

	got := strings.Join(BuildArgs(s, "", false), " ")
	want := "-hide_banner -y -f rawvideo -pix_fmt rgba -s 1920x1080 -r 30 -i pipe:0 " +
		"-c:v libx264 -crf 23 -preset medium -pix_fmt yuv420p -an -f mp4 -progress pipe:2 /tmp/out.mp4"
	if got != want {
		t.Errorf("BuildArgs =\n%s\nwant\n%s", got, want)
	}
}

func TestBuildArgs_FullShape(t *testing.T) {
	s := DefaultExportSettings()
	s.OutputPath = "out.mkv"
	s.Width, s.Height, s.FPS = 1280, 720, 29.97
	s.Threads = 4
	s.HWAccel = HWAccelNVENC
	s.Bitrate = 4000
	s.MaxBitrate = 6000
	s.BufferSize = 8000
	s.Tune = "film"
	s.Profile = "high"
	s.Level = "4.1"
	s.Container = "mkv"
	s.Filters = []string{"scale=1280:720", "fps=30"}
	s.Metadata = map[string]string{"title": "Song", "artist": "Singer"}

	got := strings.Join(BuildArgs(s, "/music/song.wav", true), " ")
	want := "-hide_banner -y -threads 4 -hwaccel cuda -f rawvideo -pix_fmt rgba -s 1280x720 -r 29.97 -i pipe:0 " +
		"-i /music/song.wav -c:v libx264 -b:v 4000k -maxrate 6000k -bufsize 8000k -preset medium -tune film " +
		"-profile:v high -level 4.1 -pix_fmt yuv420p -c:a aac -b:a 128k -ar 44100 -ac 2 " +
		"-vf scale=1280:720,fps=30 -metadata artist=Singer -metadata title=Song -f matroska -progress pipe:2 out.mkv"
	if got != want {
		t.Errorf("BuildArgs =\n%s\nwant\n%s", got, want)
	}
}

func TestBuildArgs_AudioMissing(t *testing.T) {
	s := DefaultExportSettings()
	args := BuildArgs(s, "/missing.wav", false)
	joined := strings.Join(args, " ")
	if strings.Contains(joined, "/missing.wav") || strings.Contains(joined, "-c:a") {
		t.Errorf("audio args present for missing file: %s", joined)
	}
	if !strings.Contains(joined, "-an") {
		t.Errorf("expected -an: %s", joined)
	}
}

func TestBuildArgs_AudioKeepsInputRateAndChannels(t *testing.T) {
	s := DefaultExportSettings()
	s.OutputPath = "out.mp4"
	s.AudioSampleRate = 0
	s.AudioChannels = 0

	joined := strings.Join(BuildArgs(s, "/music/song.wav", true), " ")
	if !strings.Contains(joined, "-c:a aac -b:a 128k -f mp4") {
		t.Errorf("audio args = %s", joined)
	}
	if strings.Contains(joined, "-ar ") || strings.Contains(joined, "-ac ") {
		t.Errorf("zero rate or channels emitted: %s", joined)
	}

	s.AudioSampleRate = 48000
	joined = strings.Join(BuildArgs(s, "/music/song.wav", true), " ")
	if !strings.Contains(joined, "-b:a 128k -ar 48000 -f mp4") {
		t.Errorf("sample rate only: %s", joined)
	}
}

func TestBuildArgs_HWAccelMapping(t *testing.T) {
	tests := map[string]string{
		HWAccelNVENC:        "cuda",
		HWAccelQSV:          "qsv",
		HWAccelVAAPI:        "vaapi",
		HWAccelVideoToolbox: "videotoolbox",
	}
	for backend, flag := range tests {
		s := DefaultExportSettings()
		s.HWAccel = backend
		joined := strings.Join(BuildArgs(s, "", false), " ")
		if !strings.Contains(joined, "-hwaccel "+flag) {
			t.Errorf("%s: missing -hwaccel %s in %s", backend, flag, joined)
		}
	}
}

func TestBuildArgs_NoCRFNoBitrate(t *testing.T) {
	s := DefaultExportSettings()
	s.CRF = nil
	joined := strings.Join(BuildArgs(s, "", false), " ")
	if strings.Contains(joined, "-crf") || strings.Contains(joined, "-b:v") {
		t.Errorf("unexpected rate control: %s", joined)
	}
}

func TestCommandLine(t *testing.T) {
	got := CommandLine("ffmpeg", []string{"-i", "my song.wav", "-metadata", "title=A B"})
	want := `ffmpeg -i "my song.wav" -metadata "title=A B"`
	if got != want {
		t.Errorf("CommandLine = %s, want %s", got, want)
	}
}
