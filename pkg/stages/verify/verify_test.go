package verify

import (
	"context"
	"errors"
	"testing"

	"github.com/user/karaexport/pkg/adapters/logger"
	"github.com/user/karaexport/pkg/mocks"
	"github.com/user/karaexport/pkg/pipeline"
	"github.com/user/karaexport/pkg/ports"
)

func input() pipeline.VerifyInput {
	return pipeline.VerifyInput{
		Path:           "/out/song.mp4",
		Container:      "mp4",
		Width:          1280,
		Height:         720,
		ExpectedFrames: 300,
		ExpectAudio:    true,
	}
}

func TestStage_Execute(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFile("/out/song.mp4", make([]byte, 2048))
	prober := &mocks.MediaProber{
		ProbeFileFunc: func(path string) (ports.MediaInfo, error) {
			return ports.MediaInfo{Container: "mp4", VideoCodec: "avc1", Width: 1280, Height: 720, VideoFrames: 300, VideoTracks: 1, AudioTracks: 1}, nil
		},
	}
	stage := NewStage(prober, fs, logger.NewNoop())

	result, err := stage.Execute(context.Background(), input())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Probed || result.FileSize != 2048 {
		t.Errorf("unexpected result %+v", result)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", result.Warnings)
	}
	if len(prober.ProbedPaths) != 1 || prober.ProbedPaths[0] != "/out/song.mp4" {
		t.Errorf("unexpected probed paths %v", prober.ProbedPaths)
	}
}

func TestStage_Execute_Mismatches(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFile("/out/song.mp4", []byte("data"))
	prober := &mocks.MediaProber{
		ProbeFileFunc: func(path string) (ports.MediaInfo, error) {
			return ports.MediaInfo{Width: 640, Height: 360, VideoFrames: 280, VideoTracks: 1}, nil
		},
	}
	stage := NewStage(prober, fs, logger.NewNoop())

	result, err := stage.Execute(context.Background(), input())
	if err != nil {
		t.Fatalf("mismatches should only warn: %v", err)
	}
	if len(result.Warnings) != 3 {
		t.Errorf("expected 3 warnings, got %v", result.Warnings)
	}
}

func TestStage_Execute_FrameCountTolerance(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFile("/out/song.mp4", []byte("data"))
	prober := &mocks.MediaProber{
		ProbeFileFunc: func(path string) (ports.MediaInfo, error) {
			return ports.MediaInfo{Width: 1280, Height: 720, VideoFrames: 301, AudioTracks: 1}, nil
		},
	}
	result, err := NewStage(prober, fs, logger.NewNoop()).Execute(context.Background(), input())
	if err != nil || len(result.Warnings) != 0 {
		t.Errorf("off-by-one frame count should pass, got %v %v", err, result.Warnings)
	}
}

func TestStage_Execute_MissingOrEmpty(t *testing.T) {
	fs := mocks.NewFileSystem()
	stage := NewStage(&mocks.MediaProber{}, fs, logger.NewNoop())

	if _, err := stage.Execute(context.Background(), input()); !errors.Is(err, ErrMissingOutput) {
		t.Errorf("expected ErrMissingOutput, got %v", err)
	}

	fs.WriteFile("/out/song.mp4", nil)
	if _, err := stage.Execute(context.Background(), input()); !errors.Is(err, ErrEmptyOutput) {
		t.Errorf("expected ErrEmptyOutput, got %v", err)
	}
}

func TestStage_Execute_UnsupportedContainer(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFile("/out/song.webm", []byte("data"))
	prober := &mocks.MediaProber{SupportsFunc: func(c string) bool { return c == "mp4" }}
	stage := NewStage(prober, fs, logger.NewNoop())

	in := input()
	in.Path = "/out/song.webm"
	in.Container = "webm"
	result, err := stage.Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Probed || len(prober.ProbedPaths) != 0 {
		t.Error("unsupported container should not be probed")
	}
}

func TestStage_Execute_ProbeError(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFile("/out/song.mp4", []byte("data"))
	prober := &mocks.MediaProber{
		ProbeFileFunc: func(string) (ports.MediaInfo, error) { return ports.MediaInfo{}, errors.New("decode mp4: bad box") },
	}
	if _, err := NewStage(prober, fs, logger.NewNoop()).Execute(context.Background(), input()); err == nil {
		t.Error("expected probe error")
	}
}

func TestStage_Execute_NoProber(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFile("/out/song.mp4", []byte("data"))
	result, err := NewStage(nil, fs, logger.NewNoop()).Execute(context.Background(), input())
	if err != nil || result.Probed || result.FileSize != 4 {
		t.Errorf("unexpected result %+v, %v", result, err)
	}
}
