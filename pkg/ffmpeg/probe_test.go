package ffmpeg

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/user/karaexport/pkg/mocks"
)

const encodersOut = `Encoders:
 V..... = Video
 A..... = Audio
 ------
 V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC (codec h264)
 V....D h264_nvenc           NVIDIA NVENC H.264 encoder (codec h264)
 V....D libvpx-vp9           libvpx VP9 (codec vp9)
 A....D aac                  AAC (Advanced Audio Coding)
 A....D libopus              libopus Opus (codec opus)
`

const formatsOut = `File formats:
 D. = Demuxing supported
 .E = Muxing supported
 --
 DE matroska,webm   Matroska / WebM
 D  mov,mp4,m4a     QuickTime / MOV
  E mp4             MP4 (MPEG-4 Part 14)
 DE avi             AVI (Audio Video Interleaved)
`

const filtersOut = `Filters:
  T.. = Timeline support
 ... scale             V->V       Scale the input video size and/or convert the image format.
 T.C fps               V->V       Force constant framerate.
 ... anull             A->A       Pass the source unchanged to the output.
`

func probeRunner() *mocks.ProcessRunner {
	return &mocks.ProcessRunner{
		OutputFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			switch strings.Join(args, " ") {
			case "-version":
				return []byte("ffmpeg version 6.1.1-static Copyright (c) 2000-2023\nbuilt with gcc"), nil
			case "-hide_banner -encoders":
				return []byte(encodersOut), nil
			case "-hide_banner -formats":
				return []byte(formatsOut), nil
			case "-hide_banner -filters":
				return []byte(filtersOut), nil
			case "-hide_banner -h encoder=libx265":
				return []byte("Encoder libx265 [libx265 H.265 / HEVC]:\n"), nil
			default:
				return []byte("Codec '" + args[len(args)-1] + "' is not recognized"), nil
			}
		},
	}
}

func TestProbe(t *testing.T) {
	runner := probeRunner()
	caps := Probe(context.Background(), runner, "/usr/bin/ffmpeg")

	if !caps.Available || caps.Version != "6.1.1-static" || caps.Path != "/usr/bin/ffmpeg" {
		t.Fatalf("caps = %+v", caps)
	}
	for _, enc := range []string{CodecH264, CodecVP9, AudioAAC, AudioOpus, CodecH265} {
		if !caps.HasEncoder(enc) {
			t.Errorf("missing encoder %s in %v", enc, caps.Encoders)
		}
	}
	if caps.HasEncoder(CodecAV1) {
		t.Error("libaom-av1 should not be detected")
	}
	for _, f := range []string{"matroska", "webm", "mp4", "avi"} {
		if !caps.HasFormat(f) {
			t.Errorf("missing muxer %s in %v", f, caps.Formats)
		}
	}
	if caps.HasFormat("mov") {
		t.Error("demux-only format listed as muxer")
	}
	if !caps.HasFilter("scale") || !caps.HasFilter("fps") || !caps.HasFilter("anull") {
		t.Errorf("filters = %v", caps.Filters)
	}
	if !slices.Equal(caps.HWAccel, []string{HWAccelNVENC}) {
		t.Errorf("HWAccel = %v", caps.HWAccel)
	}
	for _, call := range runner.OutputCalls {
		if call.Name != "/usr/bin/ffmpeg" {
			t.Errorf("called %s", call.Name)
		}
	}
}

func TestProbe_NotRunnable(t *testing.T) {
	runner := &mocks.ProcessRunner{
		OutputFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return nil, errors.New("exec: not found")
		},
	}
	caps := Probe(context.Background(), runner, "ffmpeg")
	if caps.Available || caps.Error == "" {
		t.Errorf("caps = %+v", caps)
	}
	if len(runner.OutputCalls) != 1 {
		t.Errorf("OutputCalls = %d, want 1", len(runner.OutputCalls))
	}
}

func TestProbe_UnexpectedVersion(t *testing.T) {
	runner := &mocks.ProcessRunner{
		OutputFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return []byte("avconv 12"), nil
		},
	}
	caps := Probe(context.Background(), runner, "ffmpeg")
	if caps.Available {
		t.Error("expected unavailable")
	}
}
