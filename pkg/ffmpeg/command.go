package ffmpeg

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// BuildArgs returns the ffmpeg arguments (binary excluded) for encoding raw
// RGBA frames from stdin into s.OutputPath. Audio is muxed only when
// audioPath is set and audioExists is true; otherwise the output has no audio.
func BuildArgs(s ExportSettings, audioPath string, audioExists bool) []string {
	args := []string{"-hide_banner", "-y"}

	if s.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(s.Threads))
	}
	if flag, ok := hwaccelFlag[s.HWAccel]; ok {
		args = append(args, "-hwaccel", flag)
	}

	args = append(args,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", s.Width, s.Height),
		"-r", formatFloat(s.FPS),
		"-i", "pipe:0",
	)

	withAudio := audioPath != "" && audioExists && s.AudioCodec != ""
	if withAudio {
		args = append(args, "-i", audioPath)
	}

	args = append(args, "-c:v", s.VideoCodec)
	if s.Bitrate > 0 {
		args = append(args, "-b:v", kbps(s.Bitrate))
		if s.MaxBitrate > 0 {
			args = append(args, "-maxrate", kbps(s.MaxBitrate))
		}
		if s.BufferSize > 0 {
			args = append(args, "-bufsize", kbps(s.BufferSize))
		}
	} else if s.CRF != nil {
		args = append(args, "-crf", strconv.Itoa(*s.CRF))
	}

	if s.Preset != "" {
		args = append(args, "-preset", s.Preset)
	}
	if s.Tune != "" {
		args = append(args, "-tune", s.Tune)
	}
	if s.Profile != "" {
		args = append(args, "-profile:v", s.Profile)
	}
	if s.Level != "" {
		args = append(args, "-level", s.Level)
	}

	pixFmt := s.PixelFormat
	if pixFmt == "" {
		pixFmt = "yuv420p"
	}
	args = append(args, "-pix_fmt", pixFmt)

	if withAudio {
		args = append(args, "-c:a", s.AudioCodec, "-b:a", kbps(s.AudioBitrate))
		// Zero keeps the input's sample rate and channel layout.
		if s.AudioSampleRate > 0 {
			args = append(args, "-ar", strconv.Itoa(s.AudioSampleRate))
		}
		if s.AudioChannels > 0 {
			args = append(args, "-ac", strconv.Itoa(s.AudioChannels))
		}
	} else {
		args = append(args, "-an")
	}

	if len(s.Filters) > 0 {
		args = append(args, "-vf", strings.Join(s.Filters, ","))
	}

	keys := make([]string, 0, len(s.Metadata))
	for k := range s.Metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		args = append(args, "-metadata", k+"="+s.Metadata[k])
	}

	args = append(args,
		"-f", ParseContainer(s.Container),
		"-progress", "pipe:2",
		s.OutputPath,
	)
	return args
}

// CommandLine renders binary and args as a single shell-like string for logs.
func CommandLine(binary string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, a := range append([]string{binary}, args...) {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = strconv.Quote(a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

func kbps(v int) string {
	return strconv.Itoa(v) + "k"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
