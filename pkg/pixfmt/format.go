// Package pixfmt converts canonical RGBA8 frames into the byte layouts
// accepted by video encoders.
package pixfmt

import (
	"fmt"
	"strings"
)

// Format identifies a pixel layout.
type Format int

const (
	// RGBA8 is the canonical layout: row-major, 4 bytes per pixel.
	RGBA8 Format = iota
	// RGB8 drops the alpha channel.
	RGB8
	// BGRA8 swaps red and blue.
	BGRA8
	// BGR8 swaps red and blue and drops alpha.
	BGR8
	// YUV420P is planar BT.601 with chroma at half resolution in both axes.
	YUV420P
	// YUV444P is planar BT.601 with full resolution chroma.
	YUV444P
)

var formatNames = map[Format]string{
	RGBA8:   "rgba8",
	RGB8:    "rgb8",
	BGRA8:   "bgra8",
	BGR8:    "bgr8",
	YUV420P: "yuv420p",
	YUV444P: "yuv444p",
}

var ffmpegNames = map[Format]string{
	RGBA8:   "rgba",
	RGB8:    "rgb24",
	BGRA8:   "bgra",
	BGR8:    "bgr24",
	YUV420P: "yuv420p",
	YUV444P: "yuv444p",
}

// String returns the canonical lower-case name.
func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// FFmpegName returns the name ffmpeg uses for -pix_fmt.
func (f Format) FFmpegName() string {
	return ffmpegNames[f]
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	if _, ok := formatNames[f]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseFormat accepts either the canonical name or the ffmpeg name.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for f, name := range formatNames {
		if name == s {
			return f, nil
		}
	}
	for f, name := range ffmpegNames {
		if name == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// BytesPerPixel returns the bytes per pixel for packed formats, 0 for planar ones.
func (f Format) BytesPerPixel() int {
	switch f {
	case RGBA8, BGRA8:
		return 4
	case RGB8, BGR8:
		return 3
	default:
		return 0
	}
}

// Planar reports whether the format stores channels in separate planes.
func (f Format) Planar() bool {
	return f == YUV420P || f == YUV444P
}

// ExpectedSize returns the exact byte length of a width x height frame in f.
// It returns 0 for unknown formats or non-positive dimensions.
func ExpectedSize(width, height int, f Format) int {
	if width <= 0 || height <= 0 {
		return 0
	}
	pixels := width * height
	switch f {
	case RGBA8, BGRA8:
		return pixels * 4
	case RGB8, BGR8:
		return pixels * 3
	case YUV444P:
		return pixels * 3
	case YUV420P:
		return pixels + 2*((width/2)*(height/2))
	default:
		return 0
	}
}
