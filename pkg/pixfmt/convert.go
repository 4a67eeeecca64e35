package pixfmt

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
)

var (
	// ErrEmptyInput is returned for nil or zero-length source buffers.
	ErrEmptyInput = errors.New("pixfmt: empty input")
	// ErrSizeMismatch is returned when the source length is not width*height*4.
	ErrSizeMismatch = errors.New("pixfmt: buffer size does not match dimensions")
	// ErrInvalidDimensions is returned for non-positive width or height.
	ErrInvalidDimensions = errors.New("pixfmt: invalid dimensions")
	// ErrUnsupportedFormat is returned for unknown target formats.
	ErrUnsupportedFormat = errors.New("pixfmt: unsupported format")
	// ErrOddDimensions is returned when YUV420P is requested for odd width or height.
	ErrOddDimensions = errors.New("pixfmt: yuv420p requires even width and height")
)

// Convert transforms an RGBA8 buffer into f. The result is always a fresh
// buffer of exactly ExpectedSize(width, height, f) bytes, including for RGBA8.
func Convert(src []byte, width, height int, f Format) ([]byte, error) {
	if err := checkSource(src, width, height); err != nil {
		return nil, err
	}
	switch f {
	case RGBA8:
		out := make([]byte, len(src))
		copy(out, src)
		return out, nil
	case RGB8:
		return packed3(src, false), nil
	case BGR8:
		return packed3(src, true), nil
	case BGRA8:
		return ToBGRA(src, width, height)
	case YUV444P:
		return ToYUV444P(src, width, height)
	case YUV420P:
		return ToYUV420P(src, width, height)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
}

func checkSource(src []byte, width, height int) error {
	if len(src) == 0 {
		return ErrEmptyInput
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if want := width * height * 4; len(src) != want {
		return fmt.Errorf("%w: got %d bytes, want %d for %dx%d rgba", ErrSizeMismatch, len(src), want, width, height)
	}
	return nil
}

func packed3(src []byte, swap bool) []byte {
	out := make([]byte, len(src)/4*3)
	for i, o := 0, 0; i < len(src); i, o = i+4, o+3 {
		r, g, b := src[i], src[i+1], src[i+2]
		if swap {
			r, b = b, r
		}
		out[o], out[o+1], out[o+2] = r, g, b
	}
	return out
}

// ToRGB drops the alpha channel.
func ToRGB(src []byte, width, height int) ([]byte, error) {
	if err := checkSource(src, width, height); err != nil {
		return nil, err
	}
	return packed3(src, false), nil
}

// ToBGRA swaps the red and blue channels.
func ToBGRA(src []byte, width, height int) ([]byte, error) {
	if err := checkSource(src, width, height); err != nil {
		return nil, err
	}
	out := make([]byte, len(src))
	for i := 0; i < len(src); i += 4 {
		out[i] = src[i+2]
		out[i+1] = src[i+1]
		out[i+2] = src[i]
		out[i+3] = src[i+3]
	}
	return out, nil
}

// BT.601 full-range coefficients on channels normalized to [0,1].
func lumaOf(r, g, b float64) float64 {
	return 0.299*r + 0.587*g + 0.114*b
}

func chromaU(r, g, b float64) float64 {
	return -0.147*r - 0.289*g + 0.436*b + 0.5
}

func chromaV(r, g, b float64) float64 {
	return 0.615*r - 0.515*g - 0.100*b + 0.5
}

// toByte scales a [0,1] value to [0,255], rounding half up and clamping.
func toByte(v float64) byte {
	s := v*255 + 0.5
	if s <= 0 {
		return 0
	}
	if s >= 255 {
		return 255
	}
	return byte(s)
}

func normalized(src []byte, i int) (float64, float64, float64) {
	return float64(src[i]) / 255, float64(src[i+1]) / 255, float64(src[i+2]) / 255
}

// ToYUV444P converts to planar Y, U, V with full resolution chroma.
func ToYUV444P(src []byte, width, height int) ([]byte, error) {
	if err := checkSource(src, width, height); err != nil {
		return nil, err
	}
	n := width * height
	out := make([]byte, n*3)
	yPlane, uPlane, vPlane := out[:n], out[n:2*n], out[2*n:]
	for p := 0; p < n; p++ {
		r, g, b := normalized(src, p*4)
		yPlane[p] = toByte(lumaOf(r, g, b))
		uPlane[p] = toByte(chromaU(r, g, b))
		vPlane[p] = toByte(chromaV(r, g, b))
	}
	return out, nil
}

// ToYUV420P converts to planar Y, U, V with chroma taken from the top-left
// pixel of every 2x2 block. Odd dimensions are rejected.
func ToYUV420P(src []byte, width, height int) ([]byte, error) {
	if err := checkSource(src, width, height); err != nil {
		return nil, err
	}
	if width%2 != 0 || height%2 != 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrOddDimensions, width, height)
	}

	n := width * height
	cw, ch := width/2, height/2
	out := make([]byte, n+2*cw*ch)
	yPlane := out[:n]
	uPlane := out[n : n+cw*ch]
	vPlane := out[n+cw*ch:]

	for p := 0; p < n; p++ {
		r, g, b := normalized(src, p*4)
		yPlane[p] = toByte(lumaOf(r, g, b))
	}
	for cy := 0; cy < ch; cy++ {
		for cx := 0; cx < cw; cx++ {
			i := ((cy*2)*width + cx*2) * 4
			r, g, b := normalized(src, i)
			uPlane[cy*cw+cx] = toByte(chromaU(r, g, b))
			vPlane[cy*cw+cx] = toByte(chromaV(r, g, b))
		}
	}
	return out, nil
}

// FlipVertical reverses row order in place for a packed buffer.
func FlipVertical(buf []byte, width, height, bytesPerPixel int) {
	stride := width * bytesPerPixel
	if stride <= 0 || len(buf) < stride*height {
		return
	}
	tmp := make([]byte, stride)
	for top, bottom := 0, height-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := buf[top*stride : (top+1)*stride]
		b := buf[bottom*stride : (bottom+1)*stride]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
}

// FromImage returns the tightly packed non-premultiplied RGBA8 bytes of img.
func FromImage(img image.Image) []byte {
	b := img.Bounds()
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Stride == b.Dx()*4 && b.Min == (image.Point{}) {
		out := make([]byte, len(nrgba.Pix))
		copy(out, nrgba.Pix)
		return out
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst.Pix
}

// ToImage wraps an RGBA8 buffer as an image without copying.
func ToImage(src []byte, width, height int) (*image.NRGBA, error) {
	if err := checkSource(src, width, height); err != nil {
		return nil, err
	}
	return &image.NRGBA{Pix: src, Stride: width * 4, Rect: image.Rect(0, 0, width, height)}, nil
}
