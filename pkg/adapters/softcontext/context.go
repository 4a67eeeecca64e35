// Package softcontext provides CPU render targets for environments
// without a GPU.
package softcontext

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/user/karaexport/pkg/ports"
)

var (
	ErrReleased      = errors.New("softcontext: render target released")
	ErrInvalidSize   = errors.New("softcontext: invalid render target size")
	ErrNotSoftTarget = errors.New("softcontext: target is not a software render target")
)

// Context allocates software render targets.
type Context struct {
	maxSide int
}

// New creates a context. Targets larger than maxSide on either side are
// refused; zero means no limit.
func New(maxSide int) *Context {
	return &Context{maxSide: maxSide}
}

// CreateRenderTarget allocates a transparent width x height target.
func (c *Context) CreateRenderTarget(width, height int) (ports.RenderTarget, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if c.maxSide > 0 && (width > c.maxSide || height > c.maxSide) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d", ErrInvalidSize, width, height, c.maxSide)
	}
	return &Target{img: image.NewRGBA(image.Rect(0, 0, width, height))}, nil
}

// Target is an RGBA framebuffer in host memory. Drawing happens on Image
// in top-down order; ReadPixels hands the rows back bottom-up like a GPU
// readback so callers exercise the same flip path.
type Target struct {
	mu       sync.Mutex
	img      *image.RGBA
	released bool
	binds    int
}

// ImageOf returns the drawable image behind a software target.
func ImageOf(t ports.RenderTarget) (*image.RGBA, error) {
	st, ok := t.(*Target)
	if !ok {
		return nil, ErrNotSoftTarget
	}
	return st.Image()
}

func (t *Target) Size() (int, int) {
	b := t.img.Bounds()
	return b.Dx(), b.Dy()
}

func (t *Target) Bind() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return ErrReleased
	}
	t.binds++
	return nil
}

func (t *Target) Clear(c color.Color) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return ErrReleased
	}
	draw.Draw(t.img, t.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return nil
}

// Image returns the backing image for drawing.
func (t *Target) Image() (*image.RGBA, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return nil, ErrReleased
	}
	return t.img, nil
}

func (t *Target) ReadPixels() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return nil, ErrReleased
	}
	w, h := t.img.Bounds().Dx(), t.img.Bounds().Dy()
	row := w * 4
	out := make([]byte, row*h)
	for y := 0; y < h; y++ {
		src := t.img.Pix[y*t.img.Stride : y*t.img.Stride+row]
		copy(out[(h-1-y)*row:], src)
	}
	return out, nil
}

func (t *Target) Release() {
	t.mu.Lock()
	t.released = true
	t.mu.Unlock()
}

var (
	_ ports.GraphicsContext = (*Context)(nil)
	_ ports.RenderTarget    = (*Target)(nil)
)
