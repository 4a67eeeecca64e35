package softcontext

import (
	"errors"
	"image/color"
	"testing"

	"github.com/user/karaexport/pkg/mocks"
)

func TestContext_CreateRenderTarget(t *testing.T) {
	ctx := New(4096)

	target, err := ctx.CreateRenderTarget(8, 4)
	if err != nil {
		t.Fatalf("CreateRenderTarget failed: %v", err)
	}
	w, h := target.Size()
	if w != 8 || h != 4 {
		t.Errorf("Size = %dx%d, want 8x4", w, h)
	}

	if _, err := ctx.CreateRenderTarget(0, 4); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize for zero width, got %v", err)
	}
	if _, err := ctx.CreateRenderTarget(8192, 4); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize above limit, got %v", err)
	}
}

func TestTarget_ReadPixelsBottomUp(t *testing.T) {
	target, _ := New(0).CreateRenderTarget(2, 2)
	img, err := ImageOf(target)
	if err != nil {
		t.Fatalf("ImageOf failed: %v", err)
	}
	red := color.RGBA{R: 255, A: 255}
	img.Set(0, 0, red)

	pix, err := target.ReadPixels()
	if err != nil {
		t.Fatalf("ReadPixels failed: %v", err)
	}
	if len(pix) != 16 {
		t.Fatalf("len = %d, want 16", len(pix))
	}
	// Top-left pixel comes back in the last row.
	if pix[8] != 255 || pix[11] != 255 {
		t.Errorf("last row = %v, want red first pixel", pix[8:12])
	}
	if pix[0] != 0 {
		t.Errorf("first row = %v, want transparent", pix[0:4])
	}
}

func TestTarget_Clear(t *testing.T) {
	target, _ := New(0).CreateRenderTarget(3, 1)
	if err := target.Clear(color.RGBA{R: 10, G: 20, B: 30, A: 255}); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	pix, _ := target.ReadPixels()
	for i := 0; i < len(pix); i += 4 {
		if pix[i] != 10 || pix[i+1] != 20 || pix[i+2] != 30 || pix[i+3] != 255 {
			t.Fatalf("pixel %d = %v", i/4, pix[i:i+4])
		}
	}
}

func TestTarget_Released(t *testing.T) {
	target, _ := New(0).CreateRenderTarget(2, 2)
	target.Release()
	target.Release()

	if err := target.Bind(); !errors.Is(err, ErrReleased) {
		t.Errorf("Bind after release: %v", err)
	}
	if _, err := target.ReadPixels(); !errors.Is(err, ErrReleased) {
		t.Errorf("ReadPixels after release: %v", err)
	}
}

func TestImageOf_ForeignTarget(t *testing.T) {
	if _, err := ImageOf(mocks.NewRenderTarget(2, 2)); !errors.Is(err, ErrNotSoftTarget) {
		t.Errorf("expected ErrNotSoftTarget, got %v", err)
	}
}
