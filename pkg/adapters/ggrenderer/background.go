package ggrenderer

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
)

// Background paints a vertical gradient, or a picture scaled to cover the
// frame when Image is set.
type Background struct {
	surface

	Top    color.Color
	Bottom color.Color
	Image  image.Image

	scaled *image.RGBA
}

// NewBackground creates a gradient background.
func NewBackground(top, bottom color.Color) *Background {
	return &Background{Top: top, Bottom: bottom}
}

// NewImageBackground creates a background from a picture.
func NewImageBackground(img image.Image) *Background {
	return &Background{Top: color.Black, Bottom: color.Black, Image: img}
}

// LoadImageBackground reads a PNG or JPEG file for the background.
func LoadImageBackground(path string) (*Background, error) {
	img, err := gg.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("ggrenderer: load background %s: %w", path, err)
	}
	return NewImageBackground(img), nil
}

func (b *Background) Draw(timestamp float64) error {
	dc, err := b.context()
	if err != nil {
		return err
	}
	w, h := dc.Width(), dc.Height()

	if b.Image != nil {
		if b.scaled == nil || b.scaled.Bounds().Dx() != w || b.scaled.Bounds().Dy() != h {
			b.scaled = image.NewRGBA(image.Rect(0, 0, w, h))
			draw.CatmullRom.Scale(b.scaled, b.scaled.Bounds(), b.Image, b.Image.Bounds(), draw.Src, nil)
		}
		dc.DrawImage(b.scaled, 0, 0)
		return nil
	}

	grad := gg.NewLinearGradient(0, 0, 0, float64(h))
	grad.AddColorStop(0, b.Top)
	grad.AddColorStop(1, b.Bottom)
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, float64(w), float64(h))
	dc.Fill()
	return nil
}
