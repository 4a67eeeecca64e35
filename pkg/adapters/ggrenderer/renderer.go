// Package ggrenderer draws the karaoke picture layers with the gg library.
package ggrenderer

import (
	"errors"
	"image"
	"image/color"

	"github.com/fogleman/gg"

	"github.com/user/karaexport/pkg/ports"
)

var (
	ErrUnsupportedTarget = errors.New("ggrenderer: render target has no drawable image")
	ErrNotBound          = errors.New("ggrenderer: renderer is not bound to a target")
)

// imageTarget is a render target backed by host memory.
type imageTarget interface {
	ports.RenderTarget
	Image() (*image.RGBA, error)
}

// surface holds the target a layer draws into.
type surface struct {
	target imageTarget
}

func (s *surface) Bind(target ports.RenderTarget) error {
	it, ok := target.(imageTarget)
	if !ok {
		return ErrUnsupportedTarget
	}
	s.target = it
	return nil
}

func (s *surface) Clear(c color.Color) error {
	if s.target == nil {
		return ErrNotBound
	}
	return s.target.Clear(c)
}

// context wraps the bound image for one draw call.
func (s *surface) context() (*gg.Context, error) {
	if s.target == nil {
		return nil, ErrNotBound
	}
	img, err := s.target.Image()
	if err != nil {
		return nil, err
	}
	return gg.NewContextForRGBA(img), nil
}
