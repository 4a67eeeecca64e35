package mocks

import (
	"image/color"
	"sync"

	"github.com/user/karaexport/pkg/ports"
)

// GraphicsContext is a mock implementation of ports.GraphicsContext.
type GraphicsContext struct {
	mu sync.Mutex

	CreateRenderTargetFunc func(width, height int) (ports.RenderTarget, error)

	// Targets records every target created.
	Targets []*RenderTarget
}

func (m *GraphicsContext) CreateRenderTarget(width, height int) (ports.RenderTarget, error) {
	if m.CreateRenderTargetFunc != nil {
		return m.CreateRenderTargetFunc(width, height)
	}
	t := NewRenderTarget(width, height)
	m.mu.Lock()
	m.Targets = append(m.Targets, t)
	m.mu.Unlock()
	return t, nil
}

// RenderTarget is an in-memory RGBA8 framebuffer.
type RenderTarget struct {
	mu sync.Mutex

	Width, Height int
	Pix           []byte

	ReadPixelsFunc func() ([]byte, error)
	BindFunc       func() error

	BindCount int
	Released  bool
}

// NewRenderTarget creates a transparent target.
func NewRenderTarget(width, height int) *RenderTarget {
	return &RenderTarget{Width: width, Height: height, Pix: make([]byte, width*height*4)}
}

func (m *RenderTarget) Size() (int, int) {
	return m.Width, m.Height
}

func (m *RenderTarget) Bind() error {
	m.mu.Lock()
	m.BindCount++
	m.mu.Unlock()
	if m.BindFunc != nil {
		return m.BindFunc()
	}
	return nil
}

func (m *RenderTarget) Clear(c color.Color) error {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < len(m.Pix); i += 4 {
		m.Pix[i], m.Pix[i+1], m.Pix[i+2], m.Pix[i+3] = n.R, n.G, n.B, n.A
	}
	return nil
}

// SetPixel sets one pixel (row 0 is the first row returned by ReadPixels).
func (m *RenderTarget) SetPixel(x, y int, c color.NRGBA) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := (y*m.Width + x) * 4
	m.Pix[i], m.Pix[i+1], m.Pix[i+2], m.Pix[i+3] = c.R, c.G, c.B, c.A
}

func (m *RenderTarget) ReadPixels() ([]byte, error) {
	if m.ReadPixelsFunc != nil {
		return m.ReadPixelsFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, len(m.Pix))
	copy(out, m.Pix)
	return out, nil
}

func (m *RenderTarget) Release() {
	m.mu.Lock()
	m.Released = true
	m.mu.Unlock()
}

// Renderer is a mock implementation of ports.Renderer.
type Renderer struct {
	mu sync.Mutex

	BindFunc  func(target ports.RenderTarget) error
	ClearFunc func(c color.Color) error
	DrawFunc  func(timestamp float64) error

	target ports.RenderTarget

	// Recorded calls for verification
	BindCalls  int
	ClearCalls []color.Color
	DrawCalls  []float64
}

func (m *Renderer) Bind(target ports.RenderTarget) error {
	m.mu.Lock()
	m.BindCalls++
	m.target = target
	m.mu.Unlock()
	if m.BindFunc != nil {
		return m.BindFunc(target)
	}
	return nil
}

func (m *Renderer) Clear(c color.Color) error {
	m.mu.Lock()
	m.ClearCalls = append(m.ClearCalls, c)
	target := m.target
	m.mu.Unlock()
	if m.ClearFunc != nil {
		return m.ClearFunc(c)
	}
	if target != nil {
		return target.Clear(c)
	}
	return nil
}

func (m *Renderer) Draw(timestamp float64) error {
	m.mu.Lock()
	m.DrawCalls = append(m.DrawCalls, timestamp)
	m.mu.Unlock()
	if m.DrawFunc != nil {
		return m.DrawFunc(timestamp)
	}
	return nil
}

// Draws returns a copy of the recorded draw timestamps.
func (m *Renderer) Draws() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.DrawCalls...)
}

var (
	_ ports.GraphicsContext = (*GraphicsContext)(nil)
	_ ports.RenderTarget    = (*RenderTarget)(nil)
	_ ports.Renderer        = (*Renderer)(nil)
)
