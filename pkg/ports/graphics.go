package ports

import "image/color"

// GraphicsContext allocates off-screen render targets.
type GraphicsContext interface {
	// CreateRenderTarget allocates a width x height RGBA target.
	CreateRenderTarget(width, height int) (RenderTarget, error)
}

// RenderTarget is an off-screen framebuffer.
type RenderTarget interface {
	// Size returns the target dimensions in pixels.
	Size() (width, height int)

	// Bind makes the target current for subsequent draws.
	Bind() error

	// Clear fills the whole target with c.
	Clear(c color.Color) error

	// ReadPixels copies the framebuffer into host memory as RGBA8.
	// Rows are returned bottom-up, the way GPU readback delivers them.
	ReadPixels() ([]byte, error)

	// Release frees the target. It is safe to call more than once.
	Release()
}

// Renderer draws one layer of a frame. The export pipeline treats it as a
// black box that paints the picture for a timestamp into a bound target.
type Renderer interface {
	// Bind attaches the renderer to a target.
	Bind(target RenderTarget) error

	// Clear fills the bound target with c.
	Clear(c color.Color) error

	// Draw paints the layer for the given presentation time in seconds.
	Draw(timestamp float64) error
}
