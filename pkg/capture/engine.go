package capture

import (
	"fmt"
	"image"
	"sync"
	"time"

	"golang.org/x/image/draw"

	"github.com/user/karaexport/pkg/metrics"
	"github.com/user/karaexport/pkg/pixfmt"
	"github.com/user/karaexport/pkg/ports"
	"github.com/user/karaexport/pkg/timeline"
)

// Layers are the renderers invoked for every frame, in field order.
// Nil layers are skipped.
type Layers struct {
	Background ports.Renderer
	Overlay    ports.Renderer // lyrics and effects
	Composite  ports.Renderer
}

func (l Layers) ordered() []ports.Renderer {
	var out []ports.Renderer
	for _, r := range []ports.Renderer{l.Background, l.Overlay, l.Composite} {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// Engine renders single frames into a private render target.
// An Engine is owned by one goroutine at a time.
type Engine struct {
	gfx    ports.GraphicsContext
	layers Layers
	logger ports.Logger

	settings Settings
	target   ports.RenderTarget
	window   renderWindow
	statsMu  sync.Mutex
	now      func() time.Time
}

// NewEngine creates an engine drawing layers through gfx.
func NewEngine(gfx ports.GraphicsContext, layers Layers, logger ports.Logger) *Engine {
	return &Engine{
		gfx:    gfx,
		layers: layers,
		logger: logger.WithComponent("capture"),
		now:    time.Now,
	}
}

// Initialize validates settings, allocates the render target and binds the layers.
// Calling it again releases the previous target first.
func (e *Engine) Initialize(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	renderers := e.layers.ordered()
	if len(renderers) == 0 {
		return ErrNoRenderers
	}

	e.Release()
	target, err := e.gfx.CreateRenderTarget(settings.Width, settings.Height)
	if err != nil {
		return fmt.Errorf("create render target: %w", err)
	}
	for _, r := range renderers {
		if err := r.Bind(target); err != nil {
			target.Release()
			return fmt.Errorf("bind renderer: %w", err)
		}
	}

	e.settings = settings
	e.target = target
	e.statsMu.Lock()
	e.window.reset()
	e.statsMu.Unlock()

	e.logger.Debug("Capture engine initialized: %dx%d at %.2f fps, %s", settings.Width, settings.Height, settings.FPS, settings.PixelFormat)
	return nil
}

// Settings returns the settings passed to Initialize.
func (e *Engine) Settings() Settings {
	return e.settings
}

// RenderFrameAt renders the frame for ts and returns it in the configured
// pixel format. Errors wrap ErrCaptureFailed and leave the engine usable.
func (e *Engine) RenderFrameAt(ts timeline.FrameTimestamp) (*CapturedFrame, error) {
	if e.target == nil {
		return nil, ErrNotInitialized
	}
	start := e.now()

	data, err := e.render(ts)
	if err != nil {
		e.logger.Warn("Frame %d capture failed: %v", ts.FrameNumber, err)
		metrics.IncDroppedFrame()
		return nil, fmt.Errorf("%w: frame %d: %v", ErrCaptureFailed, ts.FrameNumber, err)
	}

	elapsed := e.now().Sub(start)
	e.statsMu.Lock()
	e.window.add(elapsed)
	e.statsMu.Unlock()
	metrics.ObserveRender(elapsed)

	return &CapturedFrame{
		FrameNumber:    ts.FrameNumber,
		Timestamp:      ts.Timestamp,
		Width:          e.settings.Width,
		Height:         e.settings.Height,
		PixelFormat:    e.settings.PixelFormat,
		Data:           data,
		CapturedAt:     start,
		RenderDuration: elapsed,
	}, nil
}

func (e *Engine) render(ts timeline.FrameTimestamp) ([]byte, error) {
	s := e.settings
	if err := e.target.Bind(); err != nil {
		return nil, fmt.Errorf("bind target: %w", err)
	}

	for i, r := range e.layers.ordered() {
		if i == 0 {
			if err := r.Clear(s.ClearColor); err != nil {
				return nil, fmt.Errorf("clear: %w", err)
			}
		}
		if err := r.Draw(ts.Timestamp); err != nil {
			return nil, fmt.Errorf("draw layer %d: %w", i, err)
		}
	}

	pixels, err := e.target.ReadPixels()
	if err != nil {
		return nil, fmt.Errorf("read pixels: %w", err)
	}
	if len(pixels) != s.Width*s.Height*4 {
		return nil, fmt.Errorf("%w: readback returned %d bytes", pixfmt.ErrSizeMismatch, len(pixels))
	}

	if s.Quality < 1.0 {
		pixels = reduceDetail(pixels, s.Width, s.Height, s.Quality)
	}
	if s.FlipVertically {
		pixfmt.FlipVertical(pixels, s.Width, s.Height, 4)
	}
	return pixfmt.Convert(pixels, s.Width, s.Height, s.PixelFormat)
}

// reduceDetail resamples the frame down by quality and back up so the
// output keeps its declared size.
func reduceDetail(pixels []byte, width, height int, quality float64) []byte {
	sw := max(1, int(float64(width)*quality))
	sh := max(1, int(float64(height)*quality))
	src := &image.NRGBA{Pix: pixels, Stride: width * 4, Rect: image.Rect(0, 0, width, height)}

	small := image.NewNRGBA(image.Rect(0, 0, sw, sh))
	draw.CatmullRom.Scale(small, small.Bounds(), src, src.Bounds(), draw.Src, nil)

	full := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(full, full.Bounds(), small, small.Bounds(), draw.Src, nil)
	return full.Pix
}

// Stats returns statistics over the last 100 rendered frames.
func (e *Engine) Stats() RenderStats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.window.stats()
}

// Release frees the render target.
func (e *Engine) Release() {
	if e.target != nil {
		e.target.Release()
		e.target = nil
	}
}
