package capture

import (
	"errors"
	"image/color"
	"testing"
	"time"

	"github.com/user/karaexport/pkg/adapters/logger"
	"github.com/user/karaexport/pkg/mocks"
	"github.com/user/karaexport/pkg/pixfmt"
	"github.com/user/karaexport/pkg/ports"
	"github.com/user/karaexport/pkg/timeline"
)

func testSettings(w, h int) Settings {
	s := DefaultSettings()
	s.Width = w
	s.Height = h
	s.FlipVertically = false
	return s
}

func newTestEngine(t *testing.T, layers Layers, settings Settings) (*Engine, *mocks.GraphicsContext) {
	t.Helper()
	gfx := &mocks.GraphicsContext{}
	e := NewEngine(gfx, layers, logger.NewNoop())
	if err := e.Initialize(settings); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return e, gfx
}

func TestEngine_RenderOrder(t *testing.T) {
	var order []string
	bg := &mocks.Renderer{DrawFunc: func(float64) error { order = append(order, "background"); return nil }}
	ov := &mocks.Renderer{DrawFunc: func(float64) error { order = append(order, "overlay"); return nil }}
	co := &mocks.Renderer{DrawFunc: func(float64) error { order = append(order, "composite"); return nil }}

	e, _ := newTestEngine(t, Layers{Background: bg, Overlay: ov, Composite: co}, testSettings(4, 4))
	if _, err := e.RenderFrameAt(timeline.FrameTimestamp{FrameNumber: 0, Timestamp: 0.5}); err != nil {
		t.Fatal(err)
	}

	want := []string{"background", "overlay", "composite"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
	if len(bg.ClearCalls) != 1 || len(ov.ClearCalls) != 0 {
		t.Errorf("clear calls: background %d, overlay %d; want 1, 0", len(bg.ClearCalls), len(ov.ClearCalls))
	}
	if bg.DrawCalls[0] != 0.5 {
		t.Errorf("draw timestamp = %v, want 0.5", bg.DrawCalls[0])
	}
}

func TestEngine_FrameContract(t *testing.T) {
	formats := []pixfmt.Format{pixfmt.RGBA8, pixfmt.RGB8, pixfmt.BGRA8, pixfmt.YUV420P, pixfmt.YUV444P}
	for _, f := range formats {
		s := testSettings(8, 6)
		s.PixelFormat = f
		e, _ := newTestEngine(t, Layers{Background: &mocks.Renderer{}}, s)

		frame, err := e.RenderFrameAt(timeline.FrameTimestamp{FrameNumber: 7, Timestamp: 0.25})
		if err != nil {
			t.Fatalf("%s: %v", f, err)
		}
		if len(frame.Data) != pixfmt.ExpectedSize(8, 6, f) {
			t.Errorf("%s: len(Data) = %d, want %d", f, len(frame.Data), pixfmt.ExpectedSize(8, 6, f))
		}
		if frame.FrameNumber != 7 || frame.Timestamp != 0.25 || frame.PixelFormat != f {
			t.Errorf("%s: frame metadata = %+v", f, frame)
		}
	}
}

func TestEngine_ClearColorAndFlip(t *testing.T) {
	s := testSettings(1, 2)
	s.ClearColor = color.NRGBA{R: 10, G: 20, B: 30, A: 255}
	s.FlipVertically = true

	bg := &mocks.Renderer{}
	var target *mocks.RenderTarget
	bg.DrawFunc = func(float64) error {
		// Row 0 of the readback is the bottom of the picture.
		target.SetPixel(0, 0, color.NRGBA{R: 255, A: 255})
		return nil
	}
	gfx := &mocks.GraphicsContext{}
	e := NewEngine(gfx, Layers{Background: bg}, logger.NewNoop())
	if err := e.Initialize(s); err != nil {
		t.Fatal(err)
	}
	target = gfx.Targets[0]

	frame, err := e.RenderFrameAt(timeline.FrameTimestamp{})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{10, 20, 30, 255, 255, 0, 0, 255}
	if string(frame.Data) != string(want) {
		t.Errorf("Data = %v, want %v", frame.Data, want)
	}
}

func TestEngine_QualityKeepsSize(t *testing.T) {
	s := testSettings(16, 8)
	s.Quality = 0.5
	e, _ := newTestEngine(t, Layers{Background: &mocks.Renderer{}}, s)
	frame, err := e.RenderFrameAt(timeline.FrameTimestamp{})
	if err != nil {
		t.Fatal(err)
	}
	if len(frame.Data) != 16*8*4 {
		t.Errorf("len(Data) = %d, want %d", len(frame.Data), 16*8*4)
	}
	// A solid black clear stays black after resampling.
	if frame.Data[0] != 0 || frame.Data[3] != 255 {
		t.Errorf("pixel 0 = %v", frame.Data[:4])
	}
}

func TestEngine_RenderFailureIsCaptureError(t *testing.T) {
	bg := &mocks.Renderer{DrawFunc: func(float64) error { return errors.New("gpu lost") }}
	e, _ := newTestEngine(t, Layers{Background: bg}, testSettings(4, 4))

	_, err := e.RenderFrameAt(timeline.FrameTimestamp{FrameNumber: 3})
	if !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("err = %v, want ErrCaptureFailed", err)
	}

	// The engine stays usable.
	bg.DrawFunc = nil
	if _, err := e.RenderFrameAt(timeline.FrameTimestamp{FrameNumber: 4}); err != nil {
		t.Errorf("render after failure: %v", err)
	}
}

func TestEngine_ReadbackSizeMismatch(t *testing.T) {
	gfx := &mocks.GraphicsContext{
		CreateRenderTargetFunc: func(w, h int) (ports.RenderTarget, error) {
			t := mocks.NewRenderTarget(w, h)
			t.ReadPixelsFunc = func() ([]byte, error) { return make([]byte, 3), nil }
			return t, nil
		},
	}
	e := NewEngine(gfx, Layers{Background: &mocks.Renderer{}}, logger.NewNoop())
	if err := e.Initialize(testSettings(4, 4)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.RenderFrameAt(timeline.FrameTimestamp{}); !errors.Is(err, ErrCaptureFailed) {
		t.Errorf("err = %v, want ErrCaptureFailed", err)
	}
}

func TestEngine_InitializeErrors(t *testing.T) {
	gfx := &mocks.GraphicsContext{}

	e := NewEngine(gfx, Layers{}, logger.NewNoop())
	if err := e.Initialize(testSettings(4, 4)); !errors.Is(err, ErrNoRenderers) {
		t.Errorf("no layers: err = %v, want ErrNoRenderers", err)
	}

	e = NewEngine(gfx, Layers{Background: &mocks.Renderer{}}, logger.NewNoop())
	bad := testSettings(4, 4)
	bad.FPS = 0
	if err := e.Initialize(bad); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("fps 0: err = %v, want ErrInvalidSettings", err)
	}

	if _, err := e.RenderFrameAt(timeline.FrameTimestamp{}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("render before init: err = %v, want ErrNotInitialized", err)
	}
}

func TestEngine_StatsAndRelease(t *testing.T) {
	e, gfx := newTestEngine(t, Layers{Background: &mocks.Renderer{}}, testSettings(2, 2))

	tick := time.Unix(0, 0)
	step := []time.Duration{0, 10 * time.Millisecond, 0, 30 * time.Millisecond}
	i := 0
	e.now = func() time.Time {
		tick = tick.Add(step[i%len(step)])
		i++
		return tick
	}

	for n := 0; n < 2; n++ {
		if _, err := e.RenderFrameAt(timeline.FrameTimestamp{FrameNumber: uint64(n)}); err != nil {
			t.Fatal(err)
		}
	}
	stats := e.Stats()
	if stats.Samples != 2 {
		t.Errorf("Samples = %d, want 2", stats.Samples)
	}
	if stats.Min != 10*time.Millisecond || stats.Max != 30*time.Millisecond {
		t.Errorf("Min/Max = %v/%v", stats.Min, stats.Max)
	}
	if stats.Average != 20*time.Millisecond || stats.FPS != 50 {
		t.Errorf("Average/FPS = %v/%v", stats.Average, stats.FPS)
	}

	e.Release()
	if !gfx.Targets[0].Released {
		t.Error("target not released")
	}
	e.Release()
}

func TestRenderWindow_Rolls(t *testing.T) {
	var w renderWindow
	for i := 1; i <= statsWindow+50; i++ {
		w.add(time.Duration(i) * time.Millisecond)
	}
	s := w.stats()
	if s.Samples != statsWindow {
		t.Errorf("Samples = %d, want %d", s.Samples, statsWindow)
	}
	if s.Min != 51*time.Millisecond || s.Max != 150*time.Millisecond {
		t.Errorf("Min/Max = %v/%v, want 51ms/150ms", s.Min, s.Max)
	}
}

func TestSettings_Validate(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
	tests := []func(*Settings){
		func(s *Settings) { s.Width = 0 },
		func(s *Settings) { s.FPS = -1 },
		func(s *Settings) { s.Quality = 0.05 },
		func(s *Settings) { s.Quality = 1.5 },
		func(s *Settings) { s.PixelFormat = pixfmt.Format(99) },
		func(s *Settings) { s.PixelFormat = pixfmt.YUV420P; s.Width = 1921 },
		func(s *Settings) { s.UseThreading = true; s.BufferSize = 0 },
	}
	for i, mutate := range tests {
		s := DefaultSettings()
		mutate(&s)
		if err := s.Validate(); !errors.Is(err, ErrInvalidSettings) {
			t.Errorf("case %d: err = %v, want ErrInvalidSettings", i, err)
		}
	}

	s := DefaultSettings()
	s.AudioSync = AudioSync{Enabled: false, OffsetSeconds: 2}
	if s.AudioOffset() != 0 {
		t.Error("disabled audio sync must give zero offset")
	}
}
