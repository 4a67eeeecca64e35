package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/karaexport/pkg/ports"
	"github.com/user/karaexport/pkg/timeline"
)

const (
	defaultJoinTimeout = 5 * time.Second
	progressLogEvery   = 10
)

// SessionProgress is reported after every frame.
type SessionProgress struct {
	FrameNumber uint64
	Captured    int
	Dropped     int
	Total       int
	Percent     float64
	Elapsed     time.Duration
}

// SessionStats summarizes a capture session.
type SessionStats struct {
	Total        int           `json:"total"`
	Captured     int           `json:"captured"`
	Dropped      int           `json:"dropped"`
	Elapsed      time.Duration `json:"elapsed"`
	EffectiveFPS float64       `json:"effectiveFps"`
	Percent      float64       `json:"percent"`
	AudioOffset  float64       `json:"audioOffset"`
	Render       RenderStats   `json:"render"`
}

// FrameHandler receives each captured frame. Returning an error stops the session.
type FrameHandler func(frame *CapturedFrame) error

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithMaxDroppedFrames sets how many failed frames are tolerated.
// Negative means unlimited.
func WithMaxDroppedFrames(n int) SessionOption {
	return func(s *Session) { s.maxDropped = n }
}

// WithProgress registers a per-frame progress callback.
func WithProgress(fn func(SessionProgress)) SessionOption {
	return func(s *Session) { s.onProgress = fn }
}

// WithJoinTimeout bounds how long Cancel waits for a background capture.
func WithJoinTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.joinTimeout = d }
}

// Session drives an Engine across a timeline.
type Session struct {
	engine      *Engine
	logger      ports.Logger
	maxDropped  int
	onProgress  func(SessionProgress)
	joinTimeout time.Duration

	cancelled atomic.Bool
	capturing atomic.Bool
	done      chan struct{}
	abort     context.CancelFunc

	mu    sync.Mutex
	stats SessionStats
	err   error
}

// NewSession creates a session for an initialized engine.
func NewSession(engine *Engine, logger ports.Logger, opts ...SessionOption) *Session {
	s := &Session{
		engine:      engine,
		logger:      logger.WithComponent("capture"),
		maxDropped:  -1,
		joinTimeout: defaultJoinTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxDroppedFrames returns the drop tolerance, negative meaning unlimited.
func (s *Session) MaxDroppedFrames() int {
	return s.maxDropped
}

// Capture renders every frame of tl in order and passes it to onFrame.
// It blocks until the timeline is exhausted, ctx is done, Cancel is called,
// onFrame fails, or the drop tolerance is exceeded.
func (s *Session) Capture(ctx context.Context, tl timeline.Timeline, onFrame FrameHandler) (SessionStats, error) {
	if !s.capturing.CompareAndSwap(false, true) {
		return SessionStats{}, ErrAlreadyCapturing
	}
	s.cancelled.Store(false)
	defer s.capturing.Store(false)
	return s.run(ctx, tl, onFrame)
}

// CaptureAsync runs Capture on a background goroutine and calls onDone
// with the outcome.
func (s *Session) CaptureAsync(ctx context.Context, tl timeline.Timeline, onFrame FrameHandler, onDone func(SessionStats, error)) error {
	if !s.capturing.CompareAndSwap(false, true) {
		return ErrAlreadyCapturing
	}
	s.cancelled.Store(false)
	done := make(chan struct{})
	s.mu.Lock()
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer s.capturing.Store(false)
		stats, err := s.run(ctx, tl, onFrame)
		if onDone != nil {
			onDone(stats, err)
		}
	}()
	return nil
}

// Cancel asks the session to stop after the current frame and waits for a
// background capture to finish, up to the join timeout. It reports whether
// the capture stopped in time.
func (s *Session) Cancel() bool {
	s.cancelled.Store(true)
	s.mu.Lock()
	done := s.done
	abort := s.abort
	s.mu.Unlock()
	if abort != nil {
		abort()
	}
	if done == nil {
		return true
	}
	select {
	case <-done:
		return true
	case <-time.After(s.joinTimeout):
		s.logger.Warn("Capture did not stop within %v", s.joinTimeout)
		return false
	}
}

// IsCapturing reports whether a capture is in progress.
func (s *Session) IsCapturing() bool {
	return s.capturing.Load()
}

// Stats returns a snapshot of the session statistics.
func (s *Session) Stats() SessionStats {
	s.mu.Lock()
	stats := s.stats
	s.mu.Unlock()
	stats.Render = s.engine.Stats()
	return stats
}

// Err returns the error that ended the last FrameSource, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) begin(tl timeline.Timeline) time.Time {
	start := time.Now()
	s.mu.Lock()
	s.stats = SessionStats{Total: tl.Len(), AudioOffset: tl.AudioOffset()}
	s.err = nil
	s.mu.Unlock()
	s.logger.Debug("Capturing %d frames", tl.Len())
	return start
}

// record updates counters after one frame and reports whether the drop
// tolerance has been exceeded.
func (s *Session) record(ts timeline.FrameTimestamp, ok bool, start time.Time) bool {
	s.mu.Lock()
	if ok {
		s.stats.Captured++
	} else {
		s.stats.Dropped++
	}
	s.stats.Elapsed = time.Since(start)
	done := s.stats.Captured + s.stats.Dropped
	if s.stats.Total > 0 {
		s.stats.Percent = float64(done) / float64(s.stats.Total) * 100
	}
	if secs := s.stats.Elapsed.Seconds(); secs > 0 {
		s.stats.EffectiveFPS = float64(s.stats.Captured) / secs
	}
	progress := SessionProgress{
		FrameNumber: ts.FrameNumber,
		Captured:    s.stats.Captured,
		Dropped:     s.stats.Dropped,
		Total:       s.stats.Total,
		Percent:     s.stats.Percent,
		Elapsed:     s.stats.Elapsed,
	}
	exceeded := s.maxDropped >= 0 && s.stats.Dropped > s.maxDropped
	s.mu.Unlock()

	if done%progressLogEvery == 0 {
		s.logger.Debug("Captured %d/%d frames", done, progress.Total)
	}
	if s.onProgress != nil {
		s.onProgress(progress)
	}
	return exceeded
}

func (s *Session) stopReason(ctx context.Context) error {
	if s.cancelled.Load() {
		return ErrCancelled
	}
	return ctx.Err()
}

func (s *Session) run(ctx context.Context, tl timeline.Timeline, onFrame FrameHandler) (SessionStats, error) {
	start := s.begin(tl)
	var runErr error

	for ts := range tl.All() {
		if err := s.stopReason(ctx); err != nil {
			runErr = err
			break
		}
		frame, err := s.engine.RenderFrameAt(ts)
		if s.record(ts, err == nil, start) {
			runErr = fmt.Errorf("%w: %d dropped, limit %d", ErrTooManyDropped, s.Stats().Dropped, s.maxDropped)
			break
		}
		if err != nil {
			continue
		}
		if onFrame != nil {
			if err := onFrame(frame); err != nil {
				runErr = fmt.Errorf("frame handler: %w", err)
				break
			}
		}
	}

	stats := s.Stats()
	s.mu.Lock()
	s.err = runErr
	s.mu.Unlock()
	if runErr != nil && !errors.Is(runErr, ErrCancelled) {
		s.logger.Debug("Capture stopped: %v", runErr)
	}
	s.logger.Debug("Capture finished: %d captured, %d dropped in %v", stats.Captured, stats.Dropped, stats.Elapsed)
	return stats, runErr
}
