package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/user/karaexport/pkg/timeline"
)

// FrameSource returns a pull function yielding the frames of tl in frame order.
// A nil frame with ok true marks a frame that failed to render; ok false
// marks the end of the stream, after which Err reports why it ended early.
//
// With Settings.UseThreading the frames are rendered ahead on a goroutine
// into a queue of Settings.BufferSize frames. The queue blocks when full, so
// rendering never runs further ahead than that.
func (s *Session) FrameSource(ctx context.Context, tl timeline.Timeline) (func() (*CapturedFrame, bool), error) {
	if !s.capturing.CompareAndSwap(false, true) {
		return nil, ErrAlreadyCapturing
	}
	s.cancelled.Store(false)
	settings := s.engine.Settings()
	if settings.UseThreading {
		return s.bufferedSource(ctx, tl, settings.BufferSize), nil
	}
	return s.directSource(ctx, tl), nil
}

func (s *Session) finisher() func(error) {
	var once sync.Once
	return func(err error) {
		once.Do(func() {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			s.capturing.Store(false)
			stats := s.Stats()
			s.logger.Debug("Capture finished: %d captured, %d dropped in %v", stats.Captured, stats.Dropped, stats.Elapsed)
		})
	}
}

func (s *Session) directSource(ctx context.Context, tl timeline.Timeline) func() (*CapturedFrame, bool) {
	start := s.begin(tl)
	finish := s.finisher()
	next := 0

	return func() (*CapturedFrame, bool) {
		if next >= tl.Len() {
			finish(nil)
			return nil, false
		}
		if err := s.stopReason(ctx); err != nil {
			finish(err)
			return nil, false
		}
		ts := tl.At(next)
		next++

		frame, err := s.engine.RenderFrameAt(ts)
		if s.record(ts, err == nil, start) {
			finish(fmt.Errorf("%w: limit %d", ErrTooManyDropped, s.maxDropped))
			return nil, false
		}
		if err != nil {
			return nil, true
		}
		return frame, true
	}
}

func (s *Session) bufferedSource(ctx context.Context, tl timeline.Timeline, size int) func() (*CapturedFrame, bool) {
	start := s.begin(tl)
	finish := s.finisher()
	ctx, abort := context.WithCancel(ctx)
	queue := make(chan *CapturedFrame, size)
	done := make(chan struct{})

	s.mu.Lock()
	s.done = done
	s.abort = abort
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer close(queue)
		defer abort()

		for ts := range tl.All() {
			if err := s.stopReason(ctx); err != nil {
				finish(err)
				return
			}
			frame, err := s.engine.RenderFrameAt(ts)
			if s.record(ts, err == nil, start) {
				finish(fmt.Errorf("%w: limit %d", ErrTooManyDropped, s.maxDropped))
				return
			}
			select {
			case queue <- frame:
			case <-ctx.Done():
				finish(s.stopReason(ctx))
				return
			}
		}
		finish(nil)
	}()

	return func() (*CapturedFrame, bool) {
		frame, ok := <-queue
		return frame, ok
	}
}
