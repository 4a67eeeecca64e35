// Package timeline generates frame-accurate presentation timestamps for an
// export and shifts them to line up with an audio track.
package timeline

import (
	"errors"
	"fmt"
	"iter"
	"math"
)

var (
	// ErrInvalidDuration is returned when the duration is not positive.
	ErrInvalidDuration = errors.New("timeline: duration must be positive")
	// ErrInvalidFPS is returned when the frame rate is not positive.
	ErrInvalidFPS = errors.New("timeline: fps must be positive")
)

// epsilon absorbs float error such as 2.0*29.97 landing a hair under an integer.
const epsilon = 1e-9

// FrameTimestamp identifies a single frame on the output timeline.
type FrameTimestamp struct {
	FrameNumber   uint64  `json:"frameNumber"`
	Timestamp     float64 `json:"timestamp"`     // seconds
	FrameDuration float64 `json:"frameDuration"` // seconds, always 1/FPS
	FPS           float64 `json:"fps"`
}

// Next returns the timestamp of the following frame.
func (t FrameTimestamp) Next() FrameTimestamp {
	return FrameTimestamp{
		FrameNumber:   t.FrameNumber + 1,
		Timestamp:     t.Timestamp + t.FrameDuration,
		FrameDuration: t.FrameDuration,
		FPS:           t.FPS,
	}
}

// Previous returns the timestamp of the preceding frame. Frame zero returns itself.
func (t FrameTimestamp) Previous() FrameTimestamp {
	if t.FrameNumber == 0 {
		return t
	}
	ts := t.Timestamp - t.FrameDuration
	if ts < 0 {
		ts = 0
	}
	return FrameTimestamp{
		FrameNumber:   t.FrameNumber - 1,
		Timestamp:     ts,
		FrameDuration: t.FrameDuration,
		FPS:           t.FPS,
	}
}

// Timeline is an immutable, ordered list of frame timestamps.
// It can be iterated any number of times.
type Timeline struct {
	frames   []FrameTimestamp
	duration float64
	fps      float64
	offset   float64
}

// FrameCount returns floor(duration*fps), the number of frames that fit
// strictly before duration.
func FrameCount(duration, fps float64) int {
	if duration <= 0 || fps <= 0 {
		return 0
	}
	return int(math.Floor(duration*fps + epsilon))
}

// Generate builds the timeline for a clip of the given duration.
// Timestamps are startOffset + n/fps, computed by multiplication so error
// never accumulates across long clips.
func Generate(duration, fps, startOffset float64) (Timeline, error) {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return Timeline{}, fmt.Errorf("%w: %v", ErrInvalidDuration, duration)
	}
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return Timeline{}, fmt.Errorf("%w: %v", ErrInvalidFPS, fps)
	}

	count := FrameCount(duration, fps)
	frameDuration := 1.0 / fps
	frames := make([]FrameTimestamp, count)
	for i := range frames {
		frames[i] = FrameTimestamp{
			FrameNumber:   uint64(i),
			Timestamp:     startOffset + float64(i)/fps,
			FrameDuration: frameDuration,
			FPS:           fps,
		}
	}

	return Timeline{frames: frames, duration: duration, fps: fps}, nil
}

// WithAudioSync returns a copy shifted by offset seconds.
// Timestamps that would become negative are clamped to zero; the frame
// count and frame numbers never change.
func (tl Timeline) WithAudioSync(offset float64) Timeline {
	if offset == 0 {
		return tl
	}
	frames := make([]FrameTimestamp, len(tl.frames))
	for i, f := range tl.frames {
		f.Timestamp += offset
		if f.Timestamp < 0 {
			f.Timestamp = 0
		}
		frames[i] = f
	}
	return Timeline{frames: frames, duration: tl.duration, fps: tl.fps, offset: tl.offset + offset}
}

// Len returns the number of frames.
func (tl Timeline) Len() int { return len(tl.frames) }

// At returns the i-th frame timestamp.
func (tl Timeline) At(i int) FrameTimestamp { return tl.frames[i] }

// Duration returns the clip duration the timeline was generated for.
func (tl Timeline) Duration() float64 { return tl.duration }

// FPS returns the frame rate.
func (tl Timeline) FPS() float64 { return tl.fps }

// AudioOffset returns the accumulated audio sync offset in seconds.
func (tl Timeline) AudioOffset() float64 { return tl.offset }

// All yields every frame in order.
func (tl Timeline) All() iter.Seq[FrameTimestamp] {
	return func(yield func(FrameTimestamp) bool) {
		for _, f := range tl.frames {
			if !yield(f) {
				return
			}
		}
	}
}
