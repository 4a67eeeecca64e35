package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/user/karaexport/pkg/capture"
	"github.com/user/karaexport/pkg/pixfmt"
	"github.com/user/karaexport/pkg/ports"
)

// FrameSource yields frames in frame order. A nil frame with ok true is a
// frame that could not be produced; ok false ends the stream.
type FrameSource func() (frame *capture.CapturedFrame, ok bool)

// writerStats is what the writer reports after every flush.
type writerStats struct {
	frames  uint64
	bytes   int64
	skipped int
}

// frameWriter pulls frames, checks them against the raw RGBA8 wire format and
// streams them to the encoder in chunks.
type frameWriter struct {
	w           io.WriteCloser
	width       int
	height      int
	chunkSize   int
	maxFailures int
	logger      ports.Logger
	sink        ports.DebugSink
	debugEvery  uint64
	cancelled   func() bool
	onFlush     func(writerStats)

	buf         []byte
	last        int64
	consecutive int
	stats       writerStats
}

func newFrameWriter(w io.WriteCloser, width, height, chunkSize, maxFailures int, logger ports.Logger) *frameWriter {
	return &frameWriter{
		w:           w,
		width:       width,
		height:      height,
		chunkSize:   chunkSize,
		maxFailures: maxFailures,
		logger:      logger,
		buf:         make([]byte, 0, chunkSize),
		last:        -1,
		cancelled:   func() bool { return false },
		onFlush:     func(writerStats) {},
	}
}

// run streams every frame from source and closes the encoder's input.
// It returns nil when cancelled.
func (fw *frameWriter) run(source FrameSource) error {
	err := fw.loop(source)
	if err == nil {
		err = fw.flush()
	}
	closeErr := fw.w.Close()
	if err == nil && closeErr != nil && !fw.cancelled() {
		err = &StreamingIOError{Op: "close", Err: closeErr}
	}
	return err
}

func (fw *frameWriter) loop(source FrameSource) error {
	for !fw.cancelled() {
		frame, ok := source()
		if !ok {
			return nil
		}
		if fw.cancelled() {
			return nil
		}

		if err := fw.prepare(frame); err != nil {
			fw.consecutive++
			fw.stats.skipped++
			fw.logger.Warn("Skipping frame: %v", err)
			if fw.maxFailures > 0 && fw.consecutive >= fw.maxFailures {
				return fmt.Errorf("%w: %d in a row, last: %w", ErrTooManyFrameFailures, fw.consecutive, err)
			}
			continue
		}
		fw.consecutive = 0
		fw.last = int64(frame.FrameNumber)
		fw.saveDebugFrame(frame)

		if err := fw.append(frame.Data); err != nil {
			return err
		}
		fw.stats.frames++
	}
	return nil
}

func (fw *frameWriter) prepare(frame *capture.CapturedFrame) error {
	switch {
	case frame == nil:
		return ErrFrameMissing
	case frame.PixelFormat != pixfmt.RGBA8:
		return fmt.Errorf("%w: frame %d is %s", ErrFrameFormat, frame.FrameNumber, frame.PixelFormat)
	case frame.Width != fw.width || frame.Height != fw.height:
		return fmt.Errorf("%w: frame %d is %dx%d, want %dx%d", ErrFrameSize, frame.FrameNumber, frame.Width, frame.Height, fw.width, fw.height)
	case len(frame.Data) != pixfmt.ExpectedSize(fw.width, fw.height, pixfmt.RGBA8):
		return fmt.Errorf("%w: frame %d has %d bytes", ErrFrameSize, frame.FrameNumber, len(frame.Data))
	case int64(frame.FrameNumber) <= fw.last:
		return fmt.Errorf("%w: frame %d after %d", ErrFrameOrder, frame.FrameNumber, fw.last)
	}
	return nil
}

func (fw *frameWriter) append(data []byte) error {
	// Frames at least a chunk long skip the accumulation buffer.
	if len(fw.buf) == 0 && len(data) >= fw.chunkSize {
		return fw.write(data)
	}
	fw.buf = append(fw.buf, data...)
	if len(fw.buf) >= fw.chunkSize {
		return fw.flush()
	}
	return nil
}

func (fw *frameWriter) flush() error {
	if len(fw.buf) == 0 {
		return nil
	}
	err := fw.write(fw.buf)
	fw.buf = fw.buf[:0]
	return err
}

func (fw *frameWriter) write(p []byte) error {
	n, err := fw.w.Write(p)
	fw.stats.bytes += int64(n)
	fw.onFlush(fw.stats)
	if err != nil {
		if fw.cancelled() {
			return nil
		}
		return &StreamingIOError{Op: "write", Err: err}
	}
	return nil
}

func (fw *frameWriter) saveDebugFrame(frame *capture.CapturedFrame) {
	if fw.sink == nil || !fw.sink.Enabled() || fw.debugEvery == 0 || frame.FrameNumber%fw.debugEvery != 0 {
		return
	}
	img, err := pixfmt.ToImage(frame.Data, frame.Width, frame.Height)
	if err == nil {
		err = fw.sink.SaveFrame(frame.FrameNumber, img)
	}
	if err != nil && !errors.Is(err, pixfmt.ErrEmptyInput) {
		fw.logger.Debug("Failed to save debug frame %d: %v", frame.FrameNumber, err)
	}
}
