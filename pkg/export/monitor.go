package export

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/user/karaexport/pkg/ffmpeg"
	"github.com/user/karaexport/pkg/ports"
)

const (
	maxLogLines    = 500
	maxScanLine    = 1024 * 1024
	scanBufferSize = 64 * 1024
)

// exitCoder is implemented by *exec.ExitError and the test fakes.
type exitCoder interface {
	ExitCode() int
}

// progressMonitor reads the encoder's stderr, feeding -progress lines to the
// parser and relaying everything else to the logger by level.
type progressMonitor struct {
	parser     *ffmpeg.ProgressParser
	logger     ports.Logger
	onProgress func(ffmpeg.Progress)

	lines    []string
	warnings []string
	errLines []string
}

func newProgressMonitor(totalFrames int64, logger ports.Logger, onProgress func(ffmpeg.Progress)) *progressMonitor {
	return &progressMonitor{
		parser:     ffmpeg.NewProgressParser(totalFrames),
		logger:     logger,
		onProgress: onProgress,
	}
}

// read consumes r until EOF or a read error.
func (m *progressMonitor) read(r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, scanBufferSize), maxScanLine)
	for sc.Scan() {
		m.handle(sc.Text())
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		m.logger.Debug("Encoder stderr read stopped: %v", err)
	}
}

func (m *progressMonitor) handle(raw string) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return
	}
	if ffmpeg.IsProgressLine(line) {
		m.parser.ParseLine(line)
		// Each -progress block ends with a progress= line.
		if strings.HasPrefix(line, "progress=") {
			m.onProgress(m.parser.Progress())
		}
		return
	}

	m.keep(line)
	level, msg := ffmpeg.ParseLogLevel(line)
	switch level {
	case "panic", "fatal", "error":
		m.errLines = append(m.errLines, line)
		m.logger.Debug("ffmpeg error: %s", msg)
	case "warning":
		m.warnings = append(m.warnings, line)
		m.logger.Debug("ffmpeg warning: %s", msg)
	default:
		m.logger.Debug("ffmpeg: %s", msg)
	}
}

func (m *progressMonitor) keep(line string) {
	if len(m.lines) == maxLogLines {
		copy(m.lines, m.lines[1:])
		m.lines = m.lines[:maxLogLines-1]
	}
	m.lines = append(m.lines, line)
}

// classify turns the process's Wait error into an export error.
func (m *progressMonitor) classify(waitErr error) error {
	if waitErr == nil {
		return nil
	}
	var ec exitCoder
	if errors.As(waitErr, &ec) {
		return ffmpeg.Classify(ec.ExitCode(), m.lines)
	}
	return ffmpeg.Classify(-1, append(m.lines, waitErr.Error()))
}
