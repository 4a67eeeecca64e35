package mocks

import (
	"image"
	"sync"

	"github.com/user/karaexport/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	Frames     map[uint64]image.Image
	Command    []string
	StatsJSON  []byte
	EncoderLog []string
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled: enabled,
		Frames:  make(map[uint64]image.Image),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveFrame(frameNumber uint64, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Frames[frameNumber] = img
	return nil
}

func (m *DebugSink) SaveCommand(args []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Command = append([]string(nil), args...)
	return nil
}

func (m *DebugSink) SaveStatsJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatsJSON = data
	return nil
}

func (m *DebugSink) SaveEncoderLog(lines []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EncoderLog = append([]string(nil), lines...)
	return nil
}

// FrameCount returns the number of saved frames (for test verification).
func (m *DebugSink) FrameCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Frames)
}

var _ ports.DebugSink = (*DebugSink)(nil)
