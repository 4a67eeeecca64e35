// Package nullsink is the debug sink used when --debug is off.
package nullsink

import (
	"image"

	"github.com/user/karaexport/pkg/ports"
)

// Sink reports itself disabled, so the coordinator skips frame conversion
// for debug PNGs, and accepts every save without storing anything.
type Sink struct{}

func New() *Sink { return &Sink{} }

func (Sink) Enabled() bool                       { return false }
func (Sink) SaveFrame(uint64, image.Image) error { return nil }
func (Sink) SaveCommand([]string) error          { return nil }
func (Sink) SaveStatsJSON([]byte) error          { return nil }
func (Sink) SaveEncoderLog([]string) error       { return nil }

var _ ports.DebugSink = Sink{}
