package ports

import "image"

// DebugSink abstracts debug output for intermediate results of an export.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveFrame saves a captured frame as an image.
	SaveFrame(frameNumber uint64, img image.Image) error

	// SaveCommand saves the encoder command line.
	SaveCommand(args []string) error

	// SaveStatsJSON saves capture and encoder statistics as JSON.
	SaveStatsJSON(data []byte) error

	// SaveEncoderLog saves the encoder's collected stderr lines.
	SaveEncoderLog(lines []string) error
}
