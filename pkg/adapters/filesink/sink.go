// Package filesink provides a file-based debug sink implementation.
package filesink

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/user/karaexport/pkg/ffmpeg"
	"github.com/user/karaexport/pkg/ports"
)

// Sink saves debug output of an export to files under a base directory:
//
//	frames/frame-000042.png
//	command.txt
//	stats.json
//	encoder.log
type Sink struct {
	baseDir string
	fs      ports.FileSystem
}

// New creates a new FileSink.
func New(baseDir string, fs ports.FileSystem) *Sink {
	return &Sink{
		baseDir: baseDir,
		fs:      fs,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveFrame saves a captured frame as PNG.
func (s *Sink) SaveFrame(frameNumber uint64, img image.Image) error {
	dir := filepath.Join(s.baseDir, "frames")
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode frame %d: %w", frameNumber, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("frame-%06d.png", frameNumber))
	return s.fs.WriteFile(path, buf.Bytes())
}

// SaveCommand saves the encoder command line. The first element is the binary.
func (s *Sink) SaveCommand(args []string) error {
	var line string
	if len(args) > 0 {
		line = ffmpeg.CommandLine(args[0], args[1:])
	}
	path := filepath.Join(s.baseDir, "command.txt")
	return s.fs.WriteFile(path, []byte(line+"\n"))
}

// SaveStatsJSON saves capture and encoder statistics.
func (s *Sink) SaveStatsJSON(data []byte) error {
	path := filepath.Join(s.baseDir, "stats.json")
	return s.fs.WriteFile(path, data)
}

// SaveEncoderLog saves the encoder's stderr lines.
func (s *Sink) SaveEncoderLog(lines []string) error {
	path := filepath.Join(s.baseDir, "encoder.log")
	return s.fs.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"))
}

// Ensure Sink implements ports.DebugSink
var _ ports.DebugSink = (*Sink)(nil)
