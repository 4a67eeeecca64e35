// Package summarizer provides summary generation for export results.
package summarizer

import (
	"time"

	"github.com/user/karaexport/pkg/orchestrator"
	"github.com/user/karaexport/pkg/pipeline"
)

// Summary contains all data collected during an export run.
type Summary struct {
	// Metadata
	GeneratedAt time.Time `json:"generatedAt"`

	Export   ExportInfo  `json:"export"`
	Settings Settings    `json:"settings"`
	Frames   FrameInfo   `json:"frames"`
	Encoder  EncoderInfo `json:"encoder"`

	// Output is nil when the file was not verified.
	Output *OutputInfo `json:"output,omitempty"`

	// Checks lists preflight warnings and errors.
	Checks []CheckInfo `json:"checks,omitempty"`
}

// ExportInfo describes the outcome of the run.
type ExportInfo struct {
	ID          string        `json:"id"`
	OutputPath  string        `json:"outputPath"`
	Status      string        `json:"status"`
	Attempts    int           `json:"attempts"`
	Elapsed     time.Duration `json:"elapsed"`
	Error       string        `json:"error,omitempty"`
	Suggestions []string      `json:"suggestions,omitempty"`
}

// Settings contains the export configuration.
type Settings struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FPS        float64 `json:"fps"`
	VideoCodec string  `json:"videoCodec"`
	AudioCodec string  `json:"audioCodec"`
	Container  string  `json:"container"`
	Preset     string  `json:"preset"`
	CRF        *int    `json:"crf,omitempty"`
	Bitrate    int     `json:"bitrate"` // kbps
	HWAccel    string  `json:"hwaccel"`
}

// FrameInfo contains capture and streaming counts.
type FrameInfo struct {
	Total       int           `json:"total"`
	Captured    int           `json:"captured"`
	Dropped     int           `json:"dropped"`
	Written     uint64        `json:"written"`
	Skipped     int           `json:"skipped"`
	Duration    float64       `json:"duration"`    // seconds
	AudioOffset float64       `json:"audioOffset"` // seconds
	RenderMean  time.Duration `json:"renderMean"`
}

// EncoderInfo contains the encoder's final progress report.
type EncoderInfo struct {
	FPS        float64  `json:"fps"`
	Speed      float64  `json:"speed"`
	Bitrate    string   `json:"bitrate"`
	Duplicated int64    `json:"duplicated"`
	Dropped    int64    `json:"dropped"`
	Warnings   []string `json:"warnings,omitempty"`
}

// OutputInfo contains what verification found in the output file.
type OutputInfo struct {
	FileSize   int64    `json:"fileSize"`
	Probed     bool     `json:"probed"`
	Container  string   `json:"container"`
	VideoCodec string   `json:"videoCodec"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	Frames     int      `json:"frames"`
	Duration   float64  `json:"duration"`
	HasAudio   bool     `json:"hasAudio"`
	Warnings   []string `json:"warnings,omitempty"`
}

// CheckInfo is one preflight finding.
type CheckInfo struct {
	Level   string `json:"level"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// FromRunResult builds a Summary from an orchestrator run.
func FromRunResult(r orchestrator.RunResult) *Summary {
	s := r.Settings
	b := NewBuilder().
		WithExport(ExportInfo{
			ID:          r.Export.ExportID,
			OutputPath:  s.OutputPath,
			Status:      string(r.Status),
			Attempts:    r.Attempts,
			Elapsed:     r.Elapsed,
			Error:       r.Error,
			Suggestions: r.Suggestions,
		}).
		WithSettings(Settings{
			Width:      s.Width,
			Height:     s.Height,
			FPS:        s.FPS,
			VideoCodec: s.VideoCodec,
			AudioCodec: s.AudioCodec,
			Container:  s.Container,
			Preset:     s.Preset,
			CRF:        s.CRF,
			Bitrate:    s.Bitrate,
			HWAccel:    s.HWAccel,
		}).
		WithFrames(FrameInfo{
			Total:       r.TotalFrames,
			Captured:    r.Capture.Captured,
			Dropped:     r.Capture.Dropped,
			Written:     r.Export.FramesWritten,
			Skipped:     r.Export.FramesSkipped,
			Duration:    r.Duration,
			AudioOffset: r.AudioOffset,
			RenderMean:  r.Capture.Render.Average,
		}).
		WithEncoder(EncoderInfo{
			FPS:        r.Export.Encoder.FPS,
			Speed:      r.Export.Encoder.Speed,
			Bitrate:    r.Export.Encoder.Bitrate,
			Duplicated: r.Export.Encoder.DupFrames,
			Dropped:    r.Export.Encoder.DropFrames,
			Warnings:   r.Export.EncoderWarnings,
		})

	if v := r.Verify; v != nil {
		b.WithOutput(OutputInfo{
			FileSize:   v.FileSize,
			Probed:     v.Probed,
			Container:  v.Info.Container,
			VideoCodec: v.Info.VideoCodec,
			Width:      v.Info.Width,
			Height:     v.Info.Height,
			Frames:     v.Info.VideoFrames,
			Duration:   v.Info.Duration,
			HasAudio:   v.Info.AudioTracks > 0,
			Warnings:   v.Warnings,
		})
	}

	for _, c := range r.Preflight.Checks {
		if c.Level == pipeline.CheckInfo {
			continue
		}
		b.WithCheck(CheckInfo{Level: string(c.Level), Name: c.Name, Message: c.Message})
	}
	return b.Build()
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithExport sets the run outcome.
func (b *Builder) WithExport(info ExportInfo) *Builder {
	b.summary.Export = info
	return b
}

// WithSettings sets export settings.
func (b *Builder) WithSettings(settings Settings) *Builder {
	b.summary.Settings = settings
	return b
}

// WithFrames sets frame counts.
func (b *Builder) WithFrames(frames FrameInfo) *Builder {
	b.summary.Frames = frames
	return b
}

// WithEncoder sets the encoder report.
func (b *Builder) WithEncoder(encoder EncoderInfo) *Builder {
	b.summary.Encoder = encoder
	return b
}

// WithOutput sets verification results.
func (b *Builder) WithOutput(output OutputInfo) *Builder {
	b.summary.Output = &output
	return b
}

// WithCheck appends a preflight finding.
func (b *Builder) WithCheck(check CheckInfo) *Builder {
	b.summary.Checks = append(b.summary.Checks, check)
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
