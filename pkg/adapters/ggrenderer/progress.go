package ggrenderer

import "image/color"

// ProgressBar composites a song position bar along the bottom edge.
type ProgressBar struct {
	surface

	Duration float64
	Height   float64
	Fill     color.Color
	Track    color.Color
}

// NewProgressBar creates a bar for a song of the given length in seconds.
func NewProgressBar(duration float64, fill, track color.Color) *ProgressBar {
	return &ProgressBar{Duration: duration, Height: 6, Fill: fill, Track: track}
}

func (p *ProgressBar) Draw(timestamp float64) error {
	dc, err := p.context()
	if err != nil {
		return err
	}
	w, h := float64(dc.Width()), float64(dc.Height())
	y := h - p.Height

	if p.Track != nil {
		dc.SetColor(p.Track)
		dc.DrawRectangle(0, y, w, p.Height)
		dc.Fill()
	}
	done := w * fraction(timestamp, 0, p.Duration)
	if done > 0 {
		dc.SetColor(p.Fill)
		dc.DrawRectangle(0, y, done, p.Height)
		dc.Fill()
	}
	return nil
}
