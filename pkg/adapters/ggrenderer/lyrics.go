package ggrenderer

import (
	"image/color"
	"strings"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Syllable is one sung unit of a lyric line.
type Syllable struct {
	Text  string
	Start float64
	End   float64
}

// Line is a lyric line shown between Start and End seconds.
type Line struct {
	Text      string
	Start     float64
	End       float64
	Syllables []Syllable
}

func (l Line) text() string {
	if len(l.Syllables) == 0 {
		return l.Text
	}
	var sb strings.Builder
	for _, s := range l.Syllables {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// LyricStyle controls how lines are drawn.
type LyricStyle struct {
	FontPath  string
	FontSize  float64
	Base      color.Color
	Highlight color.Color
	Outline   color.Color
	Upcoming  color.Color

	// Position is the vertical centre of the active line as a fraction of
	// the frame height.
	Position float64
}

// DefaultLyricStyle returns white text with a yellow highlight in the lower third.
func DefaultLyricStyle() LyricStyle {
	return LyricStyle{
		FontSize:  48,
		Base:      color.White,
		Highlight: color.RGBA{R: 255, G: 214, B: 0, A: 255},
		Outline:   color.RGBA{A: 200},
		Upcoming:  color.RGBA{R: 200, G: 200, B: 200, A: 160},
		Position:  0.8,
	}
}

// Lyrics draws the active line with the sung part highlighted and the
// next line below it.
type Lyrics struct {
	surface

	lines []Line
	style LyricStyle
	face  font.Face
}

// NewLyrics creates the lyric layer. When the style names a font that
// cannot be loaded, the built-in bitmap face is used.
func NewLyrics(lines []Line, style LyricStyle) *Lyrics {
	l := &Lyrics{lines: lines, style: style, face: basicfont.Face7x13}
	if style.FontPath != "" {
		if face, err := gg.LoadFontFace(style.FontPath, style.FontSize); err == nil {
			l.face = face
		}
	}
	return l
}

// Active returns the index of the line shown at timestamp, or -1.
func (l *Lyrics) Active(timestamp float64) int {
	for i, line := range l.lines {
		if timestamp >= line.Start && timestamp < line.End {
			return i
		}
	}
	return -1
}

func (l *Lyrics) Draw(timestamp float64) error {
	dc, err := l.context()
	if err != nil {
		return err
	}
	idx := l.Active(timestamp)
	if idx < 0 {
		return nil
	}
	dc.SetFontFace(l.face)

	line := l.lines[idx]
	text := line.text()
	cx := float64(dc.Width()) / 2
	cy := float64(dc.Height()) * l.style.Position
	tw, th := dc.MeasureString(text)
	left := cx - tw/2

	l.drawOutlined(dc, text, cx, cy, l.style.Base)

	if sung := l.sungWidth(dc, line, timestamp); sung > 0 {
		dc.DrawRectangle(left, cy-th, sung, th*2)
		dc.Clip()
		l.drawOutlined(dc, text, cx, cy, l.style.Highlight)
		dc.ResetClip()
	}

	if idx+1 < len(l.lines) {
		dc.SetColor(l.style.Upcoming)
		dc.DrawStringAnchored(l.lines[idx+1].text(), cx, cy+th*2, 0.5, 0.5)
	}
	return nil
}

func (l *Lyrics) drawOutlined(dc *gg.Context, text string, x, y float64, c color.Color) {
	if l.style.Outline != nil {
		dc.SetColor(l.style.Outline)
		for _, d := range [][2]float64{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
			dc.DrawStringAnchored(text, x+d[0], y+d[1], 0.5, 0.5)
		}
	}
	dc.SetColor(c)
	dc.DrawStringAnchored(text, x, y, 0.5, 0.5)
}

// sungWidth is the width in pixels of the part of line already sung.
func (l *Lyrics) sungWidth(dc *gg.Context, line Line, t float64) float64 {
	if len(line.Syllables) == 0 {
		w, _ := dc.MeasureString(line.Text)
		return w * fraction(t, line.Start, line.End)
	}
	var prefix strings.Builder
	for _, s := range line.Syllables {
		before, _ := dc.MeasureString(prefix.String())
		if t < s.End {
			sw, _ := dc.MeasureString(s.Text)
			return before + sw*fraction(t, s.Start, s.End)
		}
		prefix.WriteString(s.Text)
	}
	w, _ := dc.MeasureString(prefix.String())
	return w
}

func fraction(t, start, end float64) float64 {
	switch {
	case t <= start:
		return 0
	case t >= end || end <= start:
		return 1
	default:
		return (t - start) / (end - start)
	}
}
