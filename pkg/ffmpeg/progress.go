package ffmpeg

import (
	"strconv"
	"strings"
	"time"
)

// Progress is a snapshot of encoder progress.
type Progress struct {
	Frame       int64         `json:"frame"`
	FPS         float64       `json:"fps"`
	Bitrate     string        `json:"bitrate"`
	TotalSize   int64         `json:"totalSize"`
	OutTime     time.Duration `json:"outTime"`
	DupFrames   int64         `json:"dupFrames"`
	DropFrames  int64         `json:"dropFrames"`
	Speed       float64       `json:"speed"`
	SpeedRaw    string        `json:"speedRaw"`
	State       string        `json:"state"` // "continue" or "end"
	TotalFrames int64         `json:"totalFrames"`
	Percent     float64       `json:"percent"`
	Elapsed     time.Duration `json:"elapsed"`
	ETA         time.Duration `json:"eta"` // negative when unknown
}

// Done reports whether the encoder printed progress=end.
func (p Progress) Done() bool {
	return p.State == "end"
}

// ProgressParser accumulates the key=value lines ffmpeg writes for -progress.
// It is not safe for concurrent use.
type ProgressParser struct {
	p     Progress
	start time.Time
	now   func() time.Time
}

// NewProgressParser creates a parser for an export of totalFrames frames.
func NewProgressParser(totalFrames int64) *ProgressParser {
	pp := &ProgressParser{now: time.Now}
	pp.start = pp.now()
	pp.p = Progress{TotalFrames: totalFrames, ETA: -1}
	return pp
}

// Progress returns the current snapshot.
func (pp *ProgressParser) Progress() Progress {
	p := pp.p
	p.Elapsed = pp.now().Sub(pp.start)
	return p
}

// IsProgressLine reports whether line is one of the -progress keys.
func IsProgressLine(line string) bool {
	key, _, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return false
	}
	switch key {
	case "frame", "fps", "bitrate", "total_size", "out_time", "out_time_us", "out_time_ms",
		"dup_frames", "drop_frames", "speed", "progress", "stream_0_0_q":
		return true
	}
	return false
}

// ParseLine applies one line and reports whether it changed the snapshot.
// Malformed lines, unparsable values and unknown keys are ignored.
func (pp *ProgressParser) ParseLine(line string) bool {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return false
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	p := &pp.p

	switch key {
	case "frame":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return false
		}
		p.Frame = n
	case "fps":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return false
		}
		p.FPS = f
	case "bitrate":
		p.Bitrate = value
	case "total_size":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return false
		}
		p.TotalSize = n
	case "out_time":
		d, ok := ParseOutTime(value)
		if !ok {
			return false
		}
		p.OutTime = d
	case "out_time_us":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return false
		}
		p.OutTime = time.Duration(n) * time.Microsecond
	case "dup_frames":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return false
		}
		p.DupFrames = n
	case "drop_frames":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return false
		}
		p.DropFrames = n
	case "speed":
		if value == "N/A" {
			p.SpeedRaw = value
			return true
		}
		f, err := strconv.ParseFloat(strings.TrimSuffix(value, "x"), 64)
		if err != nil || f < 0 {
			return false
		}
		p.Speed = f
		p.SpeedRaw = value
	case "progress":
		if value != "continue" && value != "end" {
			return false
		}
		p.State = value
		if value == "end" && p.TotalFrames > 0 {
			p.Percent = 100
			p.ETA = 0
			return true
		}
	default:
		return false
	}

	pp.recompute()
	return true
}

func (pp *ProgressParser) recompute() {
	p := &pp.p
	if p.TotalFrames > 0 {
		p.Percent = clampPercent(float64(p.Frame) / float64(p.TotalFrames) * 100)
	}

	p.ETA = -1
	remaining := p.TotalFrames - p.Frame
	switch {
	case p.TotalFrames <= 0:
	case remaining <= 0:
		p.ETA = 0
	case p.FPS > 0:
		p.ETA = time.Duration(float64(remaining) / p.FPS * float64(time.Second))
	case p.Percent > 0:
		elapsed := pp.now().Sub(pp.start)
		p.ETA = time.Duration(float64(elapsed) * (100 - p.Percent) / p.Percent)
	}
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ParseOutTime parses ffmpeg's "HH:MM:SS.micro" format.
func ParseOutTime(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return 0, false
	}
	neg := strings.HasPrefix(s, "-")
	parts := strings.Split(strings.TrimPrefix(s, "-"), ":")
	if len(parts) != 3 {
		return 0, false
	}
	h, err1 := strconv.ParseInt(parts[0], 10, 64)
	m, err2 := strconv.ParseInt(parts[1], 10, 64)
	sec, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	d := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec*float64(time.Second))
	if neg {
		d = -d
	}
	return d, true
}
