package capture

import "time"

// statsWindow is the number of recent render times kept for statistics.
const statsWindow = 100

// RenderStats summarizes recent render times.
type RenderStats struct {
	Samples int           `json:"samples"`
	Average time.Duration `json:"average"`
	Min     time.Duration `json:"min"`
	Max     time.Duration `json:"max"`
	FPS     float64       `json:"fps"` // 1 / Average
}

// renderWindow is a fixed-size ring of render durations.
type renderWindow struct {
	samples [statsWindow]time.Duration
	count   int
	next    int
}

func (w *renderWindow) add(d time.Duration) {
	w.samples[w.next] = d
	w.next = (w.next + 1) % statsWindow
	if w.count < statsWindow {
		w.count++
	}
}

func (w *renderWindow) reset() {
	*w = renderWindow{}
}

func (w *renderWindow) stats() RenderStats {
	if w.count == 0 {
		return RenderStats{}
	}
	var total time.Duration
	minD, maxD := w.samples[0], w.samples[0]
	for i := 0; i < w.count; i++ {
		d := w.samples[i]
		total += d
		if d < minD {
			minD = d
		}
		if d > maxD {
			maxD = d
		}
	}
	avg := total / time.Duration(w.count)
	var fps float64
	if avg > 0 {
		fps = float64(time.Second) / float64(avg)
	}
	return RenderStats{
		Samples: w.count,
		Average: avg,
		Min:     minD,
		Max:     maxD,
		FPS:     fps,
	}
}
