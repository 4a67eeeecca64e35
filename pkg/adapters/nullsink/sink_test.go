package nullsink

import (
	"image"
	"testing"
)

func TestSink_DiscardsEverything(t *testing.T) {
	s := New()
	if s.Enabled() {
		t.Error("expected Enabled to return false")
	}
	if err := s.SaveFrame(1, image.NewRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		t.Errorf("SaveFrame: %v", err)
	}
	if err := s.SaveCommand([]string{"ffmpeg"}); err != nil {
		t.Errorf("SaveCommand: %v", err)
	}
	if err := s.SaveStatsJSON([]byte("{}")); err != nil {
		t.Errorf("SaveStatsJSON: %v", err)
	}
	if err := s.SaveEncoderLog(nil); err != nil {
		t.Errorf("SaveEncoderLog: %v", err)
	}
}
