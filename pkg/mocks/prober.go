package mocks

import "github.com/user/karaexport/pkg/ports"

// MediaProber is a mock implementation of ports.MediaProber.
type MediaProber struct {
	SupportsFunc  func(container string) bool
	ProbeFileFunc func(path string) (ports.MediaInfo, error)

	// Recorded calls for verification
	ProbedPaths []string
}

func (m *MediaProber) Supports(container string) bool {
	if m.SupportsFunc != nil {
		return m.SupportsFunc(container)
	}
	return true
}

func (m *MediaProber) ProbeFile(path string) (ports.MediaInfo, error) {
	m.ProbedPaths = append(m.ProbedPaths, path)
	if m.ProbeFileFunc != nil {
		return m.ProbeFileFunc(path)
	}
	return ports.MediaInfo{Container: "mp4", VideoCodec: "avc1", VideoTracks: 1}, nil
}

var _ ports.MediaProber = (*MediaProber)(nil)
