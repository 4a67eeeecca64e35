// Package mp4probe verifies encoded MP4 and MOV output with mp4ff.
package mp4probe

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/karaexport/pkg/ports"
)

var (
	ErrNoVideoTrack = errors.New("mp4probe: no video track found")
	ErrNoMovie      = errors.New("mp4probe: no moov box")
)

// Prober implements ports.MediaProber for ISO BMFF containers.
type Prober struct {
	logger ports.Logger
}

// New creates a prober.
func New(logger ports.Logger) *Prober {
	return &Prober{logger: logger.WithComponent("mp4probe")}
}

// Supports reports whether container is an ISO BMFF format.
func (p *Prober) Supports(container string) bool {
	switch strings.ToLower(container) {
	case "mp4", "mov", "m4v":
		return true
	}
	return false
}

// ProbeFile describes the tracks of the file at path.
func (p *Prober) ProbeFile(path string) (ports.MediaInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return ports.MediaInfo{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	info, err := Probe(f)
	if err != nil {
		return info, err
	}
	p.logger.Debug("Probed %s: %s %dx%d, %d frames, %.2fs", path, info.VideoCodec, info.Width, info.Height, info.VideoFrames, info.Duration)
	return info, nil
}

// Probe describes the tracks of an MP4 stream.
func Probe(r io.ReadSeeker) (ports.MediaInfo, error) {
	file, err := mp4.DecodeFile(r)
	if err != nil {
		return ports.MediaInfo{}, fmt.Errorf("decode mp4: %w", err)
	}

	info := ports.MediaInfo{Container: "mp4", Fragmented: file.IsFragmented()}
	if file.Ftyp != nil && file.Ftyp.MajorBrand() == "qt  " {
		info.Container = "mov"
	}

	moov := file.Moov
	if info.Fragmented && file.Init != nil {
		moov = file.Init.Moov
	}
	if moov == nil {
		return info, ErrNoMovie
	}

	var video *mp4.TrakBox
	for _, trak := range moov.Traks {
		switch handlerType(trak) {
		case "vide":
			info.VideoTracks++
			if video == nil {
				video = trak
			}
		case "soun":
			info.AudioTracks++
		}
	}
	if video == nil {
		return info, ErrNoVideoTrack
	}

	info.VideoCodec = sampleEntry(video)
	if video.Tkhd != nil {
		info.Width = int(uint32(video.Tkhd.Width) >> 16)
		info.Height = int(uint32(video.Tkhd.Height) >> 16)
	}

	if info.Fragmented {
		info.VideoFrames, info.Duration = fragmentedSamples(file, moov, video)
	} else {
		info.VideoFrames, info.Duration = progressiveSamples(video)
	}
	if info.Duration == 0 && moov.Mvhd != nil && moov.Mvhd.Timescale > 0 {
		info.Duration = float64(moov.Mvhd.Duration) / float64(moov.Mvhd.Timescale)
	}
	return info, nil
}

func handlerType(trak *mp4.TrakBox) string {
	if trak.Mdia == nil || trak.Mdia.Hdlr == nil {
		return ""
	}
	return trak.Mdia.Hdlr.HandlerType
}

// sampleEntry returns the four-character code of the first sample entry,
// such as avc1, hvc1 or av01.
func sampleEntry(trak *mp4.TrakBox) string {
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return ""
	}
	if children := trak.Mdia.Minf.Stbl.Stsd.Children; len(children) > 0 {
		return children[0].Type()
	}
	return ""
}

func progressiveSamples(trak *mp4.TrakBox) (int, float64) {
	var frames int
	if stbl := trak.Mdia.Minf.Stbl; stbl != nil && stbl.Stsz != nil {
		frames = int(stbl.Stsz.SampleNumber)
	}
	var duration float64
	if mdhd := trak.Mdia.Mdhd; mdhd != nil && mdhd.Timescale > 0 {
		duration = float64(mdhd.Duration) / float64(mdhd.Timescale)
	}
	return frames, duration
}

func fragmentedSamples(file *mp4.File, moov *mp4.MoovBox, trak *mp4.TrakBox) (int, float64) {
	trackID := trak.Tkhd.TrackID
	var trex *mp4.TrexBox
	if moov.Mvex != nil {
		for _, t := range moov.Mvex.Trexs {
			if t.TrackID == trackID {
				trex = t
			}
		}
	}
	var timescale uint32 = 1000
	if trak.Mdia.Mdhd != nil && trak.Mdia.Mdhd.Timescale > 0 {
		timescale = trak.Mdia.Mdhd.Timescale
	}

	var frames int
	var ticks uint64
	for _, seg := range file.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil || frag.Moof.Traf == nil || frag.Moof.Traf.Tfhd.TrackID != trackID {
				continue
			}
			samples, err := frag.GetFullSamples(trex)
			if err != nil {
				continue
			}
			for _, s := range samples {
				frames++
				ticks += uint64(s.Dur)
			}
		}
	}
	return frames, float64(ticks) / float64(timescale)
}

var _ ports.MediaProber = (*Prober)(nil)
