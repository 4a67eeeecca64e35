// Package ffmpeg describes encoder settings and knows how to talk to the
// ffmpeg binary: locating and probing it, validating settings against what
// it supports, building its command line, and reading its progress and
// failure output.
package ffmpeg

// Video codec names as passed to -c:v.
const (
	CodecH264 = "libx264"
	CodecH265 = "libx265"
	CodecVP9  = "libvpx-vp9"
	CodecAV1  = "libaom-av1"
)

// Audio codec names as passed to -c:a.
const (
	AudioAAC    = "aac"
	AudioMP3    = "libmp3lame"
	AudioOpus   = "libopus"
	AudioVorbis = "libvorbis"
)

// Containers as passed to -f.
const (
	ContainerMP4  = "mp4"
	ContainerMKV  = "matroska"
	ContainerWebM = "webm"
	ContainerAVI  = "avi"
)

// Hardware acceleration backends.
const (
	HWAccelNone         = ""
	HWAccelNVENC        = "nvenc"
	HWAccelQSV          = "qsv"
	HWAccelVAAPI        = "vaapi"
	HWAccelVideoToolbox = "videotoolbox"
)

// Presets lists the x264/x265 speed presets from fastest to slowest.
var Presets = []string{"ultrafast", "superfast", "veryfast", "faster", "fast", "medium", "slow", "slower", "veryslow"}

// VideoCodecs lists the supported video codecs.
var VideoCodecs = []string{CodecH264, CodecH265, CodecVP9, CodecAV1}

// AudioCodecs lists the supported audio codecs.
var AudioCodecs = []string{AudioAAC, AudioMP3, AudioOpus, AudioVorbis}

// Containers lists the supported containers.
var Containers = []string{ContainerMP4, ContainerMKV, ContainerWebM, ContainerAVI}

// HWAccelBackends lists the hardware acceleration backends.
var HWAccelBackends = []string{HWAccelNVENC, HWAccelQSV, HWAccelVAAPI, HWAccelVideoToolbox}

// hwaccelFlag maps a backend to the value passed to -hwaccel.
var hwaccelFlag = map[string]string{
	HWAccelNVENC:        "cuda",
	HWAccelQSV:          "qsv",
	HWAccelVAAPI:        "vaapi",
	HWAccelVideoToolbox: "videotoolbox",
}

// ParseContainer accepts a container or file extension name such as "mkv".
func ParseContainer(name string) string {
	switch name {
	case "mkv", ContainerMKV:
		return ContainerMKV
	case "mov", "m4v", ContainerMP4:
		return ContainerMP4
	default:
		return name
	}
}

// ContainerExtension returns the usual file extension for a container.
func ContainerExtension(container string) string {
	switch container {
	case ContainerMKV:
		return ".mkv"
	case ContainerWebM:
		return ".webm"
	case ContainerAVI:
		return ".avi"
	default:
		return ".mp4"
	}
}

// ExportSettings describes one encoder invocation.
type ExportSettings struct {
	OutputPath string  `yaml:"output_path" json:"outputPath"`
	Width      int     `yaml:"width" json:"width"`
	Height     int     `yaml:"height" json:"height"`
	FPS        float64 `yaml:"fps" json:"fps"`

	VideoCodec string `yaml:"video_codec" json:"videoCodec"`
	Preset     string `yaml:"preset" json:"preset"`
	// CRF is used only when Bitrate is zero. Nil leaves quality to the codec default.
	CRF        *int `yaml:"crf" json:"crf,omitempty"`
	Bitrate    int  `yaml:"bitrate" json:"bitrate"`        // kbps
	MaxBitrate int  `yaml:"max_bitrate" json:"maxBitrate"` // kbps
	BufferSize int  `yaml:"buffer_size" json:"bufferSize"` // kbps

	AudioCodec      string `yaml:"audio_codec" json:"audioCodec"`
	AudioBitrate    int    `yaml:"audio_bitrate" json:"audioBitrate"` // kbps
	AudioSampleRate int    `yaml:"audio_sample_rate" json:"audioSampleRate"`
	AudioChannels   int    `yaml:"audio_channels" json:"audioChannels"`

	Container   string `yaml:"container" json:"container"`
	PixelFormat string `yaml:"pixel_format" json:"pixelFormat"`
	HWAccel     string `yaml:"hwaccel" json:"hwaccel,omitempty"`

	Filters  []string          `yaml:"filters" json:"filters,omitempty"`
	Metadata map[string]string `yaml:"metadata" json:"metadata,omitempty"`

	Threads int    `yaml:"threads" json:"threads"` // 0 lets ffmpeg decide
	Tune    string `yaml:"tune" json:"tune,omitempty"`
	Profile string `yaml:"profile" json:"profile,omitempty"`
	Level   string `yaml:"level" json:"level,omitempty"`
}

// IntPtr returns a pointer to v, for CRF literals.
func IntPtr(v int) *int {
	return &v
}

// DefaultExportSettings returns 1080p30 H.264/AAC in MP4 at CRF 23.
func DefaultExportSettings() ExportSettings {
	return ExportSettings{
		OutputPath:      "output.mp4",
		Width:           1920,
		Height:          1080,
		FPS:             30,
		VideoCodec:      CodecH264,
		Preset:          "medium",
		CRF:             IntPtr(23),
		AudioCodec:      AudioAAC,
		AudioBitrate:    128,
		AudioSampleRate: 44100,
		AudioChannels:   2,
		Container:       ContainerMP4,
		PixelFormat:     "yuv420p",
	}
}

// Clone returns a deep copy.
func (s ExportSettings) Clone() ExportSettings {
	out := s
	if s.CRF != nil {
		out.CRF = IntPtr(*s.CRF)
	}
	out.Filters = append([]string(nil), s.Filters...)
	if s.Metadata != nil {
		out.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// EstimatedBytes estimates the output size for a clip of the given length.
// When no bitrate is set, CRF output is assumed to average 5000 kbps.
func (s ExportSettings) EstimatedBytes(durationSeconds float64) int64 {
	videoKbps := s.Bitrate
	if videoKbps <= 0 {
		videoKbps = 5000
	}
	audioKbps := 128
	if s.AudioBitrate > 0 {
		audioKbps = s.AudioBitrate
	}
	bits := float64(videoKbps*1000)*durationSeconds + float64(audioKbps*1000)*durationSeconds
	return int64(bits / 8)
}
