package ffmpeg

import (
	"fmt"
	"slices"
	"strings"
)

// Diagnostic is one validation finding.
type Diagnostic struct {
	Field      string `json:"field"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
}

func (d Diagnostic) String() string {
	return d.Field + ": " + d.Message
}

// ValidationResult separates hard errors, which abort an export, from
// advisory warnings.
type ValidationResult struct {
	Errors   []Diagnostic `json:"errors"`
	Warnings []Diagnostic `json:"warnings"`
}

// Valid reports whether there are no errors.
func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Err returns a *ConfigurationError when there are errors, nil otherwise.
func (r ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return &ConfigurationError{Diagnostics: r.Errors}
}

func (r *ValidationResult) fail(field, suggestion, format string, args ...interface{}) {
	r.Errors = append(r.Errors, Diagnostic{Field: field, Message: fmt.Sprintf(format, args...), Suggestion: suggestion})
}

func (r *ValidationResult) warn(field, suggestion, format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, Diagnostic{Field: field, Message: fmt.Sprintf(format, args...), Suggestion: suggestion})
}

// ConfigurationError reports settings rejected before any encoder is started.
type ConfigurationError struct {
	Diagnostics []Diagnostic
}

func (e *ConfigurationError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = d.String()
	}
	return "ffmpeg: invalid export settings: " + strings.Join(msgs, "; ")
}

// Suggestions returns one suggestion per diagnostic.
func (e *ConfigurationError) Suggestions() []string {
	var out []string
	for _, d := range e.Diagnostics {
		if d.Suggestion != "" && !slices.Contains(out, d.Suggestion) {
			out = append(out, d.Suggestion)
		}
	}
	if len(out) == 0 {
		out = append(out, "Review the export settings and try again")
	}
	return out
}

var (
	validSampleRates = []int{8000, 11025, 16000, 22050, 44100, 48000, 96000}
	validChannels    = []int{1, 2, 6, 8}

	containerCodecs = map[string][]string{
		CodecH264: {ContainerMP4, ContainerMKV, ContainerAVI},
		CodecH265: {ContainerMP4, ContainerMKV},
		CodecVP9:  {ContainerWebM, ContainerMKV},
		CodecAV1:  {ContainerMP4, ContainerMKV, ContainerWebM},
	}
)

const (
	maxWidth  = 7680
	maxHeight = 4320
	minSide   = 64
)

// Validate cross-checks settings against the probed capabilities.
func Validate(s ExportSettings, caps Capabilities) ValidationResult {
	var r ValidationResult

	if !caps.Available {
		r.fail("ffmpeg", "Install ffmpeg or set FFMPEG_PATH to its location", "ffmpeg is not available: %s", caps.Error)
	}
	if s.OutputPath == "" {
		r.fail("output_path", "Choose an output file", "output path is empty")
	}

	validateCodecs(&r, s, caps)
	validateVideo(&r, s)
	validateRate(&r, s)
	validateAudio(&r, s)
	validateCombinations(&r, s)
	return r
}

func validateCodecs(r *ValidationResult, s ExportSettings, caps Capabilities) {
	switch {
	case !slices.Contains(VideoCodecs, s.VideoCodec):
		r.fail("video_codec", "Use one of "+strings.Join(VideoCodecs, ", "), "unsupported video codec %q", s.VideoCodec)
	case caps.Available && !caps.HasEncoder(s.VideoCodec):
		r.fail("video_codec", "Install an ffmpeg build with "+s.VideoCodec+" or pick another codec", "video codec %q is not available in this ffmpeg build", s.VideoCodec)
	}

	if s.AudioCodec != "" {
		switch {
		case !slices.Contains(AudioCodecs, s.AudioCodec):
			r.fail("audio_codec", "Use one of "+strings.Join(AudioCodecs, ", "), "unsupported audio codec %q", s.AudioCodec)
		case caps.Available && !caps.HasEncoder(s.AudioCodec):
			r.fail("audio_codec", "Install an ffmpeg build with "+s.AudioCodec+" or pick another codec", "audio codec %q is not available in this ffmpeg build", s.AudioCodec)
		}
	}

	container := ParseContainer(s.Container)
	switch {
	case !slices.Contains(Containers, container):
		r.fail("container", "Use one of mp4, mkv, webm, avi", "unsupported container %q", s.Container)
	case caps.Available && len(caps.Formats) > 0 && !caps.HasFormat(container):
		r.fail("container", "Install an ffmpeg build with the "+container+" muxer", "container %q is not available in this ffmpeg build", s.Container)
	}

	if s.HWAccel != "" {
		switch {
		case !slices.Contains(HWAccelBackends, s.HWAccel):
			r.fail("hwaccel", "Use one of "+strings.Join(HWAccelBackends, ", ")+" or disable hardware acceleration", "unsupported hardware acceleration %q", s.HWAccel)
		case caps.Available && !caps.HasHWAccel(s.HWAccel):
			r.fail("hwaccel", "Disable hardware acceleration or install the matching drivers", "hardware acceleration %q is not available", s.HWAccel)
		}
	}

	if s.Preset != "" && !slices.Contains(Presets, s.Preset) {
		r.fail("preset", "Use one of "+strings.Join(Presets, ", "), "unknown preset %q", s.Preset)
	}

	if caps.Available && len(caps.Filters) > 0 {
		for _, f := range s.Filters {
			name, _, _ := strings.Cut(f, "=")
			if !caps.HasFilter(name) {
				r.warn("filters", "Remove the filter or install an ffmpeg build that has it", "filter %q is not listed by ffmpeg", name)
			}
		}
	}
}

func validateVideo(r *ValidationResult, s ExportSettings) {
	if s.Width <= 0 || s.Height <= 0 {
		r.fail("resolution", "Use a positive width and height such as 1920x1080", "invalid resolution %dx%d", s.Width, s.Height)
	} else {
		if s.Width%2 != 0 || s.Height%2 != 0 {
			r.warn("resolution", "Use even dimensions; most encoders require them for yuv420p", "odd resolution %dx%d", s.Width, s.Height)
		}
		if s.Width > maxWidth || s.Height > maxHeight {
			r.warn("resolution", "Resolutions above 8K may not be supported by players", "resolution %dx%d exceeds 8K", s.Width, s.Height)
		}
		if s.Width < minSide || s.Height < minSide {
			r.warn("resolution", "Very small resolutions may be rejected by some encoders", "resolution %dx%d is very small", s.Width, s.Height)
		}
	}

	switch {
	case s.FPS <= 0:
		r.fail("fps", "Use a positive frame rate such as 30", "invalid frame rate %v", s.FPS)
	case s.FPS > 120:
		r.warn("fps", "Frame rates above 120 are rarely supported by players", "very high frame rate %v", s.FPS)
	case s.FPS < 1:
		r.warn("fps", "Frame rates below 1 produce slideshow output", "very low frame rate %v", s.FPS)
	}

	if s.Threads < 0 {
		r.fail("threads", "Use 0 for automatic threading or a positive count", "invalid thread count %d", s.Threads)
	} else if s.Threads > 32 {
		r.warn("threads", "More than 32 threads rarely speeds up encoding", "high thread count %d", s.Threads)
	}
}

func validateRate(r *ValidationResult, s ExportSettings) {
	if s.CRF != nil {
		crf := *s.CRF
		switch {
		case crf < 0 || crf > 51:
			r.fail("crf", "Use a CRF between 0 and 51; 18-28 is typical", "CRF %d out of range", crf)
		case crf < 10:
			r.warn("crf", "CRF below 10 gives very large files with little visible gain", "very low CRF %d", crf)
		case crf > 35:
			r.warn("crf", "CRF above 35 gives visibly degraded output", "very high CRF %d", crf)
		}
	}

	if s.Bitrate < 0 {
		r.fail("bitrate", "Use a positive bitrate in kbps, or 0 to use CRF", "invalid bitrate %d", s.Bitrate)
	} else if s.Bitrate > 0 {
		if s.Bitrate < 100 {
			r.warn("bitrate", "Bitrates below 100 kbps give very poor quality", "very low bitrate %dk", s.Bitrate)
		}
		if s.Bitrate > 50000 {
			r.warn("bitrate", "Bitrates above 50000 kbps give very large files", "very high bitrate %dk", s.Bitrate)
		}
	}
	if s.MaxBitrate < 0 {
		r.fail("max_bitrate", "Use a positive max bitrate in kbps or 0 to disable", "invalid max bitrate %d", s.MaxBitrate)
	}
	if s.BufferSize < 0 {
		r.fail("buffer_size", "Use a positive buffer size in kbps or 0 to disable", "invalid buffer size %d", s.BufferSize)
	}
}

func validateAudio(r *ValidationResult, s ExportSettings) {
	if s.AudioCodec == "" {
		return
	}
	switch {
	case s.AudioBitrate <= 0:
		r.fail("audio_bitrate", "Use a positive audio bitrate such as 128", "invalid audio bitrate %d", s.AudioBitrate)
	case s.AudioBitrate < 64:
		r.warn("audio_bitrate", "Audio below 64 kbps sounds noticeably degraded", "very low audio bitrate %dk", s.AudioBitrate)
	case s.AudioBitrate > 320:
		r.warn("audio_bitrate", "Audio above 320 kbps gives no audible gain", "very high audio bitrate %dk", s.AudioBitrate)
	}
	switch {
	case s.AudioSampleRate < 0:
		r.fail("audio_sample_rate", "Use 44100 or 48000 Hz, or 0 to keep the input rate", "invalid sample rate %d", s.AudioSampleRate)
	case s.AudioSampleRate > 0 && !slices.Contains(validSampleRates, s.AudioSampleRate):
		r.warn("audio_sample_rate", "Use 44100 or 48000 Hz", "unusual sample rate %d", s.AudioSampleRate)
	}
	switch {
	case s.AudioChannels < 0:
		r.fail("audio_channels", "Use 1, 2, 6 or 8 channels, or 0 to keep the input layout", "invalid channel count %d", s.AudioChannels)
	case s.AudioChannels > 0 && !slices.Contains(validChannels, s.AudioChannels):
		r.warn("audio_channels", "Use 1, 2, 6 or 8 channels", "unusual channel count %d", s.AudioChannels)
	}
}

func validateCombinations(r *ValidationResult, s ExportSettings) {
	container := ParseContainer(s.Container)
	if allowed, ok := containerCodecs[s.VideoCodec]; ok && slices.Contains(Containers, container) && !slices.Contains(allowed, container) {
		r.warn("container", "Use a container compatible with "+s.VideoCodec, "codec %s may not be compatible with container %s", s.VideoCodec, s.Container)
	}
	if s.CRF != nil && s.Bitrate > 0 {
		r.warn("crf", "Set either CRF or bitrate", "both CRF and bitrate are set; bitrate takes precedence")
	}
	if s.Preset == "ultrafast" && s.CRF != nil && *s.CRF < 20 {
		r.warn("preset", "Use a slower preset for high quality output", "ultrafast preset with CRF %d is inefficient", *s.CRF)
	}
	if s.HWAccel != "" && (s.Preset == "veryslow" || s.Preset == "slower") {
		r.warn("preset", "Use a faster preset with hardware acceleration", "preset %s gains nothing with hardware acceleration", s.Preset)
	}
}
