package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/user/karaexport/pkg/ports"
)

// ProbeTimeout bounds each ffmpeg query made by Probe.
const ProbeTimeout = 5 * time.Second

var versionRe = regexp.MustCompile(`ffmpeg version (\S+)`)

// hwEncoders maps an encoder name to the acceleration backend it implies.
var hwEncoders = map[string]string{
	"h264_nvenc":        HWAccelNVENC,
	"h264_qsv":          HWAccelQSV,
	"h264_vaapi":        HWAccelVAAPI,
	"h264_videotoolbox": HWAccelVideoToolbox,
}

// Capabilities reports what the local ffmpeg binary can do.
type Capabilities struct {
	Available bool     `json:"available"`
	Path      string   `json:"path"`
	Version   string   `json:"version"`
	Encoders  []string `json:"encoders"`
	Formats   []string `json:"formats"`
	Filters   []string `json:"filters"`
	HWAccel   []string `json:"hwaccel"`
	Error     string   `json:"error,omitempty"`
}

// HasEncoder reports whether name appears in the encoder list.
func (c Capabilities) HasEncoder(name string) bool { return slices.Contains(c.Encoders, name) }

// HasFormat reports whether name is a known muxer.
func (c Capabilities) HasFormat(name string) bool { return slices.Contains(c.Formats, name) }

// HasFilter reports whether name is a known filter.
func (c Capabilities) HasFilter(name string) bool { return slices.Contains(c.Filters, name) }

// HasHWAccel reports whether the backend was detected.
func (c Capabilities) HasHWAccel(name string) bool { return slices.Contains(c.HWAccel, name) }

// Probe queries the binary for version, encoders, muxers and filters. Each
// query is bounded by ProbeTimeout. Failures degrade to an unavailable or
// partial report; Probe itself never fails.
func Probe(ctx context.Context, runner ports.ProcessRunner, binary string) Capabilities {
	caps := Capabilities{Path: binary}

	out, err := query(ctx, runner, binary, "-version")
	if err != nil {
		caps.Error = fmt.Sprintf("ffmpeg not runnable: %v", err)
		return caps
	}
	m := versionRe.FindStringSubmatch(out)
	if m == nil {
		caps.Error = "unexpected ffmpeg -version output"
		return caps
	}
	caps.Available = true
	caps.Version = m[1]

	if out, err := query(ctx, runner, binary, "-hide_banner", "-encoders"); err == nil {
		caps.Encoders = parseEncoders(out)
	}
	if out, err := query(ctx, runner, binary, "-hide_banner", "-formats"); err == nil {
		caps.Formats = parseMuxers(out)
	}
	if out, err := query(ctx, runner, binary, "-hide_banner", "-filters"); err == nil {
		caps.Filters = parseFilters(out)
	}

	// Some builds hide encoders from the list; ask for them by name.
	for _, codec := range append(slices.Clone(VideoCodecs), AudioCodecs...) {
		if caps.HasEncoder(codec) {
			continue
		}
		out, err := query(ctx, runner, binary, "-hide_banner", "-h", "encoder="+codec)
		if err == nil && strings.Contains(out, "Encoder "+codec) {
			caps.Encoders = append(caps.Encoders, codec)
		}
	}

	for enc, backend := range hwEncoders {
		if caps.HasEncoder(enc) && !caps.HasHWAccel(backend) {
			caps.HWAccel = append(caps.HWAccel, backend)
		}
	}
	slices.Sort(caps.HWAccel)
	return caps
}

func query(ctx context.Context, runner ports.ProcessRunner, binary string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()
	out, err := runner.Output(ctx, binary, args...)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// linesAfterSeparator yields trimmed lines after the "------" or " --" rule
// ffmpeg prints below its legend.
func linesAfterSeparator(out string) []string {
	var lines []string
	seen := false
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !seen {
			if strings.HasPrefix(line, "--") {
				seen = true
			}
			continue
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// parseEncoders reads lines like " V....D libx264   libx264 H.264 ...".
func parseEncoders(out string) []string {
	var names []string
	for _, line := range linesAfterSeparator(out) {
		fields := strings.Fields(line)
		if len(fields) < 2 || len(fields[0]) != 6 {
			continue
		}
		names = append(names, fields[1])
	}
	return names
}

// parseMuxers reads lines like " DE matroska,webm   Matroska / WebM" and
// keeps entries with the E (mux) flag.
func parseMuxers(out string) []string {
	var names []string
	for _, line := range linesAfterSeparator(out) {
		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.Contains(fields[0], "E") || len(fields[0]) > 3 {
			continue
		}
		for _, name := range strings.Split(fields[1], ",") {
			if name != "" && !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
	}
	return names
}

// parseFilters reads lines like " ..C scale   V->V   Scale the input video size.".
func parseFilters(out string) []string {
	var names []string
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 || !strings.Contains(fields[2], "->") {
			continue
		}
		names = append(names, fields[1])
	}
	return names
}
