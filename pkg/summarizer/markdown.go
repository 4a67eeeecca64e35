package summarizer

import (
	"fmt"
	"strings"
	"time"
)

// Translator translates a label. Keys are the English labels.
type Translator func(key string) string

// MarkdownOption configures a MarkdownFormatter.
type MarkdownOption func(*MarkdownFormatter)

// WithTranslator sets the label translator.
func WithTranslator(t Translator) MarkdownOption {
	return func(f *MarkdownFormatter) { f.t = t }
}

// WithVersion sets the version shown in the footer.
func WithVersion(v string) MarkdownOption {
	return func(f *MarkdownFormatter) { f.version = v }
}

// MarkdownFormatter renders a Summary as Markdown tables.
type MarkdownFormatter struct {
	t       Translator
	version string
}

// NewMarkdownFormatter creates a MarkdownFormatter.
func NewMarkdownFormatter(opts ...MarkdownOption) *MarkdownFormatter {
	f := &MarkdownFormatter{t: func(key string) string { return key }}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", f.t("Export Summary"))

	f.section(&sb, "Result")
	f.row(&sb, "Output", s.Export.OutputPath)
	f.row(&sb, "Status", f.t(s.Export.Status))
	if s.Export.ID != "" {
		f.row(&sb, "Export ID", s.Export.ID)
	}
	f.row(&sb, "Attempts", fmt.Sprintf("%d", s.Export.Attempts))
	f.row(&sb, "Elapsed", formatDuration(s.Export.Elapsed))
	if s.Export.Error != "" {
		f.row(&sb, "Error", s.Export.Error)
	}
	sb.WriteString("\n")
	if len(s.Export.Suggestions) > 0 {
		fmt.Fprintf(&sb, "**%s**\n\n", f.t("Suggestions"))
		for _, hint := range s.Export.Suggestions {
			fmt.Fprintf(&sb, "- %s\n", hint)
		}
		sb.WriteString("\n")
	}

	f.section(&sb, "Settings")
	f.row(&sb, "Resolution", fmt.Sprintf("%dx%d", s.Settings.Width, s.Settings.Height))
	f.row(&sb, "Frame Rate", fmt.Sprintf("%.2f fps", s.Settings.FPS))
	f.row(&sb, "Video Codec", s.Settings.VideoCodec)
	if s.Settings.AudioCodec != "" {
		f.row(&sb, "Audio Codec", s.Settings.AudioCodec)
	}
	f.row(&sb, "Container", s.Settings.Container)
	if s.Settings.Preset != "" {
		f.row(&sb, "Preset", s.Settings.Preset)
	}
	switch {
	case s.Settings.Bitrate > 0:
		f.row(&sb, "Rate Control", fmt.Sprintf("%d kbps", s.Settings.Bitrate))
	case s.Settings.CRF != nil:
		f.row(&sb, "Rate Control", fmt.Sprintf("CRF %d", *s.Settings.CRF))
	}
	if s.Settings.HWAccel != "" {
		f.row(&sb, "Hardware Acceleration", s.Settings.HWAccel)
	}
	sb.WriteString("\n")

	f.section(&sb, "Frames")
	f.row(&sb, "Song Length", fmt.Sprintf("%.2f s", s.Frames.Duration))
	f.row(&sb, "Timeline Frames", fmt.Sprintf("%d", s.Frames.Total))
	f.row(&sb, "Captured", fmt.Sprintf("%d", s.Frames.Captured))
	f.row(&sb, "Dropped", fmt.Sprintf("%d", s.Frames.Dropped))
	f.row(&sb, "Written", fmt.Sprintf("%d", s.Frames.Written))
	if s.Frames.Skipped > 0 {
		f.row(&sb, "Skipped", fmt.Sprintf("%d", s.Frames.Skipped))
	}
	if s.Frames.AudioOffset != 0 {
		f.row(&sb, "Audio Offset", fmt.Sprintf("%+.3f s", s.Frames.AudioOffset))
	}
	if s.Frames.RenderMean > 0 {
		f.row(&sb, "Mean Render Time", formatDuration(s.Frames.RenderMean))
	}
	sb.WriteString("\n")

	if s.Encoder.FPS > 0 || s.Encoder.Speed > 0 {
		f.section(&sb, "Encoder")
		f.row(&sb, "Encoding Speed", fmt.Sprintf("%.1f fps (%.2fx)", s.Encoder.FPS, s.Encoder.Speed))
		if s.Encoder.Bitrate != "" {
			f.row(&sb, "Bitrate", s.Encoder.Bitrate)
		}
		f.row(&sb, "Duplicated", fmt.Sprintf("%d", s.Encoder.Duplicated))
		f.row(&sb, "Dropped", fmt.Sprintf("%d", s.Encoder.Dropped))
		sb.WriteString("\n")
		f.list(&sb, "Encoder Warnings", s.Encoder.Warnings)
	}

	if o := s.Output; o != nil {
		f.section(&sb, "Output")
		f.row(&sb, "File Size", formatBytes(o.FileSize))
		if o.Probed {
			f.row(&sb, "Container", o.Container)
			f.row(&sb, "Video Codec", o.VideoCodec)
			f.row(&sb, "Resolution", fmt.Sprintf("%dx%d", o.Width, o.Height))
			f.row(&sb, "Frames", fmt.Sprintf("%d", o.Frames))
			f.row(&sb, "Duration", fmt.Sprintf("%.2f s", o.Duration))
			f.row(&sb, "Audio", f.yesNo(o.HasAudio))
		} else {
			f.row(&sb, "Container", f.t("Not inspected"))
		}
		sb.WriteString("\n")
		f.list(&sb, "Verification Warnings", o.Warnings)
	}

	if len(s.Checks) > 0 {
		fmt.Fprintf(&sb, "## %s\n\n", f.t("Preflight"))
		for _, c := range s.Checks {
			fmt.Fprintf(&sb, "- **%s** %s: %s\n", f.t(c.Level), c.Name, c.Message)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "---\n\n%s %s", f.t("Generated at"), s.GeneratedAt.Format(time.RFC3339))
	if f.version != "" {
		fmt.Fprintf(&sb, " (karaexport %s)", f.version)
	}
	sb.WriteString("\n")
	return sb.String()
}

func (f *MarkdownFormatter) section(sb *strings.Builder, title string) {
	fmt.Fprintf(sb, "## %s\n\n| %s | %s |\n|---|---|\n", f.t(title), f.t("Item"), f.t("Value"))
}

func (f *MarkdownFormatter) row(sb *strings.Builder, label, value string) {
	fmt.Fprintf(sb, "| %s | %s |\n", f.t(label), strings.ReplaceAll(value, "|", "\\|"))
}

func (f *MarkdownFormatter) list(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "**%s**\n\n", f.t(title))
	for _, item := range items {
		fmt.Fprintf(sb, "- %s\n", item)
	}
	sb.WriteString("\n")
}

func (f *MarkdownFormatter) yesNo(b bool) string {
	if b {
		return f.t("Yes")
	}
	return f.t("No")
}

// formatBytes formats a byte count with binary units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 2; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMG"[exp])
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}
