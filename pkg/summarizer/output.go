package summarizer

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/user/karaexport/pkg/ports"
)

// Formatter renders a Summary as text.
type Formatter interface {
	Format(summary *Summary) string
}

// FormatFunc adapts a function to Formatter.
type FormatFunc func(summary *Summary) string

func (f FormatFunc) Format(summary *Summary) string {
	return f(summary)
}

// JSONFormatter renders a Summary as indented JSON for scripts and CI.
type JSONFormatter struct{}

func (JSONFormatter) Format(s *Summary) string {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		// Summary holds only plain values; this cannot happen.
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(data) + "\n"
}

// Writer saves summaries through a ports.FileSystem.
type Writer struct {
	fs ports.FileSystem
	md Formatter
}

// NewWriter returns a Writer that renders with formatter, except for paths
// ending in .json, which are always written as JSON.
func NewWriter(formatter Formatter, fs ports.FileSystem) *Writer {
	return &Writer{md: formatter, fs: fs}
}

// FormatterFor returns the formatter used for path.
func (w *Writer) FormatterFor(path string) Formatter {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return JSONFormatter{}
	}
	return w.md
}

// Write renders the summary and writes it to path.
func (w *Writer) Write(path string, summary *Summary) error {
	content := w.FormatterFor(path).Format(summary)
	if err := w.fs.WriteFile(path, []byte(content)); err != nil {
		return fmt.Errorf("summarizer: write %s: %w", path, err)
	}
	return nil
}
