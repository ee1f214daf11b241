// internal/reporting/reporter.go

// Package reporting persists run artifacts: result JSON files and bug
// analysis markdown, named by test slug and unix timestamp.
package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Writer saves reports under a single output directory.
type Writer struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

// NewWriter returns a report writer rooted at dir. An empty dir means the
// current working directory.
func NewWriter(dir string, logger *zap.Logger) *Writer {
	if dir == "" {
		dir = "."
	}
	return &Writer{
		dir:    dir,
		logger: logger.Named("reporting"),
		now:    time.Now,
	}
}

// SaveResult writes a report as indented JSON and returns the file path.
// The file is named test_results_<slug>_<unixts>.json unless overridePath
// is non-empty.
func (w *Writer) SaveResult(name string, report interface{}, overridePath string) (string, error) {
	path := overridePath
	if path == "" {
		path = filepath.Join(w.dir, fmt.Sprintf("test_results_%s_%d.json", slug(name), w.now().Unix()))
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize report: %w", err)
	}
	if err := w.writeFile(path, data); err != nil {
		return "", err
	}

	w.logger.Info("report saved", zap.String("path", path))
	return path, nil
}

// SaveAnalysis writes a bug analysis as markdown and returns the file path.
func (w *Writer) SaveAnalysis(name, analysis string) (string, error) {
	path := filepath.Join(w.dir, fmt.Sprintf("bug_analysis_%s_%d.md", slug(name), w.now().Unix()))

	var b strings.Builder
	fmt.Fprintf(&b, "# Bug Analysis: %s\n\n", name)
	fmt.Fprintf(&b, "Generated: %s\n\n", w.now().Format("2006-01-02 15:04:05"))
	b.WriteString(analysis)
	if !strings.HasSuffix(analysis, "\n") {
		b.WriteString("\n")
	}

	if err := w.writeFile(path, []byte(b.String())); err != nil {
		return "", err
	}

	w.logger.Info("bug analysis saved", zap.String("path", path))
	return path, nil
}

func (w *Writer) writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}

func slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
