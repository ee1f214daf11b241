// internal/oracle/archive.go
package oracle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Archiver writes every prompt sent to the model to a JSON sidecar file so a
// run can be audited afterwards. Archiving is best effort; a failed write is
// logged and never interrupts a run.
type Archiver struct {
	dir     string
	enabled bool
	logger  *zap.Logger
}

type promptRecord struct {
	Timestamp    string `json:"timestamp"`
	PromptType   string `json:"prompt_type"`
	ContextInfo  string `json:"context_info"`
	PromptText   string `json:"prompt_text"`
	PromptLength int    `json:"prompt_length"`
	LineCount    int    `json:"line_count"`
}

// NewArchiver creates a prompt archiver rooted at dir. A disabled archiver
// silently drops everything.
func NewArchiver(dir string, enabled bool, logger *zap.Logger) *Archiver {
	return &Archiver{
		dir:     dir,
		enabled: enabled,
		logger:  logger.Named("prompt_archive"),
	}
}

// Save writes one prompt record. promptType names the call site (decision,
// followup, verification, bug_analysis, plan) and contextInfo distinguishes
// records of the same type within a run.
func (a *Archiver) Save(prompt, promptType, contextInfo string) {
	if a == nil || !a.enabled {
		return
	}

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		a.logger.Warn("Failed to create prompt archive directory", zap.Error(err))
		return
	}

	now := time.Now()
	safeContext := sanitizeFilename(contextInfo)
	filename := fmt.Sprintf("prompt_monitor_%s_%s.json", promptType, now.Format("20060102_150405.000000"))
	if safeContext != "" {
		filename = fmt.Sprintf("prompt_monitor_%s_%s_%s.json", promptType, safeContext, now.Format("20060102_150405.000000"))
	}

	record := promptRecord{
		Timestamp:    now.Format(time.RFC3339Nano),
		PromptType:   "monitor_" + promptType,
		ContextInfo:  contextInfo,
		PromptText:   prompt,
		PromptLength: len(prompt),
		LineCount:    strings.Count(prompt, "\n") + 1,
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		a.logger.Warn("Failed to marshal prompt record", zap.Error(err))
		return
	}

	path := filepath.Join(a.dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		a.logger.Warn("Failed to write prompt record", zap.String("path", path), zap.Error(err))
		return
	}

	a.logger.Debug("Prompt archived", zap.String("path", path))
}

// sanitizeFilename keeps alphanumerics, dashes and underscores, replacing
// everything else with underscores.
func sanitizeFilename(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
