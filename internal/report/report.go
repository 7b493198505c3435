// Package report assembles and persists the outcome of one successful
// evaluation attempt. Reports are write-once; nothing reads them back in
// this process.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/evalops/botvet/internal/botclient"
	"github.com/evalops/botvet/internal/conversation"
	"github.com/evalops/botvet/internal/judge"
)

// Report is the full record of one evaluation run: what was asked, what the
// persona answered, how the service graded it, and what the judge thought.
type Report struct {
	Persona      string                     `json:"persona"`
	SkillID      string                     `json:"skill_id"`
	Assessment   *botclient.Assessment      `json:"assessment"`
	FinalSession *botclient.SessionSnapshot `json:"final_session"`
	Transcript   []conversation.Turn        `json:"transcript"`
	Judge        *judge.Evaluation          `json:"judge_evaluation"`
	CreatedAt    time.Time                  `json:"created_at"`
}

// Writer persists one report. Implementations must be safe for concurrent
// use; concurrent attempts write distinct reports.
type Writer interface {
	Write(ctx context.Context, report *Report) error
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func sanitizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	s = unsafeChars.ReplaceAllString(s, "")
	if s == "" {
		s = "unnamed"
	}
	return s
}

// Filename returns the report filename for one attempt. The assessment id
// keeps concurrent runs of the same (skill, persona) pair distinct.
func Filename(r *Report, compress bool) string {
	name := fmt.Sprintf("report-%s-%s-%s-%s.json",
		sanitizeName(r.SkillID),
		sanitizeName(r.Persona),
		sanitizeName(r.Assessment.ID),
		r.CreatedAt.Format("20060102-150405"))
	if compress {
		name += ".gz"
	}
	return name
}

func encode(r *Report, compress bool) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}

	if !compress {
		return data, nil
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return nil, fmt.Errorf("compress report: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("compress report: %w", err)
	}
	return buf.Bytes(), nil
}

// FileWriter writes reports as JSON files under a single directory,
// optionally gzip-compressed.
type FileWriter struct {
	Dir      string
	Compress bool

	log *slog.Logger
}

func NewFileWriter(dir string, compress bool, log *slog.Logger) *FileWriter {
	if log == nil {
		log = slog.Default()
	}
	return &FileWriter{Dir: dir, Compress: compress, log: log}
}

// Write implements [Writer].
func (w *FileWriter) Write(_ context.Context, report *Report) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	data, err := encode(report, w.Compress)
	if err != nil {
		return err
	}

	path := filepath.Join(w.Dir, Filename(report, w.Compress))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	w.log.Info("report written", "path", path, "persona", report.Persona, "skill", report.SkillID)
	return nil
}
