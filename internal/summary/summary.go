package summary

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andresuchdata/exportflow/internal/domain"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	FileName         = "SUMMARY.txt"
	ManifestFileName = "run.yaml"
	DefaultTitle     = "Export Pipeline - Pipeline Run"
)

// Writer renders the per-run report files.
type Writer struct {
	Title string
}

// NewWriter creates a Writer; an empty title falls back to DefaultTitle.
func NewWriter(title string) *Writer {
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}
	return &Writer{Title: title}
}

// Render returns the SUMMARY.txt body.
func (w *Writer) Render(timestamp time.Time, fileCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", w.Title)
	fmt.Fprintf(&b, "Timestamp: %s\n", domain.FormatTimestamp(timestamp))
	fmt.Fprintf(&b, "Files processed: %d\n", fileCount)
	b.WriteString("Steps:\n")
	for i, step := range domain.StepLog {
		fmt.Fprintf(&b, " %d) %s\n", i+1, step)
	}
	return b.String()
}

// WriteSummary writes finalDir/SUMMARY.txt, replacing any existing file.
func (w *Writer) WriteSummary(finalDir string, timestamp time.Time, fileCount int) (string, error) {
	path := filepath.Join(finalDir, FileName)
	if err := os.WriteFile(path, []byte(w.Render(timestamp, fileCount)), 0o644); err != nil {
		return "", errors.Wrapf(err, "write summary %s", path)
	}
	return path, nil
}

// WriteManifest writes finalDir/run.yaml with the full run record.
func (w *Writer) WriteManifest(finalDir string, record *domain.RunRecord) (string, error) {
	data, err := yaml.Marshal(record)
	if err != nil {
		return "", errors.Wrap(err, "encode run manifest")
	}

	path := filepath.Join(finalDir, ManifestFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write manifest %s", path)
	}
	return path, nil
}

// ReadManifest loads a run.yaml written by WriteManifest.
func ReadManifest(path string) (*domain.RunRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read manifest %s", path)
	}

	var record domain.RunRecord
	if err := yaml.Unmarshal(data, &record); err != nil {
		return nil, errors.Wrapf(err, "decode manifest %s", path)
	}
	return &record, nil
}
