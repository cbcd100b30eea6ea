package summary

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andresuchdata/exportflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ts = time.Date(2025, 10, 4, 14, 30, 0, 0, time.UTC)

func TestWriteSummary_FixedFormat(t *testing.T) {
	dir := t.TempDir()

	path, err := NewWriter("SAR Tren Maya Analysis - Pipeline Run").WriteSummary(dir, ts, 3)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "SUMMARY.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "SAR Tren Maya Analysis - Pipeline Run\n" +
		"Timestamp: 20251004_1430\n" +
		"Files processed: 3\n" +
		"Steps:\n" +
		" 1) Exported from remote\n" +
		" 2) Downloaded from remote storage\n" +
		" 3) Processed locally\n" +
		" 4) Stored in outputs folder\n"
	assert.Equal(t, want, string(data))
}

func TestWriteSummary_OverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("stale summary that is much longer than the new one ..............................................................................................................................................\n"), 0o644))

	path, err := NewWriter("").WriteSummary(dir, ts, 0)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), DefaultTitle)
	assert.Contains(t, string(data), "Files processed: 0\n")
	assert.NotContains(t, string(data), "stale")
}

func TestWriteSummary_MissingDirectory(t *testing.T) {
	_, err := NewWriter("").WriteSummary(filepath.Join(t.TempDir(), "missing"), ts, 1)
	require.Error(t, err)
}

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	completed := ts.Add(time.Minute)
	record := &domain.RunRecord{
		ID:              "3b5c1d0e-2f7a-4d8e-9c1b-5a6f7e8d9c0b",
		Timestamp:       "20251004_1430",
		OutputDirectory: dir,
		FileCount:       3,
		DownloadedCount: 2,
		StepLog:         domain.StepLog,
		Status:          domain.RunStatusCompleted,
		StartedAt:       ts,
		CompletedAt:     &completed,
	}

	path, err := NewWriter("").WriteManifest(dir, record)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "file_count: 3")
	assert.Contains(t, string(raw), "status: completed")

	got, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, record.StepLog, got.StepLog)
	assert.True(t, record.StartedAt.Equal(got.StartedAt))
	require.NotNil(t, got.CompletedAt)
	assert.True(t, completed.Equal(*got.CompletedAt))
}
