package archiver

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andresuchdata/exportflow/internal/domain"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ts = time.Date(2025, 10, 4, 14, 30, 12, 0, time.UTC)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func readDirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestArchive_MovesEverythingIntoRunDir(t *testing.T) {
	root := t.TempDir()
	staging := filepath.Join(root, "outputs", "gee")
	plots := filepath.Join(root, "outputs", "plots")
	writeFiles(t, staging, map[string]string{"a.tif": "a", "b.tif": "b"})
	writeFiles(t, plots, map[string]string{"change_map.png": "png"})
	require.NoError(t, os.MkdirAll(filepath.Join(plots, "series"), 0o755))

	dest := filepath.Join(root, "outputs", "processed")
	finalDir, err := New(zerolog.Nop()).Archive(ts, []string{staging, plots}, dest)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "run_20251004_1430"), finalDir)
	assert.ElementsMatch(t, []string{"a.tif", "b.tif", "change_map.png", "series"}, readDirNames(t, finalDir))
	assert.Empty(t, readDirNames(t, staging))
	assert.Empty(t, readDirNames(t, plots))
	assert.DirExists(t, staging, "source directories are kept")
}

func TestArchive_SkipsMissingSources(t *testing.T) {
	root := t.TempDir()
	staging := filepath.Join(root, "gee")
	writeFiles(t, staging, map[string]string{"a.tif": "a"})

	finalDir, err := New(zerolog.Nop()).Archive(ts, []string{staging, filepath.Join(root, "plots")}, filepath.Join(root, "processed"))

	require.NoError(t, err)
	assert.Equal(t, []string{"a.tif"}, readDirNames(t, finalDir))
	assert.NoDirExists(t, filepath.Join(root, "plots"))
}

func TestArchive_LastSourceWinsOnCollision(t *testing.T) {
	root := t.TempDir()
	first := filepath.Join(root, "gee")
	second := filepath.Join(root, "plots")
	writeFiles(t, first, map[string]string{"report.txt": "from gee"})
	writeFiles(t, second, map[string]string{"report.txt": "from plots"})

	finalDir, err := New(zerolog.Nop()).Archive(ts, []string{first, second}, filepath.Join(root, "processed"))

	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(finalDir, "report.txt"))
	require.NoError(t, err)
	assert.Equal(t, "from plots", string(data))
	assert.Empty(t, readDirNames(t, first))
	assert.Empty(t, readDirNames(t, second))
}

func TestArchive_SameMinuteReusesRunDir(t *testing.T) {
	root := t.TempDir()
	staging := filepath.Join(root, "gee")
	dest := filepath.Join(root, "processed")
	a := New(zerolog.Nop())

	writeFiles(t, staging, map[string]string{"first.tif": "1"})
	firstDir, err := a.Archive(ts, []string{staging}, dest)
	require.NoError(t, err)

	writeFiles(t, staging, map[string]string{"second.tif": "2"})
	secondDir, err := a.Archive(ts.Add(20*time.Second), []string{staging}, dest)
	require.NoError(t, err)

	assert.Equal(t, firstDir, secondDir)
	assert.ElementsMatch(t, []string{"first.tif", "second.tif"}, readDirNames(t, secondDir))
}

func TestArchive_SourceContainingDestinationIsNotMovedIntoItself(t *testing.T) {
	root := t.TempDir()
	outputs := filepath.Join(root, "outputs")
	writeFiles(t, outputs, map[string]string{"a.tif": "a"})

	finalDir, err := New(zerolog.Nop()).Archive(ts, []string{outputs}, outputs)

	require.NoError(t, err)
	assert.Equal(t, []string{"a.tif"}, readDirNames(t, finalDir))
}

func TestArchive_RelocationErrorReturnsRunDir(t *testing.T) {
	root := t.TempDir()
	first := filepath.Join(root, "gee")
	second := filepath.Join(root, "plots")
	writeFiles(t, first, map[string]string{"keep.tif": "a"})
	// A non-empty directory cannot be renamed over another non-empty directory.
	writeFiles(t, filepath.Join(first, "maps"), map[string]string{"x.png": "x"})
	writeFiles(t, filepath.Join(second, "maps"), map[string]string{"y.png": "y"})

	finalDir, err := New(zerolog.Nop()).Archive(ts, []string{first, second}, filepath.Join(root, "processed"))

	var relErr *domain.RelocationError
	require.True(t, errors.As(err, &relErr), "got %v", err)
	assert.Equal(t, filepath.Join(second, "maps"), relErr.Source)
	assert.Equal(t, filepath.Join(root, "processed", "run_20251004_1430"), finalDir)
	assert.DirExists(t, finalDir)
}

func TestArchive_SourceIsFile(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := New(zerolog.Nop()).Archive(ts, []string{file}, filepath.Join(root, "processed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}
