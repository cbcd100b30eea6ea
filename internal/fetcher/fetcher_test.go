package fetcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/andresuchdata/exportflow/internal/domain"
	"github.com/andresuchdata/exportflow/internal/testutil"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var folder = domain.Container{ID: "folder-x", Name: "X"}

func TestFetchAll_DownloadsIntoNewDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outputs", "gee")
	remote := testutil.NewFakeRemote(folder)
	remote.Content["a.tif"] = "AAA"
	entries := testutil.Entries(folder, "a.tif", "b.tif", "c.tif")

	n, err := New(remote, zerolog.Nop()).FetchAll(context.Background(), entries, dir)

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	data, err := os.ReadFile(filepath.Join(dir, "a.tif"))
	require.NoError(t, err)
	assert.Equal(t, "AAA", string(data))
	for _, name := range []string{"b.tif", "c.tif"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assertNoTempFiles(t, dir)
}

func TestFetchAll_IsIdempotent(t *testing.T) {
	dir := t.TempDir()
	remote := testutil.NewFakeRemote(folder)
	entries := testutil.Entries(folder, "a.tif", "b.tif")
	f := New(remote, zerolog.Nop())

	first, err := f.FetchAll(context.Background(), entries, dir)
	require.NoError(t, err)
	second, err := f.FetchAll(context.Background(), entries, dir)
	require.NoError(t, err)

	assert.Equal(t, 2, first)
	assert.Zero(t, second)
	assert.Equal(t, map[string]int{"a.tif": 1, "b.tif": 1}, remote.DownloadCalls)
}

func TestFetchAll_NeverOverwritesExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.tif"), []byte("local"), 0o644))
	remote := testutil.NewFakeRemote(folder)

	n, err := New(remote, zerolog.Nop()).FetchAll(context.Background(), testutil.Entries(folder, "a.tif", "b.tif"), dir)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	data, err := os.ReadFile(filepath.Join(dir, "a.tif"))
	require.NoError(t, err)
	assert.Equal(t, "local", string(data))
	assert.Zero(t, remote.DownloadCalls["a.tif"])
}

func TestFetchAll_AbortsOnFirstFailure(t *testing.T) {
	dir := t.TempDir()
	remote := testutil.NewFakeRemote(folder)
	remote.FailDownload["b.tif"] = fmt.Errorf("connection reset")

	n, err := New(remote, zerolog.Nop()).FetchAll(context.Background(), testutil.Entries(folder, "a.tif", "b.tif", "c.tif"), dir)

	var dlErr *domain.DownloadError
	require.True(t, errors.As(err, &dlErr))
	assert.Equal(t, "b.tif", dlErr.Entry)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 1, n)
	assert.Zero(t, remote.DownloadCalls["c.tif"], "no continuation after a failure")
	assert.NoFileExists(t, filepath.Join(dir, "b.tif"), "failed download must not look complete")
	assertNoTempFiles(t, dir)
}

func TestFetchAll_RejectsEscapingNames(t *testing.T) {
	for _, name := range []string{"../evil.tif", "nested/a.tif", "..", ""} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			remote := testutil.NewFakeRemote(folder)
			entries := []domain.RemoteEntry{{ID: "x", Name: name, ContainerID: folder.ID}}

			_, err := New(remote, zerolog.Nop()).FetchAll(context.Background(), entries, dir)

			var dlErr *domain.DownloadError
			require.True(t, errors.As(err, &dlErr))
			assert.Zero(t, remote.TotalDownloads())
		})
	}
}

func TestFetchAll_EmptyEntriesStillCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "staging")

	n, err := New(testutil.NewFakeRemote(folder), zerolog.Nop()).FetchAll(context.Background(), nil, dir)

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.DirExists(t, dir)
}

func TestFetchAll_RateLimitedStillDownloadsAll(t *testing.T) {
	dir := t.TempDir()
	remote := testutil.NewFakeRemote(folder)

	n, err := New(remote, zerolog.Nop(), WithRateLimit(1000)).FetchAll(context.Background(), testutil.Entries(folder, "a", "b", "c"), dir)

	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestFetchAll_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	remote := testutil.NewFakeRemote(folder)

	_, err := New(remote, zerolog.Nop()).FetchAll(ctx, testutil.Entries(folder, "a"), t.TempDir())

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, remote.TotalDownloads())
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".download-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}
