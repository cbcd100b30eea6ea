package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andresuchdata/exportflow/internal/domain"
	"github.com/andresuchdata/exportflow/internal/summary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRun(t *testing.T, root string, id string, started time.Time) {
	t.Helper()
	dir := filepath.Join(root, "run_"+domain.FormatTimestamp(started))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	_, err := summary.NewWriter("").WriteManifest(dir, &domain.RunRecord{
		ID:        id,
		Timestamp: domain.FormatTimestamp(started),
		StartedAt: started,
		Status:    domain.RunStatusCompleted,
		FileCount: 3,
	})
	require.NoError(t, err)
}

func TestManifestRunRepository(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2025, 10, 4, 8, 0, 0, 0, time.UTC)
	writeRun(t, root, "first", base)
	writeRun(t, root, "third", base.Add(48*time.Hour))
	writeRun(t, root, "second", base.Add(24*time.Hour))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "run_20250101_0000"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "run_20250101_0000", "run.yaml"), []byte("id: [unclosed"), 0o644))

	repo := NewManifestRunRepository(root)
	ctx := context.Background()

	runs, err := repo.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"third", "second", "first"}, []string{runs[0].ID, runs[1].ID, runs[2].ID})

	runs, err = repo.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	latest, err := repo.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "third", latest.ID)

	run, err := repo.GetRun(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, 3, run.FileCount)

	_, err = repo.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestManifestRunRepositoryEmptyRoot(t *testing.T) {
	repo := NewManifestRunRepository(filepath.Join(t.TempDir(), "nothing-here"))

	_, err := repo.LatestRun(context.Background())
	assert.ErrorIs(t, err, ErrRunNotFound)

	runs, err := repo.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestNoopRunRepository(t *testing.T) {
	repo := NewNoopRunRepository()
	require.NoError(t, repo.SaveRun(context.Background(), &domain.RunRecord{ID: "x"}))
	_, err := repo.GetRun(context.Background(), "x")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
