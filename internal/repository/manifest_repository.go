package repository

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/andresuchdata/exportflow/internal/archiver"
	"github.com/andresuchdata/exportflow/internal/domain"
	"github.com/andresuchdata/exportflow/internal/summary"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ManifestRunRepository serves run history straight from the run.yaml files
// under an archive root. Runs are persisted by the summary writer, so SaveRun
// is a no-op here.
type ManifestRunRepository struct {
	archiveRoot string
}

// NewManifestRunRepository creates a repository rooted at archiveRoot.
func NewManifestRunRepository(archiveRoot string) *ManifestRunRepository {
	return &ManifestRunRepository{archiveRoot: archiveRoot}
}

func (r *ManifestRunRepository) SaveRun(context.Context, *domain.RunRecord) error { return nil }

func (r *ManifestRunRepository) GetRun(ctx context.Context, id string) (*domain.RunRecord, error) {
	runs, err := r.load()
	if err != nil {
		return nil, err
	}
	for _, run := range runs {
		if run.ID == id {
			return run, nil
		}
	}
	return nil, ErrRunNotFound
}

func (r *ManifestRunRepository) LatestRun(ctx context.Context) (*domain.RunRecord, error) {
	runs, err := r.load()
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrRunNotFound
	}
	return runs[0], nil
}

func (r *ManifestRunRepository) ListRuns(ctx context.Context, limit int) ([]*domain.RunRecord, error) {
	runs, err := r.load()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// load reads every manifest, newest first. Unreadable manifests are skipped.
func (r *ManifestRunRepository) load() ([]*domain.RunRecord, error) {
	paths, err := filepath.Glob(filepath.Join(r.archiveRoot, archiver.RunDirPrefix+"*", summary.ManifestFileName))
	if err != nil {
		return nil, errors.Wrap(err, "glob run manifests")
	}

	runs := make([]*domain.RunRecord, 0, len(paths))
	for _, path := range paths {
		run, err := summary.ReadManifest(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				log.Warn().Err(err).Str("path", path).Msg("Skipping unreadable run manifest")
			}
			continue
		}
		runs = append(runs, run)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs, nil
}

var _ RunRepository = (*ManifestRunRepository)(nil)
