package repository

import (
	"context"
	"errors"

	"github.com/andresuchdata/exportflow/internal/domain"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// RunRepository persists and queries pipeline run history.
type RunRepository interface {
	SaveRun(ctx context.Context, run *domain.RunRecord) error
	GetRun(ctx context.Context, id string) (*domain.RunRecord, error)
	LatestRun(ctx context.Context) (*domain.RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]*domain.RunRecord, error)
}

type noopRunRepository struct{}

// NewNoopRunRepository returns a repository that stores nothing.
func NewNoopRunRepository() RunRepository {
	return noopRunRepository{}
}

func (noopRunRepository) SaveRun(context.Context, *domain.RunRecord) error { return nil }

func (noopRunRepository) GetRun(context.Context, string) (*domain.RunRecord, error) {
	return nil, ErrRunNotFound
}

func (noopRunRepository) LatestRun(context.Context) (*domain.RunRecord, error) {
	return nil, ErrRunNotFound
}

func (noopRunRepository) ListRuns(context.Context, int) ([]*domain.RunRecord, error) {
	return nil, nil
}
