package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/andresuchdata/exportflow/internal/domain"
	"github.com/andresuchdata/exportflow/internal/repository"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const runColumns = `
	id, run_timestamp, output_directory, file_count, downloaded_count,
	step_log, status, started_at, completed_at, COALESCE(error_message, '') AS error_message
`

type runRow struct {
	ID              string         `db:"id"`
	Timestamp       string         `db:"run_timestamp"`
	OutputDirectory string         `db:"output_directory"`
	FileCount       int            `db:"file_count"`
	DownloadedCount int            `db:"downloaded_count"`
	StepLog         pq.StringArray `db:"step_log"`
	Status          string         `db:"status"`
	StartedAt       time.Time      `db:"started_at"`
	CompletedAt     *time.Time     `db:"completed_at"`
	ErrorMessage    string         `db:"error_message"`
}

func (r runRow) toDomain() *domain.RunRecord {
	return &domain.RunRecord{
		ID:              r.ID,
		Timestamp:       r.Timestamp,
		OutputDirectory: r.OutputDirectory,
		FileCount:       r.FileCount,
		DownloadedCount: r.DownloadedCount,
		StepLog:         []string(r.StepLog),
		Status:          domain.RunStatus(r.Status),
		StartedAt:       r.StartedAt,
		CompletedAt:     r.CompletedAt,
		ErrorMessage:    r.ErrorMessage,
	}
}

type runRepository struct {
	db *DB
}

// NewRunRepository returns a Postgres-backed run history.
func NewRunRepository(db *DB) repository.RunRepository {
	return &runRepository{db: db}
}

// SaveRun inserts the run or updates it when the id already exists.
func (r *runRepository) SaveRun(ctx context.Context, run *domain.RunRecord) error {
	query := `
		INSERT INTO pipeline_runs (
			id, run_timestamp, output_directory, file_count, downloaded_count,
			step_log, status, started_at, completed_at, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''))
		ON CONFLICT (id) DO UPDATE SET
			run_timestamp = EXCLUDED.run_timestamp,
			output_directory = EXCLUDED.output_directory,
			file_count = EXCLUDED.file_count,
			downloaded_count = EXCLUDED.downloaded_count,
			step_log = EXCLUDED.step_log,
			status = EXCLUDED.status,
			completed_at = EXCLUDED.completed_at,
			error_message = EXCLUDED.error_message
	`

	steps := run.StepLog
	if steps == nil {
		steps = []string{}
	}

	return r.db.withLimit(ctx, func() error {
		_, err := r.db.ExecContext(ctx, query,
			run.ID, run.Timestamp, run.OutputDirectory, run.FileCount, run.DownloadedCount,
			pq.Array(steps), string(run.Status), run.StartedAt, run.CompletedAt, run.ErrorMessage,
		)
		if err != nil {
			return errors.Wrapf(err, "failed to save run %s", run.ID)
		}
		return nil
	})
}

func (r *runRepository) GetRun(ctx context.Context, id string) (*domain.RunRecord, error) {
	var row runRow
	err := r.db.withLimit(ctx, func() error {
		return r.db.GetContext(ctx, &row, `SELECT `+runColumns+` FROM pipeline_runs WHERE id = $1`, id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrRunNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get run %s", id)
	}
	return row.toDomain(), nil
}

func (r *runRepository) LatestRun(ctx context.Context) (*domain.RunRecord, error) {
	runs, err := r.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, repository.ErrRunNotFound
	}
	return runs[0], nil
}

func (r *runRepository) ListRuns(ctx context.Context, limit int) ([]*domain.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []runRow
	err := r.db.withLimit(ctx, func() error {
		return r.db.SelectContext(ctx, &rows,
			`SELECT `+runColumns+` FROM pipeline_runs ORDER BY started_at DESC LIMIT $1`, limit)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}

	runs := make([]*domain.RunRecord, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, row.toDomain())
	}
	return runs, nil
}
