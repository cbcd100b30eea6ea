package pipeline

import (
	"context"
	"time"

	"github.com/andresuchdata/exportflow/internal/archiver"
	"github.com/andresuchdata/exportflow/internal/cache"
	"github.com/andresuchdata/exportflow/internal/domain"
	"github.com/andresuchdata/exportflow/internal/fetcher"
	"github.com/andresuchdata/exportflow/internal/poller"
	"github.com/andresuchdata/exportflow/internal/repository"
	"github.com/andresuchdata/exportflow/internal/summary"
	"github.com/andresuchdata/exportflow/internal/task"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrRunInProgress is returned when another process holds the run lock.
var ErrRunInProgress = errors.New("another pipeline run is in progress")

// Orchestrator runs the pipeline stages strictly in order.
type Orchestrator struct {
	cfg     Config
	remote  Remote
	export  task.Runnable
	process task.Runnable
	clock   poller.Clock
	history repository.RunRepository
	cache   cache.RunCache
	log     zerolog.Logger
}

// Option overrides an optional Orchestrator collaborator.
type Option func(*Orchestrator)

func WithClock(clock poller.Clock) Option {
	return func(o *Orchestrator) { o.clock = clock }
}

func WithHistory(history repository.RunRepository) Option {
	return func(o *Orchestrator) { o.history = history }
}

func WithRunCache(c cache.RunCache) Option {
	return func(o *Orchestrator) { o.cache = c }
}

// NewOrchestrator creates a new Orchestrator. History and run cache default to
// no-ops and the clock to wall-clock time.
func NewOrchestrator(cfg Config, remote Remote, export, process task.Runnable, log zerolog.Logger, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid pipeline config")
	}
	if remote == nil {
		return nil, errors.New("remote client is required")
	}
	if export == nil || process == nil {
		return nil, errors.New("export and process tasks are required")
	}

	o := &Orchestrator{
		cfg:     cfg,
		remote:  remote,
		export:  export,
		process: process,
		clock:   poller.RealClock(),
		history: repository.NewNoopRunRepository(),
		cache:   cache.NewNoopRunCache(),
		log:     log,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run executes export, poll, fetch, process, archive and summary. The returned
// record is non-nil whenever the run got past the lock, including failed runs.
func (o *Orchestrator) Run(ctx context.Context) (*domain.RunRecord, error) {
	run := &domain.RunRecord{
		ID:        uuid.NewString(),
		StepLog:   append([]string(nil), domain.StepLog...),
		Status:    domain.RunStatusRunning,
		StartedAt: o.clock.Now(),
	}
	log := o.log.With().Str("run_id", run.ID).Logger()

	acquired, err := o.cache.AcquireRunLock(ctx, run.ID)
	if err != nil {
		return nil, errors.WithStack(&domain.StageError{Stage: StageLock, Err: err})
	}
	if !acquired {
		return nil, errors.WithStack(&domain.StageError{Stage: StageLock, Err: ErrRunInProgress})
	}
	defer func() {
		if err := o.cache.ReleaseRunLock(context.WithoutCancel(ctx), run.ID); err != nil {
			log.Warn().Err(err).Msg("Failed to release run lock")
		}
	}()

	log.Info().Str("container", o.cfg.ContainerName).Msg("Pipeline run started")
	o.record(ctx, run, log)

	runErr := o.execute(ctx, run, log)

	completed := o.clock.Now()
	run.CompletedAt = &completed
	if runErr != nil {
		run.Status = domain.RunStatusFailed
		run.ErrorMessage = runErr.Error()
		log.Error().Err(runErr).Msg("Pipeline run failed")
	} else {
		run.Status = domain.RunStatusCompleted
		log.Info().
			Str("output_dir", run.OutputDirectory).
			Int("files", run.FileCount).
			Dur("duration", completed.Sub(run.StartedAt)).
			Msg("Pipeline completed successfully")
	}

	// history must survive a cancelled run
	finishCtx := context.WithoutCancel(ctx)
	if run.OutputDirectory != "" {
		if _, err := summary.NewWriter(o.cfg.SummaryTitle).WriteManifest(run.OutputDirectory, run); err != nil {
			log.Warn().Err(err).Msg("Failed to write run manifest")
		}
	}
	o.record(finishCtx, run, log)
	if err := o.cache.SetLastRun(finishCtx, run); err != nil {
		log.Warn().Err(err).Msg("Failed to cache last run")
	}

	return run, runErr
}

func (o *Orchestrator) execute(ctx context.Context, run *domain.RunRecord, log zerolog.Logger) error {
	if err := o.export.Execute(ctx); err != nil {
		return stageErr(StageExport, &domain.ExportFailure{Task: o.export.Name(), Err: err})
	}
	log.Info().Msg("Export task submitted")

	entries, err := poller.New(o.remote, o.clock, log).
		WaitForExports(ctx, o.cfg.ContainerName, o.cfg.PollInterval, o.cfg.MaxWait)
	if err != nil {
		return stageErr(StagePoll, err)
	}
	run.FileCount = len(entries)

	downloaded, err := fetcher.New(o.remote, log, fetcher.WithRateLimit(o.cfg.DownloadRateLimit)).
		FetchAll(ctx, entries, o.cfg.StagingDir)
	run.DownloadedCount = downloaded
	if err != nil {
		return stageErr(StageFetch, err)
	}

	if err := o.process.Execute(ctx); err != nil {
		return stageErr(StageProcess, &domain.ProcessingFailure{Task: o.process.Name(), Err: err})
	}
	log.Info().Msg("Processing completed")

	timestamp := o.clock.Now()
	run.Timestamp = domain.FormatTimestamp(timestamp)
	finalDir, archiveErr := archiver.New(log).Archive(timestamp, o.cfg.ArchiveSources(), o.cfg.ArchiveRoot)
	run.OutputDirectory = finalDir
	if finalDir == "" {
		return stageErr(StageArchive, archiveErr)
	}

	// a partial archive still gets its summary before the relocation error surfaces
	path, err := summary.NewWriter(o.cfg.SummaryTitle).WriteSummary(finalDir, timestamp, run.FileCount)
	if archiveErr != nil {
		if err != nil {
			log.Error().Err(err).Msg("Failed to write summary after relocation error")
		}
		return stageErr(StageArchive, archiveErr)
	}
	if err != nil {
		return stageErr(StageSummary, err)
	}
	log.Info().Str("path", path).Msg("Summary written")

	return nil
}

// record saves run to history; failures are logged and never fail the run.
func (o *Orchestrator) record(ctx context.Context, run *domain.RunRecord, log zerolog.Logger) {
	if err := o.history.SaveRun(ctx, run); err != nil {
		log.Warn().Err(err).Str("status", string(run.Status)).Msg("Failed to record run history")
	}
}

func stageErr(stage string, err error) error {
	return errors.WithStack(&domain.StageError{Stage: stage, Err: err})
}

// Elapsed reports how long a finished run took.
func Elapsed(run *domain.RunRecord) time.Duration {
	if run == nil || run.CompletedAt == nil {
		return 0
	}
	return run.CompletedAt.Sub(run.StartedAt)
}
