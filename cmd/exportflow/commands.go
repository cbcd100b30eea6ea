package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/andresuchdata/exportflow/internal/archiver"
	"github.com/andresuchdata/exportflow/internal/cache"
	"github.com/andresuchdata/exportflow/internal/domain"
	"github.com/andresuchdata/exportflow/internal/fetcher"
	"github.com/andresuchdata/exportflow/internal/pipeline"
	"github.com/andresuchdata/exportflow/internal/poller"
	"github.com/andresuchdata/exportflow/internal/repository"
	"github.com/andresuchdata/exportflow/internal/repository/postgres"
	"github.com/andresuchdata/exportflow/internal/storage"
	"github.com/andresuchdata/exportflow/internal/summary"
	"github.com/andresuchdata/exportflow/internal/task"
	"github.com/andresuchdata/exportflow/pkg/logger"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

// pipelineConfig applies the per-command overrides on top of the loaded config.
func (a *app) pipelineConfig(c *cli.Context) (pipeline.Config, error) {
	if c.IsSet("container") {
		a.cfg.Pipeline.ContainerName = c.String("container")
	}
	if c.IsSet("interval") {
		a.cfg.Pipeline.PollIntervalSeconds = int(c.Duration("interval").Seconds())
	}
	if c.IsSet("max-wait") {
		a.cfg.Pipeline.MaxWaitSeconds = int(c.Duration("max-wait").Seconds())
	}
	if err := a.cfg.Validate(); err != nil {
		return pipeline.Config{}, errors.Wrap(err, "invalid configuration")
	}
	return pipeline.ConfigFrom(a.cfg), nil
}

func (a *app) runPipeline(c *cli.Context) error {
	ctx := c.Context
	cfg, err := a.pipelineConfig(c)
	if err != nil {
		return err
	}

	remote, err := storage.Open(ctx, a.cfg.Remote)
	if err != nil {
		return errors.Wrap(err, "failed to open remote storage")
	}

	export, err := task.NewCommandTask("export", a.cfg.Tasks.ExportCommand, a.cfg.Tasks.WorkDir, logger.Log)
	if err != nil {
		return err
	}
	process, err := task.NewCommandTask("process", a.cfg.Tasks.ProcessCommand, a.cfg.Tasks.WorkDir, logger.Log)
	if err != nil {
		return err
	}

	history, closeHistory, err := a.openHistory(ctx)
	if err != nil {
		return err
	}
	defer closeHistory()

	runCache, err := cache.NewRunCache(ctx, a.cfg.Cache)
	if err != nil {
		return errors.Wrap(err, "failed to connect to redis")
	}
	defer runCache.Close()

	orchestrator, err := pipeline.NewOrchestrator(cfg, remote, export, process, logger.Log,
		pipeline.WithHistory(history),
		pipeline.WithRunCache(runCache),
	)
	if err != nil {
		return err
	}

	run, err := orchestrator.Run(ctx)
	if errors.Is(err, pipeline.ErrRunInProgress) {
		logger.Log.Warn().Msg("Another run holds the lock, skipping this invocation")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Run %s completed in %s: %d files stored in %s\n",
		run.ID, pipeline.Elapsed(run).Round(time.Second), run.FileCount, run.OutputDirectory)
	return nil
}

func (a *app) waitForExports(c *cli.Context) error {
	entries, err := a.poll(c)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tID\tSIZE")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%d\n", e.Name, e.ID, e.Size)
	}
	return w.Flush()
}

func (a *app) fetchExports(c *cli.Context) error {
	entries, err := a.poll(c)
	if err != nil {
		return err
	}

	remote, err := storage.Open(c.Context, a.cfg.Remote)
	if err != nil {
		return errors.Wrap(err, "failed to open remote storage")
	}

	f := fetcher.New(remote, logger.Log, fetcher.WithRateLimit(a.cfg.Remote.DownloadRateLimit))
	downloaded, err := f.FetchAll(c.Context, entries, a.cfg.Pipeline.StagingDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "%d of %d files downloaded into %s\n", downloaded, len(entries), a.cfg.Pipeline.StagingDir)
	return nil
}

func (a *app) poll(c *cli.Context) ([]domain.RemoteEntry, error) {
	cfg, err := a.pipelineConfig(c)
	if err != nil {
		return nil, err
	}

	remote, err := storage.Open(c.Context, a.cfg.Remote)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open remote storage")
	}

	return poller.New(remote, nil, logger.Log).
		WaitForExports(c.Context, cfg.ContainerName, cfg.PollInterval, cfg.MaxWait)
}

func (a *app) archiveOutputs(c *cli.Context) error {
	cfg := pipeline.ConfigFrom(a.cfg)

	fileCount := c.Int("file-count")
	if fileCount < 0 {
		staged, err := os.ReadDir(cfg.StagingDir)
		if err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "read %s", cfg.StagingDir)
		}
		fileCount = len(staged)
	}

	log := logger.WithRun(uuid.NewString())
	timestamp := time.Now()
	finalDir, archiveErr := archiver.New(log).Archive(timestamp, cfg.ArchiveSources(), cfg.ArchiveRoot)
	if finalDir == "" {
		return archiveErr
	}

	path, err := summary.NewWriter(cfg.SummaryTitle).WriteSummary(finalDir, timestamp, fileCount)
	if archiveErr != nil {
		return archiveErr
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Outputs stored in %s (summary %s)\n", finalDir, path)
	return nil
}

func (a *app) listHistory(c *cli.Context) error {
	history, closeHistory, err := a.openHistory(c.Context)
	if err != nil {
		return err
	}
	defer closeHistory()

	runs, err := history.ListRuns(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIMESTAMP\tSTATUS\tFILES\tOUTPUT")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", run.ID, run.Timestamp, run.Status.Label(), run.FileCount, run.OutputDirectory)
	}
	return w.Flush()
}

func (a *app) migrate(c *cli.Context) error {
	if !a.cfg.Database.Enabled {
		return errors.New("run history is disabled, set RUN_HISTORY_ENABLED=true")
	}

	db, err := postgres.NewDB(c.Context, &a.cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(c.Context); err != nil {
		return err
	}
	logger.Log.Info().Msg("Run history schema is up to date")
	return nil
}

// openHistory returns the Postgres history when enabled, otherwise the
// manifests already written under the archive root.
func (a *app) openHistory(ctx context.Context) (repository.RunRepository, func(), error) {
	if !a.cfg.Database.Enabled {
		return repository.NewManifestRunRepository(a.cfg.Pipeline.ArchiveRoot), func() {}, nil
	}

	db, err := postgres.NewDB(ctx, &a.cfg.Database)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to database")
	}
	return postgres.NewRunRepository(db), func() { db.Close() }, nil
}
