package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/andresuchdata/exportflow/internal/config"
	"github.com/andresuchdata/exportflow/internal/domain"
)

// Stage names used to tag errors and log lines.
const (
	StageLock    = "lock"
	StageExport  = "export"
	StagePoll    = "poll"
	StageFetch   = "fetch"
	StageProcess = "process"
	StageArchive = "archive"
	StageSummary = "summary"
)

// Remote is the remote storage surface a run needs: listing and download.
type Remote interface {
	FindContainers(ctx context.Context, name string) ([]domain.Container, error)
	ListEntries(ctx context.Context, container domain.Container) ([]domain.RemoteEntry, error)
	Download(ctx context.Context, entry domain.RemoteEntry, w io.Writer) error
}

// Config holds the parameters of a single pipeline run.
type Config struct {
	ContainerName     string
	StagingDir        string        // downloads land here
	OutputDirs        []string      // written by the processing task
	ArchiveRoot       string        // parent of run_YYYYMMDD_HHMM
	PollInterval      time.Duration
	MaxWait           time.Duration
	SummaryTitle      string
	DownloadRateLimit float64 // downloads per second, 0 = unlimited
}

// ConfigFrom maps the process configuration onto a run Config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		ContainerName:     cfg.Pipeline.ContainerName,
		StagingDir:        cfg.Pipeline.StagingDir,
		OutputDirs:        append([]string(nil), cfg.Pipeline.OutputDirs...),
		ArchiveRoot:       cfg.Pipeline.ArchiveRoot,
		PollInterval:      cfg.Pipeline.PollInterval(),
		MaxWait:           cfg.Pipeline.MaxWait(),
		SummaryTitle:      cfg.Pipeline.SummaryTitle,
		DownloadRateLimit: cfg.Remote.DownloadRateLimit,
	}
}

// Validate checks the fields every run depends on.
func (c Config) Validate() error {
	switch {
	case c.ContainerName == "":
		return fmt.Errorf("container name is required")
	case c.StagingDir == "":
		return fmt.Errorf("staging dir is required")
	case c.ArchiveRoot == "":
		return fmt.Errorf("archive root is required")
	case c.PollInterval <= 0:
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	case c.MaxWait <= 0:
		return fmt.Errorf("max wait must be positive, got %s", c.MaxWait)
	}
	return nil
}

// ArchiveSources lists the directories relocated into each run directory:
// the staged downloads first, then the processing outputs.
func (c Config) ArchiveSources() []string {
	return append([]string{c.StagingDir}, c.OutputDirs...)
}
