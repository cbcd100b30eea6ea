package fetcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/exportflow/internal/domain"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Downloader streams the content of one remote entry.
type Downloader interface {
	Download(ctx context.Context, entry domain.RemoteEntry, w io.Writer) error
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithRateLimit caps downloads per second. Zero or negative means unlimited.
func WithRateLimit(perSecond float64) Option {
	return func(f *Fetcher) {
		if perSecond > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// Fetcher copies remote entries into a local staging directory.
type Fetcher struct {
	downloader Downloader
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// New creates a Fetcher.
func New(downloader Downloader, log zerolog.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		downloader: downloader,
		log:        log,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll downloads every entry not already present in localDir and returns
// how many were newly downloaded. The first failure aborts the whole call.
func (f *Fetcher) FetchAll(ctx context.Context, entries []domain.RemoteEntry, localDir string) (int, error) {
	if localDir == "" {
		return 0, fmt.Errorf("download dir is required")
	}
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return 0, errors.Wrap(err, "failed to create download dir")
	}

	downloaded := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return downloaded, errors.WithStack(err)
		}

		if err := validateName(entry.Name); err != nil {
			return downloaded, errors.WithStack(&domain.DownloadError{Entry: entry.Name, Err: err})
		}

		localPath := filepath.Join(localDir, entry.Name)
		exists, err := pathExists(localPath)
		if err != nil {
			return downloaded, errors.WithStack(&domain.DownloadError{Entry: entry.Name, Err: err})
		}
		if exists {
			f.log.Debug().Str("file", entry.Name).Msg("Already downloaded, skipping")
			continue
		}

		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return downloaded, errors.WithStack(err)
			}
		}

		f.log.Info().Str("file", entry.Name).Msg("Downloading")
		if err := f.download(ctx, entry, localDir, localPath); err != nil {
			return downloaded, errors.WithStack(&domain.DownloadError{Entry: entry.Name, Err: err})
		}
		downloaded++
	}

	f.log.Info().Int("downloaded", downloaded).Int("skipped", len(entries)-downloaded).Msg("All files downloaded")
	return downloaded, nil
}

// download writes into a temporary file next to localPath and renames it into
// place, so an interrupted transfer is never mistaken for a finished one.
func (f *Fetcher) download(ctx context.Context, entry domain.RemoteEntry, localDir, localPath string) error {
	tmp, err := os.CreateTemp(localDir, ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := f.downloader.Download(ctx, entry, tmp); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to flush %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, localPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to move download into place: %w", err)
	}
	return nil
}

func validateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("invalid entry name %q", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("entry name %q contains a path separator", name)
	}
	return nil
}

func pathExists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
