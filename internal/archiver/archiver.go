package archiver

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/andresuchdata/exportflow/internal/domain"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// RunDirPrefix prefixes every per-run archive directory.
const RunDirPrefix = "run_"

// Archiver moves the inputs and outputs of a run into its own directory.
type Archiver struct {
	log zerolog.Logger
}

// New creates an Archiver.
func New(log zerolog.Logger) *Archiver {
	return &Archiver{log: log}
}

// RunDir returns destRoot/run_<YYYYMMDD_HHMM> for the given moment.
func RunDir(destRoot string, timestamp time.Time) string {
	return filepath.Join(destRoot, RunDirPrefix+domain.FormatTimestamp(timestamp))
}

// Archive creates the run directory and moves every entry of each existing
// source directory into it, flattened. Sources that do not exist are skipped
// and source directories themselves are left in place. On a name collision the
// later source wins. The run directory is returned even when a move fails.
func (a *Archiver) Archive(timestamp time.Time, sourceDirs []string, destRoot string) (string, error) {
	finalDir := RunDir(destRoot, timestamp)
	if err := os.MkdirAll(finalDir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create run directory %s", finalDir)
	}

	finalAbs, err := filepath.Abs(finalDir)
	if err != nil {
		return finalDir, errors.Wrapf(err, "resolve %s", finalDir)
	}

	moved := 0
	for _, src := range sourceDirs {
		info, err := os.Stat(src)
		if os.IsNotExist(err) {
			a.log.Debug().Str("dir", src).Msg("Source directory missing, skipping")
			continue
		}
		if err != nil {
			return finalDir, errors.Wrapf(err, "stat %s", src)
		}
		if !info.IsDir() {
			return finalDir, fmt.Errorf("archive source %s is not a directory", src)
		}

		entries, err := os.ReadDir(src)
		if err != nil {
			return finalDir, errors.Wrapf(err, "read %s", src)
		}

		for _, entry := range entries {
			from := filepath.Join(src, entry.Name())
			if abs, err := filepath.Abs(from); err == nil && abs == finalAbs {
				continue
			}
			to := filepath.Join(finalDir, entry.Name())

			if _, err := os.Lstat(to); err == nil {
				a.log.Warn().Str("source", from).Str("destination", to).Msg("Archive name collision, overwriting")
			}
			if err := os.Rename(from, to); err != nil {
				return finalDir, errors.WithStack(&domain.RelocationError{Source: from, Destination: to, Err: err})
			}
			moved++
		}
	}

	a.log.Info().Str("dir", finalDir).Int("moved", moved).Msg("Outputs stored")
	return finalDir, nil
}
