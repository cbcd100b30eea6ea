package domain

import (
	"fmt"
	"time"
)

// ContainerNotFoundError is returned when no live container matches a name.
type ContainerNotFoundError struct {
	Name string
}

func (e *ContainerNotFoundError) Error() string {
	return fmt.Sprintf("remote container %q not found", e.Name)
}

// AmbiguousContainerError is returned when more than one live container matches a name.
type AmbiguousContainerError struct {
	Name    string
	Matches []Container
}

func (e *AmbiguousContainerError) Error() string {
	ids := make([]string, 0, len(e.Matches))
	for _, c := range e.Matches {
		ids = append(ids, c.ID)
	}
	return fmt.Sprintf("remote container name %q is ambiguous: %d matches %v", e.Name, len(e.Matches), ids)
}

// ExportTimeoutError is returned when a container stays empty for the whole wait window.
type ExportTimeoutError struct {
	Container string
	Attempts  int
	Waited    time.Duration
}

func (e *ExportTimeoutError) Error() string {
	return fmt.Sprintf("exports not ready in %q after %d attempts (%s)", e.Container, e.Attempts, e.Waited)
}

// DownloadError reports the entry whose download failed.
type DownloadError struct {
	Entry string
	Err   error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %q: %v", e.Entry, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// ExportFailure is returned when the export trigger signals failure.
type ExportFailure struct {
	Task string
	Err  error
}

func (e *ExportFailure) Error() string {
	return fmt.Sprintf("export task %s failed: %v", e.Task, e.Err)
}

func (e *ExportFailure) Unwrap() error { return e.Err }

// ProcessingFailure is returned when the processing trigger signals failure.
type ProcessingFailure struct {
	Task string
	Err  error
}

func (e *ProcessingFailure) Error() string {
	return fmt.Sprintf("processing task %s failed: %v", e.Task, e.Err)
}

func (e *ProcessingFailure) Unwrap() error { return e.Err }

// RelocationError is returned when an archived entry cannot be moved.
type RelocationError struct {
	Source      string
	Destination string
	Err         error
}

func (e *RelocationError) Error() string {
	return fmt.Sprintf("move %s -> %s: %v", e.Source, e.Destination, e.Err)
}

func (e *RelocationError) Unwrap() error { return e.Err }

// StageError tags an error with the pipeline stage it aborted.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
