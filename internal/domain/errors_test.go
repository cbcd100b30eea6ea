package domain

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageErrorUnwrapsTypedCause(t *testing.T) {
	cause := &DownloadError{Entry: "scene_01.tif", Err: os.ErrPermission}
	err := errors.Wrap(&StageError{Stage: "fetch", Err: cause}, "pipeline run")

	var dl *DownloadError
	require.True(t, errors.As(err, &dl))
	assert.Equal(t, "scene_01.tif", dl.Entry)
	assert.True(t, errors.Is(err, os.ErrPermission))

	var stage *StageError
	require.True(t, errors.As(err, &stage))
	assert.Equal(t, "fetch", stage.Stage)
}

func TestErrorMessagesCarryIdentifiers(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		contains string
	}{
		{"container not found", &ContainerNotFoundError{Name: "SpaceApps_SAR"}, `"SpaceApps_SAR"`},
		{"timeout", &ExportTimeoutError{Container: "X", Attempts: 2, Waited: 10 * time.Minute}, "2 attempts"},
		{"ambiguous", &AmbiguousContainerError{Name: "X", Matches: []Container{{ID: "a"}, {ID: "b"}}}, "[a b]"},
		{"relocation", &RelocationError{Source: "/in/a", Destination: "/out/a", Err: fmt.Errorf("boom")}, "/in/a -> /out/a"},
		{"processing", &ProcessingFailure{Task: "process", Err: fmt.Errorf("exit status 1")}, "exit status 1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Contains(t, tc.err.Error(), tc.contains)
		})
	}
}

func TestParseRunStatus(t *testing.T) {
	status, ok := ParseRunStatus(" Completed ")
	require.True(t, ok)
	assert.Equal(t, RunStatusCompleted, status)
	assert.Equal(t, "Completed", status.Label())

	_, ok = ParseRunStatus("paused")
	assert.False(t, ok)
	assert.Equal(t, "Unknown", RunStatus("paused").Label())
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2025, 10, 4, 9, 7, 59, 0, time.UTC)
	assert.Equal(t, "20251004_0907", FormatTimestamp(ts))
}
