package domain

import "time"

// TimestampLayout formats run timestamps to minute granularity.
const TimestampLayout = "20060102_1504"

// Container represents a named grouping of remote entries (a Drive folder or a bucket)
type Container struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RemoteEntry represents one object listed inside a Container
type RemoteEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContainerID string `json:"container_id"`
	MimeType    string `json:"mime_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// RunRecord is the artifact of a single pipeline execution
type RunRecord struct {
	ID              string     `json:"id" db:"id" yaml:"id"`
	Timestamp       string     `json:"timestamp" db:"run_timestamp" yaml:"timestamp"`
	OutputDirectory string     `json:"output_directory" db:"output_directory" yaml:"output_directory"`
	FileCount       int        `json:"file_count" db:"file_count" yaml:"file_count"`
	DownloadedCount int        `json:"downloaded_count" db:"downloaded_count" yaml:"downloaded_count"`
	StepLog         []string   `json:"step_log" db:"-" yaml:"steps"`
	Status          RunStatus  `json:"status" db:"status" yaml:"status"`
	StartedAt       time.Time  `json:"started_at" db:"started_at" yaml:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" db:"completed_at" yaml:"completed_at,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty" db:"error_message" yaml:"error,omitempty"`
}

// StepLog is the fixed ordered list of pipeline stages reported in every summary.
var StepLog = []string{
	"Exported from remote",
	"Downloaded from remote storage",
	"Processed locally",
	"Stored in outputs folder",
}

// FormatTimestamp renders t the way run directories and summaries expect it.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}
