package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TaskStatus represents the durable status of a pipeline invocation.
// Transitions are monotonic: PENDING -> PROGRESS -> terminal, no re-entry.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "PENDING"
	TaskStatusProgress  TaskStatus = "PROGRESS"
	TaskStatusSuccess   TaskStatus = "SUCCESS"
	TaskStatusFailure   TaskStatus = "FAILURE"
	TaskStatusCancelled TaskStatus = "CANCELLED"
)

// statusRank orders statuses so transitions can only move forward
var statusRank = map[TaskStatus]int{
	TaskStatusPending:   0,
	TaskStatusProgress:  1,
	TaskStatusSuccess:   2,
	TaskStatusFailure:   2,
	TaskStatusCancelled: 2,
}

// IsTerminal returns true if no further transitions are allowed
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusSuccess || s == TaskStatusFailure || s == TaskStatusCancelled
}

// CanTransitionTo reports whether moving from s to next respects the
// monotonic lifecycle (no state may be re-entered)
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// TaskType represents the kind of background work a task performs
type TaskType string

const (
	TaskTypeEpisodeProcessing TaskType = "episode_processing"
	TaskTypeTermExtraction    TaskType = "term_extraction"
	TaskTypeFeedRefresh       TaskType = "feed_refresh"
)

// Stage names the pipeline step a run is currently executing
type Stage string

const (
	StagePending         Stage = "pending"
	StageDeduplicating   Stage = "deduplicating"
	StageDownloading     Stage = "downloading"
	StageTranscribing    Stage = "transcribing"
	StageIndexing        Stage = "indexing"
	StageExtractingTerms Stage = "extracting_terms"
	StageSummarizing     Stage = "summarizing"
	StageSucceeded       Stage = "succeeded"
	StageFailed          Stage = "failed"
	StageCancelled       Stage = "cancelled"
)

// ProgressSnapshot is the structured progress view exposed to pollers.
// ChunkCurrent/ChunkTotal carry sub-stage progress such as "chunk 3/7".
type ProgressSnapshot struct {
	Stage        Stage  `json:"stage"`
	ChunkCurrent int    `json:"chunk_current,omitempty"`
	ChunkTotal   int    `json:"chunk_total,omitempty"`
	EpisodeTitle string `json:"episode_title,omitempty"`
	PodcastTitle string `json:"podcast_title,omitempty"`
	Message      string `json:"message,omitempty"`
}

// Value implements driver.Valuer for ProgressSnapshot
func (p ProgressSnapshot) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for ProgressSnapshot
func (p *ProgressSnapshot) Scan(value interface{}) error {
	if value == nil {
		*p = ProgressSnapshot{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return errors.New("type assertion to []byte failed")
		}
	}

	return json.Unmarshal(bytes, p)
}

// Task is one durable pipeline invocation record, the checkpoint visible
// to external pollers
type Task struct {
	gorm.Model
	TaskID    string     `json:"task_id" gorm:"uniqueIndex;not null"`
	Type      TaskType   `json:"type" gorm:"not null;index:idx_tasks_type_status"`
	Status    TaskStatus `json:"status" gorm:"default:'PENDING';index:idx_tasks_type_status"`
	EpisodeID *uint      `json:"episode_id,omitempty" gorm:"index"`
	PodcastID *uint      `json:"podcast_id,omitempty"`

	Progress     ProgressSnapshot `json:"progress" gorm:"type:json"`
	Result       datatypes.JSON   `json:"result,omitempty" gorm:"type:json"`
	ErrorMessage string           `json:"error_message,omitempty"`

	WorkerID    string     `json:"worker_id,omitempty"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	HeartbeatAt *time.Time `json:"heartbeat_at"`

	// Cooperative cancellation: pollers set CancelRequested, the running
	// worker observes it between stages
	CancelRequested bool `json:"cancel_requested" gorm:"default:false"`
	CleanupOnCancel bool `json:"cleanup_on_cancel" gorm:"default:false"`
}

// TableName specifies the table name for GORM
func (Task) TableName() string {
	return "tasks"
}

// IsTerminal returns true if the task has reached a terminal status
func (t *Task) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// PipelineErrorKind classifies where in the pipeline an error originated
type PipelineErrorKind string

const (
	ErrorKindDownload     PipelineErrorKind = "download"     // Audio download failed
	ErrorKindProcessing   PipelineErrorKind = "processing"   // FFmpeg/chunking failed
	ErrorKindExternal     PipelineErrorKind = "external"     // AI backend call failed
	ErrorKindPrecondition PipelineErrorKind = "precondition" // Required artifact missing
	ErrorKindSystem       PipelineErrorKind = "system"       // Database or worker error
)

// PipelineError is a classified pipeline failure. Message is the short
// human-readable text written to the task record; Err carries full detail
// for the log.
type PipelineError struct {
	Kind    PipelineErrorKind
	Stage   Stage
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	return e.Message
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError creates a classified pipeline error
func NewPipelineError(kind PipelineErrorKind, stage Stage, message string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Stage: stage, Message: message, Err: err}
}
