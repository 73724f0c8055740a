package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Vector is an embedding vector stored as a JSON array column
type Vector []float32

// Value implements driver.Valuer for Vector
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Scan implements sql.Scanner for Vector
func (v *Vector) Scan(value interface{}) error {
	if value == nil {
		*v = nil
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

	return json.Unmarshal(bytes, v)
}

// Transcript is the full text transcription of an episode.
// Immutable once created: re-processing skips the stage instead of rewriting it.
type Transcript struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	EpisodeID uint           `gorm:"uniqueIndex" json:"episode_id"`
	Text      string         `gorm:"type:text" json:"text"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for Transcript
func (Transcript) TableName() string {
	return "transcripts"
}

// Summary is the generated episode summary with an optional synthesized audio path
type Summary struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	EpisodeID uint           `gorm:"uniqueIndex" json:"episode_id"`
	Text      string         `gorm:"type:text" json:"text"`
	AudioPath string         `json:"audio_path"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for Summary
func (Summary) TableName() string {
	return "summaries"
}

// TermSource tags how a term entered the system
type TermSource string

const (
	TermSourceAuto   TermSource = "auto"
	TermSourceManual TermSource = "manual"
)

// Term is a glossary entry extracted from an episode transcript.
// Uniqueness is enforced per podcast (case-insensitive), not per episode.
type Term struct {
	gorm.Model
	EpisodeID            uint       `json:"episode_id" gorm:"not null;index"`
	Term                 string     `json:"term" gorm:"not null;index"`
	Context              string     `json:"context" gorm:"type:text"`
	Explanation          string     `json:"explanation" gorm:"type:text"`
	ElaborateExplanation string     `json:"elaborate_explanation" gorm:"type:text"`
	Hidden               bool       `json:"hidden" gorm:"default:false"`
	Source               TermSource `json:"source" gorm:"default:'auto'"`
	Embedding            Vector     `json:"-" gorm:"type:json"`
}

// VectorSlice is one overlapping transcript window with its embedding,
// the granularity at which similarity search operates
type VectorSlice struct {
	gorm.Model
	EpisodeID  uint   `json:"episode_id" gorm:"not null;index"`
	PodcastID  uint   `json:"podcast_id" gorm:"not null;index"`
	ChunkIndex int    `json:"chunk_index" gorm:"not null"`
	Text       string `json:"text" gorm:"type:text"`
	Embedding  Vector `json:"-" gorm:"type:json"`
}

// Notification is a lifecycle event emitted by background processing
type Notification struct {
	gorm.Model
	Type      string `json:"type" gorm:"not null"`
	Title     string `json:"title" gorm:"not null"`
	Message   string `json:"message" gorm:"type:text"`
	Level     string `json:"level" gorm:"default:'info'"`
	TaskID    string `json:"task_id,omitempty" gorm:"index"`
	EpisodeID *uint  `json:"episode_id,omitempty"`
	PodcastID *uint  `json:"podcast_id,omitempty"`
	Read      bool   `json:"read" gorm:"default:false"`
}
