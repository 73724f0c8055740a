package models

import (
	"time"

	"gorm.io/gorm"
)

// Podcast represents a subscribed podcast feed
type Podcast struct {
	gorm.Model
	Title       string    `json:"title" gorm:"not null"`
	Author      string    `json:"author"`
	Description string    `json:"description" gorm:"type:text"`
	FeedURL     string    `json:"feed_url" gorm:"uniqueIndex;not null"`
	ImageURL    string    `json:"image_url"`
	Language    string    `json:"language"`
	Category    string    `json:"category"`
	Episodes    []Episode `json:"episodes,omitempty" gorm:"foreignKey:PodcastID"`
}

// Episode represents a single podcast episode, the unit of pipeline processing
type Episode struct {
	gorm.Model
	PodcastID   uint   `json:"podcast_id" gorm:"not null;index"`
	Title       string `json:"title" gorm:"not null"`
	Description string `json:"description" gorm:"type:text"`
	GUID        string `json:"guid" gorm:"uniqueIndex"`

	// Media information
	AudioURL string   `json:"audio_url" gorm:"not null;index"`
	Duration *float64 `json:"duration"` // Duration in seconds, nullable

	// Local artifact path, set once audio has been downloaded
	LocalAudioPath string `json:"local_audio_path"`

	PublishedAt time.Time `json:"published_at"`

	// Pipeline artifacts (one-to-one except terms and vector slices)
	Transcript *Transcript `json:"transcript,omitempty" gorm:"foreignKey:EpisodeID"`
	Summary    *Summary    `json:"summary,omitempty" gorm:"foreignKey:EpisodeID"`
	Terms      []Term      `json:"terms,omitempty" gorm:"foreignKey:EpisodeID"`
}
