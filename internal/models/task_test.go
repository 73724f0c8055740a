package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    TaskStatus
		to      TaskStatus
		allowed bool
	}{
		{"pending to progress", TaskStatusPending, TaskStatusProgress, true},
		{"pending to success", TaskStatusPending, TaskStatusSuccess, true},
		{"pending to cancelled", TaskStatusPending, TaskStatusCancelled, true},
		{"progress to success", TaskStatusProgress, TaskStatusSuccess, true},
		{"progress to failure", TaskStatusProgress, TaskStatusFailure, true},
		{"progress to cancelled", TaskStatusProgress, TaskStatusCancelled, true},
		{"progress to pending is re-entry", TaskStatusProgress, TaskStatusPending, false},
		{"success is terminal", TaskStatusSuccess, TaskStatusProgress, false},
		{"failure is terminal", TaskStatusFailure, TaskStatusPending, false},
		{"cancelled is terminal", TaskStatusCancelled, TaskStatusSuccess, false},
		{"no self transition", TaskStatusProgress, TaskStatusProgress, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestTaskStatusIsTerminal(t *testing.T) {
	assert.False(t, TaskStatusPending.IsTerminal())
	assert.False(t, TaskStatusProgress.IsTerminal())
	assert.True(t, TaskStatusSuccess.IsTerminal())
	assert.True(t, TaskStatusFailure.IsTerminal())
	assert.True(t, TaskStatusCancelled.IsTerminal())
}

func TestProgressSnapshotScanValue(t *testing.T) {
	snap := ProgressSnapshot{
		Stage:        StageTranscribing,
		ChunkCurrent: 3,
		ChunkTotal:   7,
		EpisodeTitle: "Episode 42",
		PodcastTitle: "Some Show",
	}

	value, err := snap.Value()
	assert.NoError(t, err)

	var decoded ProgressSnapshot
	assert.NoError(t, decoded.Scan(value))
	assert.Equal(t, snap, decoded)
}

func TestVectorScanValue(t *testing.T) {
	vec := Vector{0.1, -0.5, 2}

	value, err := vec.Value()
	assert.NoError(t, err)

	var decoded Vector
	assert.NoError(t, decoded.Scan(value))
	assert.Equal(t, vec, decoded)

	var empty Vector
	assert.NoError(t, empty.Scan(nil))
	assert.Nil(t, empty)
}
