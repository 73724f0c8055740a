package vectors

import (
	"context"
	"fmt"
	"log"

	"github.com/podscribe/podscribe-api/internal/models"
	"github.com/podscribe/podscribe-api/internal/services/ai"
)

// IndexerOptions configures the transcript indexer
type IndexerOptions struct {
	ChunkSize    int // Characters per window
	ChunkOverlap int // Characters shared between adjacent windows
}

// DefaultIndexerOptions returns the standard indexing parameters:
// 1000-character windows, each starting 800 characters after the last
func DefaultIndexerOptions() IndexerOptions {
	return IndexerOptions{
		ChunkSize:    1000,
		ChunkOverlap: 200,
	}
}

// Indexer turns a transcript into ordered, overlapping embedded slices.
// Embeddings are requested in window order; the slice index preserves
// chronological position for downstream consumers.
type Indexer struct {
	embedder ai.Embedder
	repo     Repository
	options  IndexerOptions
}

// NewIndexer creates a transcript indexer
func NewIndexer(embedder ai.Embedder, repo Repository, options IndexerOptions) *Indexer {
	if options.ChunkSize <= 0 {
		options.ChunkSize = 1000
	}
	if options.ChunkOverlap >= options.ChunkSize {
		options.ChunkOverlap = 0
	}
	return &Indexer{
		embedder: embedder,
		repo:     repo,
		options:  options,
	}
}

// IndexTranscript splits the transcript into overlapping windows, embeds
// each, and persists the slices. Returns the number of slices stored.
func (ix *Indexer) IndexTranscript(ctx context.Context, episodeID, podcastID uint, transcript string) (int, error) {
	windows := splitWindows(transcript, ix.options.ChunkSize, ix.options.ChunkOverlap)
	if len(windows) == 0 {
		return 0, nil
	}

	slices := make([]models.VectorSlice, 0, len(windows))
	for i, window := range windows {
		embedding, err := ix.embedder.Embed(ctx, window)
		if err != nil {
			return 0, fmt.Errorf("embedding window %d/%d: %w", i+1, len(windows), err)
		}
		slices = append(slices, models.VectorSlice{
			EpisodeID:  episodeID,
			PodcastID:  podcastID,
			ChunkIndex: i,
			Text:       window,
			Embedding:  embedding,
		})
	}

	if err := ix.repo.CreateBatch(ctx, slices); err != nil {
		return 0, err
	}

	log.Printf("[DEBUG] Indexed %d vector slices for episode %d", len(slices), episodeID)
	return len(slices), nil
}

// splitWindows splits text into size-char windows where each window starts
// size-overlap characters after the previous one
func splitWindows(text string, size, overlap int) []string {
	if text == "" {
		return nil
	}

	step := size - overlap
	runes := []rune(text)

	var windows []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		windows = append(windows, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return windows
}
