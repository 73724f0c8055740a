package vectors

import (
	"context"
	"math"
	"sort"

	"github.com/podscribe/podscribe-api/internal/models"
)

// MinSimilarity is the cosine similarity floor below which matches are
// considered noise and excluded from search results
const MinSimilarity = 0.7

type service struct {
	repo Repository
}

// NewService creates a new vector service
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) CountByEpisodeID(ctx context.Context, episodeID uint) (int64, error) {
	return s.repo.CountByEpisodeID(ctx, episodeID)
}

func (s *service) ListByEpisodeID(ctx context.Context, episodeID uint) ([]models.VectorSlice, error) {
	return s.repo.ListByEpisodeID(ctx, episodeID)
}

func (s *service) CreateBatch(ctx context.Context, slices []models.VectorSlice) error {
	return s.repo.CreateBatch(ctx, slices)
}

func (s *service) DeleteByEpisodeID(ctx context.Context, episodeID uint) error {
	return s.repo.DeleteByEpisodeID(ctx, episodeID)
}

// Search ranks stored slices by cosine similarity against the query vector.
// podcastID of 0 searches across all shows. The corpus is small enough
// (thousands of slices) that a linear scan in process beats maintaining a
// separate vector store.
func (s *service) Search(ctx context.Context, query []float32, podcastID uint, limit int) ([]SearchResult, error) {
	var (
		slices []models.VectorSlice
		err    error
	)
	if podcastID > 0 {
		slices, err = s.repo.ListByPodcastID(ctx, podcastID)
	} else {
		slices, err = s.repo.ListAll(ctx)
	}
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(slices))
	for _, slice := range slices {
		score := CosineSimilarity(query, slice.Embedding)
		if score < MinSimilarity {
			continue
		}
		results = append(results, SearchResult{Slice: slice, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths and zero vectors score 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
