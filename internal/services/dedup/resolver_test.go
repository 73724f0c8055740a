package dedup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podscribe/podscribe-api/internal/models"
	"github.com/podscribe/podscribe-api/internal/services/episodes"
	"github.com/podscribe/podscribe-api/internal/services/summaries"
	"github.com/podscribe/podscribe-api/internal/services/terms"
	"github.com/podscribe/podscribe-api/internal/services/transcripts"
	"github.com/podscribe/podscribe-api/internal/services/vectors"
	"gorm.io/gorm"
)

// Fakes embed the service interface and override only what Resolve uses

type fakeEpisodes struct {
	episodes.Service
	siblings  []models.Episode
	audioPath map[uint]string
}

func (f *fakeEpisodes) SiblingsByAudioURL(ctx context.Context, audioURL string, excludeID uint) ([]models.Episode, error) {
	return f.siblings, nil
}

func (f *fakeEpisodes) SetLocalAudioPath(ctx context.Context, id uint, path string) error {
	if f.audioPath == nil {
		f.audioPath = map[uint]string{}
	}
	f.audioPath[id] = path
	return nil
}

type fakeTranscripts struct {
	transcripts.Service
	byEpisode map[uint]*models.Transcript
	created   []*models.Transcript
}

func (f *fakeTranscripts) GetByEpisodeID(ctx context.Context, episodeID uint) (*models.Transcript, error) {
	if t, ok := f.byEpisode[episodeID]; ok {
		return t, nil
	}
	return nil, transcripts.ErrTranscriptNotFound
}

func (f *fakeTranscripts) Create(ctx context.Context, t *models.Transcript) error {
	f.created = append(f.created, t)
	return nil
}

type fakeSummaries struct {
	summaries.Service
	byEpisode map[uint]*models.Summary
	created   []*models.Summary
}

func (f *fakeSummaries) GetByEpisodeID(ctx context.Context, episodeID uint) (*models.Summary, error) {
	if s, ok := f.byEpisode[episodeID]; ok {
		return s, nil
	}
	return nil, summaries.ErrSummaryNotFound
}

func (f *fakeSummaries) Create(ctx context.Context, s *models.Summary) error {
	f.created = append(f.created, s)
	return nil
}

type fakeTerms struct {
	terms.Service
	byEpisode map[uint][]models.Term
	created   []models.Term
}

func (f *fakeTerms) ListAllByEpisodeID(ctx context.Context, episodeID uint) ([]models.Term, error) {
	return f.byEpisode[episodeID], nil
}

func (f *fakeTerms) CreateBatch(ctx context.Context, batch []models.Term) error {
	f.created = append(f.created, batch...)
	return nil
}

type fakeVectors struct {
	vectors.Service
	byEpisode map[uint][]models.VectorSlice
	created   []models.VectorSlice
}

func (f *fakeVectors) ListByEpisodeID(ctx context.Context, episodeID uint) ([]models.VectorSlice, error) {
	return f.byEpisode[episodeID], nil
}

func (f *fakeVectors) CreateBatch(ctx context.Context, batch []models.VectorSlice) error {
	f.created = append(f.created, batch...)
	return nil
}

func donorEpisode() models.Episode {
	ep := models.Episode{PodcastID: 1, AudioURL: "https://cdn/x.mp3", LocalAudioPath: "/data/uploads/episode_1/audio.mp3"}
	ep.ID = 1
	return ep
}

func targetEpisode() *models.Episode {
	ep := &models.Episode{PodcastID: 2, AudioURL: "https://cdn/x.mp3"}
	ep.ID = 9
	return ep
}

func TestResolveCopiesAllArtifacts(t *testing.T) {
	eps := &fakeEpisodes{siblings: []models.Episode{donorEpisode()}}
	trs := &fakeTranscripts{byEpisode: map[uint]*models.Transcript{
		1: {EpisodeID: 1, Text: "full transcript"},
	}}
	sums := &fakeSummaries{byEpisode: map[uint]*models.Summary{
		1: {EpisodeID: 1, Text: "summary", AudioPath: "/data/uploads/episode_1/summary.mp3"},
	}}
	trm := &fakeTerms{byEpisode: map[uint][]models.Term{
		1: {
			{EpisodeID: 1, Term: "API", Explanation: "x", Hidden: true, Source: models.TermSourceManual, Embedding: models.Vector{1, 2}},
		},
	}}
	vec := &fakeVectors{byEpisode: map[uint][]models.VectorSlice{
		1: {
			{EpisodeID: 1, PodcastID: 1, ChunkIndex: 0, Text: "w0", Embedding: models.Vector{0.5}},
			{EpisodeID: 1, PodcastID: 1, ChunkIndex: 1, Text: "w1", Embedding: models.Vector{0.6}},
		},
	}}

	target := targetEpisode()
	r := NewResolver(eps, trs, sums, trm, vec)
	require.NoError(t, r.Resolve(context.Background(), target))

	// Transcript deep-copied onto the target
	require.Len(t, trs.created, 1)
	assert.Equal(t, uint(9), trs.created[0].EpisodeID)
	assert.Equal(t, "full transcript", trs.created[0].Text)
	assert.Zero(t, trs.created[0].ID, "copy must be a fresh row, not the donor's")

	// Summary copied, audio path aliased
	require.Len(t, sums.created, 1)
	assert.Equal(t, uint(9), sums.created[0].EpisodeID)
	assert.Equal(t, "/data/uploads/episode_1/summary.mp3", sums.created[0].AudioPath)

	// Terms copied exactly, hidden flag and source preserved
	require.Len(t, trm.created, 1)
	assert.Equal(t, uint(9), trm.created[0].EpisodeID)
	assert.True(t, trm.created[0].Hidden)
	assert.Equal(t, models.TermSourceManual, trm.created[0].Source)
	assert.Equal(t, models.Vector{1, 2}, trm.created[0].Embedding)

	// Vector slices copied in order, re-tagged with the target's show
	require.Len(t, vec.created, 2)
	assert.Equal(t, uint(2), vec.created[0].PodcastID)
	assert.Equal(t, 0, vec.created[0].ChunkIndex)
	assert.Equal(t, 1, vec.created[1].ChunkIndex)

	// Donor's local audio path aliased onto the target
	assert.Equal(t, "/data/uploads/episode_1/audio.mp3", eps.audioPath[9])
	assert.Equal(t, "/data/uploads/episode_1/audio.mp3", target.LocalAudioPath)
}

func TestResolveCopyIsDeep(t *testing.T) {
	donorVec := models.Vector{1, 2, 3}
	eps := &fakeEpisodes{siblings: []models.Episode{donorEpisode()}}
	trs := &fakeTranscripts{byEpisode: map[uint]*models.Transcript{1: {EpisodeID: 1, Text: "t"}}}
	trm := &fakeTerms{byEpisode: map[uint][]models.Term{
		1: {{EpisodeID: 1, Term: "API", Explanation: "x", Embedding: donorVec}},
	}}

	r := NewResolver(eps, trs, &fakeSummaries{}, trm, &fakeVectors{})
	require.NoError(t, r.Resolve(context.Background(), targetEpisode()))

	require.Len(t, trm.created, 1)
	trm.created[0].Embedding[0] = 99
	assert.Equal(t, float32(1), donorVec[0], "mutating the copy must not touch the donor")
}

func TestResolveNoSiblingReturnsErrNoDonor(t *testing.T) {
	r := NewResolver(&fakeEpisodes{}, &fakeTranscripts{}, &fakeSummaries{}, &fakeTerms{}, &fakeVectors{})

	err := r.Resolve(context.Background(), targetEpisode())
	assert.ErrorIs(t, err, ErrNoDonor)
}

func TestResolveSiblingWithoutTranscriptSkipped(t *testing.T) {
	sibling := models.Episode{Model: gorm.Model{ID: 3}, AudioURL: "https://cdn/x.mp3"}
	eps := &fakeEpisodes{siblings: []models.Episode{sibling}}
	trs := &fakeTranscripts{byEpisode: map[uint]*models.Transcript{}}

	r := NewResolver(eps, trs, &fakeSummaries{}, &fakeTerms{}, &fakeVectors{})
	err := r.Resolve(context.Background(), targetEpisode())
	assert.ErrorIs(t, err, ErrNoDonor)
	assert.Empty(t, trs.created)
}
