package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/podscribe/podscribe-api/internal/models"
	"github.com/podscribe/podscribe-api/internal/services/dedup"
	"github.com/podscribe/podscribe-api/internal/services/episodes"
	"github.com/podscribe/podscribe-api/internal/services/notifications"
	"github.com/podscribe/podscribe-api/internal/services/podcasts"
	"github.com/podscribe/podscribe-api/internal/services/summaries"
	"github.com/podscribe/podscribe-api/internal/services/tasks"
	"github.com/podscribe/podscribe-api/internal/services/terms"
	"github.com/podscribe/podscribe-api/internal/services/transcripts"
	"github.com/podscribe/podscribe-api/internal/services/vectors"
	"github.com/podscribe/podscribe-api/pkg/download"
)

// Service fakes embed the interface and override only what the
// orchestrator touches

type fakeEpisodeSvc struct {
	episodes.Service
	episode     *models.Episode
	clearedPath bool
}

func (f *fakeEpisodeSvc) GetByID(ctx context.Context, id uint) (*models.Episode, error) {
	return f.episode, nil
}

func (f *fakeEpisodeSvc) SetLocalAudioPath(ctx context.Context, id uint, path string) error {
	f.episode.LocalAudioPath = path
	return nil
}

func (f *fakeEpisodeSvc) ClearLocalAudioPath(ctx context.Context, id uint) error {
	f.clearedPath = true
	f.episode.LocalAudioPath = ""
	return nil
}

type fakePodcastSvc struct {
	podcasts.Service
}

func (f *fakePodcastSvc) GetByID(ctx context.Context, id uint) (*models.Podcast, error) {
	return &models.Podcast{Title: "Test Show"}, nil
}

type fakeTranscriptSvc struct {
	transcripts.Service
	byEpisode map[uint]*models.Transcript
	deleted   int
}

func (f *fakeTranscriptSvc) GetByEpisodeID(ctx context.Context, episodeID uint) (*models.Transcript, error) {
	if t, ok := f.byEpisode[episodeID]; ok {
		return t, nil
	}
	return nil, transcripts.ErrTranscriptNotFound
}

func (f *fakeTranscriptSvc) Create(ctx context.Context, t *models.Transcript) error {
	f.byEpisode[t.EpisodeID] = t
	return nil
}

func (f *fakeTranscriptSvc) DeleteByEpisodeID(ctx context.Context, episodeID uint) error {
	f.deleted++
	delete(f.byEpisode, episodeID)
	return nil
}

type fakeSummarySvc struct {
	summaries.Service
	byEpisode map[uint]*models.Summary
	deleted   int
}

func (f *fakeSummarySvc) GetByEpisodeID(ctx context.Context, episodeID uint) (*models.Summary, error) {
	if s, ok := f.byEpisode[episodeID]; ok {
		return s, nil
	}
	return nil, summaries.ErrSummaryNotFound
}

func (f *fakeSummarySvc) Create(ctx context.Context, s *models.Summary) error {
	f.byEpisode[s.EpisodeID] = s
	return nil
}

func (f *fakeSummarySvc) DeleteByEpisodeID(ctx context.Context, episodeID uint) error {
	f.deleted++
	delete(f.byEpisode, episodeID)
	return nil
}

type fakeTermSvc struct {
	terms.Service
	count   int64
	deleted int
}

func (f *fakeTermSvc) CountByEpisodeID(ctx context.Context, episodeID uint) (int64, error) {
	return f.count, nil
}

func (f *fakeTermSvc) DeleteByEpisodeID(ctx context.Context, episodeID uint) error {
	f.deleted++
	f.count = 0
	return nil
}

type fakeVectorSvc struct {
	vectors.Service
	count   int64
	deleted int
}

func (f *fakeVectorSvc) CountByEpisodeID(ctx context.Context, episodeID uint) (int64, error) {
	return f.count, nil
}

func (f *fakeVectorSvc) DeleteByEpisodeID(ctx context.Context, episodeID uint) error {
	f.deleted++
	f.count = 0
	return nil
}

// fakeTaskSvc scripts cancellation and records lifecycle calls
type fakeTaskSvc struct {
	tasks.Service
	cancelOnCheck int // IsCancelRequested returns true on this call number (0 = never)
	cleanup       bool

	checkCalls int
	completed  bool
	cancelled  bool
	failStage  models.Stage
	failMsg    string
	progress   []models.ProgressSnapshot
}

func (f *fakeTaskSvc) IsCancelRequested(ctx context.Context, id uint) (bool, bool, error) {
	f.checkCalls++
	if f.cancelOnCheck > 0 && f.checkCalls >= f.cancelOnCheck {
		return true, f.cleanup, nil
	}
	return false, false, nil
}

func (f *fakeTaskSvc) UpdateProgress(ctx context.Context, id uint, p models.ProgressSnapshot) error {
	f.progress = append(f.progress, p)
	return nil
}

func (f *fakeTaskSvc) Complete(ctx context.Context, id uint, result datatypes.JSON) error {
	f.completed = true
	return nil
}

func (f *fakeTaskSvc) Fail(ctx context.Context, id uint, stage models.Stage, msg string) error {
	f.failStage = stage
	f.failMsg = msg
	return nil
}

func (f *fakeTaskSvc) MarkCancelled(ctx context.Context, id uint) error {
	f.cancelled = true
	return nil
}

type fakeNotificationSvc struct {
	notifications.Service
	stored []*models.Notification
}

func (f *fakeNotificationSvc) Notify(ctx context.Context, n *models.Notification) error {
	f.stored = append(f.stored, n)
	return nil
}

// Collaborator fakes

type fakeResolver struct {
	err   error
	calls int
}

func (f *fakeResolver) Resolve(ctx context.Context, episode *models.Episode) error {
	f.calls++
	return f.err
}

type fakeDownloader struct {
	calls   int
	removed int
}

func (f *fakeDownloader) DownloadEpisode(ctx context.Context, url string, episodeID uint) (*download.Result, error) {
	f.calls++
	return &download.Result{FilePath: "/data/uploads/episode_7/audio.mp3"}, nil
}

func (f *fakeDownloader) RemoveEpisodeAudio(episodeID uint) error {
	f.removed++
	return nil
}

type fakeTranscriberStage struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriberStage) TranscribeFile(ctx context.Context, path string, onProgress transcripts.ProgressFunc) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if onProgress != nil {
		onProgress(3, 3)
	}
	return f.text, nil
}

type fakeExtractorStage struct {
	calls    int
	lastText string
}

func (f *fakeExtractorStage) ExtractIncremental(ctx context.Context, episode *models.Episode, podcastTitle, transcript string, onProgress terms.WindowProgressFunc) ([]models.Term, error) {
	f.calls++
	f.lastText = transcript
	return []models.Term{{EpisodeID: episode.ID, Term: "API"}}, nil
}

type fakeSummarizerStage struct {
	calls int
}

func (f *fakeSummarizerStage) Summarize(ctx context.Context, episodeTitle, transcript string) (string, error) {
	f.calls++
	return "a summary", nil
}

func (f *fakeSummarizerStage) SynthesizeAudio(ctx context.Context, episodeID uint, summaryText string) (string, error) {
	return "/data/uploads/episode_7/summary.mp3", nil
}

type fakeIndexerStage struct {
	calls    int
	lastText string
}

func (f *fakeIndexerStage) IndexTranscript(ctx context.Context, episodeID, podcastID uint, transcript string) (int, error) {
	f.calls++
	f.lastText = transcript
	return 4, nil
}

// fixture wires an orchestrator over fresh fakes
type fixture struct {
	orch *Orchestrator
	task *models.Task

	eps  *fakeEpisodeSvc
	trs  *fakeTranscriptSvc
	sums *fakeSummarySvc
	trm  *fakeTermSvc
	vec  *fakeVectorSvc
	tsk  *fakeTaskSvc
	ntf  *fakeNotificationSvc

	resolver    *fakeResolver
	downloader  *fakeDownloader
	transcriber *fakeTranscriberStage
	extractor   *fakeExtractorStage
	summarizer  *fakeSummarizerStage
	indexer     *fakeIndexerStage
}

func newFixture() *fixture {
	episode := &models.Episode{
		Model:     gorm.Model{ID: 7},
		PodcastID: 2,
		Title:     "Episode Seven",
		AudioURL:  "https://cdn/seven.mp3",
	}
	episodeID := episode.ID
	task := &models.Task{
		Model:     gorm.Model{ID: 1},
		TaskID:    "task-1",
		Type:      models.TaskTypeEpisodeProcessing,
		EpisodeID: &episodeID,
	}

	f := &fixture{
		task:        task,
		eps:         &fakeEpisodeSvc{episode: episode},
		trs:         &fakeTranscriptSvc{byEpisode: map[uint]*models.Transcript{}},
		sums:        &fakeSummarySvc{byEpisode: map[uint]*models.Summary{}},
		trm:         &fakeTermSvc{},
		vec:         &fakeVectorSvc{},
		tsk:         &fakeTaskSvc{},
		ntf:         &fakeNotificationSvc{},
		resolver:    &fakeResolver{err: dedup.ErrNoDonor},
		downloader:  &fakeDownloader{},
		transcriber: &fakeTranscriberStage{text: "the transcript"},
		extractor:   &fakeExtractorStage{},
		summarizer:  &fakeSummarizerStage{},
		indexer:     &fakeIndexerStage{},
	}
	f.orch = NewOrchestrator(Deps{
		Episodes:      f.eps,
		Podcasts:      &fakePodcastSvc{},
		Transcripts:   f.trs,
		Summaries:     f.sums,
		Terms:         f.trm,
		Vectors:       f.vec,
		Tasks:         f.tsk,
		Notifications: f.ntf,
		Resolver:      f.resolver,
		Downloader:    f.downloader,
		Transcriber:   f.transcriber,
		Extractor:     f.extractor,
		Summarizer:    f.summarizer,
		Indexer:       f.indexer,
	})
	return f
}

func TestProcessEpisodeFullRun(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.orch.ProcessEpisode(context.Background(), f.task))

	assert.Equal(t, 1, f.resolver.calls)
	assert.Equal(t, 1, f.downloader.calls)
	assert.Equal(t, 1, f.transcriber.calls)
	assert.Equal(t, 1, f.indexer.calls)
	assert.Equal(t, 1, f.extractor.calls)
	assert.Equal(t, 1, f.summarizer.calls)

	// Every downstream stage consumes the transcript produced this run
	assert.Equal(t, "the transcript", f.indexer.lastText)
	assert.Equal(t, "the transcript", f.extractor.lastText)
	assert.Equal(t, "the transcript", f.trs.byEpisode[7].Text)
	assert.Equal(t, "a summary", f.sums.byEpisode[7].Text)

	assert.True(t, f.tsk.completed)
	require.NotEmpty(t, f.tsk.progress)
	assert.Equal(t, "Episode Seven", f.tsk.progress[0].EpisodeTitle)
	assert.Equal(t, "Test Show", f.tsk.progress[0].PodcastTitle)
}

func TestProcessEpisodeResumesAfterTranscript(t *testing.T) {
	f := newFixture()
	f.trs.byEpisode[7] = &models.Transcript{EpisodeID: 7, Text: "stored transcript"}

	require.NoError(t, f.orch.ProcessEpisode(context.Background(), f.task))

	// Dedup, download and transcription are all satisfied by the stored
	// transcript; downstream stages run against the stored text
	assert.Zero(t, f.resolver.calls)
	assert.Zero(t, f.downloader.calls)
	assert.Zero(t, f.transcriber.calls)
	assert.Equal(t, "stored transcript", f.indexer.lastText)
	assert.Equal(t, "stored transcript", f.extractor.lastText)
	assert.Equal(t, 1, f.summarizer.calls)
	assert.True(t, f.tsk.completed)
}

func TestProcessEpisodeIdempotentWhenComplete(t *testing.T) {
	f := newFixture()
	f.trs.byEpisode[7] = &models.Transcript{EpisodeID: 7, Text: "t"}
	f.sums.byEpisode[7] = &models.Summary{EpisodeID: 7, Text: "s"}
	f.trm.count = 3
	f.vec.count = 12

	require.NoError(t, f.orch.ProcessEpisode(context.Background(), f.task))

	assert.Zero(t, f.resolver.calls)
	assert.Zero(t, f.downloader.calls)
	assert.Zero(t, f.transcriber.calls)
	assert.Zero(t, f.indexer.calls)
	assert.Zero(t, f.extractor.calls)
	assert.Zero(t, f.summarizer.calls)
	assert.True(t, f.tsk.completed, "an already-complete episode still succeeds")
}

func TestProcessEpisodeDedupShortCircuit(t *testing.T) {
	f := newFixture()
	f.resolver.err = nil // a donor satisfied the episode

	require.NoError(t, f.orch.ProcessEpisode(context.Background(), f.task))

	assert.Equal(t, 1, f.resolver.calls)
	assert.Zero(t, f.downloader.calls)
	assert.Zero(t, f.transcriber.calls)
	assert.Zero(t, f.indexer.calls)
	assert.Zero(t, f.extractor.calls)
	assert.Zero(t, f.summarizer.calls)
	assert.True(t, f.tsk.completed)
}

func TestProcessEpisodeCancellationCleansOwnArtifacts(t *testing.T) {
	f := newFixture()
	// Checks run before each stage: dedup(1), download(2), transcribe(3),
	// index(4). Cancel on the fourth check, after audio and transcript
	// exist but before indexing.
	f.tsk.cancelOnCheck = 4
	f.tsk.cleanup = true

	err := f.orch.ProcessEpisode(context.Background(), f.task)
	assert.ErrorIs(t, err, ErrCancelled)

	assert.True(t, f.tsk.cancelled)
	assert.False(t, f.tsk.completed)

	// Only this run's artifacts are removed
	assert.Equal(t, 1, f.trs.deleted)
	assert.Equal(t, 1, f.downloader.removed)
	assert.True(t, f.eps.clearedPath)
	assert.Zero(t, f.vec.deleted)
	assert.Zero(t, f.trm.deleted)
	assert.Zero(t, f.sums.deleted)
	assert.Zero(t, f.indexer.calls, "no stage runs after cancellation")
}

func TestProcessEpisodeCancellationWithoutCleanupKeepsArtifacts(t *testing.T) {
	f := newFixture()
	f.tsk.cancelOnCheck = 4
	f.tsk.cleanup = false

	err := f.orch.ProcessEpisode(context.Background(), f.task)
	assert.ErrorIs(t, err, ErrCancelled)

	assert.True(t, f.tsk.cancelled)
	assert.Zero(t, f.trs.deleted)
	assert.Zero(t, f.downloader.removed)
	assert.Contains(t, f.trs.byEpisode, uint(7), "partial transcript survives for a later resume")
}

func TestProcessEpisodeFailureRecordsStage(t *testing.T) {
	f := newFixture()
	f.transcriber.err = errors.New("backend unavailable")

	err := f.orch.ProcessEpisode(context.Background(), f.task)
	require.Error(t, err)

	assert.Equal(t, models.StageTranscribing, f.tsk.failStage)
	assert.Equal(t, "transcription failed", f.tsk.failMsg)
	assert.False(t, f.tsk.completed)

	var sawFailure bool
	for _, n := range f.ntf.stored {
		if n.Type == "processing_failed" {
			sawFailure = true
			assert.Equal(t, notifications.LevelError, n.Level)
		}
	}
	assert.True(t, sawFailure, "failure must produce a notification")
}
