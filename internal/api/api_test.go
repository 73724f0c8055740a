package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/podscribe/podscribe-api/internal/models"
	"github.com/podscribe/podscribe-api/internal/services/episodes"
	"github.com/podscribe/podscribe-api/internal/services/tasks"
	"github.com/podscribe/podscribe-api/internal/services/vectors"
	"github.com/podscribe/podscribe-api/pkg/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubEpisodes struct {
	episodes.Service
	episode *models.Episode
}

func (s *stubEpisodes) GetByID(ctx context.Context, id uint) (*models.Episode, error) {
	if s.episode == nil || s.episode.ID != id {
		return nil, episodes.ErrEpisodeNotFound
	}
	return s.episode, nil
}

type stubTasks struct {
	tasks.Service
	enqueued  *models.Task
	cancelErr error
}

func (s *stubTasks) Enqueue(ctx context.Context, taskType models.TaskType, episodeID, podcastID *uint) (*models.Task, error) {
	s.enqueued = &models.Task{
		TaskID:    "11111111-2222-3333-4444-555555555555",
		Type:      taskType,
		Status:    models.TaskStatusPending,
		EpisodeID: episodeID,
		PodcastID: podcastID,
	}
	return s.enqueued, nil
}

func (s *stubTasks) RequestCancel(ctx context.Context, taskID string, cleanup bool) error {
	return s.cancelErr
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

type stubVectors struct {
	vectors.Service
	results []vectors.SearchResult
}

func (s *stubVectors) Search(ctx context.Context, query []float32, podcastID uint, limit int) ([]vectors.SearchResult, error) {
	return s.results, nil
}

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		Host:           "127.0.0.1",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
}

func newTestServer(deps Deps) *Server {
	return NewServer(testServerConfig(), "test", deps)
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(Deps{})

	rec := doRequest(s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestProcessEpisodeEnqueues(t *testing.T) {
	episode := &models.Episode{Model: gorm.Model{ID: 7}, PodcastID: 2, Title: "Ep"}
	taskSvc := &stubTasks{}
	s := newTestServer(Deps{
		Episodes: &stubEpisodes{episode: episode},
		Tasks:    taskSvc,
	})

	rec := doRequest(s, http.MethodPost, "/api/v1/episodes/7/process", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, taskSvc.enqueued.TaskID, body["task_id"])
	assert.Equal(t, models.TaskTypeEpisodeProcessing, taskSvc.enqueued.Type)
	require.NotNil(t, taskSvc.enqueued.EpisodeID)
	assert.Equal(t, uint(7), *taskSvc.enqueued.EpisodeID)
}

func TestProcessUnknownEpisodeIs404(t *testing.T) {
	s := newTestServer(Deps{
		Episodes: &stubEpisodes{},
		Tasks:    &stubTasks{},
	})

	rec := doRequest(s, http.MethodPost, "/api/v1/episodes/99/process", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProcessInvalidEpisodeIDIs400(t *testing.T) {
	s := newTestServer(Deps{Episodes: &stubEpisodes{}, Tasks: &stubTasks{}})

	rec := doRequest(s, http.MethodPost, "/api/v1/episodes/not-a-number/process", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelTerminalTaskIs409(t *testing.T) {
	s := newTestServer(Deps{Tasks: &stubTasks{cancelErr: tasks.ErrTaskAlreadyTerminal}})

	rec := doRequest(s, http.MethodPost, "/api/v1/tasks/some-uuid/cancel?cleanup=true", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSearchReturnsRankedResults(t *testing.T) {
	results := []vectors.SearchResult{
		{Slice: models.VectorSlice{EpisodeID: 7, ChunkIndex: 0, Text: "match"}, Score: 0.93},
	}
	s := newTestServer(Deps{
		Embedder: stubEmbedder{},
		Vectors:  &stubVectors{results: results},
	})

	rec := doRequest(s, http.MethodPost, "/api/v1/search", `{"query": "what is raft"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Results []vectors.SearchResult `json:"results"`
		Count   int                    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.InDelta(t, 0.93, body.Results[0].Score, 1e-6)
}

func TestSearchRequiresQuery(t *testing.T) {
	s := newTestServer(Deps{Embedder: stubEmbedder{}, Vectors: &stubVectors{}})

	rec := doRequest(s, http.MethodPost, "/api/v1/search", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimitRejectsBursts(t *testing.T) {
	cfg := testServerConfig()
	cfg.RateLimit = 1
	cfg.RateBurst = 1
	s := NewServer(cfg, "test", Deps{})

	first := doRequest(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, first.Code)

	second := doRequest(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
