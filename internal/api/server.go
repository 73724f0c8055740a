// Package api hosts the HTTP surface: podcast subscriptions, episode
// artifacts, task polling and cancellation, semantic search, and
// notifications.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/podscribe/podscribe-api/internal/api/handlers"
	"github.com/podscribe/podscribe-api/internal/database"
	"github.com/podscribe/podscribe-api/internal/services/ai"
	"github.com/podscribe/podscribe-api/internal/services/episodes"
	"github.com/podscribe/podscribe-api/internal/services/notifications"
	"github.com/podscribe/podscribe-api/internal/services/podcasts"
	"github.com/podscribe/podscribe-api/internal/services/summaries"
	"github.com/podscribe/podscribe-api/internal/services/tasks"
	"github.com/podscribe/podscribe-api/internal/services/terms"
	"github.com/podscribe/podscribe-api/internal/services/transcripts"
	"github.com/podscribe/podscribe-api/internal/services/vectors"
	"github.com/podscribe/podscribe-api/pkg/config"
)

// Deps bundles everything the HTTP layer serves
type Deps struct {
	DB            *database.DB
	Podcasts      podcasts.Service
	Episodes      episodes.Service
	Transcripts   transcripts.Service
	Summaries     summaries.Service
	Terms         terms.Service
	Vectors       vectors.Service
	Tasks         tasks.Service
	Notifications notifications.Service
	Embedder      ai.Embedder
}

// Server is the HTTP server
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	deps       Deps
}

// Engine exposes the gin engine for tests
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// NewServer creates the HTTP server and wires all routes
func NewServer(cfg config.ServerConfig, environment string, deps Deps) *Server {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	server := &Server{
		engine: engine,
		deps:   deps,
		httpServer: &http.Server{
			Addr:           fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:        engine,
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			IdleTimeout:    30 * time.Second,
			MaxHeaderBytes: cfg.MaxHeaderBytes,
		},
	}

	server.setupMiddleware(cfg)
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware(cfg config.ServerConfig) {
	s.engine.Use(gin.Recovery())
	s.engine.Use(gin.Logger())
	s.engine.Use(corsMiddleware())
	s.engine.Use(requestSizeLimitMiddleware())
	if cfg.RateLimit > 0 {
		s.engine.Use(rateLimitMiddleware(cfg.RateLimit, cfg.RateBurst))
	}
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.healthHandler)
	s.engine.GET("/", s.versionHandler)

	podcastHandler := handlers.NewPodcastHandler(s.deps.Podcasts, s.deps.Episodes, s.deps.Tasks)
	episodeHandler := handlers.NewEpisodeHandler(s.deps.Episodes, s.deps.Transcripts, s.deps.Summaries, s.deps.Terms, s.deps.Tasks)
	taskHandler := handlers.NewTaskHandler(s.deps.Tasks)
	searchHandler := handlers.NewSearchHandler(s.deps.Embedder, s.deps.Vectors)
	notificationHandler := handlers.NewNotificationHandler(s.deps.Notifications)

	v1 := s.engine.Group("/api/v1")
	{
		v1.POST("/podcasts", podcastHandler.Subscribe)
		v1.GET("/podcasts", podcastHandler.List)
		v1.GET("/podcasts/:id", podcastHandler.Get)
		v1.DELETE("/podcasts/:id", podcastHandler.Delete)
		v1.POST("/podcasts/:id/refresh", podcastHandler.Refresh)
		v1.GET("/podcasts/:id/episodes", podcastHandler.Episodes)

		v1.GET("/episodes/:id", episodeHandler.Get)
		v1.POST("/episodes/:id/process", episodeHandler.Process)
		v1.GET("/episodes/:id/transcript", episodeHandler.Transcript)
		v1.GET("/episodes/:id/summary", episodeHandler.Summary)
		v1.GET("/episodes/:id/terms", episodeHandler.Terms)
		v1.POST("/episodes/:id/terms/extract", episodeHandler.ExtractTerms)

		v1.GET("/tasks", taskHandler.List)
		v1.GET("/tasks/:task_id", taskHandler.Get)
		v1.POST("/tasks/:task_id/cancel", taskHandler.Cancel)

		v1.POST("/search", searchHandler.Search)

		v1.GET("/notifications", notificationHandler.List)
		v1.POST("/notifications/:id/read", notificationHandler.MarkRead)
		v1.POST("/notifications/read_all", notificationHandler.MarkAllRead)
	}

	s.engine.NoRoute(s.notFoundHandler)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"database":  s.databaseStatus(),
	})
}

func (s *Server) databaseStatus() gin.H {
	if s.deps.DB == nil {
		return gin.H{"status": "not configured"}
	}
	if err := s.deps.DB.HealthCheck(); err != nil {
		return gin.H{"status": "unhealthy", "error": err.Error()}
	}
	return gin.H{"status": "healthy"}
}

func (s *Server) versionHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "Podscribe API",
		"version":     "1.0.0",
		"description": "Podcast transcription, indexing and summarization API",
	})
}

func (s *Server) notFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Resource not found"})
}

// Start starts the HTTP server, blocking until shutdown
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
