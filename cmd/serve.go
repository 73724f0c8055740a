package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/podscribe/podscribe-api/internal/api"
	"github.com/podscribe/podscribe-api/internal/database"
	"github.com/podscribe/podscribe-api/internal/services/ai"
	"github.com/podscribe/podscribe-api/internal/services/cleanup"
	"github.com/podscribe/podscribe-api/internal/services/dedup"
	"github.com/podscribe/podscribe-api/internal/services/episodes"
	"github.com/podscribe/podscribe-api/internal/services/notifications"
	"github.com/podscribe/podscribe-api/internal/services/pipeline"
	"github.com/podscribe/podscribe-api/internal/services/podcasts"
	"github.com/podscribe/podscribe-api/internal/services/summaries"
	"github.com/podscribe/podscribe-api/internal/services/tasks"
	"github.com/podscribe/podscribe-api/internal/services/terms"
	"github.com/podscribe/podscribe-api/internal/services/transcripts"
	"github.com/podscribe/podscribe-api/internal/services/vectors"
	"github.com/podscribe/podscribe-api/internal/services/workers"
	"github.com/podscribe/podscribe-api/pkg/download"
	"github.com/podscribe/podscribe-api/pkg/ffmpeg"
)

var (
	serverHost string
	serverPort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and background workers",
	Long: `Start the Podscribe API server with the configured settings.

Runs the HTTP API, the background worker pool that processes episodes,
and the maintenance sweeper that reaps orphaned tasks.

Example:
  podscribe-api serve
  podscribe-api serve --port 9090`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (overrides config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	db, err := database.Initialize(cfg.Database.Path, cfg.Database.Verbose)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	if err := db.MigrateAll(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	if err := os.MkdirAll(cfg.Storage.UploadDir, 0o755); err != nil {
		return fmt.Errorf("creating upload directory: %w", err)
	}

	// Storage-backed services
	episodeSvc := episodes.NewService(episodes.NewRepository(db.DB))
	podcastSvc := podcasts.NewService(podcasts.NewRepository(db.DB), episodeSvc)
	transcriptSvc := transcripts.NewService(transcripts.NewRepository(db.DB))
	summarySvc := summaries.NewService(summaries.NewRepository(db.DB))
	termSvc := terms.NewService(terms.NewRepository(db.DB))
	termRepo := terms.NewRepository(db.DB)
	vectorSvc := vectors.NewService(vectors.NewRepository(db.DB))
	taskSvc := tasks.NewService(tasks.NewRepository(db.DB))
	notificationSvc := notifications.NewService(db.DB)

	// AI backends share one rate-limited client
	aiClient := ai.NewClient(cfg.AI)

	// Pipeline components
	audioToolkit := ffmpeg.New(cfg.FFmpeg.FFmpegPath, cfg.FFmpeg.FFprobePath, cfg.FFmpeg.Timeout)
	plannerOpts := ffmpeg.PlannerOptions{
		MaxFileBytes:     cfg.Transcription.MaxFileBytes,
		TargetChunkBytes: cfg.Transcription.TargetChunkBytes,
		MinChunkSeconds:  cfg.Transcription.MinChunkSeconds,
		MaxChunkSeconds:  cfg.Transcription.MaxChunkSeconds,
		MaxChunkAttempts: cfg.Transcription.MaxChunkAttempts,
		ChunkDecay:       cfg.Transcription.ChunkDecay,
	}

	downloader := download.NewDownloader(download.Options{
		UploadDir:     cfg.Storage.UploadDir,
		ValidateAudio: true,
		MaxRetries:    3,
	})

	transcriber := transcripts.NewTranscriber(audioToolkit, aiClient, transcripts.TranscriberOptions{
		Planner:     plannerOpts,
		Concurrency: cfg.Transcription.Concurrency,
		KeepChunks:  cfg.Storage.KeepAudioChunks,
	})

	extractor := terms.NewExtractor(aiClient, aiClient, termRepo, terms.ExtractorOptions{
		WindowSize:            cfg.Terms.WindowSize,
		WindowOverlap:         cfg.Terms.WindowOverlap,
		DefinitionConcurrency: cfg.Terms.DefinitionConcurrency,
		MaxTermsPerWindow:     cfg.Terms.IncrementalMaxTerms,
	})

	summarizer := summaries.NewSummarizer(aiClient, aiClient, summaries.SummarizerOptions{
		MaxChunkChars: cfg.Summary.MaxChunkChars,
		TTSMaxChars:   cfg.Summary.TTSMaxChars,
		TTSEnabled:    cfg.AI.TTSEnabled,
		AudioDir:      cfg.Storage.UploadDir,
	})

	indexer := vectors.NewIndexer(aiClient, vectors.NewRepository(db.DB), vectors.IndexerOptions{
		ChunkSize:    cfg.Vectors.ChunkSize,
		ChunkOverlap: cfg.Vectors.ChunkOverlap,
	})

	resolver := dedup.NewResolver(episodeSvc, transcriptSvc, summarySvc, termSvc, vectorSvc)

	orchestrator := pipeline.NewOrchestrator(pipeline.Deps{
		Episodes:      episodeSvc,
		Podcasts:      podcastSvc,
		Transcripts:   transcriptSvc,
		Summaries:     summarySvc,
		Terms:         termSvc,
		Vectors:       vectorSvc,
		Tasks:         taskSvc,
		Notifications: notificationSvc,
		Resolver:      resolver,
		Downloader:    downloader,
		Transcriber:   transcriber,
		Extractor:     extractor,
		Summarizer:    summarizer,
		Indexer:       indexer,
	})

	// Background workers and maintenance
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := workers.NewPool(taskSvc, cfg.Processing.Workers, cfg.Processing.PollInterval)
	pool.RegisterProcessor(workers.NewEpisodeProcessor(orchestrator))
	pool.RegisterProcessor(workers.NewTermExtractionProcessor(episodeSvc, podcastSvc, transcriptSvc, termSvc, taskSvc, extractor))
	pool.RegisterProcessor(workers.NewFeedRefreshProcessor(podcastSvc, taskSvc))
	if err := pool.Start(ctx); err != nil {
		return err
	}
	defer pool.Stop()

	sweeper := cleanup.NewSweeper(taskSvc, cleanup.Options{
		OrphanTimeout: cfg.Processing.OrphanTimeout,
		SweepInterval: cfg.Processing.SweepInterval,
		UploadDir:     cfg.Storage.UploadDir,
	})
	sweeper.Start(ctx)
	defer sweeper.Stop()

	// HTTP server
	server := api.NewServer(cfg.Server, cfg.Environment, api.Deps{
		DB:            db,
		Podcasts:      podcastSvc,
		Episodes:      episodeSvc,
		Transcripts:   transcriptSvc,
		Summaries:     summarySvc,
		Terms:         termSvc,
		Vectors:       vectorSvc,
		Tasks:         taskSvc,
		Notifications: notificationSvc,
		Embedder:      aiClient,
	})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("server error: %w", err)
		}
	}()

	fmt.Printf("Podscribe API listening on %s:%d (%d workers)\n",
		cfg.Server.Host, cfg.Server.Port, cfg.Processing.Workers)

	select {
	case <-stop:
		fmt.Println("\nShutting down...")
	case err := <-serverErr:
		fmt.Fprintf(os.Stderr, "\n%v\n", err)
		fmt.Println("Shutting down...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Server forced to shutdown: %v\n", err)
		return err
	}

	fmt.Println("Server gracefully stopped")
	return nil
}
