// Package cleanup runs the periodic maintenance sweep: failing orphaned
// tasks whose worker died, and removing stale partial downloads.
package cleanup

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/podscribe/podscribe-api/internal/services/tasks"
	"github.com/podscribe/podscribe-api/pkg/download"
)

// Options configures the sweeper
type Options struct {
	// OrphanTimeout is how stale a heartbeat must be before a PROGRESS
	// task is considered orphaned
	OrphanTimeout time.Duration
	// SweepInterval is how often the sweep runs
	SweepInterval time.Duration
	// UploadDir is scanned for stale .partial download files
	UploadDir string
	// PartialMaxAge is how old a .partial file must be before removal
	PartialMaxAge time.Duration
}

// Sweeper periodically reaps orphaned tasks and stale partial files
type Sweeper struct {
	tasks    tasks.Service
	options  Options
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewSweeper creates a sweeper
func NewSweeper(taskService tasks.Service, options Options) *Sweeper {
	if options.SweepInterval <= 0 {
		options.SweepInterval = time.Minute
	}
	if options.OrphanTimeout <= 0 {
		options.OrphanTimeout = 5 * time.Minute
	}
	if options.PartialMaxAge <= 0 {
		options.PartialMaxAge = time.Hour
	}
	return &Sweeper{
		tasks:    taskService,
		options:  options,
		stopChan: make(chan struct{}),
	}
}

// Start launches the sweep loop in a goroutine
func (s *Sweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop stops the sweep loop
func (s *Sweeper) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	log.Printf("[DEBUG] Sweeper starting (interval %s, orphan timeout %s)",
		s.options.SweepInterval, s.options.OrphanTimeout)

	ticker := time.NewTicker(s.options.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce performs one maintenance pass
func (s *Sweeper) SweepOnce(ctx context.Context) {
	swept, err := s.tasks.SweepOrphans(ctx, s.options.OrphanTimeout)
	if err != nil {
		log.Printf("[WARN] Orphan sweep failed: %v", err)
	} else if swept > 0 {
		log.Printf("[WARN] Orphan sweep failed %d stale tasks", swept)
	}

	if s.options.UploadDir != "" {
		if err := download.CleanupStalePartials(s.options.UploadDir, s.options.PartialMaxAge); err != nil {
			log.Printf("[WARN] Partial file cleanup failed: %v", err)
		}
	}
}
