// Package workers runs the polling worker pool that claims pending tasks
// and dispatches them to registered processors.
package workers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/podscribe/podscribe-api/internal/models"
	"github.com/podscribe/podscribe-api/internal/services/pipeline"
	"github.com/podscribe/podscribe-api/internal/services/tasks"
)

// heartbeatInterval is how often a worker refreshes its claim while a
// processor is running. Must be well under the orphan sweep timeout.
const heartbeatInterval = 30 * time.Second

// TaskProcessor handles one or more task types. Processors own the task
// lifecycle: they call Complete or Fail themselves, so the worker never
// double-transitions a task.
type TaskProcessor interface {
	ProcessTask(ctx context.Context, task *models.Task) error
	CanProcess(taskType models.TaskType) bool
}

// Worker is a single polling loop that claims and processes tasks
type Worker struct {
	id           string
	taskService  tasks.Service
	processors   []TaskProcessor
	stopChan     chan struct{}
	wg           sync.WaitGroup
	pollInterval time.Duration
}

// NewWorker creates a worker
func NewWorker(id string, taskService tasks.Service, pollInterval time.Duration) *Worker {
	return &Worker{
		id:           id,
		taskService:  taskService,
		stopChan:     make(chan struct{}),
		pollInterval: pollInterval,
	}
}

// RegisterProcessor adds a task processor
func (w *Worker) RegisterProcessor(processor TaskProcessor) {
	w.processors = append(w.processors, processor)
}

// Start launches the worker loop in a goroutine
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop stops the worker and waits for the current task to finish
func (w *Worker) Stop() {
	close(w.stopChan)
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log.Printf("[DEBUG] Worker %s starting", w.id)
	defer log.Printf("[DEBUG] Worker %s stopped", w.id)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			if err := w.processNext(ctx); err != nil {
				log.Printf("[WARN] Worker %s: %v", w.id, err)
			}
		}
	}
}

// supportedTypes collects the task types any registered processor handles
func (w *Worker) supportedTypes() []models.TaskType {
	all := []models.TaskType{
		models.TaskTypeEpisodeProcessing,
		models.TaskTypeTermExtraction,
		models.TaskTypeFeedRefresh,
	}

	var supported []models.TaskType
	for _, taskType := range all {
		for _, p := range w.processors {
			if p.CanProcess(taskType) {
				supported = append(supported, taskType)
				break
			}
		}
	}
	return supported
}

// processNext claims the oldest pending task and runs its processor
func (w *Worker) processNext(ctx context.Context) error {
	types := w.supportedTypes()
	if len(types) == 0 {
		return fmt.Errorf("no task processors registered")
	}

	task, err := w.taskService.ClaimNext(ctx, w.id, types)
	if err != nil {
		if errors.Is(err, tasks.ErrNoTasksAvailable) {
			return nil
		}
		return fmt.Errorf("claiming task: %w", err)
	}

	log.Printf("[DEBUG] Worker %s claimed task %s (type %s)", w.id, task.TaskID, task.Type)

	var processor TaskProcessor
	for _, p := range w.processors {
		if p.CanProcess(task.Type) {
			processor = p
			break
		}
	}
	if processor == nil {
		return fmt.Errorf("no processor for task type %s", task.Type)
	}

	stopHeartbeat := w.startHeartbeat(ctx, task.ID)
	defer stopHeartbeat()

	if err := processor.ProcessTask(ctx, task); err != nil {
		if errors.Is(err, pipeline.ErrCancelled) {
			log.Printf("[DEBUG] Worker %s: task %s cancelled", w.id, task.TaskID)
			return nil
		}
		// The processor already recorded the failure on the task
		return fmt.Errorf("task %s failed: %w", task.TaskID, err)
	}

	log.Printf("[DEBUG] Worker %s completed task %s", w.id, task.TaskID)
	return nil
}

// startHeartbeat keeps the claim fresh while the processor runs, so the
// orphan sweeper never reaps a task a live worker is still working on
func (w *Worker) startHeartbeat(ctx context.Context, taskID uint) func() {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.taskService.Heartbeat(ctx, taskID); err != nil {
					log.Printf("[WARN] Worker %s: heartbeat for task %d: %v", w.id, taskID, err)
				}
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}

// Pool manages a fixed set of workers sharing one task queue
type Pool struct {
	workers     []*Worker
	taskService tasks.Service
	mu          sync.Mutex
	started     bool
}

// NewPool creates a pool of workerCount workers
func NewPool(taskService tasks.Service, workerCount int, pollInterval time.Duration) *Pool {
	pool := &Pool{
		taskService: taskService,
		workers:     make([]*Worker, workerCount),
	}
	for i := range pool.workers {
		pool.workers[i] = NewWorker(fmt.Sprintf("worker-%d", i+1), taskService, pollInterval)
	}
	return pool
}

// RegisterProcessor registers a processor with every worker
func (p *Pool) RegisterProcessor(processor TaskProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, w := range p.workers {
		w.RegisterProcessor(processor)
	}
}

// Start launches all workers
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("worker pool already started")
	}

	log.Printf("[DEBUG] Starting worker pool with %d workers", len(p.workers))
	for _, w := range p.workers {
		w.Start(ctx)
	}
	p.started = true
	return nil
}

// Stop stops all workers, waiting for in-flight tasks
func (p *Pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	log.Printf("[DEBUG] Stopping worker pool")
	for _, w := range p.workers {
		w.Stop()
	}
	p.started = false
}
