package jobs

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned when the in-process queue has no free slot.
	ErrQueueFull = eris.New("jobs: queue full")
	// ErrQueueClosed is returned after Shutdown.
	ErrQueueClosed = eris.New("jobs: queue closed")
)

const (
	defaultQueueSize = 64
	defaultWorkers   = 2
)

// MemoryQueue is a buffered channel drained by a fixed worker pool.
type MemoryQueue struct {
	jobs    chan string
	workers int

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewMemoryQueue creates a queue holding up to size pending runs.
func NewMemoryQueue(size, workers int) *MemoryQueue {
	if size <= 0 {
		size = defaultQueueSize
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &MemoryQueue{jobs: make(chan string, size), workers: workers}
}

// Start launches the workers. Each queued run ID is passed to h.
func (q *MemoryQueue) Start(h Handler) {
	for i := range q.workers {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			log := zap.L().With(zap.Int("worker", i))
			for runID := range q.jobs {
				q.handle(log, h, runID)
			}
		}()
	}
}

func (q *MemoryQueue) handle(log *zap.Logger, h Handler, runID string) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("jobs: handler panicked", zap.String("run_id", runID), zap.Any("panic", p))
		}
	}()
	if err := h(context.Background(), runID); err != nil {
		log.Debug("jobs: handler returned error", zap.String("run_id", runID), zap.Error(err))
	}
}

// Enqueue adds a run without blocking.
func (q *MemoryQueue) Enqueue(_ context.Context, runID string) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- runID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Len returns the number of runs waiting for a worker.
func (q *MemoryQueue) Len() int { return len(q.jobs) }

// Shutdown closes the queue and waits for workers to finish queued runs.
func (q *MemoryQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "jobs: drain workers")
	}
}
