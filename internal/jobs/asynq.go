package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// TaskTypeRun is the asynq task type carrying a run ID.
const TaskTypeRun = "compintel:run"

const asynqQueueName = "default"

// RunPayload is the JSON body of a TaskTypeRun task.
type RunPayload struct {
	RunID string `json:"run_id"`
}

// NewRunTask builds the task for runID.
func NewRunTask(runID string) (*asynq.Task, error) {
	payload, err := json.Marshal(RunPayload{RunID: runID})
	if err != nil {
		return nil, eris.Wrap(err, "jobs: marshal payload")
	}
	return asynq.NewTask(TaskTypeRun, payload), nil
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// AsynqQueue publishes runs to redis for a separate worker process.
type AsynqQueue struct {
	client enqueuer

	closeOnce sync.Once
	closeErr  error
}

// NewAsynqQueue connects an asynq client.
func NewAsynqQueue(opt asynq.RedisClientOpt) *AsynqQueue {
	return &AsynqQueue{client: asynq.NewClient(opt)}
}

// Enqueue publishes a run task. Tasks are not retried by asynq; a failed
// run is recorded as failed instead.
func (q *AsynqQueue) Enqueue(ctx context.Context, runID string) error {
	task, err := NewRunTask(runID)
	if err != nil {
		return err
	}
	info, err := q.client.EnqueueContext(ctx, task, asynq.Queue(asynqQueueName), asynq.MaxRetry(0))
	if err != nil {
		return eris.Wrap(err, "jobs: asynq enqueue")
	}
	zap.L().Debug("jobs: task enqueued", zap.String("run_id", runID), zap.String("task_id", info.ID))
	return nil
}

// Shutdown closes the redis connection. Later calls return the first
// result without closing again.
func (q *AsynqQueue) Shutdown(context.Context) error {
	q.closeOnce.Do(func() {
		q.closeErr = eris.Wrap(q.client.Close(), "jobs: close asynq client")
	})
	return q.closeErr
}

// HandleRunTask adapts h to an asynq handler. Errors never trigger an
// asynq retry because the run status already records the failure.
func HandleRunTask(h Handler) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p RunPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil || p.RunID == "" {
			return fmt.Errorf("jobs: bad %s payload: %w", TaskTypeRun, asynq.SkipRetry)
		}
		if err := h(ctx, p.RunID); err != nil {
			return fmt.Errorf("jobs: run %s: %v: %w", p.RunID, err, asynq.SkipRetry)
		}
		return nil
	}
}

// Worker consumes run tasks from redis.
type Worker struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

// NewWorker creates a worker server running h with the given concurrency.
func NewWorker(opt asynq.RedisClientOpt, concurrency int, h Handler) *Worker {
	if concurrency <= 0 {
		concurrency = defaultWorkers
	}
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{asynqQueueName: 1},
		Logger:      zap.L().Sugar(),
	})
	mux := asynq.NewServeMux()
	mux.Handle(TaskTypeRun, HandleRunTask(h))
	return &Worker{srv: srv, mux: mux}
}

// Run processes tasks until the process receives SIGTERM or SIGINT.
func (w *Worker) Run() error {
	return eris.Wrap(w.srv.Run(w.mux), "jobs: asynq worker")
}
