package jobs

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"

	"github.com/sells-group/competitor-intel/internal/model"
	"github.com/sells-group/competitor-intel/internal/pipeline"
)

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Run(ctx context.Context, project model.Project) (*pipeline.Result, error) {
	args := m.Called(ctx, project)
	res, _ := args.Get(0).(*pipeline.Result)
	return res, args.Error(1)
}

type mockApprover struct {
	mock.Mock
}

func (m *mockApprover) MarkApproved(ctx context.Context, pageID string) error {
	return m.Called(ctx, pageID).Error(0)
}

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task, opts)
	info, _ := args.Get(0).(*asynq.TaskInfo)
	return info, args.Error(1)
}

func (m *mockEnqueuer) Close() error {
	return m.Called().Error(0)
}

// blockingQueue accepts runs without executing them.
type blockingQueue struct {
	ids []string
	err error
}

func (q *blockingQueue) Enqueue(_ context.Context, runID string) error {
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, runID)
	return nil
}

func (q *blockingQueue) Shutdown(context.Context) error { return nil }
