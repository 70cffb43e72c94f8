package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/competitor-intel/internal/model"
	"github.com/sells-group/competitor-intel/internal/pipeline"
	"github.com/sells-group/competitor-intel/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func acmeProject() model.Project {
	return model.Project{
		PageID:       "page-acme",
		ProjectName:  "Acme Robotics",
		BusinessName: "Acme Robotics",
		Link:         "https://acme-robotics.example",
	}
}

func okResult() *pipeline.Result {
	return &pipeline.Result{ArtifactPath: "pdfs/Acme_Robotics_competitor_analysis.pdf"}
}

func waitForStatus(t *testing.T, r *Runner, runID string, want model.RunStatus) *model.Run {
	t.Helper()
	var run *model.Run
	require.Eventually(t, func() bool {
		var err error
		run, err = r.Status(context.Background(), runID)
		return err == nil && run.Status == want
	}, 5*time.Second, 10*time.Millisecond)
	return run
}

func TestSubmit_ValidatesProject(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Project)
		fields []string
	}{
		{name: "missing link", mutate: func(p *model.Project) { p.Link = "" }, fields: []string{"link"}},
		{name: "blank business", mutate: func(p *model.Project) { p.BusinessName = "   " }, fields: []string{"business_name"}},
		{name: "both", mutate: func(p *model.Project) { p.Link, p.BusinessName = "", "" }, fields: []string{"business_name", "link"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newTestStore(t)
			q := &blockingQueue{}
			r := NewRunner(st, q, &mockExecutor{}, nil)

			p := acmeProject()
			tt.mutate(&p)
			_, err := r.Submit(context.Background(), p)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.fields, ve.Fields)
			assert.Empty(t, q.ids)

			runs, err := st.ListRuns(context.Background(), store.RunFilter{})
			require.NoError(t, err)
			assert.Empty(t, runs, "no run recorded for invalid input")
		})
	}
}

func TestSubmit_ReturnsPendingWithoutExecuting(t *testing.T) {
	st := newTestStore(t)
	q := &blockingQueue{}
	exec := &mockExecutor{}
	r := NewRunner(st, q, exec, nil)

	id, err := r.Submit(context.Background(), acmeProject())
	require.NoError(t, err)
	assert.Equal(t, []string{id}, q.ids)

	run, err := r.Status(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusPending, run.Status)
	exec.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestSubmit_QueueFullMarksRunFailed(t *testing.T) {
	st := newTestStore(t)
	q := NewMemoryQueue(1, 1) // never started, so the second submit overflows
	r := NewRunner(st, q, &mockExecutor{}, nil)

	_, err := r.Submit(context.Background(), acmeProject())
	require.NoError(t, err)

	id, err := r.Submit(context.Background(), acmeProject())
	require.ErrorIs(t, err, ErrQueueFull)
	require.NotEmpty(t, id)

	run, err := r.Status(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, "queue full")
}

func TestRunner_EndToEndWithMemoryQueue(t *testing.T) {
	st := newTestStore(t)
	q := NewMemoryQueue(4, 2)

	exec := &mockExecutor{}
	exec.On("Run", mock.Anything, acmeProject()).Return(okResult(), nil).Once()
	approver := &mockApprover{}
	approver.On("MarkApproved", mock.Anything, "page-acme").Return(nil).Once()

	r := NewRunner(st, q, exec, approver)
	q.Start(r.Execute)

	id, err := r.Submit(context.Background(), acmeProject())
	require.NoError(t, err)

	run := waitForStatus(t, r, id, model.RunStatusSucceeded)
	assert.Equal(t, okResult().ArtifactPath, run.ArtifactPath)
	assert.Empty(t, run.Error)
	assert.NotNil(t, run.StartedAt)
	assert.NotNil(t, run.FinishedAt)

	require.NoError(t, r.Shutdown(context.Background()))
	exec.AssertExpectations(t)
	approver.AssertNumberOfCalls(t, "MarkApproved", 1)
}

func TestExecute_PipelineError(t *testing.T) {
	st := newTestStore(t)
	exec := &mockExecutor{}
	exec.On("Run", mock.Anything, mock.Anything).
		Return(nil, &model.DiscoveryError{Reason: model.DiscoveryReasonNoJSON})
	approver := &mockApprover{}
	r := NewRunner(st, &blockingQueue{}, exec, approver)

	id, err := r.Submit(context.Background(), acmeProject())
	require.NoError(t, err)

	err = r.Execute(context.Background(), id)
	var de *model.DiscoveryError
	require.ErrorAs(t, err, &de)

	run := waitForStatus(t, r, id, model.RunStatusFailed)
	assert.Equal(t, "discovery: no_json", run.Error)
	approver.AssertNotCalled(t, "MarkApproved", mock.Anything, mock.Anything)
}

func TestExecute_PanicMarksFailed(t *testing.T) {
	st := newTestStore(t)
	exec := &mockExecutor{}
	exec.On("Run", mock.Anything, mock.Anything).Run(func(mock.Arguments) { panic("nil map") })
	r := NewRunner(st, &blockingQueue{}, exec, nil)

	id, err := r.Submit(context.Background(), acmeProject())
	require.NoError(t, err)

	err = r.Execute(context.Background(), id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")

	run := waitForStatus(t, r, id, model.RunStatusFailed)
	assert.Equal(t, "panic: nil map", run.Error)
}

func TestExecute_TrackerFailureKeepsArtifact(t *testing.T) {
	st := newTestStore(t)
	exec := &mockExecutor{}
	exec.On("Run", mock.Anything, mock.Anything).Return(okResult(), nil)
	approver := &mockApprover{}
	approver.On("MarkApproved", mock.Anything, "page-acme").Return(errors.New("notion: 502"))
	r := NewRunner(st, &blockingQueue{}, exec, approver)

	id, err := r.Submit(context.Background(), acmeProject())
	require.NoError(t, err)

	err = r.Execute(context.Background(), id)
	var pe *model.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "mark approved", pe.Op)

	run := waitForStatus(t, r, id, model.RunStatusFailed)
	assert.Equal(t, okResult().ArtifactPath, run.ArtifactPath, "artifact recorded for diagnosis")
	assert.Contains(t, run.Error, "notion: 502")
}

func TestExecute_NoPageSkipsTracker(t *testing.T) {
	st := newTestStore(t)
	project := acmeProject()
	project.PageID = ""

	exec := &mockExecutor{}
	exec.On("Run", mock.Anything, project).Return(okResult(), nil)
	approver := &mockApprover{}
	r := NewRunner(st, &blockingQueue{}, exec, approver)

	id, err := r.Submit(context.Background(), project)
	require.NoError(t, err)
	require.NoError(t, r.Execute(context.Background(), id))

	waitForStatus(t, r, id, model.RunStatusSucceeded)
	approver.AssertNotCalled(t, "MarkApproved", mock.Anything, mock.Anything)
}

func TestExecute_SkipsRunsThatAreNotPending(t *testing.T) {
	st := newTestStore(t)
	exec := &mockExecutor{}
	exec.On("Run", mock.Anything, mock.Anything).Return(okResult(), nil).Once()
	approver := &mockApprover{}
	approver.On("MarkApproved", mock.Anything, mock.Anything).Return(nil).Once()
	r := NewRunner(st, &blockingQueue{}, exec, approver)

	id, err := r.Submit(context.Background(), acmeProject())
	require.NoError(t, err)

	require.NoError(t, r.Execute(context.Background(), id))
	require.NoError(t, r.Execute(context.Background(), id), "redelivered run is ignored")

	exec.AssertNumberOfCalls(t, "Run", 1)
	approver.AssertNumberOfCalls(t, "MarkApproved", 1)
}

func TestExecute_IgnoresCallerCancellation(t *testing.T) {
	st := newTestStore(t)
	exec := &mockExecutor{}
	exec.On("Run", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }), mock.Anything).
		Return(okResult(), nil)
	r := NewRunner(st, &blockingQueue{}, exec, nil)

	id, err := r.Submit(context.Background(), acmeProject())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Execute(ctx, id))
	waitForStatus(t, r, id, model.RunStatusSucceeded)
}

func TestStatus_NotFound(t *testing.T) {
	r := NewRunner(newTestStore(t), nil, &mockExecutor{}, nil)
	_, err := r.Status(context.Background(), "missing")
	assert.True(t, store.IsNotFound(err))
}

func TestSubmit_NoQueue(t *testing.T) {
	r := NewRunner(newTestStore(t), nil, &mockExecutor{}, nil)
	_, err := r.Submit(context.Background(), acmeProject())
	require.Error(t, err)
}

func TestRunNow(t *testing.T) {
	st := newTestStore(t)
	exec := &mockExecutor{}
	exec.On("Run", mock.Anything, mock.Anything).Return(okResult(), nil)
	approver := &mockApprover{}
	approver.On("MarkApproved", mock.Anything, "page-acme").Return(nil)
	r := NewRunner(st, nil, exec, approver)

	run, err := r.RunNow(context.Background(), acmeProject())
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSucceeded, run.Status)
	assert.Equal(t, okResult().ArtifactPath, run.ArtifactPath)
	assert.NotNil(t, run.FinishedAt)
}

func TestRunNow_FailureReturnsRecord(t *testing.T) {
	st := newTestStore(t)
	exec := &mockExecutor{}
	exec.On("Run", mock.Anything, mock.Anything).
		Return(nil, &model.DiscoveryError{Reason: model.DiscoveryReasonNoJSON})
	r := NewRunner(st, nil, exec, nil)

	run, err := r.RunNow(context.Background(), acmeProject())
	require.Error(t, err)
	require.NotNil(t, run)
	assert.Equal(t, model.RunStatusFailed, run.Status)
	assert.Equal(t, "discovery: no_json", run.Error)
}

func TestRunNow_Invalid(t *testing.T) {
	exec := &mockExecutor{}
	r := NewRunner(newTestStore(t), nil, exec, nil)

	p := acmeProject()
	p.Link = ""
	run, err := r.RunNow(context.Background(), p)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Nil(t, run)
	exec.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}
