package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/competitor-intel/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func acmeProject() model.Project {
	return model.Project{
		PageID:       "page-1",
		ProjectName:  "Acme Robotics",
		BusinessName: "Acme Robotics",
		Link:         "https://acme.example",
		DueDate:      "2026-11-01",
	}
}

func TestSQLite_CreateAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, acmeProject())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusPending, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, acmeProject(), got.Project)
	assert.Equal(t, model.RunStatusPending, got.Status)
	assert.Nil(t, got.StartedAt)
	assert.Nil(t, got.FinishedAt)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestSQLite_Lifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, acmeProject())
	require.NoError(t, err)

	require.NoError(t, st.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning, model.RunUpdate{}))
	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, got.Status)
	require.NotNil(t, got.StartedAt)
	assert.Nil(t, got.FinishedAt)

	patch := model.RunUpdate{ArtifactPath: "pdfs/Acme_Robotics_competitor_analysis.pdf"}
	require.NoError(t, st.UpdateRunStatus(ctx, run.ID, model.RunStatusSucceeded, patch))
	got, err = st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSucceeded, got.Status)
	assert.Equal(t, patch.ArtifactPath, got.ArtifactPath)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.FinishedAt)
}

func TestSQLite_TerminalRunsAreFrozen(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, acmeProject())
	require.NoError(t, err)
	require.NoError(t, st.UpdateRunStatus(ctx, run.ID, model.RunStatusFailed, model.RunUpdate{Error: "queue full"}))

	for _, to := range []model.RunStatus{model.RunStatusRunning, model.RunStatusSucceeded, model.RunStatusFailed} {
		err := st.UpdateRunStatus(ctx, run.ID, to, model.RunUpdate{Error: "late write"})
		require.ErrorIs(t, err, ErrInvalidTransition, to)
	}

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "queue full", got.Error)
}

func TestSQLite_UpdateRunStatus_Invalid(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, acmeProject())
	require.NoError(t, err)

	tests := []struct {
		name   string
		runID  string
		to     model.RunStatus
		target error
	}{
		{name: "pending to succeeded", runID: run.ID, to: model.RunStatusSucceeded, target: ErrInvalidTransition},
		{name: "back to pending", runID: run.ID, to: model.RunStatusPending, target: ErrInvalidTransition},
		{name: "unknown status", runID: run.ID, to: model.RunStatus("paused"), target: ErrInvalidTransition},
		{name: "missing run", runID: "nope", to: model.RunStatusRunning, target: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := st.UpdateRunStatus(ctx, tt.runID, tt.to, model.RunUpdate{})
			require.ErrorIs(t, err, tt.target)
		})
	}

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusPending, got.Status)
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := st.CreateRun(ctx, acmeProject())
		require.NoError(t, err)
		ids = append(ids, run.ID)
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, st.UpdateRunStatus(ctx, ids[0], model.RunStatusRunning, model.RunUpdate{}))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")

	pending, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	page, err := st.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)
}

func TestSQLite_CountByStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		run, err := st.CreateRun(ctx, acmeProject())
		require.NoError(t, err)
		if i == 0 {
			require.NoError(t, st.UpdateRunStatus(ctx, run.ID, model.RunStatusFailed, model.RunUpdate{Error: "boom"}))
		}
	}

	counts, err := st.CountByStatus(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, map[model.RunStatus]int{
		model.RunStatusPending: 2,
		model.RunStatusFailed:  1,
	}, counts)

	future, err := st.CountByStatus(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, future)
}
