package main

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/competitor-intel/internal/artifact"
	"github.com/sells-group/competitor-intel/internal/model"
	"github.com/sells-group/competitor-intel/internal/monitoring"
	"github.com/sells-group/competitor-intel/internal/store"
)

type mockRuns struct {
	mock.Mock
}

func (m *mockRuns) Submit(ctx context.Context, project model.Project) (string, error) {
	args := m.Called(ctx, project)
	return args.String(0), args.Error(1)
}

func (m *mockRuns) Status(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	run, _ := args.Get(0).(*model.Run)
	return run, args.Error(1)
}

type mockProjects struct {
	mock.Mock
}

func (m *mockProjects) Project(ctx context.Context, pageID string) (*model.Project, error) {
	args := m.Called(ctx, pageID)
	p, _ := args.Get(0).(*model.Project)
	return p, args.Error(1)
}

type mockLister struct {
	mock.Mock
}

func (m *mockLister) ListRuns(ctx context.Context, f store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, f)
	runs, _ := args.Get(0).([]model.Run)
	return runs, args.Error(1)
}

type mockStats struct {
	mock.Mock
}

func (m *mockStats) Collect(ctx context.Context, lookbackHours int) (*monitoring.MetricsSnapshot, error) {
	args := m.Called(ctx, lookbackHours)
	snap, _ := args.Get(0).(*monitoring.MetricsSnapshot)
	return snap, args.Error(1)
}

type mockReports struct {
	mock.Mock
}

func (m *mockReports) List() ([]artifact.Info, error) {
	args := m.Called()
	infos, _ := args.Get(0).([]artifact.Info)
	return infos, args.Error(1)
}
