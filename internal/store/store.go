// Package store persists run status records.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/competitor-intel/internal/model"
)

var (
	// ErrNotFound is returned when no run has the requested ID.
	ErrNotFound = eris.New("store: run not found")
	// ErrInvalidTransition is returned when a status change is refused,
	// either because the run is terminal or the move is not allowed.
	ErrInvalidTransition = eris.New("store: invalid status transition")
)

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for run records.
type Store interface {
	CreateRun(ctx context.Context, project model.Project) (*model.Run, error)
	// UpdateRunStatus moves a run to the given status and writes the patch
	// fields. Runs already succeeded or failed are never modified.
	UpdateRunStatus(ctx context.Context, runID string, to model.RunStatus, patch model.RunUpdate) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	// CountByStatus counts runs created at or after since. A zero since
	// counts everything.
	CountByStatus(ctx context.Context, since time.Time) (map[model.RunStatus]int, error)

	Migrate(ctx context.Context) error
	Close() error
}

// sourceStatuses returns the statuses a run may be in to move to `to`.
func sourceStatuses(to model.RunStatus) []string {
	var from []string
	for _, s := range []model.RunStatus{model.RunStatusPending, model.RunStatusRunning} {
		if s.CanTransition(to) {
			from = append(from, string(s))
		}
	}
	return from
}

const defaultListLimit = 100

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}
