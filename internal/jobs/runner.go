// Package jobs runs pipeline executions in the background and records
// their status.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/competitor-intel/internal/model"
	"github.com/sells-group/competitor-intel/internal/pipeline"
	"github.com/sells-group/competitor-intel/internal/store"
)

// Handler executes one run by ID.
type Handler func(ctx context.Context, runID string) error

// Queue hands run IDs to workers.
type Queue interface {
	Enqueue(ctx context.Context, runID string) error
	Shutdown(ctx context.Context) error
}

// RunStore is the subset of store.Store the runner writes through.
type RunStore interface {
	CreateRun(ctx context.Context, project model.Project) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, to model.RunStatus, patch model.RunUpdate) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
}

// Executor runs the pipeline for a project. *pipeline.Pipeline satisfies it.
type Executor interface {
	Run(ctx context.Context, project model.Project) (*pipeline.Result, error)
}

// Approver marks a tracker page as done. *tracker.Notion satisfies it.
type Approver interface {
	MarkApproved(ctx context.Context, pageID string) error
}

// ValidationError lists the project fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "jobs: invalid project: missing " + strings.Join(e.Fields, ", ")
}

// Runner submits runs, executes them and reports their status. Only the
// worker executing a run writes its status after submission.
type Runner struct {
	store    RunStore
	queue    Queue
	exec     Executor
	approver Approver
	validate *validator.Validate
}

// NewRunner creates a Runner. queue may be nil in processes that only
// execute runs; approver may be nil when no tracker is configured.
func NewRunner(st RunStore, q Queue, exec Executor, approver Approver) *Runner {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Runner{store: st, queue: q, exec: exec, approver: approver, validate: v}
}

// Submit validates project, records a pending run and enqueues it. It
// returns as soon as the run is queued. A run that cannot be queued is
// marked failed and its ID is returned with the error.
func (r *Runner) Submit(ctx context.Context, project model.Project) (string, error) {
	project.BusinessName = strings.TrimSpace(project.BusinessName)
	project.Link = strings.TrimSpace(project.Link)
	if err := r.check(project); err != nil {
		return "", err
	}
	if r.queue == nil {
		return "", eris.New("jobs: no queue configured")
	}

	run, err := r.store.CreateRun(ctx, project)
	if err != nil {
		return "", eris.Wrap(err, "jobs: create run")
	}

	log := zap.L().With(zap.String("run_id", run.ID), zap.String("business", project.BusinessName))
	if err := r.queue.Enqueue(ctx, run.ID); err != nil {
		log.Error("jobs: enqueue failed", zap.Error(err))
		if uerr := r.store.UpdateRunStatus(context.WithoutCancel(ctx), run.ID, model.RunStatusFailed, model.RunUpdate{Error: err.Error()}); uerr != nil {
			log.Error("jobs: mark unqueued run failed", zap.Error(uerr))
		}
		return run.ID, eris.Wrap(err, "jobs: enqueue run")
	}

	log.Info("jobs: run submitted")
	return run.ID, nil
}

func (r *Runner) check(project model.Project) error {
	err := r.validate.Struct(project)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return eris.Wrap(err, "jobs: validate project")
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		ve.Fields = append(ve.Fields, fe.Field())
	}
	return ve
}

// RunNow validates project, records a run and executes it in the caller's
// goroutine. The final run record is returned even when the run failed.
func (r *Runner) RunNow(ctx context.Context, project model.Project) (*model.Run, error) {
	project.BusinessName = strings.TrimSpace(project.BusinessName)
	project.Link = strings.TrimSpace(project.Link)
	if err := r.check(project); err != nil {
		return nil, err
	}

	run, err := r.store.CreateRun(ctx, project)
	if err != nil {
		return nil, eris.Wrap(err, "jobs: create run")
	}

	execErr := r.Execute(ctx, run.ID)
	final, err := r.store.GetRun(context.WithoutCancel(ctx), run.ID)
	if err != nil {
		return nil, eris.Wrap(err, "jobs: reload run")
	}
	return final, execErr
}

// Status returns the current record for a run.
func (r *Runner) Status(ctx context.Context, runID string) (*model.Run, error) {
	return r.store.GetRun(ctx, runID)
}

// Execute runs one pending run to a terminal status. It is the Handler
// given to queue workers. The run continues even if ctx is cancelled.
// Runs that are no longer pending are skipped.
func (r *Runner) Execute(ctx context.Context, runID string) (err error) {
	ctx = context.WithoutCancel(ctx)
	log := zap.L().With(zap.String("run_id", runID))

	run, err := r.store.GetRun(ctx, runID)
	if err != nil {
		return eris.Wrap(err, "jobs: load run")
	}

	if err := r.store.UpdateRunStatus(ctx, runID, model.RunStatusRunning, model.RunUpdate{}); err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			log.Warn("jobs: run is not pending, skipping", zap.String("status", string(run.Status)))
			return nil
		}
		return eris.Wrap(err, "jobs: mark running")
	}
	log = log.With(zap.String("business", run.Project.BusinessName))
	log.Info("jobs: run started")

	defer func() {
		if p := recover(); p != nil {
			err = eris.Errorf("jobs: run panicked: %v", p)
			r.fail(ctx, log, runID, model.RunUpdate{Error: fmt.Sprintf("panic: %v", p)})
		}
	}()

	res, err := r.exec.Run(ctx, run.Project)
	if err != nil {
		patch := model.RunUpdate{Error: err.Error()}
		if res != nil {
			patch.ArtifactPath = res.ArtifactPath
			patch.WorkbookPath = res.WorkbookPath
		}
		r.fail(ctx, log, runID, patch)
		return err
	}

	patch := model.RunUpdate{ArtifactPath: res.ArtifactPath, WorkbookPath: res.WorkbookPath}
	if pageID := run.Project.PageID; pageID != "" && r.approver != nil {
		if aerr := r.approver.MarkApproved(ctx, pageID); aerr != nil {
			perr := &model.PersistenceError{Op: "mark approved", Err: aerr}
			patch.Error = perr.Error()
			r.fail(ctx, log, runID, patch)
			return perr
		}
	}

	if err := r.store.UpdateRunStatus(ctx, runID, model.RunStatusSucceeded, patch); err != nil {
		return eris.Wrap(err, "jobs: mark succeeded")
	}
	log.Info("jobs: run succeeded", zap.String("artifact", res.ArtifactPath))
	return nil
}

func (r *Runner) fail(ctx context.Context, log *zap.Logger, runID string, patch model.RunUpdate) {
	log.Error("jobs: run failed", zap.String("error", patch.Error))
	if err := r.store.UpdateRunStatus(ctx, runID, model.RunStatusFailed, patch); err != nil {
		log.Error("jobs: mark failed", zap.Error(err))
	}
}

// Shutdown stops accepting runs and waits for queued work to drain.
func (r *Runner) Shutdown(ctx context.Context) error {
	if r.queue == nil {
		return nil
	}
	return r.queue.Shutdown(ctx)
}
