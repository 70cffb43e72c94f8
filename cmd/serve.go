package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/competitor-intel/internal/artifact"
	"github.com/sells-group/competitor-intel/internal/config"
	"github.com/sells-group/competitor-intel/internal/jobs"
	"github.com/sells-group/competitor-intel/internal/model"
	"github.com/sells-group/competitor-intel/internal/monitoring"
	"github.com/sells-group/competitor-intel/internal/store"
	"github.com/sells-group/competitor-intel/internal/tracker"
)

const drainTimeout = 2 * time.Minute

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for submitting and tracking runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(config.ModeServe); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// With redis, runs execute in `compintel worker`.
		env, err := initEnv(ctx, envOptions{pipeline: cfg.Jobs.Queue != "redis", queue: true})
		if err != nil {
			return err
		}
		defer env.Close()

		collector := monitoring.NewCollector(env.Store)
		if cfg.Monitoring.Enabled {
			checker := monitoring.NewChecker(collector, monitoring.NewAlerter(cfg.Monitoring), cfg.Monitoring)
			go checker.Run(ctx)
		}

		a := &api{
			runs:          env.Runner,
			list:          env.Store,
			stats:         collector,
			reports:       env.Artifacts,
			lookbackHours: cfg.Monitoring.LookbackWindowHours,
		}
		if env.Tracker != nil {
			a.projects = env.Tracker
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           a.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		zap.L().Info("starting server", zap.Int("port", port), zap.String("queue", cfg.Jobs.Queue))
		return serveUntil(ctx, srv, env.Runner, drainTimeout)
	},
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

type drainer interface {
	Shutdown(ctx context.Context) error
}

// serveUntil serves until ctx is done or the listener fails. It then stops
// the server and waits for runs to drain before returning, so callers may
// close the store afterwards.
func serveUntil(ctx context.Context, srv httpServer, runs drainer, timeout time.Duration) error {
	listenErr := make(chan error, 1)
	go func() { listenErr <- srv.ListenAndServe() }()

	var err error
	select {
	case <-ctx.Done():
		zap.L().Info("shutting down server")
	case err = <-listenErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		zap.L().Warn("server shutdown incomplete", zap.Error(serr))
	}
	if derr := runs.Shutdown(shutdownCtx); derr != nil {
		zap.L().Warn("job drain incomplete", zap.Error(derr))
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

type runService interface {
	Submit(ctx context.Context, project model.Project) (string, error)
	Status(ctx context.Context, runID string) (*model.Run, error)
}

type projectSource interface {
	Project(ctx context.Context, pageID string) (*model.Project, error)
}

type runLister interface {
	ListRuns(ctx context.Context, f store.RunFilter) ([]model.Run, error)
}

type statsCollector interface {
	Collect(ctx context.Context, lookbackHours int) (*monitoring.MetricsSnapshot, error)
}

type reportLister interface {
	List() ([]artifact.Info, error)
}

// api serves the run endpoints. projects is nil when no tracker is configured.
type api struct {
	runs          runService
	projects      projectSource
	list          runLister
	stats         statsCollector
	reports       reportLister
	lookbackHours int
}

func (a *api) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/runs", func(r chi.Router) {
		r.Post("/", a.createRun)
		r.Get("/", a.listRuns)
		r.Get("/stats", a.runStats)
		r.Get("/{id}", a.getRun)
	})
	r.Post("/projects/{pageID}/runs", a.createProjectRun)
	r.Get("/reports", a.listReports)

	return r
}

type createRunRequest struct {
	ProjectName  string `json:"project_name"`
	BusinessName string `json:"business_name"`
	Link         string `json:"link"`
	DueDate      string `json:"due_date"`
	PageID       string `json:"page_id"`
	Description  string `json:"description"`
	Location     string `json:"location"`
}

func (req createRunRequest) project() model.Project {
	return model.Project{
		PageID:       req.PageID,
		ProjectName:  req.ProjectName,
		BusinessName: req.BusinessName,
		Link:         req.Link,
		DueDate:      req.DueDate,
		Description:  req.Description,
		Location:     req.Location,
	}
}

func (a *api) createRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a.submit(w, r, req.project())
}

func (a *api) createProjectRun(w http.ResponseWriter, r *http.Request) {
	if a.projects == nil {
		writeError(w, http.StatusServiceUnavailable, "project tracker not configured")
		return
	}

	pageID := chi.URLParam(r, "pageID")
	project, err := a.projects.Project(r.Context(), pageID)
	if err != nil {
		if errors.Is(err, tracker.ErrNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		zap.L().Error("load project failed", zap.String("page_id", pageID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "load project failed")
		return
	}
	a.submit(w, r, *project)
}

func (a *api) submit(w http.ResponseWriter, r *http.Request, project model.Project) {
	id, err := a.runs.Submit(r.Context(), project)
	if err != nil {
		var ve *jobs.ValidationError
		switch {
		case errors.As(err, &ve):
			writeError(w, http.StatusBadRequest, ve.Error())
		case errors.Is(err, jobs.ErrQueueFull):
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"run_id": id,
				"status": string(model.RunStatusFailed),
				"error":  "queue full",
			})
		default:
			zap.L().Error("submit run failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"run_id": id, "error": "submit failed"})
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": id,
		"status": string(model.RunStatusPending),
	})
}

// runResponse is the public view of a run.
type runResponse struct {
	RunID        string          `json:"run_id"`
	Status       model.RunStatus `json:"status"`
	BusinessName string          `json:"business_name,omitempty"`
	ArtifactPath string          `json:"artifact_path,omitempty"`
	WorkbookPath string          `json:"workbook_path,omitempty"`
	Error        string          `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
}

func toRunResponse(run model.Run) runResponse {
	resp := runResponse{
		RunID:        run.ID,
		Status:       run.Status,
		BusinessName: run.Project.BusinessName,
		CreatedAt:    run.CreatedAt,
		FinishedAt:   run.FinishedAt,
	}
	switch run.Status {
	case model.RunStatusSucceeded:
		resp.ArtifactPath = run.ArtifactPath
		resp.WorkbookPath = run.WorkbookPath
	case model.RunStatusFailed:
		resp.Error = run.Error
	}
	return resp
}

func (a *api) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := a.runs.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		zap.L().Error("get run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get run failed")
		return
	}
	writeJSON(w, http.StatusOK, toRunResponse(*run))
}

func (a *api) listRuns(w http.ResponseWriter, r *http.Request) {
	var f store.RunFilter
	if s := r.URL.Query().Get("status"); s != "" {
		f.Status = model.RunStatus(s)
		if !f.Status.Valid() {
			writeError(w, http.StatusBadRequest, "unknown status "+s)
			return
		}
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		f.Limit = n
	}

	runs, err := a.list.ListRuns(r.Context(), f)
	if err != nil {
		zap.L().Error("list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	out := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunResponse(run))
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": out})
}

func (a *api) runStats(w http.ResponseWriter, r *http.Request) {
	hours := a.lookbackHours
	if h := r.URL.Query().Get("hours"); h != "" {
		n, err := strconv.Atoi(h)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid hours")
			return
		}
		hours = n
	}

	snap, err := a.stats.Collect(r.Context(), hours)
	if err != nil {
		zap.L().Error("collect run stats failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "collect stats failed")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *api) listReports(w http.ResponseWriter, _ *http.Request) {
	infos, err := a.reports.List()
	if err != nil {
		zap.L().Error("list reports failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list reports failed")
		return
	}
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	writeJSON(w, http.StatusOK, map[string]any{"reports": infos})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
