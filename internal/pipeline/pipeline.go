// Package pipeline sequences the stages of one competitor-analysis run.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/competitor-intel/internal/competitor"
	"github.com/sells-group/competitor-intel/internal/model"
	"github.com/sells-group/competitor-intel/internal/social"
)

const (
	defaultSuffix      = "_competitor_analysis.pdf"
	defaultConcurrency = 3
	workbookExt        = ".xlsx"
)

// Discoverer finds competitors for a business.
type Discoverer interface {
	Discover(ctx context.Context, in competitor.Input) ([]model.Candidate, error)
}

// Searcher returns web snippets per URL, in input order.
type Searcher interface {
	SearchAll(ctx context.Context, urls []string) [][]model.SearchSnippet
}

// PageScraper returns one page summary per URL, in input order.
type PageScraper interface {
	ScrapeAll(ctx context.Context, urls []string) []model.PageSummary
}

// LinkExtractor collects social profile links from a competitor's snippet sources.
type LinkExtractor interface {
	ExtractForCompetitor(ctx context.Context, snippets []model.SearchSnippet) model.SocialLinks
}

// SocialScraper runs the platform scrapers for a link set.
type SocialScraper interface {
	ScrapeLinks(ctx context.Context, links model.SocialLinks) map[model.Platform]model.SocialOutcome
}

// Renderer writes a report document.
type Renderer interface {
	Render(w io.Writer, meta model.Project, entries []model.ReportEntry) error
}

// DatedRenderer stamps the document with a caller-supplied time. The PDF
// renderer implements it; runs date their report with their start time.
type DatedRenderer interface {
	Renderer
	RenderAt(w io.Writer, meta model.Project, entries []model.ReportEntry, at time.Time) error
}

// ArtifactStore persists rendered reports and returns their path.
type ArtifactStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// Deps holds the stage implementations. Workbook is optional.
type Deps struct {
	Discovery Discoverer
	Search    Searcher
	Pages     PageScraper
	Links     LinkExtractor
	Social    SocialScraper
	PDF       Renderer
	Workbook  Renderer
	Artifacts ArtifactStore
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSuffix sets the report file-name suffix appended to the project name.
func WithSuffix(s string) Option {
	return func(p *Pipeline) {
		if s != "" {
			p.suffix = s
		}
	}
}

// WithConcurrency bounds how many competitors are scraped for social data at once.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithClock replaces time.Now as the source of run start times.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// Pipeline runs discovery, enrichment, social analysis, rendering and
// persistence for one project.
type Pipeline struct {
	deps        Deps
	suffix      string
	concurrency int
	now         func() time.Time
}

// New creates a Pipeline.
func New(deps Deps, opts ...Option) *Pipeline {
	p := &Pipeline{
		deps:        deps,
		suffix:      defaultSuffix,
		concurrency: defaultConcurrency,
		now:         time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Result is the outcome of a successful run.
type Result struct {
	ArtifactPath string              `json:"artifact_path"`
	WorkbookPath string              `json:"workbook_path,omitempty"`
	Entries      []model.ReportEntry `json:"entries"`
	Phases       []model.PhaseResult `json:"phases"`
}

func renderPDF(r Renderer, w io.Writer, project model.Project, entries []model.ReportEntry, when time.Time) error {
	if dr, ok := r.(DatedRenderer); ok {
		return dr.RenderAt(w, project, entries, when)
	}
	return r.Render(w, project, entries)
}

// ReportName returns the PDF artifact name for a project.
func (p *Pipeline) ReportName(project model.Project) string {
	return project.ArtifactBase() + p.suffix
}

// WorkbookName returns the workbook artifact name for a project.
func (p *Pipeline) WorkbookName(project model.Project) string {
	return project.ArtifactBase() + strings.TrimSuffix(p.suffix, filepath.Ext(p.suffix)) + workbookExt
}

// Run executes every stage for project. Discovery, render and persistence
// failures abort the run; per-competitor enrichment failures degrade the
// affected entry and never change the number of entries.
func (p *Pipeline) Run(ctx context.Context, project model.Project) (*Result, error) {
	log := zap.L().With(
		zap.String("project", project.NameOrDefault()),
		zap.String("business", project.BusinessName),
	)
	startedAt := p.now().UTC().Truncate(time.Second)
	log.Info("pipeline: starting run")

	result := &Result{}
	var phasesMu sync.Mutex
	trackPhase := func(name string, fn func() (*model.PhaseResult, error)) error {
		start := time.Now()
		pr, err := fn()
		duration := time.Since(start).Milliseconds()

		if pr == nil {
			pr = &model.PhaseResult{}
		}
		pr.Name = name
		pr.Duration = duration

		switch {
		case err != nil:
			pr.Status = model.PhaseStatusFailed
			pr.Error = err.Error()
			log.Error("pipeline: phase failed",
				zap.String("phase", name),
				zap.Int64("duration_ms", duration),
				zap.Error(err),
			)
		case pr.Status == model.PhaseStatusDegraded:
			log.Warn("pipeline: phase degraded",
				zap.String("phase", name),
				zap.Int64("duration_ms", duration),
				zap.Any("metadata", pr.Metadata),
			)
		default:
			pr.Status = model.PhaseStatusComplete
			log.Info("pipeline: phase complete",
				zap.String("phase", name),
				zap.Int64("duration_ms", duration),
			)
		}

		phasesMu.Lock()
		result.Phases = append(result.Phases, *pr)
		phasesMu.Unlock()
		return err
	}

	// Phase 1: Discovery
	var candidates []model.Candidate
	err := trackPhase("1_discovery", func() (*model.PhaseResult, error) {
		c, err := p.deps.Discovery.Discover(ctx, competitor.Input{
			BusinessName: project.BusinessName,
			Description:  project.Description,
			Location:     project.Location,
			Website:      project.Link,
		})
		if err != nil {
			return nil, err
		}
		candidates = c
		return &model.PhaseResult{Metadata: map[string]any{"competitors": len(c)}}, nil
	})
	if err != nil {
		return result, err
	}

	urls := make([]string, len(candidates))
	for i, c := range candidates {
		urls[i] = c.URL
	}

	// Phase 2: Search and deep scrape run side by side; neither fails.
	var snippets [][]model.SearchSnippet
	var pages []model.PageSummary
	_ = trackPhase("2_enrich", func() (*model.PhaseResult, error) {
		var g errgroup.Group
		g.Go(func() error {
			snippets = p.deps.Search.SearchAll(ctx, urls)
			return nil
		})
		g.Go(func() error {
			pages = p.deps.Pages.ScrapeAll(ctx, urls)
			return nil
		})
		_ = g.Wait()
		return enrichPhaseResult(snippets, pages), nil
	})

	entries := make([]model.ReportEntry, len(candidates))
	for i, c := range candidates {
		entries[i] = model.ReportEntry{
			Candidate: c,
			Snippets:  at(snippets, i),
			Page:      pageAt(pages, i, c.URL),
		}
	}

	// Phase 3: Social links and scrapers, per competitor.
	_ = trackPhase("3_social", func() (*model.PhaseResult, error) {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.concurrency)
		for i := range entries {
			g.Go(func() error {
				p.socialFor(gctx, &entries[i])
				return nil
			})
		}
		_ = g.Wait()

		analyzed := 0
		for _, e := range entries {
			if len(e.Links) > 0 {
				analyzed++
			}
		}
		return &model.PhaseResult{Metadata: map[string]any{"analyzed": analyzed}}, nil
	})
	result.Entries = entries

	// Phase 4: Render
	var pdf, workbook bytes.Buffer
	err = trackPhase("4_render", func() (*model.PhaseResult, error) {
		if err := renderPDF(p.deps.PDF, &pdf, project, entries, startedAt); err != nil {
			return nil, asRenderError(err)
		}
		if p.deps.Workbook != nil {
			if err := p.deps.Workbook.Render(&workbook, project, entries); err != nil {
				return nil, asRenderError(err)
			}
		}
		return &model.PhaseResult{Metadata: map[string]any{"pdf_bytes": pdf.Len(), "workbook_bytes": workbook.Len()}}, nil
	})
	if err != nil {
		return result, err
	}

	// Phase 5: Persist
	err = trackPhase("5_persist", func() (*model.PhaseResult, error) {
		path, err := p.deps.Artifacts.Save(ctx, p.ReportName(project), pdf.Bytes())
		if err != nil {
			return nil, err
		}
		result.ArtifactPath = path

		if p.deps.Workbook != nil {
			path, err := p.deps.Artifacts.Save(ctx, p.WorkbookName(project), workbook.Bytes())
			if err != nil {
				return nil, err
			}
			result.WorkbookPath = path
		}
		return &model.PhaseResult{Metadata: map[string]any{"artifact_path": result.ArtifactPath}}, nil
	})
	if err != nil {
		return result, err
	}

	log.Info("pipeline: run complete",
		zap.Int("competitors", len(entries)),
		zap.String("artifact", result.ArtifactPath),
	)
	return result, nil
}

// socialFor fills in the links and analysis of one entry. A competitor
// without profile links gets a zeroed analysis and no actor calls.
func (p *Pipeline) socialFor(ctx context.Context, e *model.ReportEntry) {
	links := p.deps.Links.ExtractForCompetitor(ctx, e.Snippets)
	var outcomes map[model.Platform]model.SocialOutcome
	if len(links) > 0 {
		e.Links = links
		outcomes = p.deps.Social.ScrapeLinks(ctx, links)
	}
	analysis := social.Analyze(outcomes)
	e.Social = &analysis
}

func enrichPhaseResult(snippets [][]model.SearchSnippet, pages []model.PageSummary) *model.PhaseResult {
	emptySearches, failedPages := 0, 0
	for _, s := range snippets {
		if len(s) == 0 {
			emptySearches++
		}
	}
	for _, pg := range pages {
		if pg.Failed() {
			failedPages++
		}
	}

	pr := &model.PhaseResult{Metadata: map[string]any{
		"empty_searches": emptySearches,
		"failed_pages":   failedPages,
	}}
	if emptySearches > 0 || failedPages > 0 {
		pr.Status = model.PhaseStatusDegraded
	}
	return pr
}

func at(snippets [][]model.SearchSnippet, i int) []model.SearchSnippet {
	if i < len(snippets) && snippets[i] != nil {
		return snippets[i]
	}
	return []model.SearchSnippet{}
}

func pageAt(pages []model.PageSummary, i int, url string) model.PageSummary {
	if i < len(pages) {
		return pages[i]
	}
	return model.PageSummary{URL: url, Err: "no page result"}
}

func asRenderError(err error) error {
	var re *model.RenderError
	if errors.As(err, &re) {
		return err
	}
	return &model.RenderError{Err: err}
}
