package main

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/competitor-intel/internal/artifact"
	"github.com/sells-group/competitor-intel/internal/competitor"
	"github.com/sells-group/competitor-intel/internal/config"
	"github.com/sells-group/competitor-intel/internal/enrich"
	"github.com/sells-group/competitor-intel/internal/fetcher"
	"github.com/sells-group/competitor-intel/internal/jobs"
	"github.com/sells-group/competitor-intel/internal/pipeline"
	"github.com/sells-group/competitor-intel/internal/report"
	"github.com/sells-group/competitor-intel/internal/scrape"
	"github.com/sells-group/competitor-intel/internal/social"
	"github.com/sells-group/competitor-intel/internal/store"
	"github.com/sells-group/competitor-intel/internal/tracker"
	anthropicpkg "github.com/sells-group/competitor-intel/pkg/anthropic"
	"github.com/sells-group/competitor-intel/pkg/apify"
	"github.com/sells-group/competitor-intel/pkg/firecrawl"
	"github.com/sells-group/competitor-intel/pkg/gemini"
	"github.com/sells-group/competitor-intel/pkg/jina"
	"github.com/sells-group/competitor-intel/pkg/notion"
	"github.com/sells-group/competitor-intel/pkg/perplexity"
	"github.com/sells-group/competitor-intel/pkg/tavily"
)

// appEnv holds the components shared by the serve, run, sweep and worker
// commands. Pipeline is nil in processes that only enqueue runs.
type appEnv struct {
	Store     store.Store
	Pipeline  *pipeline.Pipeline
	Tracker   *tracker.Notion // may be nil
	Artifacts *artifact.Store
	Runner    *jobs.Runner
	Memory    *jobs.MemoryQueue // set when jobs.queue=memory

	closers []func() error
}

// Close releases clients and the store.
func (e *appEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i]()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// envOptions selects which parts of the environment to build.
type envOptions struct {
	pipeline bool
	queue    bool
}

// initEnv builds the store, optional pipeline and the job runner. Callers
// should defer env.Close().
func initEnv(ctx context.Context, opts envOptions) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &appEnv{Store: st, Tracker: initTracker()}

	artifacts, err := initArtifacts()
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Artifacts = artifacts

	var exec jobs.Executor
	if opts.pipeline {
		p, closeFn, err := initPipeline(ctx, artifacts)
		if err != nil {
			env.Close()
			return nil, err
		}
		if closeFn != nil {
			env.closers = append(env.closers, closeFn)
		}
		env.Pipeline = p
		exec = p
	}

	var approver jobs.Approver
	if env.Tracker != nil {
		approver = env.Tracker
	}

	var q jobs.Queue
	if opts.queue {
		switch cfg.Jobs.Queue {
		case "redis":
			aq := jobs.NewAsynqQueue(redisOpt(cfg.Jobs))
			env.closers = append(env.closers, func() error {
				return aq.Shutdown(context.Background())
			})
			q = aq
		default:
			env.Memory = jobs.NewMemoryQueue(cfg.Jobs.QueueSize, cfg.Jobs.Workers)
			q = env.Memory
		}
	}

	env.Runner = jobs.NewRunner(st, q, exec, approver)
	if env.Memory != nil {
		env.Memory.Start(env.Runner.Execute)
	}
	return env, nil
}

// initStore opens the configured run store and applies migrations.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initTracker returns the Notion tracker, or nil when no token is configured.
func initTracker() *tracker.Notion {
	if cfg.Notion.Token == "" {
		zap.L().Debug("COMPINTEL_NOTION_TOKEN not set, project tracker disabled")
		return nil
	}
	client := notion.NewClient(cfg.Notion.Token, notion.WithRateLimit(cfg.Notion.RateLimit))
	return tracker.NewNotion(client, tracker.Config{
		ProjectDB:        cfg.Notion.ProjectDB,
		ApprovedProperty: cfg.Notion.ApprovedProperty,
		SweepStatus:      cfg.Notion.SweepStatus,
	})
}

// initArtifacts creates the report store, mirroring to Supabase Storage
// when it is configured.
func initArtifacts() (*artifact.Store, error) {
	var mirror artifact.Mirror
	if a := cfg.Artifacts; a.SupabaseURL != "" {
		m, err := artifact.NewSupabaseMirror(a.SupabaseURL, a.SupabaseKey, a.Bucket)
		if err != nil {
			return nil, eris.Wrap(err, "init artifact mirror")
		}
		mirror = m
		zap.L().Info("artifact mirror enabled", zap.String("bucket", a.Bucket))
	}
	return artifact.NewStore(cfg.Report.OutputDir, mirror), nil
}

// initPipeline builds the provider clients and stage implementations. The
// returned close func, when non-nil, releases the discovery client.
func initPipeline(ctx context.Context, artifacts *artifact.Store) (*pipeline.Pipeline, func() error, error) {
	llm, closeFn, err := initDiscoveryLLM(ctx)
	if err != nil {
		return nil, nil, err
	}
	discovery := competitor.New(llm,
		competitor.WithCount(cfg.Discovery.CompetitorCount),
		competitor.WithTimeout(config.Seconds(cfg.Discovery.TimeoutSecs, 90*time.Second)),
	)

	jinaOpts := []jina.Option{jina.WithBaseURL(cfg.Jina.BaseURL)}
	if cfg.Jina.SearchBaseURL != "" {
		jinaOpts = append(jinaOpts, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
	}
	jinaClient := jina.NewClient(cfg.Jina.Key, jinaOpts...)

	var provider enrich.SearchProvider
	switch cfg.Enrich.SearchProvider {
	case "jina":
		provider = enrich.NewJinaProvider(jinaClient)
	default:
		provider = enrich.NewTavilyProvider(tavily.NewClient(cfg.Tavily.Key,
			tavily.WithBaseURL(cfg.Tavily.BaseURL),
			tavily.WithSearchDepth(cfg.Tavily.SearchDepth),
			tavily.WithMaxResults(cfg.Tavily.MaxResults),
		))
	}
	searcher := enrich.NewSearcher(provider,
		enrich.WithSearchConcurrency(cfg.Enrich.Concurrency),
		enrich.WithSearchTimeout(config.Seconds(cfg.Enrich.SearchTimeoutSecs, 30*time.Second)),
		enrich.WithSearchDepth(cfg.Tavily.SearchDepth),
	)

	httpFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent: cfg.Enrich.UserAgent,
		Timeout:   config.Seconds(cfg.Social.LinkFetchTimeoutSecs, 10*time.Second),
	})

	// Jina primary → Firecrawl fallback → plain HTTP.
	scrapers := []scrape.Scraper{scrape.NewJinaAdapter(jinaClient)}
	if cfg.Firecrawl.Key != "" {
		scrapers = append(scrapers, scrape.NewFirecrawlAdapter(
			firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL)),
		))
	}
	scrapers = append(scrapers, scrape.NewLocalScraper(httpFetcher))
	chain := scrape.NewChain(scrapers...)
	zap.L().Info("scrape chain ready", zap.Strings("scrapers", chain.Names()))

	pages := enrich.NewPageScraper(chain,
		enrich.WithScrapeConcurrency(cfg.Enrich.Concurrency),
		enrich.WithScrapeTimeout(config.Seconds(cfg.Enrich.ScrapeTimeoutSecs, 45*time.Second)),
	)

	links := social.NewLinkExtractor(httpFetcher, nil,
		social.WithLinkTimeout(config.Seconds(cfg.Social.LinkFetchTimeoutSecs, 10*time.Second)),
		social.WithLinkConcurrency(cfg.Enrich.Concurrency),
	)

	apifyClient := apify.NewClient(cfg.Apify.Token,
		apify.WithBaseURL(cfg.Apify.BaseURL),
		apify.WithWaitForFinish(cfg.Apify.WaitSecs),
	)
	socialScraper := social.NewScraper(apifyClient,
		social.WithActors(social.ActorTableWithOverrides(cfg.Apify.Actors)),
		social.WithMaxItems(cfg.Social.MaxItems),
		social.WithScrapeTimeout(config.Seconds(cfg.Apify.TimeoutSecs, 5*time.Minute)),
		social.WithSkipMissingHandle(cfg.Social.SkipMissingHandle),
	)

	deps := pipeline.Deps{
		Discovery: discovery,
		Search:    searcher,
		Pages:     pages,
		Links:     links,
		Social:    socialScraper,
		PDF:       report.NewPDFRenderer(),
		Artifacts: artifacts,
	}
	if cfg.Report.Workbook {
		deps.Workbook = report.NewWorkbookRenderer()
	}

	p := pipeline.New(deps,
		pipeline.WithSuffix(cfg.Report.Suffix),
		pipeline.WithConcurrency(cfg.Social.Concurrency),
	)
	return p, closeFn, nil
}

// initDiscoveryLLM returns the completer for the configured discovery provider.
func initDiscoveryLLM(ctx context.Context) (competitor.Completer, func() error, error) {
	switch cfg.Discovery.Provider {
	case "anthropic":
		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		return competitor.Anthropic(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens), nil, nil
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.Gemini.Key, cfg.Gemini.Model)
		if err != nil {
			return nil, nil, eris.Wrap(err, "init gemini client")
		}
		return competitor.Gemini(client), client.Close, nil
	case "perplexity":
		client := perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
		return competitor.Perplexity(client), nil, nil
	default:
		return nil, nil, eris.Errorf("unsupported discovery provider: %s", cfg.Discovery.Provider)
	}
}

func redisOpt(c config.JobsConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: c.RedisAddr, Password: c.RedisPassword}
}
