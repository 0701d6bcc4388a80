package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/theneilagencia/glimora-sub000/internal/config"
	"github.com/theneilagencia/glimora-sub000/internal/decisor"
	"github.com/theneilagencia/glimora-sub000/internal/decisorsync"
	"github.com/theneilagencia/glimora-sub000/internal/metrics"
	"github.com/theneilagencia/glimora-sub000/internal/resilience"
	"github.com/theneilagencia/glimora-sub000/internal/scoring"
	"github.com/theneilagencia/glimora-sub000/internal/scrape"
	"github.com/theneilagencia/glimora-sub000/pkg/apify"
)

// syncEnv holds the wired sync pipeline.
type syncEnv struct {
	Store   decisor.Store
	Metrics *metrics.Manager
	Service *decisorsync.Service
}

// Close releases the store.
func (e *syncEnv) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

func initStore(ctx context.Context, c *config.Config) (decisor.Store, error) {
	switch c.Store.Driver {
	case "sqlite":
		dsn := c.Store.DatabaseURL
		if dsn == "" {
			dsn = "glimora.db"
		}
		return decisor.NewSQLite(dsn)
	case "postgres":
		return decisor.NewPostgres(ctx, c.Store.DatabaseURL, c.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
}

func initEngine(c *config.Config) (*scoring.Engine, error) {
	kw := scoring.DefaultKeywords()
	if c.Decisor.KeywordsPath != "" {
		loaded, err := scoring.LoadKeywords(c.Decisor.KeywordsPath)
		if err != nil {
			return nil, err
		}
		kw = loaded
	}
	return scoring.NewEngine(kw), nil
}

func initScraper(c *config.Config, m *metrics.Manager) *scrape.ApifyScraper {
	var clientOpts []apify.Option
	if c.Apify.BaseURL != "" {
		clientOpts = append(clientOpts, apify.WithBaseURL(c.Apify.BaseURL))
	}
	clientOpts = append(clientOpts, apify.WithRateLimit(c.Apify.RateLimit))

	var pollOpts []apify.PollOption
	if c.Apify.PollIntervalSec > 0 {
		pollOpts = append(pollOpts, apify.WithPollInterval(time.Duration(c.Apify.PollIntervalSec)*time.Second))
	}
	if c.Apify.PollCapSecs > 0 {
		pollOpts = append(pollOpts, apify.WithPollCap(time.Duration(c.Apify.PollCapSecs)*time.Second))
	}
	if c.Apify.PollTimeoutSecs > 0 {
		pollOpts = append(pollOpts, apify.WithPollTimeout(time.Duration(c.Apify.PollTimeoutSecs)*time.Second))
	}

	breaker := resilience.NewCircuitBreaker("apify", c.Resilience.Circuit.CircuitConfig())

	return scrape.NewApifyScraper(
		apify.NewClient(c.Apify.Token, clientOpts...),
		scrape.WithActorID(c.Apify.ActorID),
		scrape.WithRetry(c.Resilience.Retry.RetryConfig()),
		scrape.WithBreaker(breaker),
		scrape.WithPollOptions(pollOpts...),
		scrape.WithMetrics(m),
	)
}

func initMetrics(c *config.Config) *metrics.Manager {
	if !c.Metrics.Enabled {
		return nil
	}
	return metrics.NewManager(metrics.WithNamespace(c.Metrics.Namespace))
}

// initSyncEnv wires store, scraper, scoring engine, reconciler and the sync
// service from c.
func initSyncEnv(ctx context.Context, c *config.Config) (*syncEnv, error) {
	engine, err := initEngine(c)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx, c)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}

	m := initMetrics(c)
	reconciler := decisor.NewReconciler(st, initScraper(c, m), engine,
		decisor.WithEmployeeLimit(c.Decisor.EmployeeLimit),
		decisor.WithMetrics(m),
	)

	return &syncEnv{
		Store:   st,
		Metrics: m,
		Service: decisorsync.NewService(st, reconciler, m),
	}, nil
}
