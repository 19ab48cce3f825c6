package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/curasense/triage-cli/internal/crosscheck"
	"github.com/curasense/triage-cli/internal/kb"
	"github.com/curasense/triage-cli/internal/lookupcache"
	"github.com/curasense/triage-cli/internal/rank"
	"github.com/curasense/triage-cli/internal/redflag"
	"github.com/curasense/triage-cli/internal/resilience"
	"github.com/curasense/triage-cli/internal/store"
	"github.com/curasense/triage-cli/internal/triage"
	anthropicpkg "github.com/curasense/triage-cli/pkg/anthropic"
	"github.com/curasense/triage-cli/pkg/dbpedia"
)

// pipelineEnv holds the knowledge base, lookup cache, orchestrator and
// triage service needed by the serve and analyze commands.
type pipelineEnv struct {
	Store        store.LookupStore // nil when enrichment is disabled
	Cache        *lookupcache.Cache
	Index        *kb.Index
	KBPath       string
	Orchestrator *crosscheck.Orchestrator
	Service      *triage.Service
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline loads the knowledge base, opens the cache store, builds the
// lookup client, ranker and orchestrator. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	index, kbPath, err := loadKB()
	if err != nil {
		return nil, err
	}

	ranker, err := initRanker(index)
	if err != nil {
		return nil, err
	}

	env := &pipelineEnv{Index: index, KBPath: kbPath}

	// Enrichment is optional; a nil enricher is passed when it is off.
	var enricher crosscheck.Enricher
	if cfg.CrossCheck.EnrichmentEnabled {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		env.Store = st
		env.Cache = lookupcache.New(st, initDBpedia(),
			lookupcache.WithTTL(cfg.DBpedia.CacheTTL()),
			lookupcache.WithCacheFailures(cfg.DBpedia.CacheFailures),
		)
		enricher = env.Cache
	} else {
		zap.L().Info("dbpedia enrichment disabled")
	}

	env.Orchestrator = crosscheck.New(ranker, index, enricher, crosscheck.Config{
		TopK:                cfg.CrossCheck.TopK,
		TopM:                cfg.CrossCheck.TopM,
		EnrichmentThreshold: cfg.CrossCheck.EnrichmentThreshold,
		LookupTimeout:       cfg.CrossCheck.LookupTimeout(),
		RankTimeout:         cfg.CrossCheck.RankTimeout(),
	})
	env.Service = triage.NewService(env.Orchestrator, redflag.New(index.Records()), cfg.CrossCheck.ResponseLimit)

	return env, nil
}

// loadKB loads the knowledge base. A missing source is fatal only when
// kb.required is set; otherwise the service runs with an empty index.
func loadKB() (*kb.Index, string, error) {
	paths := cfg.KB.Paths
	if len(paths) == 0 {
		paths = kb.DefaultPaths
	}

	records, path, err := kb.Load(paths...)
	if err != nil {
		if eris.Is(err, kb.ErrNotFound) && !cfg.KB.Required {
			zap.L().Warn("knowledge base not found, continuing without it",
				zap.Strings("paths", paths),
			)
			return kb.NewIndex(nil), "", nil
		}
		return nil, "", eris.Wrap(err, "load knowledge base")
	}

	for _, issue := range kb.Validate(records) {
		if issue.Level == kb.IssueError {
			zap.L().Warn("knowledge base issue",
				zap.String("name", issue.Name),
				zap.Int("record", issue.Record),
				zap.String("issue", issue.Message),
			)
		}
	}

	zap.L().Info("knowledge base loaded",
		zap.String("path", path),
		zap.Int("conditions", len(records)),
	)
	return kb.NewIndex(records), path, nil
}

func initRanker(index *kb.Index) (rank.Ranker, error) {
	switch cfg.Ranker.Provider {
	case "", "lexical":
		return rank.NewLexical(index, cfg.Ranker.MaxResults), nil
	case "anthropic":
		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		zap.L().Info("claude ranker enabled", zap.String("model", cfg.Anthropic.Model))
		return rank.NewClaude(client, cfg.Anthropic.Model, index, cfg.Ranker.MaxResults), nil
	default:
		return nil, eris.Errorf("unsupported ranker provider: %s", cfg.Ranker.Provider)
	}
}

func initDBpedia() dbpedia.Client {
	retry := resilience.DefaultRetryPolicy()
	if cfg.DBpedia.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.DBpedia.MaxAttempts
	}
	retry.OnRetry = resilience.LogRetry("dbpedia", "sparql")

	return dbpedia.NewClient(
		dbpedia.WithEndpoint(cfg.DBpedia.Endpoint),
		dbpedia.WithTimeout(cfg.DBpedia.Timeout()),
		dbpedia.WithRateLimit(cfg.DBpedia.RatePerSec, max(1, int(cfg.DBpedia.RatePerSec))),
		dbpedia.WithRetry(retry),
		dbpedia.WithBreaker(resilience.NewBreaker("dbpedia", 5, 30*time.Second)),
		dbpedia.WithUserAgent(cfg.DBpedia.UserAgent),
	)
}

func initStore(ctx context.Context) (store.LookupStore, error) {
	opts := store.Options{
		Driver:      cfg.Store.Driver,
		CacheDir:    cfg.Store.CacheDir,
		DatabaseURL: cfg.Store.DatabaseURL,
	}
	if cfg.Store.MaxConns > 0 || cfg.Store.MinConns > 0 {
		opts.Pool = &store.PoolConfig{MaxConns: cfg.Store.MaxConns, MinConns: cfg.Store.MinConns}
	}
	st, err := store.Open(ctx, opts)
	if err != nil {
		return nil, eris.Wrap(err, "open cache store")
	}
	zap.L().Info("cache store ready", zap.String("driver", cfg.Store.Driver))
	return st, nil
}
