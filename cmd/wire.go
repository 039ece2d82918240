package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-cli/internal/audit"
	"github.com/sells-group/crm-cli/internal/insight"
	"github.com/sells-group/crm-cli/internal/metadata"
	"github.com/sells-group/crm-cli/internal/pipeline"
	"github.com/sells-group/crm-cli/internal/research"
	"github.com/sells-group/crm-cli/internal/resilience"
	"github.com/sells-group/crm-cli/internal/store"
	"github.com/sells-group/crm-cli/pkg/openai"
	"github.com/sells-group/crm-cli/pkg/perplexity"
)

// env holds the wired application components for a command invocation.
type env struct {
	Store    store.Store
	Metadata *metadata.Extractor
	Insight  *insight.Synthesizer
	Pipeline *pipeline.Pipeline
}

func (e *env) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "crm.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initEnv(ctx context.Context) (*env, error) {
	if cfg.Perplexity.Key == "" {
		return nil, eris.New("perplexity API key is required (CRM_PERPLEXITY_KEY)")
	}
	if cfg.OpenAI.Key == "" {
		return nil, eris.New("openai API key is required (CRM_OPENAI_KEY)")
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	perplexityClient := perplexity.NewClient(cfg.Perplexity.Key,
		perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
		perplexity.WithModel(cfg.Perplexity.Model),
	)
	openaiClient := openai.NewClient(cfg.OpenAI.Key,
		openai.WithBaseURL(cfg.OpenAI.BaseURL),
		openai.WithModel(cfg.OpenAI.Model),
	)
	limiters := resilience.NewLimiterRegistry(resilience.DefaultProviderLimits())

	extractor := metadata.NewExtractor(metadata.WithHTTPClient(&http.Client{
		Timeout: time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
	}))
	engine := research.NewEngine(perplexityClient, limiters,
		research.WithFallbackTimeout(time.Duration(cfg.Research.FallbackTimeoutSecs)*time.Second),
	)
	synthesizer := insight.NewSynthesizer(openaiClient, limiters)
	generator := audit.NewGenerator(openaiClient, limiters)

	return &env{
		Store:    st,
		Metadata: extractor,
		Insight:  synthesizer,
		Pipeline: pipeline.New(st, extractor, engine, synthesizer, generator),
	}, nil
}
