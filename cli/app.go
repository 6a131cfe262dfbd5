// ABOUTME: Wires config, store and engines into the runtime the commands share
// ABOUTME: Resolves the acting account and picks optional enrichment, completion and Redis backends
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/completion"
	"github.com/harperreed/introengine/config"
	"github.com/harperreed/introengine/db"
	"github.com/harperreed/introengine/enrichment"
	"github.com/harperreed/introengine/followup"
	"github.com/harperreed/introengine/inference"
	"github.com/harperreed/introengine/logger"
	"github.com/harperreed/introengine/outbound"
	"github.com/harperreed/introengine/pipeline"
	"github.com/harperreed/introengine/scoring"
)

// App is everything a command needs.
type App struct {
	Config  *config.Config
	Store   *db.Store
	Log     *logger.Logger
	UserID  uuid.UUID
	Runner  *pipeline.Runner
	Advisor *followup.Advisor
	Out     io.Writer

	closers []func() error
}

// NewApp builds the engines over an open database. Optional backends that
// fail to start are logged and skipped; only store errors are fatal.
func NewApp(ctx context.Context, cfg *config.Config, log *logger.Logger, database *sql.DB) (*App, error) {
	if log == nil {
		log = logger.NewNop()
	}
	app := &App{
		Config: cfg,
		Store:  db.NewStore(database),
		Log:    log,
		Out:    os.Stdout,
	}

	userID, err := resolveUser(ctx, app.Store, cfg.UserID)
	if err != nil {
		return nil, err
	}
	app.UserID = userID

	advisor := followup.NewAdvisor(app.Store, app.completer(), followup.Options{
		Timeout:   cfg.CompletionTimeout,
		AfterDays: cfg.FollowUpAfterDays,
		RPS:       cfg.CompletionRPS,
		Logger:    log,
	})
	app.Advisor = advisor

	app.Runner = pipeline.NewRunner(pipeline.Stages{
		Inference: inference.NewEngine(app.Store, inference.Options{
			Enricher:      app.enricher(),
			EnrichTimeout: cfg.EnrichmentTimeout,
			Parallelism:   cfg.Parallelism,
			MinScore:      cfg.ICPMinScore,
			Logger:        log,
		}),
		Outbound:  outbound.NewGenerator(app.Store, cfg.OutboundQuota, cfg.ICPMinScore, log),
		Scoring:   scoring.NewEngine(app.Store, cfg.Parallelism, log),
		FollowUps: advisor,
	}, app.Store, app.locker(), cfg.LockTTL, log)

	return app, nil
}

// Close releases the optional backends. The database stays with the caller.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Warn("failed to close backend", "error", err)
		}
	}
	a.closers = nil
}

// resolveUser picks the configured account, else the first known one, else a
// fresh one. The account row always exists afterwards.
func resolveUser(ctx context.Context, store *db.Store, configured string) (uuid.UUID, error) {
	if configured != "" {
		id, err := uuid.Parse(configured)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid user id: %w", err)
		}
		return id, store.EnsureAccount(ctx, id)
	}

	accounts, err := store.ListAccounts(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) > 0 {
		return accounts[0], nil
	}

	id := uuid.New()
	if err := store.EnsureAccount(ctx, id); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create account: %w", err)
	}
	return id, nil
}

func (a *App) completer() completion.Completer {
	if a.Config.OpenAIAPIKey == "" {
		a.Log.Debug("no completion service configured, follow-up drafts will be empty")
		return nil
	}
	client, err := completion.NewOpenAIClient(completion.OpenAIConfig{
		APIKey:  a.Config.OpenAIAPIKey,
		BaseURL: a.Config.OpenAIBaseURL,
		Model:   a.Config.OpenAIModel,
		Timeout: a.Config.CompletionTimeout,
	}, a.Log)
	if err != nil {
		a.Log.Warn("completion service unavailable", "error", err)
		return nil
	}
	return client
}

func (a *App) enricher() enrichment.Enricher {
	if a.Config.EnrichmentURL == "" {
		return nil
	}
	source, err := enrichment.NewHTTPEnricher(a.Config.EnrichmentURL, a.Config.EnrichmentTimeout)
	if err != nil {
		a.Log.Warn("enrichment source unavailable", "error", err)
		return nil
	}

	cache, err := enrichment.OpenCache(a.Config.CacheDir)
	if err != nil {
		a.Log.Warn("enrichment cache unavailable, calling source directly", "dir", a.Config.CacheDir, "error", err)
		return source
	}
	a.closers = append(a.closers, cache.Close)
	return enrichment.NewCachedEnricher(source, cache, a.Config.EnrichmentCacheTTL, a.Log)
}

func (a *App) locker() pipeline.AccountLocker {
	if a.Config.RedisAddr == "" {
		return pipeline.NewMemoryLocker()
	}
	client := pipeline.NewRedisClient(a.Config.RedisAddr, a.Config.RedisPassword, a.Config.RedisDB)
	a.closers = append(a.closers, client.Close)
	return pipeline.NewRedisLocker(client)
}
