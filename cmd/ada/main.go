// Command ada runs the iterative search-then-answer HTTP service.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	ada "github.com/adalabs/ada"
	"github.com/adalabs/ada/internal/config"
	"github.com/adalabs/ada/observer"
	"github.com/adalabs/ada/provider/openaicompat"
	"github.com/adalabs/ada/scrape"
	"github.com/adalabs/ada/search"
	"github.com/adalabs/ada/server"
	"github.com/adalabs/ada/store/postgres"
	"github.com/adalabs/ada/store/sqlite"
)

func main() {
	cfg := config.Load(os.Getenv("ADA_CONFIG"))

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Observability, when enabled.
	var inst *observer.Instruments
	if cfg.Observer.Enabled {
		var shutdown func(context.Context) error
		var err error
		inst, shutdown, err = observer.Init(ctx)
		if err != nil {
			log.Fatalf("observer init: %v", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("observer shutdown", "error", err)
			}
		}()
	}

	models := buildModels(cfg, inst, logger)

	// Search chain: Brave first when a key is present, then the free
	// fallbacks. NewBrave returns nil without a key and NewChain drops it.
	chain := search.NewChain(logger,
		search.NewBrave(cfg.Search.BraveAPIKey),
		search.NewDuckDuckGo(),
		search.NewBing(),
	)
	scraper := scrape.NewScraper(
		scrape.WithTimeout(time.Duration(cfg.Scrape.TimeoutSeconds)*time.Second),
		scrape.WithMaxImages(cfg.Scrape.MaxImages),
		scrape.WithScrapeLogger(logger),
	)
	var pipeline ada.SearchPipeline = scrape.NewPipeline(chain, scraper, logger)
	if inst != nil {
		pipeline = observer.WrapPipeline(pipeline, inst)
	}

	sessions := ada.NewSessions()

	history := openHistory(ctx, cfg, logger)
	if history != nil {
		defer history.Close()
	}

	engineOpts := []ada.EngineOption{
		ada.WithSessions(sessions),
		ada.WithLogger(logger),
	}
	if history != nil {
		engineOpts = append(engineOpts, ada.WithHistory(history))
	}
	engine := ada.NewEngine(models, pipeline, engineOpts...)

	srv := server.New(engine, sessions, cfg.Server.CORSOrigins, logger)
	logger.Info("listening", "addr", cfg.Server.Addr)
	if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// buildModels wires the three providers with retry, rate limiting, and
// optional instrumentation.
func buildModels(cfg config.Config, inst *observer.Instruments, logger *slog.Logger) ada.Models {
	build := func(model string) ada.Provider {
		var p ada.Provider = openaicompat.NewProvider(cfg.LLM.APIKey, model, cfg.LLM.BaseURL)
		if inst != nil {
			p = observer.WrapProvider(p, model, inst)
		}
		p = ada.WithRetry(p, ada.RetryLogger(logger))
		if cfg.LLM.RPM > 0 || cfg.LLM.TPM > 0 {
			p = ada.WithRateLimit(p, ada.RPM(cfg.LLM.RPM), ada.TPM(cfg.LLM.TPM))
		}
		return p
	}
	return ada.Models{
		General:    build(cfg.LLM.GeneralModel),
		Researcher: build(cfg.LLM.ResearcherModel),
		Fast:       build(cfg.LLM.FastModel),
	}
}

// openHistory opens the configured turn store, or returns nil when history
// is disabled or unavailable. Persistence is best-effort: failures log and
// the service runs without it.
func openHistory(ctx context.Context, cfg config.Config, logger *slog.Logger) ada.HistoryStore {
	var store ada.HistoryStore
	switch cfg.History.Driver {
	case "sqlite":
		store = sqlite.New(cfg.History.Path, sqlite.WithLogger(logger))
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.History.DSN)
		if err != nil {
			logger.Warn("postgres pool open failed, history disabled", "error", err)
			return nil
		}
		store = postgres.New(pool)
	default:
		return nil
	}
	if err := store.Init(ctx); err != nil {
		logger.Warn("history init failed, history disabled", "error", err)
		store.Close()
		return nil
	}
	return store
}
