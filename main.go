package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cladtek/dbchat-engine/pkg/access"
	"github.com/cladtek/dbchat-engine/pkg/answer"
	"github.com/cladtek/dbchat-engine/pkg/chat"
	"github.com/cladtek/dbchat-engine/pkg/config"
	"github.com/cladtek/dbchat-engine/pkg/database"
	"github.com/cladtek/dbchat-engine/pkg/export"
	"github.com/cladtek/dbchat-engine/pkg/followup"
	"github.com/cladtek/dbchat-engine/pkg/handlers"
	"github.com/cladtek/dbchat-engine/pkg/llm"
	"github.com/cladtek/dbchat-engine/pkg/logging"
	"github.com/cladtek/dbchat-engine/pkg/middleware"
	"github.com/cladtek/dbchat-engine/pkg/registry"
	"github.com/cladtek/dbchat-engine/pkg/resolver"
	"github.com/cladtek/dbchat-engine/pkg/schema"
	"github.com/cladtek/dbchat-engine/pkg/session"
	"github.com/cladtek/dbchat-engine/pkg/texttosql"
)

// Version is set at build time via ldflags
var Version = "dev"

const sweepInterval = 5 * time.Minute

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("database", cfg.Database.Database),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := llm.NewClient(&llm.Config{
		Provider:    cfg.LLM.Provider,
		Endpoint:    cfg.LLM.Endpoint,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		Temperature: cfg.LLM.Temperature,
	}, logger)
	if err != nil {
		logger.Fatal("LLM client init failed", zap.Error(err))
	}

	mappings, err := registry.LoadMappings(cfg.MappingsPath)
	if err != nil {
		logger.Fatal("table mappings load failed", zap.Error(err))
	}
	reg := registry.New(mappings)

	ctrl := access.DefaultControl()
	if cfg.UsersPath != "" {
		if ctrl, err = access.Load(cfg.UsersPath); err != nil {
			logger.Fatal("access rules load failed", zap.Error(err))
		}
	}

	groups, entities := followup.DefaultPatternGroups(), followup.DefaultEntities()
	if cfg.PatternsPath != "" {
		if groups, entities, err = followup.LoadPatterns(cfg.PatternsPath); err != nil {
			logger.Fatal("follow-up patterns load failed", zap.Error(err))
		}
	}
	engine := followup.NewEngine(groups, entities, ctrl.Usernames(), logger)

	store := session.NewStore(cfg.Chat.HistoryLimit, time.Duration(cfg.Chat.SessionIdleTTLMinutes)*time.Minute, logger)
	limiter := session.NewRateLimiter(cfg.Chat.RateLimitRequests, time.Duration(cfg.Chat.RateLimitWindowSeconds)*time.Second, logger)
	store.StartSweeper(ctx, sweepInterval)
	limiter.StartSweeper(ctx, sweepInterval)

	schemas := schema.NewCache(nil, cfg.Chat.SampleRows, logger)
	var retriever chat.Retriever
	var querier database.Querier

	// A database failure is not fatal: the engine degrades to answering
	// from the model alone.
	db, err := database.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Warn("database unavailable, running in AI-only mode",
			zap.String("error", logging.SanitizeError(err)))
	} else {
		defer db.Close()
		querier = db
		schemas = schema.NewCache(db, cfg.Chat.SampleRows, logger)
		loaded := schemas.WarmUp(ctx, reg)
		logger.Info("schema cache warmed", zap.Int("tables", loaded))

		gen := texttosql.NewGenerator(client, logger)
		retriever = resolver.New(reg, ctrl, schemas, gen, db, logger)
	}

	composer := answer.NewComposer(cfg.Chat.TranscriptExchanges, logger)
	svc := chat.New(store, limiter, ctrl, engine, retriever, reg, composer, client, logger)
	exporter := export.NewExporter(querier, reg, logger)

	mux := http.NewServeMux()
	handlers.NewChatHandler(svc, logger).RegisterRoutes(mux)
	handlers.NewExportHandler(exporter, store, logger).RegisterRoutes(mux)
	handlers.NewHealthHandler(cfg, svc, schemas, store, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("dbchat-engine listening",
		zap.String("addr", server.Addr),
		zap.String("version", cfg.Version),
		zap.Bool("ai_only", svc.AIOnly()))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", zap.Error(err))
	}
	logger.Info("dbchat-engine stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	var zcfg zap.Config
	if cfg.Env == "local" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
