package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/relaydesk/relay/internal/agent"
	"github.com/relaydesk/relay/internal/api"
	"github.com/relaydesk/relay/internal/config"
	"github.com/relaydesk/relay/internal/embedding"
	"github.com/relaydesk/relay/internal/faq"
	"github.com/relaydesk/relay/internal/provider"
	"github.com/relaydesk/relay/internal/rag"
	"github.com/relaydesk/relay/internal/secret"
	pgstore "github.com/relaydesk/relay/internal/store"
	"github.com/relaydesk/relay/internal/tool"
	"github.com/relaydesk/relay/internal/vectorstore"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting Relay...")

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/relay.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// Initialize provider router
	router := provider.NewRouter(logger)
	requestTimeout := time.Duration(cfg.Engine.RequestTimeoutSec) * time.Second
	for _, pc := range cfg.Providers {
		provCfg := provider.ProviderConfig{
			ID: pc.ID, Type: pc.Type, Name: pc.Name,
			Endpoint: pc.Endpoint, APIKey: pc.APIKey,
			Models: pc.Models, Extra: pc.Extra,
			Timeout: pc.Timeout,
		}
		if provCfg.Timeout == 0 {
			provCfg.Timeout = requestTimeout
		}
		switch pc.Type {
		case "openai":
			router.Register(provider.NewOpenAIProvider(provCfg, logger))
		case "anthropic":
			router.Register(provider.NewAnthropicProvider(provCfg, logger))
		default:
			logger.Warn("unknown provider type", zap.String("id", pc.ID), zap.String("type", pc.Type))
		}
	}

	// Probe provider connectivity; failures are logged, not fatal, since
	// fallback chains may still cover a degraded provider.
	for _, p := range router.ListProviders() {
		probeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := p.HealthCheck(probeCtx); err != nil {
			logger.Warn("provider health check failed", zap.String("id", p.ID()), zap.Error(err))
		}
		cancel()
	}

	// Initialize PostgreSQL store
	var store *pgstore.Store
	if cfg.Database.Postgres.DSN != "" {
		ps, pgErr := pgstore.New(context.Background(), cfg.Database.Postgres.DSN, logger)
		if pgErr != nil {
			logger.Warn("PostgreSQL unavailable, running without persistence", zap.Error(pgErr))
		} else {
			if mErr := ps.Migrate(context.Background(), "migrations"); mErr != nil {
				logger.Fatal("migration failed", zap.Error(mErr))
			}
			store = ps
		}
	}

	// Initialize embedding provider
	var embedder embedding.Provider
	if cfg.Embedding.Endpoint != "" {
		embCfg := embedding.Config{
			Provider:  cfg.Embedding.Provider,
			Endpoint:  cfg.Embedding.Endpoint,
			Model:     cfg.Embedding.Model,
			APIKey:    cfg.Embedding.APIKey,
			Dimension: cfg.Embedding.Dimension,
		}
		if embCfg.Provider == "local" {
			embedder = embedding.NewLocalProvider(embCfg)
		} else {
			embedder = embedding.NewAPIProvider(embCfg)
		}
		if cfg.Database.Redis.URL != "" {
			cached, cacheErr := embedding.NewCachedProvider(embedder, embCfg.Model, cfg.Database.Redis.URL, 0, logger)
			if cacheErr != nil {
				logger.Warn("Redis unavailable, embeddings uncached", zap.Error(cacheErr))
			} else {
				embedder = cached
			}
		}
	}

	// Initialize knowledge-base search
	var knowledge *rag.Service
	if embedder != nil && cfg.Database.Qdrant.Host != "" {
		qc, qErr := vectorstore.NewClient(vectorstore.QdrantConfig{
			Host: cfg.Database.Qdrant.Host,
			Port: cfg.Database.Qdrant.Port,
		})
		if qErr != nil {
			logger.Warn("Qdrant unavailable, running without knowledge base", zap.Error(qErr))
		} else {
			collection := cfg.Knowledge.Collection
			if collection == "" {
				collection = "knowledge"
			}
			knowledge = rag.NewService(embedder, qc, collection, logger)
			if initErr := knowledge.Init(context.Background()); initErr != nil {
				logger.Warn("knowledge collection init failed", zap.Error(initErr))
			}
		}
	}

	// Initialize secret codec
	var secrets *secret.Codec
	if cfg.Secrets.EncryptionKey != "" {
		secrets, err = secret.NewCodec(cfg.Secrets.EncryptionKey)
		if err != nil {
			logger.Fatal("invalid encryption key", zap.Error(err))
		}
	}

	// Initialize tool registry
	var defs tool.DefinitionStore
	if store != nil {
		defs = store.Definitions()
	}
	registry := tool.NewRegistry(defs, logger)
	summarizerModel := cfg.Engine.SummarizerModel
	if summarizerModel == "" {
		// Fall back to the first model of the first provider that lists any.
		for _, pc := range cfg.Providers {
			if len(pc.Models) > 0 {
				summarizerModel = pc.Models[0]
				break
			}
		}
	}
	if summarizerModel != "" {
		registry.SetSummarizer(tool.NewLLMSummarizer(router, summarizerModel, logger))
	} else {
		logger.Warn("no summarizer model configured, large results use the deterministic summary")
	}

	var searcher tool.KnowledgeSearcher
	if knowledge != nil {
		searcher = knowledge
	}
	tool.RegisterBuiltins(registry, tool.BuiltinDeps{
		Secrets:  secrets,
		Matcher:  faq.NewMatcher(embedder, logger),
		Searcher: searcher,
		Calendar: tool.NewCalendarStore(),
		Logger:   logger,
	})

	// Initialize agent engine
	engine := agent.NewEngine(router, registry, logger)
	engine.SetMaxToolCalls(cfg.Engine.MaxToolCalls)
	if store != nil {
		agents, loadErr := store.ListAgents(context.Background())
		if loadErr != nil {
			logger.Warn("failed to load agents from DB", zap.Error(loadErr))
		} else {
			for _, a := range agents {
				engine.Register(a)
			}
			logger.Info("Loaded agents from DB", zap.Int("count", len(agents)))
		}
	}

	// Build HTTP handler
	handler := api.NewHandler(engine, store, knowledge, logger)

	// Start server
	port := fmt.Sprintf("%d", cfg.Server.Port)
	if port == "0" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("Relay listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Relay...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
	if store != nil {
		store.Close()
	}
}
