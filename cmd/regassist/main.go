package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/regassist/internal/config"
	"github.com/kailas-cloud/regassist/internal/db"
	"github.com/kailas-cloud/regassist/internal/db/memory"
	dbRedis "github.com/kailas-cloud/regassist/internal/db/redis"
	"github.com/kailas-cloud/regassist/internal/domain"
	"github.com/kailas-cloud/regassist/internal/domain/intent"
	"github.com/kailas-cloud/regassist/internal/domain/sanitize"
	logpkg "github.com/kailas-cloud/regassist/internal/logger"
	"github.com/kailas-cloud/regassist/internal/metrics"
	"github.com/kailas-cloud/regassist/internal/repository/embcache"
	"github.com/kailas-cloud/regassist/internal/repository/index"
	quotarepo "github.com/kailas-cloud/regassist/internal/repository/quota"
	sourcesrepo "github.com/kailas-cloud/regassist/internal/repository/sources"
	chiTransport "github.com/kailas-cloud/regassist/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/regassist/internal/transport/openai"
	"github.com/kailas-cloud/regassist/internal/usecase/assistant"
	embeddinguc "github.com/kailas-cloud/regassist/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/regassist/internal/usecase/health"
	quotauc "github.com/kailas-cloud/regassist/internal/usecase/quota"
	"github.com/kailas-cloud/regassist/internal/usecase/retrieval"
	sourcesuc "github.com/kailas-cloud/regassist/internal/usecase/sources"
	"github.com/kailas-cloud/regassist/internal/version"
)

const (
	dailyKeyTTL   = 48 * time.Hour
	monthlyKeyTTL = 62 * 24 * time.Hour
	healthTimeout = 5 * time.Second
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting regassist API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("model", cfg.LLM.Model),
	)
	if cfg.LLM.APIKey == "" {
		logger.Warn("llm.api_key is empty, every question will fail with a configuration error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open database store", zap.Error(err))
	}
	defer store.Close()
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	gateway := openaiTransport.NewGateway(&openaiTransport.GatewayConfig{
		APIKey:          cfg.LLM.APIKey,
		BaseURL:         cfg.LLM.BaseURL,
		Model:           cfg.LLM.Model,
		ToolType:        cfg.LLM.ToolType,
		ToolChoice:      cfg.LLM.ToolChoice,
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
		Logger:          logger,
	})

	base, embedder := buildEmbedder(cfg.Embedding, store, logger)

	loader := index.NewLoader(cfg.RAG.IndexPath, time.Duration(cfg.RAG.CacheTTLSec)*time.Second, logger)
	if cfg.RAG.Watch {
		go func() {
			if err := loader.Watch(ctx); err != nil {
				logger.Warn("Index watcher stopped", zap.Error(err))
			}
		}()
	}
	retriever := retrieval.New(embedder, loader, cfg.Embedding.Model, cfg.RAG.K, cfg.RAG.Threshold)

	guard := quotauc.NewGuard(
		quotarepo.New(store, dailyKeyTTL, monthlyKeyTTL),
		roleLimits(cfg.Quota.Limits),
		quotauc.FailurePolicy(cfg.Quota.OnStoreError),
		logger,
	)

	sanitizer := buildSanitizer(cfg.Sources)
	registry := sourcesrepo.Open(sourcesrepo.Config{
		Path:         cfg.Sources.Path,
		Capacity:     cfg.Sources.Capacity,
		QueueSize:    cfg.Sources.QueueSize,
		ContextChars: cfg.Sources.ContextChars,
		Logger:       logger,
	})
	sourceSvc := sourcesuc.New(registry, sanitizer)

	assistantSvc := assistant.New(assistant.Deps{
		Classifier: intent.Default(),
		Retriever:  retriever,
		Model:      gateway,
		Quota:      guard,
		Sanitizer:  sanitizer,
		Sources:    sourceSvc,
	}, assistant.Options{
		Policy:           cfg.LLM.SystemInstructions,
		ToolErrorMarkers: cfg.LLM.ToolErrorMarkers,
		CallTimeout:      time.Duration(cfg.LLM.TimeoutSec) * time.Second,
	})

	// Pass nil interface (not typed nil pointer!) when no embedding key is set.
	var embeddingChecker healthuc.EmbeddingChecker
	if cfg.Embedding.APIKey != "" {
		embeddingChecker = base
	}
	healthSvc := healthuc.New(store, embeddingChecker, gateway, healthTimeout)

	server := chiTransport.NewServer(assistantSvc, guard, sourceSvc, healthSvc, logger)
	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(chiTransport.AuthConfig{APIKeys: cfg.Auth.APIKeys, AdminAPIKeys: cfg.Auth.AdminAPIKeys}),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	// Detached side effects still write to the registry and the quota store.
	assistantSvc.Wait()
	registry.Close()

	logger.Info("Server stopped gracefully")
}

// openStore creates the quota and cache store. Valkey is served by the Redis client.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (db.Store, error) {
	if cfg.Driver == "memory" {
		return memory.New(), nil
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Addrs,
		Username:   cfg.Username,
		Password:   cfg.Password,
		DB:         cfg.Index,
		ClientName: "regassist",
	})
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("%s not ready: %w", cfg.Driver, err)
	}
	return store, nil
}

// buildEmbedder assembles the query embedder chain: OpenAI -> Cached -> Instrumented.
// It also returns the base provider for health checks.
func buildEmbedder(
	cfg config.EmbeddingConfig, store db.Store, logger *zap.Logger,
) (*openaiTransport.Embedder, domain.Embedder) {
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if cfg.Cache {
		embedder = embcache.New(base, store, embcache.Config{
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			TTL:        time.Duration(cfg.CacheTTLSec) * time.Second,
			Lookups:    metrics.EmbeddingCacheTotal,
		}, logger)
	}

	return base, embeddinguc.NewInstrumentedEmbedder(embedder, base.Provider(), cfg.Model, logger)
}

func buildSanitizer(cfg config.SourcesConfig) *sanitize.Sanitizer {
	forbidden := cfg.ForbiddenDomains
	if len(forbidden) == 0 {
		forbidden = sanitize.DefaultForbiddenDomains
	}
	official := cfg.OfficialDomains
	if len(official) == 0 {
		official = sanitize.DefaultOfficialDomains
	}
	return sanitize.New(forbidden, official)
}

func roleLimits(in map[string]config.RoleLimitConfig) domain.RoleLimits {
	out := make(domain.RoleLimits, len(in))
	for role, l := range in {
		out[domain.ParseRole(role)] = domain.RoleLimit{DailyMessages: l.DailyMessages, MonthlyTokens: l.MonthlyTokens}
	}
	return out
}
