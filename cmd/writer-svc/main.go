// Package main 小说写作服务入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"z-novel-writer/internal/application/generation"
	"z-novel-writer/internal/application/novel"
	"z-novel-writer/internal/application/retrieval"
	"z-novel-writer/internal/config"
	"z-novel-writer/internal/infrastructure/embedding"
	"z-novel-writer/internal/infrastructure/llm"
	"z-novel-writer/internal/infrastructure/persistence/milvus"
	redisinfra "z-novel-writer/internal/infrastructure/persistence/redis"
	"z-novel-writer/internal/infrastructure/storage"
	"z-novel-writer/internal/interfaces/http/handler"
	"z-novel-writer/internal/interfaces/http/middleware"
	"z-novel-writer/internal/interfaces/http/router"
	"z-novel-writer/internal/workflow/prompt"
	"z-novel-writer/pkg/logger"
	"z-novel-writer/pkg/tracer"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting writer-svc",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	shutdownTracer, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		log.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracer(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	deps, cleanup, rateLimiter, err := buildDeps(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize dependencies", err)
	}
	defer cleanup()

	r := router.New(cfg, deps, rateLimiter)

	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("http server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}

// buildDeps 组装处理器依赖：LLM、嵌入、向量库与可选的 Redis。
// Milvus 或 Redis 不可达时降级启动，相应能力按禁用处理。
func buildDeps(ctx context.Context, cfg *config.Config) (*handler.Deps, func(), middleware.RateLimiter, error) {
	log := logger.FromContext(ctx)
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	factory := llm.NewEinoFactory(cfg)
	generator := llm.NewEinoGenerator(factory, cfg.LLM.DefaultProvider)
	completion := generation.NewContinuation(generator, cfg.Generation.MaxContinuations)

	embedder, err := embedding.NewEinoEmbedder(ctx, &cfg.Embedding)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}

	var vectorRepo retrieval.VectorRepository
	milvusClient, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		log.Warn("milvus unavailable, vector retrieval disabled", "error", err)
	} else {
		cleanups = append(cleanups, func() { _ = milvusClient.Close() })
		vectorRepo = milvus.NewIndexVectorRepository(milvus.NewRepository(milvusClient))
	}

	var rateLimiter middleware.RateLimiter
	var summaries handler.SummaryCache
	if cfg.Security.RateLimit.Enabled || cfg.App.Env == "production" {
		redisClient, err := redisinfra.NewClient(&cfg.Cache.Redis)
		if err != nil {
			log.Warn("redis unavailable, rate limiting and summary cache disabled", "error", err)
		} else {
			cleanups = append(cleanups, func() { _ = redisClient.Close() })
			rateLimiter = redisinfra.NewRateLimiter(redisClient)
			summaries = redisinfra.NewSummaryCache(redisClient, 0)
		}
	}

	deps := &handler.Deps{
		Config:     cfg,
		Completion: completion,
		Prompts:    prompt.NewRegistry(),
		Files:      storage.NewFileStore(),
		Embedder:   embedder,
		VectorRepo: vectorRepo,
		Summaries:  summaries,
		Locks:      novel.NewChapterLocks(),
	}
	return deps, cleanup, rateLimiter, nil
}
