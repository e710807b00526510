package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/clustra-io/clustra/internal/config"
	"github.com/clustra-io/clustra/internal/db"
	dbRedis "github.com/clustra-io/clustra/internal/db/redis"
	"github.com/clustra-io/clustra/internal/domain"
	logpkg "github.com/clustra-io/clustra/internal/logger"
	"github.com/clustra-io/clustra/internal/metrics"
	budgetrepo "github.com/clustra-io/clustra/internal/repository/budget"
	"github.com/clustra-io/clustra/internal/repository/embcache"
	"github.com/clustra-io/clustra/internal/transport/gcnl"
	"github.com/clustra-io/clustra/internal/transport/httpapi"
	openaiEmb "github.com/clustra-io/clustra/internal/transport/openai"
	annotateuc "github.com/clustra-io/clustra/internal/usecase/annotate"
	clusteruc "github.com/clustra-io/clustra/internal/usecase/cluster"
	draguc "github.com/clustra-io/clustra/internal/usecase/drag"
	embeddinguc "github.com/clustra-io/clustra/internal/usecase/embedding"
	healthuc "github.com/clustra-io/clustra/internal/usecase/health"
	usageuc "github.com/clustra-io/clustra/internal/usecase/usage"
	validateuc "github.com/clustra-io/clustra/internal/usecase/validate"
	"github.com/clustra-io/clustra/internal/version"
)

func main() {
	// Load configuration based on ENV
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

	logger.Info("Starting clustra API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("cache_addrs", cfg.Cache.Addrs),
	)

	ctx := context.Background()

	// Cache store is optional: without it every run re-embeds its keywords.
	var store db.Store
	if len(cfg.Cache.Addrs) > 0 {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		logger.Info("Connected to cache store")
	}

	// Register provider metrics explicitly (no init())
	metrics.RegisterProviderMetrics()

	// Single BudgetTracker shared between the embedder chain and usage service.
	var budget *embeddinguc.BudgetTracker
	budgetCfg := cfg.Embedding.Budget
	if budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0 {
		action := embeddinguc.BudgetActionWarn
		if budgetCfg.Action == "reject" {
			action = embeddinguc.BudgetActionReject
		}
		budget = embeddinguc.NewBudgetTracker(
			cfg.Embedding.Provider, budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit, action, logger,
		)
		if store != nil {
			budgetStore := budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour)
			budget.WithStore(ctx, budgetStore)
		}
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	// Go gotcha: (*BudgetTracker)(nil) wrapped in BudgetChecker != nil.
	var budgetChecker embeddinguc.BudgetChecker
	if budget != nil {
		budgetChecker = budget
	}

	embedder := buildEmbedder(cfg.Embedding, store, budgetChecker, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("batch_size", cfg.Embedding.BatchSize),
	)

	classifier, err := gcnl.NewClassifier(ctx, &gcnl.Config{
		CredentialsFile: cfg.Classifier.CredentialsFile,
		MinWords:        cfg.Classifier.MinWords,
		BreakerFailures: uint32(cfg.Classifier.BreakerFailures),
		BreakerReset:    time.Duration(cfg.Classifier.BreakerResetSec) * time.Second,
		Logger:          logger,
	})
	if err != nil {
		logger.Fatal("Failed to create classifier", zap.Error(err))
	}
	defer func() { _ = classifier.Close() }()

	// One limiter paces every classifier consumer against provider quota.
	limiter := rate.NewLimiter(rate.Every(time.Duration(cfg.Classifier.RateLimitMS)*time.Millisecond), 1)

	clusterSvc := clusteruc.New(embedder, logger)
	annotateSvc := annotateuc.New(classifier, limiter, logger)
	validateSvc := validateuc.New(classifier, limiter, logger)
	dragSvc := draguc.New(classifier, limiter, logger)

	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetReader = budget
	}
	usageSvc := usageuc.New(budgetReader)

	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	healthSvc := healthuc.New(newEmbeddingHealthChecker(embedder), cachePinger)

	server := httpapi.NewServer(
		clusterSvc, annotateSvc, validateSvc, dragSvc, usageSvc, healthSvc,
		httpapi.Defaults{
			Cluster: clusteruc.Options{
				Tightness:        cfg.Clustering.Tightness,
				MinVolume:        cfg.Clustering.MinVolume,
				BatchSize:        cfg.Embedding.BatchSize,
				PrimaryCount:     cfg.Clustering.PrimaryCount,
				SecondaryCount:   cfg.Clustering.SecondaryCount,
				OverlapTopN:      cfg.Clustering.OverlapTopN,
				OverlapThreshold: cfg.Clustering.OverlapThreshold,
			},
			Drag: draguc.Options{
				MaxIterations: cfg.Drag.MaxIterations,
				MinGain:       cfg.Drag.MinGain,
				MinWords:      cfg.Drag.MinWords,
			},
			MaxTopEntities: cfg.Clustering.MaxTopEntities,
		},
		logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(httpapi.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented
func buildEmbedder(
	embCfg config.EmbeddingConfig,
	store db.Store,
	budget embeddinguc.BudgetChecker,
	logger *zap.Logger,
) domain.BatchEmbedder {
	// Base provider (with transport metrics built-in)
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     embCfg.APIKey,
		BaseURL:    embCfg.BaseURL,
		Model:      embCfg.Model,
		Dimensions: embCfg.Dimensions,
		Provider:   embCfg.Provider,
		MaxRetries: embCfg.MaxRetries,
		Logger:     logger,
	})

	// Cached
	var embedder domain.BatchEmbedder = base
	if store != nil {
		embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}

	// Instrumented (budget + metrics + chunking)
	return embeddinguc.NewInstrumentedEmbedder(
		embedder, embCfg.Provider, embCfg.Model, embCfg.BatchSize, budget, logger,
	)
}

// embeddingHealthChecker probes the embedding provider when it supports it.
type embeddingHealthChecker struct {
	embedder domain.BatchEmbedder
}

func newEmbeddingHealthChecker(embedder domain.BatchEmbedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
