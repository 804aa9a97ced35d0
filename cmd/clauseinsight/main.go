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
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/clauseinsight/clauseinsight/internal/config"
	"github.com/clauseinsight/clauseinsight/internal/db"
	dbRedis "github.com/clauseinsight/clauseinsight/internal/db/redis"
	"github.com/clauseinsight/clauseinsight/internal/domain"
	"github.com/clauseinsight/clauseinsight/internal/loader"
	logpkg "github.com/clauseinsight/clauseinsight/internal/logger"
	"github.com/clauseinsight/clauseinsight/internal/metrics"
	"github.com/clauseinsight/clauseinsight/internal/repository/clauseindex"
	"github.com/clauseinsight/clauseinsight/internal/repository/contracts"
	"github.com/clauseinsight/clauseinsight/internal/repository/embcache"
	"github.com/clauseinsight/clauseinsight/internal/repository/querylog"
	"github.com/clauseinsight/clauseinsight/internal/splitter"
	chiTransport "github.com/clauseinsight/clauseinsight/internal/transport/chi"
	openaiTransport "github.com/clauseinsight/clauseinsight/internal/transport/openai"
	analysisuc "github.com/clauseinsight/clauseinsight/internal/usecase/analysis"
	embeddinguc "github.com/clauseinsight/clauseinsight/internal/usecase/embedding"
	healthuc "github.com/clauseinsight/clauseinsight/internal/usecase/health"
	ingestuc "github.com/clauseinsight/clauseinsight/internal/usecase/ingest"
	queryuc "github.com/clauseinsight/clauseinsight/internal/usecase/query"
	"github.com/clauseinsight/clauseinsight/internal/version"
)

// providerName labels embedding and generation metrics. An OpenAI-compatible
// gateway configured via base_url keeps the same label.
const providerName = "openai"

const redisReadyTimeout = 15 * time.Second

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting clauseinsight API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("data_dir", cfg.Storage.DataDir),
		zap.Bool("querylog_enabled", cfg.QueryLog.Enabled()),
	)

	// Register Prometheus metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	ctx := context.Background()

	// Redis backs the query log and the embedding cache. Both are optional:
	// with no querylog URL the service runs fully local.
	var store db.Store
	if cfg.QueryLog.Enabled() {
		redisStore, err := dbRedis.NewStoreFromURL(cfg.QueryLog.URL, cfg.QueryLog.Password)
		if err != nil {
			logger.Fatal("Failed to create redis store", zap.Error(err))
		}
		defer redisStore.Close()

		if err := redisStore.WaitForReady(ctx, redisReadyTimeout); err != nil {
			logger.Fatal("Redis not ready", zap.Error(err))
		}
		logger.Info("Connected to redis")
		store = redisStore
	}

	// The contract store creates the data dir, so it opens before the index.
	files, err := contracts.New(cfg.Storage.ContractsDir())
	if err != nil {
		logger.Fatal("Failed to open contract store", zap.Error(err))
	}

	index, err := clauseindex.New(cfg.Storage.IndexPath(), logger)
	if err != nil {
		logger.Fatal("Failed to open clause index", zap.Error(err))
	}
	defer index.Close()

	logger.Info("Clause index loaded",
		zap.String("path", cfg.Storage.IndexPath()),
		zap.Int("chunks", index.Count()),
		zap.Int("documents", len(index.Sources())),
	)

	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   providerName,
		Logger:     logger,
	})
	embedder := buildEmbedder(base, cfg.Embedding, store, logger)
	logger.Info("Embedder created",
		zap.String("provider", providerName),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		Model:             cfg.LLM.Model,
		Provider:          providerName,
		Timeout:           time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		MaxContextChars:   cfg.LLM.MaxContextChars,
		Temperature:       cfg.LLM.Temperature,
		MaxTokens:         cfg.LLM.MaxTokens,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
		Logger:            logger,
	})

	// Query logging is best effort and off without redis.
	var qlog queryuc.QueryLog = querylog.Noop{}
	if store != nil {
		qlog = querylog.New(store, int64(cfg.QueryLog.MaxEntries),
			time.Duration(cfg.QueryLog.TimeoutMS)*time.Millisecond, logger)
	}

	ingestSvc := ingestuc.New(
		files,
		loader.New(),
		splitter.New(cfg.Splitter.ChunkSize, cfg.Splitter.ChunkOverlap),
		embedder,
		index,
	).WithBatchSize(cfg.Embedding.BatchSize)

	querySvc := queryuc.New(embedder, index, generator).
		WithTopK(cfg.Retrieval.DefaultTopK, cfg.Retrieval.MaxTopK).
		WithContextChunks(cfg.Retrieval.ContextChunks).
		WithMinRelevance(cfg.Retrieval.MinRelevance).
		WithQueryLog(qlog).
		WithLogger(logger)

	analysisSvc := analysisuc.New(index, generator).
		WithQueryLog(qlog).
		WithLogger(logger)

	healthSvc := healthuc.New(index).WithEmbedding(base)
	if store != nil {
		healthSvc = healthSvc.WithRedis(store)
	}

	server := chiTransport.NewServer(ingestSvc, querySvc, analysisSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Request-ID", "X-Embedding-Tokens", "X-Generation-Tokens"},
		MaxAge:         300,
	}))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

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

// buildEmbedder assembles the embedder chain: OpenAI client, optional redis
// cache, logging instrumentation. The cache key covers the model name, so a
// model switch never serves stale vectors.
func buildEmbedder(
	base *openaiTransport.Embedder,
	cfg config.EmbeddingConfig,
	store db.Store,
	logger *zap.Logger,
) *embeddinguc.InstrumentedEmbedder {
	var embedder domain.Embedder = base
	if store != nil && cfg.CacheEnabled {
		embedder = embcache.New(base, store, cfg.Model, 0, metrics.EmbeddingCacheTotal, logger)
		logger.Info("Embedding cache enabled", zap.String("model", cfg.Model))
	}

	return embeddinguc.NewInstrumentedEmbedder(embedder, providerName, cfg.Model, logger)
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
					_ = json.NewEncoder(w).Encode(map[string]map[string]string{
						"error": {
							"code":    "internal_error",
							"message": "internal error",
						},
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

			// One canonical log line per request
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
