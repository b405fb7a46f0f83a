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

	"github.com/kura-media/clipdex/internal/config"
	dbRedis "github.com/kura-media/clipdex/internal/db/redis"
	"github.com/kura-media/clipdex/internal/domain/clip"
	"github.com/kura-media/clipdex/internal/domain/search/request"
	logpkg "github.com/kura-media/clipdex/internal/logger"
	"github.com/kura-media/clipdex/internal/metrics"
	cliprepo "github.com/kura-media/clipdex/internal/repository/clip"
	"github.com/kura-media/clipdex/internal/repository/embcache"
	searchrepo "github.com/kura-media/clipdex/internal/repository/search"
	"github.com/kura-media/clipdex/internal/transport/httpapi"
	openaiEmb "github.com/kura-media/clipdex/internal/transport/openai"
	cataloguc "github.com/kura-media/clipdex/internal/usecase/catalog"
	embeddinguc "github.com/kura-media/clipdex/internal/usecase/embedding"
	healthuc "github.com/kura-media/clipdex/internal/usecase/health"
	searchuc "github.com/kura-media/clipdex/internal/usecase/search"
	similaruc "github.com/kura-media/clipdex/internal/usecase/similar"
	"github.com/kura-media/clipdex/internal/version"
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

	logger.Info("Starting clipdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterCoreMetrics()

	dims := clip.Dims{
		Text:   cfg.Embedding.Text.Dimensions,
		Visual: cfg.Embedding.Visual.Dimensions,
	}

	// Build embedder chains — composition root.
	// Pass nil interfaces (not typed nil pointers!) for unconfigured spaces.
	var (
		textEmbedder  searchuc.Embedder
		imageEmbedder cataloguc.ImageEmbedder
		embChecker    healthuc.EmbeddingChecker
	)
	if cfg.Embedding.Text.Enabled() {
		base := openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.Text.APIKey,
			BaseURL:    cfg.Embedding.Text.BaseURL,
			Model:      cfg.Embedding.Text.Model,
			Dimensions: cfg.Embedding.Text.Dimensions,
			Logger:     logger,
		})
		cached := embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
		textEmbedder = embeddinguc.NewInstrumented(cached, cfg.Embedding.Text.Model, logger)
		embChecker = base
		logger.Info("Text vectorizer configured",
			zap.String("model", cfg.Embedding.Text.Model),
			zap.Int("dimensions", cfg.Embedding.Text.Dimensions),
		)
	}
	if cfg.Embedding.Visual.Enabled() {
		base := openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.Visual.APIKey,
			BaseURL:    cfg.Embedding.Visual.BaseURL,
			Model:      cfg.Embedding.Visual.Model,
			Dimensions: cfg.Embedding.Visual.Dimensions,
			Logger:     logger,
		})
		imageEmbedder = embeddinguc.NewInstrumentedImage(base, cfg.Embedding.Visual.Model, logger)
		if embChecker == nil {
			embChecker = base
		}
		logger.Info("Visual vectorizer configured",
			zap.String("model", cfg.Embedding.Visual.Model),
			zap.Int("dimensions", cfg.Embedding.Visual.Dimensions),
		)
	}

	// Repositories
	clipRepo := cliprepo.New(store, dims).WithHNSW(cliprepo.HNSWConfig{
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})
	if err := clipRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure clip index", zap.Error(err))
	}
	searchRepo := searchrepo.New(store)

	// Use case services
	var catalogEmbedder cataloguc.Embedder
	if textEmbedder != nil {
		catalogEmbedder = textEmbedder
	}
	catalogSvc := cataloguc.New(clipRepo, catalogEmbedder, imageEmbedder, dims)
	searchSvc := searchuc.New(searchRepo, clipRepo, textEmbedder)
	similarSvc := similaruc.New(searchRepo, clipRepo)
	healthSvc := healthuc.New(store, embChecker)

	defaults := searchDefaults(cfg.Search)

	server := httpapi.NewServer(catalogSvc, searchSvc, similarSvc, healthSvc, defaults, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(httpapi.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.RegisterRoutes(r)

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

// searchDefaults converts the config weight section into the request-layer
// defaults applied when a caller omits weights.
func searchDefaults(cfg config.SearchConfig) httpapi.Defaults {
	var thumbs [clip.ThumbnailSlots]float64
	for i, w := range cfg.Similar.ThumbnailWeights {
		if i >= clip.ThumbnailSlots {
			break
		}
		thumbs[i] = w
	}

	return httpapi.Defaults{
		Hybrid: request.HybridWeights{
			FullText: cfg.FullTextWeight,
			Summary:  cfg.SummaryWeight,
			Keyword:  cfg.KeywordWeight,
			RRFK:     cfg.RRFK,
		},
		Similar: request.SimilarWeights{
			Summary:      cfg.Similar.SummaryWeight,
			Keyword:      cfg.Similar.KeywordWeight,
			Thumbnails:   thumbs,
			TextFactor:   cfg.Similar.TextFactor,
			VisualFactor: cfg.Similar.VisualFactor,
		},
	}
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
