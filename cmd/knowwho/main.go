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

	"github.com/kailas-cloud/knowwho/internal/config"
	"github.com/kailas-cloud/knowwho/internal/db"
	"github.com/kailas-cloud/knowwho/internal/db/memory"
	dbRedis "github.com/kailas-cloud/knowwho/internal/db/redis"
	"github.com/kailas-cloud/knowwho/internal/domain"
	"github.com/kailas-cloud/knowwho/internal/domain/network"
	domset "github.com/kailas-cloud/knowwho/internal/domain/settings"
	logpkg "github.com/kailas-cloud/knowwho/internal/logger"
	"github.com/kailas-cloud/knowwho/internal/metrics"
	"github.com/kailas-cloud/knowwho/internal/repository/briefcache"
	datasetrepo "github.com/kailas-cloud/knowwho/internal/repository/dataset"
	settingsrepo "github.com/kailas-cloud/knowwho/internal/repository/settings"
	chiTransport "github.com/kailas-cloud/knowwho/internal/transport/chi"
	openaiLLM "github.com/kailas-cloud/knowwho/internal/transport/openai"
	briefuc "github.com/kailas-cloud/knowwho/internal/usecase/brief"
	datasetuc "github.com/kailas-cloud/knowwho/internal/usecase/dataset"
	healthuc "github.com/kailas-cloud/knowwho/internal/usecase/health"
	settingsuc "github.com/kailas-cloud/knowwho/internal/usecase/settings"
	"github.com/kailas-cloud/knowwho/internal/version"
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
	logger, closeLogFile := logpkg.WithRotatingFile(logger, logpkg.FileOptions{
		Path:       cfg.Logging.File.Path,
		MaxSizeMB:  cfg.Logging.File.MaxSizeMB,
		MaxBackups: cfg.Logging.File.MaxBackups,
		MaxAgeDays: cfg.Logging.File.MaxAgeDays,
		Compress:   cfg.Logging.File.Compress,
	})
	defer func() {
		_ = logger.Sync()
		_ = closeLogFile()
	}()

	logger.Info("Starting knowwho API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Bool("llm_enabled", cfg.LLM.Enabled()),
	)

	// Create database store based on driver
	var store db.Store
	switch cfg.Database.Driver {
	case config.DriverMemory:
		store = memory.NewStore()
	case config.DriverRedis, config.DriverValkey:
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := logpkg.ContextWithLogger(context.Background(), logger)
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register LLM metrics explicitly (no init())
	metrics.RegisterLLMMetrics()

	events := chiTransport.NewBroadcaster(logger)

	// Repositories and use case services
	datasetSvc := datasetuc.New(datasetrepo.New(store, cfg.Storage.KeyPrefix), events)
	settingsSvc := settingsuc.New(settingsrepo.New(store, cfg.Storage.KeyPrefix), events, domset.Default())

	seedDatasets(ctx, cfg.Dataset, datasetSvc, logger)

	// Pass nil interfaces (not typed nil pointers) when the LLM is off.
	var completer domain.Completer
	var llmChecker healthuc.LLMChecker
	if cfg.LLM.Enabled() {
		base := buildCompleter(cfg.LLM, logger)
		completer = base
		llmChecker = base
		if ttl := cfg.LLM.CacheTTL(); ttl > 0 {
			completer = briefcache.New(base, store, cfg.Storage.KeyPrefix, ttl, metrics.BriefCacheTotal, logger)
		}
		logger.Info("LLM completer created",
			zap.String("provider", cfg.LLM.Provider),
			zap.String("model", cfg.LLM.Model),
			zap.Duration("cache_ttl", cfg.LLM.CacheTTL()),
		)
	}
	briefSvc := briefuc.New(datasetSvc, completer)
	healthSvc := healthuc.New(store, llmChecker)

	// Create chi server
	server := chiTransport.NewServer(
		datasetSvc, settingsSvc, briefSvc, healthSvc, events,
		chiTransport.NewRateLimiter(cfg.LLM.RatePerMinute), logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
			Code:    chiTransport.ErrorCodeBadRequest,
			Message: "route not found",
		})
	})
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

// buildCompleter creates the streaming provider with transport metrics built in.
func buildCompleter(llm config.LLMConfig, logger *zap.Logger) *openaiLLM.Completer {
	return openaiLLM.NewCompleter(&openaiLLM.Config{
		APIKey:      llm.APIKey,
		BaseURL:     llm.BaseURL,
		Model:       llm.Model,
		Provider:    llm.Provider,
		Timeout:     llm.Timeout(),
		MaxAttempts: llm.MaxAttempts,
		Logger:      logger,
	})
}

// seedDatasets stores the demo and the configured seed file unless a
// dataset with the same query id already exists.
func seedDatasets(ctx context.Context, cfg config.DatasetConfig, svc *datasetuc.Service, logger *zap.Logger) {
	var seeds []*network.Dataset
	if cfg.SeedDemo != nil && *cfg.SeedDemo {
		demo, err := datasetrepo.Demo()
		if err != nil {
			logger.Fatal("Failed to load demo dataset", zap.Error(err))
		}
		seeds = append(seeds, demo)
	}
	if cfg.SeedPath != "" {
		ds, err := datasetrepo.LoadFile(cfg.SeedPath)
		if err != nil {
			logger.Fatal("Failed to load seed dataset", zap.String("path", cfg.SeedPath), zap.Error(err))
		}
		seeds = append(seeds, ds)
	}

	for _, ds := range seeds {
		created, err := svc.Seed(ctx, ds)
		if err != nil {
			logger.Fatal("Failed to seed dataset", zap.String("query_id", ds.Query.QueryID), zap.Error(err))
		}
		logger.Info("Dataset seeded",
			zap.String("query_id", ds.Query.QueryID),
			zap.Int("nodes", len(ds.Nodes)),
			zap.Bool("created", created),
		)
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternalError,
						Message: "internal error",
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

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
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
