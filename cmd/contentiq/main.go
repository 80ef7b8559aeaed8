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
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/solshare/contentiq/internal/admission"
	"github.com/solshare/contentiq/internal/config"
	dbRedis "github.com/solshare/contentiq/internal/db/redis"
	"github.com/solshare/contentiq/internal/domain"
	logpkg "github.com/solshare/contentiq/internal/logger"
	"github.com/solshare/contentiq/internal/metrics"
	blocklistrepo "github.com/solshare/contentiq/internal/repository/blocklist"
	postsrepo "github.com/solshare/contentiq/internal/repository/posts"
	chiTransport "github.com/solshare/contentiq/internal/transport/chi"
	openaiTransport "github.com/solshare/contentiq/internal/transport/openai"
	analyzeuc "github.com/solshare/contentiq/internal/usecase/analyze"
	healthuc "github.com/solshare/contentiq/internal/usecase/health"
	moderationuc "github.com/solshare/contentiq/internal/usecase/moderation"
	recommenduc "github.com/solshare/contentiq/internal/usecase/recommend"
	searchuc "github.com/solshare/contentiq/internal/usecase/search"
	"github.com/solshare/contentiq/internal/version"
)

const limiterSweepInterval = 5 * time.Minute

func main() {
	// Optional .env for local development; real environments set vars directly.
	_ = godotenv.Load()

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

	logger.Info("Starting contentiq API server",
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
		logger.Fatal("Failed to create vector store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Vector store not ready", zap.Error(err))
	}
	logger.Info("Connected to vector store")

	metrics.RegisterProviderMetrics()

	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:            cfg.Provider.APIKey,
		BaseURL:           cfg.Provider.BaseURL,
		FastModel:         cfg.Provider.FastModel,
		HighFidelityModel: cfg.Provider.HighFidelityModel,
		MaxTokens:         cfg.Provider.MaxTokens,
		Timeout:           time.Duration(cfg.Provider.TimeoutSec) * time.Second,
		Logger:            logger,
	})

	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:     logger,
	})
	docEmbedder := withInstruction(baseEmbedder, cfg.Embedding.DocumentInstruction)
	queryEmbedder := withInstruction(baseEmbedder, cfg.Embedding.QueryInstruction)
	logger.Info("Providers created",
		zap.String("fast_model", cfg.Provider.FastModel),
		zap.String("high_fidelity_model", cfg.Provider.HighFidelityModel),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	postsRepo := postsrepo.New(
		store, cfg.Collection.KeyPrefix, cfg.Collection.Name, cfg.Embedding.Dimensions,
	).WithHNSW(postsrepo.HNSWConfig{
		M:           cfg.Collection.HNSWM,
		EFConstruct: cfg.Collection.HNSWEFConstruct,
	})

	if err := postsRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure post index", zap.Error(err))
	}

	blocklist, err := blocklistrepo.Connect(ctx, cfg.Blocklist.PostgresDSN, cfg.Blocklist.Table, logger)
	if err != nil {
		logger.Fatal("Failed to connect blocklist", zap.Error(err))
	}

	fetcher := analyzeuc.NewHTTPFetcher(
		cfg.Content.IPFSGateway, time.Duration(cfg.Content.FetchTimeoutSec)*time.Second,
	)

	moderationSvc := moderationuc.New(
		generator, blocklist, domain.DefaultThresholds(), cfg.Moderation.EscalationThreshold, logger,
	)
	analyzeSvc := analyzeuc.New(generator, docEmbedder, postsRepo, fetcher, logger)
	searchSvc := searchuc.New(generator, queryEmbedder, postsRepo, logger)
	recommendSvc := recommenduc.New(generator, queryEmbedder, postsRepo, cfg.Embedding.Dimensions, logger)

	var blocklistPinger healthuc.BlocklistPinger
	if cfg.Blocklist.PostgresDSN != "" {
		blocklistPinger = blocklist
	}
	healthSvc := healthuc.New(store, baseEmbedder, blocklistPinger)

	server := chiTransport.NewServer(
		moderationSvc, analyzeSvc, searchSvc, recommendSvc, healthSvc,
		config.IsProduction(env), logger,
	)

	limiter := admission.NewLimiter(limiterRates(cfg.RateLimits))
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go limiter.RunSweeper(sweepCtx, limiterSweepInterval)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(admission.AuthMiddleware(cfg.Auth.InternalAPIKey, config.IsProduction(env)))
	r.Use(admission.RateLimitMiddleware(limiter))
	r.Use(metrics.Middleware())
	server.Routes(r)
	r.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

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

// withInstruction wraps the embedder with an instruction prefix when one is
// configured.
func withInstruction(base domain.Embedder, instruction string) domain.Embedder {
	if instruction == "" {
		return base
	}
	return domain.NewInstructionEmbedder(base, instruction)
}

func limiterRates(rates map[string]config.Rate) map[string]admission.Rate {
	out := make(map[string]admission.Rate, len(rates))
	for endpoint, r := range rates {
		out[endpoint] = admission.Rate{
			Limit:  r.Limit,
			Window: time.Duration(r.WindowSec) * time.Second,
		}
	}
	return out
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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

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
