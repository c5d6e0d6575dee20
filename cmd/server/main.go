// MedAssist - medication reminder and health information chat server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/medassist/medassist/internal/api"
	"github.com/medassist/medassist/internal/classify"
	"github.com/medassist/medassist/internal/config"
	"github.com/medassist/medassist/internal/dialogue"
	"github.com/medassist/medassist/internal/identity"
	"github.com/medassist/medassist/internal/knowledge"
	"github.com/medassist/medassist/internal/metrics"
	"github.com/medassist/medassist/internal/middleware"
	"github.com/medassist/medassist/internal/retrieval"
	"github.com/medassist/medassist/internal/store"
	"github.com/medassist/medassist/internal/sweeper"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	kb, err := knowledge.LoadFile(cfg.KnowledgePath)
	if err != nil {
		slog.Error("Failed to load knowledge base", "error", err, "path", cfg.KnowledgePath)
		os.Exit(1)
	}

	collector := metrics.NewCollector("medassist")

	sources := retrieval.Sources{
		Knowledge:     kb,
		WikipediaURL:  cfg.Providers.WikipediaURL,
		HealthGovURL:  cfg.Providers.HealthGovURL,
		OpenFDAURL:    cfg.Providers.OpenFDAURL,
		WebSearchURL:  cfg.Providers.WebSearchURL,
		WebSearchSite: cfg.Providers.WebSearchSite,
		Timeout:       cfg.Providers.Timeout,
		Logger:        logger,
	}
	if cfg.Providers.GeminiAPIKey != "" {
		gen, err := retrieval.NewGeminiGenerator(context.Background(), cfg.Providers.GeminiAPIKey, cfg.Providers.GeminiModel)
		if err != nil {
			slog.Warn("Failed to initialize Gemini, generative answers disabled", "error", err)
		} else {
			sources.Generator = gen
			slog.Info("Generative answers enabled", "model", cfg.Providers.GeminiModel)
		}
	} else {
		slog.Info("Generative answers disabled (GEMINI_API_KEY not set)")
	}
	retriever := retrieval.NewDefaultService(sources, retrieval.WithObserver(collector))

	machine := dialogue.New(dialogue.Deps{
		Sessions:   repo,
		Reminders:  repo,
		History:    repo,
		Retriever:  retriever,
		Classifier: classify.New(kb),
		Observer:   collector,
		Logger:     logger,
	})

	// Initialize handlers.
	handler := api.NewHandler(api.Deps{
		Engine:       machine,
		Reminders:    repo,
		History:      repo,
		DB:           repo,
		HistoryLimit: cfg.ChatHistoryLimit,
		MaxBodySize:  cfg.MaxRequestBodySize,
	})
	var originPatterns []string
	if cfg.IsDevelopment() {
		originPatterns = []string{"*"}
	} else {
		originPatterns = cfg.AllowedOrigins()
	}
	chatSocket := api.NewChatSocket(machine, originPatterns, cfg.MaxRequestBodySize)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(collector.Middleware)
	r.Use(middleware.CORS(cfg.AllowedOrigins()))

	// Public routes.
	r.Handle("/metrics", collector.Handler())

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Requests > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		defer limiter.Stop()
	}

	// Chat routes carry an anonymous identity and are rate limited per user.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo, cfg.IsDevelopment()))
		if limiter != nil {
			r.Use(limiter.Middleware)
		}

		handler.RegisterRoutes(r)
		r.Get("/ws/chat", chatSocket.ServeHTTP)
	})

	// Create server.
	// WebSocket connections are long-lived, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start session sweeper.
	sweeper.New(repo, machine, collector, cfg.Session.IdleTTL, cfg.Session.SweepInterval).Start(ctx)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
