// Stock Analysis Agent server.
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

	"github.com/ashureev/stock-analyst/internal/analyst"
	"github.com/ashureev/stock-analyst/internal/api"
	"github.com/ashureev/stock-analyst/internal/config"
	"github.com/ashureev/stock-analyst/internal/identity"
	"github.com/ashureev/stock-analyst/internal/llm"
	"github.com/ashureev/stock-analyst/internal/llm/openai"
	"github.com/ashureev/stock-analyst/internal/middleware"
	"github.com/ashureev/stock-analyst/internal/session"
	"github.com/ashureev/stock-analyst/internal/tools"
	"github.com/ashureev/stock-analyst/internal/tools/duckduckgo"
	"github.com/ashureev/stock-analyst/internal/tools/yfinance"
	"github.com/ashureev/stock-analyst/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
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

	profile, err := analyst.DefaultProfile()
	if err != nil {
		slog.Error("Failed to load agent profile", "error", err)
		os.Exit(1)
	}
	if cfg.Model != "" {
		profile.Model = cfg.Model
	}

	// Leave provider as a nil interface without credentials so each
	// submission reports the missing key instead of failing at startup.
	var provider llm.Provider
	if cfg.HasCredentials() {
		provider = openai.NewClient(cfg.GroqAPIKey, cfg.GroqBaseURL)
	} else {
		slog.Warn("GROQ_API_KEY not set, analysis requests will fail until it is configured")
	}

	factory := &analyst.Factory{
		Profile:  profile,
		Provider: provider,
		Finance: yfinance.NewClient(cfg.Tools.YahooBaseURL,
			tools.NewFetcher(nil, cfg.Tools.Timeout, cfg.Tools.RequestsPerMinute),
			yfinance.WithCookieURL(cfg.Tools.YahooCookieURL)),
		Search: duckduckgo.NewClient(cfg.Tools.DuckDuckGoBaseURL,
			tools.NewFetcher(nil, cfg.Tools.Timeout, cfg.Tools.RequestsPerMinute),
			duckduckgo.WithNewsURLs(cfg.Tools.DuckDuckGoSiteURL, cfg.Tools.DuckDuckGoLinksURL)),
		MaxTurns: cfg.MaxTurns,
	}
	slog.Info("Agent profile loaded", "name", profile.Name, "model", profile.Model)

	sessions := session.NewManager(factory.New)

	tmpl, err := web.Templates()
	if err != nil {
		slog.Error("Failed to parse templates", "error", err)
		os.Exit(1)
	}
	handler := api.NewHandler(sessions, tmpl, cfg.MaxRequestBodySize)

	// Session IDs are client-chosen, so the per-session limit is backed by a
	// looser per-address one. RealIP only rewrites the address when proxy
	// headers are trusted.
	sessionLimit := middleware.RateLimit(
		middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst),
		func(r *http.Request) string { return identity.SessionIDFromContext(r.Context()) },
		handler.RateLimited)
	peerLimit := middleware.RateLimit(
		middleware.NewRateLimiter(cfg.RateLimit.PeerRequestsPerMinute, cfg.RateLimit.Burst*3),
		identity.PeerKey,
		handler.RateLimited)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(chiMiddleware.RealIP)
	}
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	handler.RegisterRoutes(r,
		[]func(http.Handler) http.Handler{peerLimit, sessionLimit},
		[]func(http.Handler) http.Handler{middleware.CORS(cfg.AllowedOrigins)},
	)
	r.Handle("/static/*", web.StaticHandler())

	// Agent runs are synchronous and may take a while; WriteTimeout leaves
	// room for several model and tool round trips.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session.StartSweeper(ctx, sessions, cfg.SweepInterval, cfg.SessionTTL)

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
