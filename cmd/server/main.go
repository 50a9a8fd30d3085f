// Command server runs the BoostedCalls HTTP server: the proxy routes for
// calls, contacts, and call scripts, the real-time event stream, and the
// revalidation webhook that fans events out to connected clients.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boostedcalls/boostedcalls/internal/api"
	"github.com/boostedcalls/boostedcalls/internal/auth"
	"github.com/boostedcalls/boostedcalls/internal/config"
	"github.com/boostedcalls/boostedcalls/internal/events"
	"github.com/boostedcalls/boostedcalls/internal/httpserver"
	"github.com/boostedcalls/boostedcalls/internal/logger"
	"github.com/boostedcalls/boostedcalls/internal/observability"
	"github.com/boostedcalls/boostedcalls/internal/resilience"
	"github.com/boostedcalls/boostedcalls/internal/stream"
	"github.com/boostedcalls/boostedcalls/internal/upstream"
	"github.com/boostedcalls/boostedcalls/internal/viewcache"
	"github.com/boostedcalls/boostedcalls/internal/webhook"
)

const serviceName = "boostedcalls"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg config.Config
	if err := config.Load(serviceName, &cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyDefaults()
	if cfg.Version == "" {
		cfg.Version = httpserver.Version
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Init(cfg.Logging)
	log := logger.GetGlobalLogger()
	log.Info("starting server", logger.Fields(
		"environment", cfg.Environment,
		"version", cfg.Version,
	))

	ctx := context.Background()

	provider, err := observability.Init(ctx, cfg.Name, cfg.Version, cfg.Environment, cfg.Observability)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Warn("observability shutdown failed", logger.Fields(logger.FieldError, err.Error()))
		}
	}()

	var metrics *observability.Metrics
	if provider != nil {
		metrics, err = observability.NewMetrics()
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
	}

	hub := events.NewHub(log)
	views := viewcache.New(cfg.Cache.ViewTTL)

	upstreamCfg := cfg.Upstream
	upstreamCfg.Retry = upstream.DefaultRetryConfig()
	upstreamCfg.CircuitBreaker = &resilience.CircuitBreakerConfig{
		OnStateChange: func(from, to resilience.CircuitState) {
			log.Warn("upstream circuit state changed", logger.Fields(
				"from", from.String(),
				"to", to.String(),
			))
		},
	}
	client, err := upstream.New(upstreamCfg, log)
	if err != nil {
		return fmt.Errorf("init upstream client: %w", err)
	}

	verifier, err := auth.NewVerifier(cfg.Auth)
	if err != nil {
		return fmt.Errorf("init token verifier: %w", err)
	}

	streamHandler := stream.NewHandler(hub, log,
		stream.WithKeepAliveInterval(cfg.Stream.KeepAliveInterval),
		stream.WithMetrics(metrics),
	)
	webhookHandler := webhook.NewHandler(hub, views, cfg.Webhook.Secret, log,
		webhook.WithObserver(func(eventType string, notified []string) {
			metrics.RecordWebhook(ctx, eventType)
			for _, channel := range notified {
				metrics.RecordEventPublished(ctx, channel)
			}
		}),
	)

	server := httpserver.New(cfg.Server, log)
	server.ApplyMiddleware()
	api.RegisterRoutes(server.GinEngine(), api.RouterDeps{
		ServiceName: cfg.Name,
		Hub:         hub,
		Stream:      streamHandler,
		Webhook:     webhookHandler,
		Upstream:    client,
		Views:       views,
		Verifier:    verifier,
		Log:         log,
	})

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	log.Info("server listening", logger.Fields("addr", server.Addr()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", logger.Fields("signal", sig.String()))

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop server: %w", err)
	}
	log.Info("server stopped")
	return nil
}
