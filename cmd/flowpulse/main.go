// Command flowpulse runs the event-response engine: it ingests developer
// workflow events over HTTP and NATS, scores and plans responses, and
// executes the resulting actions.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	fphttp "github.com/avely-dev/flowpulse/internal/adapter/http"
	"github.com/avely-dev/flowpulse/internal/adapter/litellm"
	fpnats "github.com/avely-dev/flowpulse/internal/adapter/nats"
	fpotel "github.com/avely-dev/flowpulse/internal/adapter/otel"
	"github.com/avely-dev/flowpulse/internal/adapter/ristretto"
	"github.com/avely-dev/flowpulse/internal/adapter/ws"
	"github.com/avely-dev/flowpulse/internal/config"
	fpexec "github.com/avely-dev/flowpulse/internal/executor"
	"github.com/avely-dev/flowpulse/internal/logger"
	"github.com/avely-dev/flowpulse/internal/memory"
	fpmw "github.com/avely-dev/flowpulse/internal/middleware"
	"github.com/avely-dev/flowpulse/internal/port/notifier"
	"github.com/avely-dev/flowpulse/internal/port/reviewer"
	"github.com/avely-dev/flowpulse/internal/resilience"
	"github.com/avely-dev/flowpulse/internal/service"

	// Registered notifier adapters.
	_ "github.com/avely-dev/flowpulse/internal/adapter/console"
	_ "github.com/avely-dev/flowpulse/internal/adapter/discord"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.New(cfg.Logging)
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"nats_url", cfg.NATS.URL,
		"reviewer_enabled", cfg.Reviewer.Enabled,
	)

	ctx := context.Background()

	// --- Infrastructure ---

	// NATS
	queue, err := fpnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	// Dedup cache
	dedup, err := ristretto.New(cfg.Executor.CacheSizeMB << 20)
	if err != nil {
		return fmt.Errorf("dedup cache: %w", err)
	}
	defer dedup.Close()

	// Metrics
	metrics, err := fpotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Notifiers ---
	providers := make([]notifier.Notifier, 0, len(cfg.Notify.Providers))
	for _, name := range cfg.Notify.Providers {
		n, err := notifier.New(name, map[string]string{
			"webhook_url": cfg.Notify.Discord.WebhookURL,
		})
		if err != nil {
			return fmt.Errorf("notifier %q: %w", name, err)
		}
		providers = append(providers, n)
	}
	notifySvc := service.NewNotificationService(providers, log)

	// --- Core pipeline ---
	mem := memory.NewStore(cfg.Memory.RecentPayloads)
	exec := fpexec.New(notifySvc, dedup, cfg.Executor.DedupTTL)

	var rev reviewer.Reviewer
	if cfg.Reviewer.Enabled {
		llm := litellm.NewReviewer(cfg.Reviewer.URL, cfg.Reviewer.APIKey, cfg.Reviewer.Model, cfg.Reviewer.Timeout)
		llm.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
		rev = llm
	}
	reviewSvc := service.NewReviewService(rev, log)

	hub := ws.NewHub()
	pipeline := service.NewPipelineService(mem, exec, reviewSvc, log, service.PipelineOptions{
		Queue:         queue,
		Hub:           hub,
		Metrics:       metrics,
		MaxInFlight:   cfg.Pipeline.MaxInFlight,
		RecordHistory: cfg.Pipeline.RecordHistory,
	})

	if err := pipeline.Start(ctx, cfg.Memory.ConsolidateEvery, cfg.Memory.ConsolidateAfter); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	// --- HTTP ---
	handlers := &fphttp.Handlers{
		Pipeline: pipeline,
		Hub:      hub,
	}

	r := chi.NewRouter()

	r.Use(corsMiddleware(cfg.Server.CORSOrigin))
	r.Use(fpmw.RequestID)
	r.Use(fpotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/health", healthHandler(cfg))

	fphttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := pipeline.Stop(shutdownCtx); err != nil {
		slog.Warn("pipeline drain incomplete", "error", err)
	}

	return srv.Shutdown(shutdownCtx)
}

// corsMiddleware allows the configured origin for browser clients.
func corsMiddleware(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// healthHandler reports service health and the configured collaborators.
func healthHandler(cfg *config.Config) http.HandlerFunc {
	type healthStatus struct {
		Status    string   `json:"status"`
		NATS      string   `json:"nats"`
		Reviewer  string   `json:"reviewer"`
		Notifiers []string `json:"notifiers"`
	}

	reviewerState := "disabled"
	if cfg.Reviewer.Enabled {
		reviewerState = cfg.Reviewer.URL
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		status := healthStatus{
			Status:    "ok",
			NATS:      cfg.NATS.URL,
			Reviewer:  reviewerState,
			Notifiers: cfg.Notify.Providers,
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}
