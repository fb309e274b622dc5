// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/trolley/internal/api"
	"github.com/starford/trolley/internal/cartclient"
	"github.com/starford/trolley/internal/panel"
	"github.com/starford/trolley/internal/presets"
	"github.com/starford/trolley/internal/render"
	"github.com/starford/trolley/internal/sse"
	"github.com/starford/trolley/internal/upstream"
	"github.com/starford/trolley/pkg/config"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{logOut: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.Bool("embedded_upstream", cfg.Upstream.Embedded),
		slog.String("presets_path", cfg.Panel.PresetsPath),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Timing presets with hot reload.
	store := presets.NewStore(presets.Default())
	loadPresets := func() (presets.Durations, error) {
		var raw presets.Raw
		if err := config.Load(cfg.Panel.PresetsPath, &raw); err != nil {
			return presets.Durations{}, err
		}
		return presets.Parse(raw)
	}
	if cfg.Panel.PresetsPath != "" {
		if d, err := loadPresets(); err != nil {
			logger.Warn("presets load failed, using defaults", slog.String("error", err.Error()))
		} else {
			store.Swap(d)
		}
	}

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Cart backend: either the embedded sqlite demo cart mounted on this
	// server, or a remote service named in the config.
	baseURL := cfg.Upstream.BaseURL
	if cfg.Upstream.Embedded {
		db, err := upstream.Open(cfg.Upstream.SQLitePath)
		if err != nil {
			return fmt.Errorf("init embedded cart: %w", err)
		}
		defer db.Close()
		if err := db.Seed(cfg.Upstream.Seed); err != nil {
			return fmt.Errorf("seed embedded cart: %w", err)
		}
		r.Mount("/demo", upstream.NewHandler(db).Router())
		baseURL = fmt.Sprintf("http://127.0.0.1:%d/demo", cfg.App.HTTP.Port)
		logger.Info("Embedded cart mounted", slog.String("base_url", baseURL))
	}

	client, err := cartclient.New(baseURL, cfg.Upstream.ReadPath, cfg.Upstream.MutatePath,
		cfg.Upstream.Token, cfg.Upstream.TimeoutDuration())
	if err != nil {
		return fmt.Errorf("init cart client: %w", err)
	}

	// SSE broker; badge events are throttled.
	broker := sse.NewBroker(time.Second)
	defer broker.Close()

	// Panel engine. With an embedded upstream the first refresh has to
	// wait for the listener, so startup stays manual; the first show or
	// refresh call populates the panel.
	p := panel.New(panel.Config{
		Client:   client,
		Renderer: render.NewRegistry(),
		Notifier: broker,
		Timings:  store.Current,
		Logger:   logger,
		Manual:   cfg.Panel.Manual || cfg.Upstream.Embedded,
	})
	defer p.Close()

	// Mount API routes under /api. The router serves /api/events itself.
	r.Mount("/api", api.NewRouter(p, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the presets file for timing changes.
	if cfg.Panel.PresetsPath != "" {
		g.Go(func() error {
			if err := store.Watch(gCtx, cfg.Panel.PresetsPath, logger, loadPresets); err != nil {
				logger.Warn("presets watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
