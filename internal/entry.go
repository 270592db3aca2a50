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

	"github.com/starford/learnvex/internal/api"
	"github.com/starford/learnvex/internal/catalog"
	"github.com/starford/learnvex/internal/courseservice"
	"github.com/starford/learnvex/internal/editor"
	"github.com/starford/learnvex/internal/mcpserver"
	"github.com/starford/learnvex/internal/seed"
	"github.com/starford/learnvex/internal/sse"
	"github.com/starford/learnvex/internal/storage"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	// Initialize structured JSON logger.
	app.logger = slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(app.logger)
	return app, nil
}

// newObjectStore builds the configured object store for course media.
func newObjectStore(ctx context.Context, cfg *Config) (storage.Provider, error) {
	switch cfg.Storage.Driver {
	case StorageDriverS3:
		return storage.NewS3(ctx, cfg.Storage.S3.Options())
	default:
		return storage.NewFS(cfg.Storage.FS.Path, cfg.App.HTTP.BaseURL(), []byte(cfg.Storage.FS.Secret))
	}
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("seed_path", cfg.Seed.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	objects, err := newObjectStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	db, err := catalog.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init catalog: %w", err)
	}
	defer db.Close()

	// SSE broker.
	broker := sse.NewBroker(cfg.Events.CatalogThrottle)
	defer broker.Close()

	svc := courseservice.NewService(db, broker, logger.With(slog.String("component", "courseservice")))

	// Import seed outlines before serving.
	if cfg.Seed.Enabled() {
		if _, err := seed.Sync(ctx, svc, cfg.Seed.Path, logger); err != nil {
			logger.Warn("initial seed failed", slog.String("error", err.Error()))
		}
	}

	apiRouter := api.NewRouter(svc, objects, api.Options{
		AuthEnabled:  cfg.Auth.AuthEnabled(),
		Token:        cfg.Auth.Token,
		Events:       broker,
		UpdateLimit:  cfg.RateLimit.Updates,
		UpdateWindow: cfg.RateLimit.Window,
	})

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
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch seed outlines and announce imported courses.
	if cfg.Seed.Enabled() && cfg.Seed.Watch {
		g.Go(func() error {
			return seed.Watch(gCtx, svc, cfg.Seed.Path, logger, func(slugs []string) {
				logger.Info("seed watcher: imported courses", slog.Any("slugs", slugs))
			})
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
		defer signal.Stop(quit)

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

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group once the server has been shut down so that
// background watchers stop too.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio against the local catalog.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	db, err := catalog.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init catalog: %w", err)
	}
	defer db.Close()

	objects, err := newObjectStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	svc := courseservice.NewService(db, nil, logger.With(slog.String("component", "courseservice")))
	editors := editor.NewManager(svc, svc, logger.With(slog.String("component", "editor")))
	defer editors.Close()

	logger.Info("MCP server starting", slog.String("sqlite_path", cfg.SQLite.Path))
	return mcpserver.New(svc, editors, objects).ServeStdio()
}
