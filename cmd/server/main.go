// Research Plan Wizard - chat server guiding students through a classroom
// research project.
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

	"github.com/ashureev/research-wizard/internal/api"
	"github.com/ashureev/research-wizard/internal/completion"
	"github.com/ashureev/research-wizard/internal/config"
	"github.com/ashureev/research-wizard/internal/flow"
	"github.com/ashureev/research-wizard/internal/identity"
	"github.com/ashureev/research-wizard/internal/middleware"
	"github.com/ashureev/research-wizard/internal/prompt"
	"github.com/ashureev/research-wizard/internal/wizard"
	"github.com/ashureev/research-wizard/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize the wizard pipeline.
	catalog, err := prompt.NewCatalog()
	if err != nil {
		slog.Error("Failed to load prompt catalog", "error", err)
		os.Exit(1)
	}

	completer := completion.NewClient(completion.Config{
		BaseURL: cfg.ProviderBaseURL,
		APIKey:  cfg.ProviderAPIKey,
		Model:   cfg.ProviderModel,
		Timeout: cfg.CompletionTimeout,
	}, logger)

	controller := flow.NewController(catalog, flow.NewCueDetector(), cfg.TranscriptLimit)
	mgr := wizard.NewManager(completer, controller, cfg.SessionTTL)

	// Initialize handlers.
	wizardHandler := api.NewHandler(mgr)
	streamHandler := api.NewStreamHandler()
	mgr.SetNotifier(streamHandler)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	// Wizard API routes.
	wizardHandler.RegisterRoutes(r)

	// WebSocket endpoint for live stage/summary events.
	r.Get("/ws/wizard", streamHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // completions can be slow; the client timeout bounds them
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start idle session sweeper.
	mgr.StartSweeper(ctx)

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
