package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/terra-clan/studyhub/internal/api"
	"github.com/terra-clan/studyhub/internal/cleanup"
	"github.com/terra-clan/studyhub/internal/config"
	"github.com/terra-clan/studyhub/internal/content"
	"github.com/terra-clan/studyhub/internal/metrics"
)

const usage = `usage: studyhub <command> [flags]

commands:
  serve          run the HTTP API (default)
  seed           load the demo catalog (-clear removes courses and categories first)
  create-admin   create an administrator account
`

func main() {
	// Setup structured logging
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	command, args := "serve", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log))

	switch command {
	case "serve":
		err = serve(cfg)
	case "seed":
		err = seed(cfg, args)
	case "create-admin":
		err = createAdmin(cfg, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		slog.Error("command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func serve(cfg *config.Config) error {
	slog.Info("starting studyhub",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Driver,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	a, err := newApp(initCtx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// Initialize cleanup worker
	cleaner := cleanup.NewCleaner(a.repo, cfg.Cleanup.Interval, cleanup.WithPurgeHook(metrics.RecordSessionsPurged))

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start cleanup worker
	cleaner.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, a.svc, a.health)
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("HTTP server error: %w", err)
	}

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("studyhub stopped")
	return nil
}

func seed(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	clearFirst := fs.Bool("clear", false, "remove all courses and categories before seeding")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := content.NewSeeder(a.repo).Seed(ctx, a.content.Seed(), *clearFirst)
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}

	slog.Info("catalog seeded",
		"tutor", result.Tutor,
		"tutor_created", result.TutorCreated,
		"categories", result.Categories,
		"categories_created", result.CategoriesCreated,
		"courses_created", result.CoursesCreated,
		"cleared", result.Cleared,
	)
	return nil
}

func createAdmin(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	username := fs.String("username", "", "admin username")
	email := fs.String("email", "", "admin email")
	password := fs.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password (defaults to $ADMIN_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.svc.BootstrapAdmin(ctx, *username, *email, *password)
	if err != nil {
		return err
	}

	fmt.Printf("admin %q created (id %d)\n", user.Username, user.ID)
	return nil
}
