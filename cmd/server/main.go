package main

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

	"go-site-builder/internal/config"
	"go-site-builder/internal/sitemanager"
	"go-site-builder/internal/storage"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
)

// application holds the application-wide dependencies of the server.
type application struct {
	logger  *slog.Logger
	manager *sitemanager.Manager
}

func main() {
	// 1. Flags and configuration
	flags := pflag.NewFlagSet("server", pflag.ExitOnError)
	config.RegisterFlags(flags)
	flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.Log.NewLogger(os.Stdout)

	// 2. Core
	manager, err := sitemanager.FromConfig(cfg, afero.NewOsFs(), logger)
	if err != nil {
		logger.Error("Failed to initialize site manager", "error", err)
		os.Exit(1)
	}
	app := &application{logger: logger, manager: manager}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Optional definition reloading
	if cfg.Widgets.Watch {
		watcher, err := storage.NewWatcher(cfg.Widgets.Dir, manager.GetFiles(), logger)
		if err != nil {
			logger.Error("Failed to watch widgets directory", "path", cfg.Widgets.Dir, "error", err)
			os.Exit(1)
		}
		defer watcher.Close()
		go watcher.Run(ctx)
		logger.Info("Watching widget definitions", "path", cfg.Widgets.Dir)
	}

	// 4. Serve until interrupted
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           app.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", "error", err)
		}
	}()

	logger.Info("Starting server", "address", fmt.Sprintf("http://localhost%s", srv.Addr),
		"widgetsDir", cfg.Widgets.Dir, "buildDir", cfg.Build.Dir)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed to start", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
