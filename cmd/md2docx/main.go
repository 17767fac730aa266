package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	"md2docx/internal/config"
	"md2docx/internal/http/server"
	"md2docx/internal/infra/cache"
	"md2docx/internal/infra/logging"
	"md2docx/internal/infra/ratelimit"
	"md2docx/internal/infra/tokens"
	"md2docx/internal/pandoc"
)

func main() {
	fs := flag.NewFlagSet("md2docx", flag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "path to the YAML config file (overrides CONFIG_PATH)")
	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *configPath != "" {
		_ = os.Setenv("CONFIG_PATH", *configPath)
	}

	cfg := config.Load()
	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)

	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		logging.Debug(fmt.Sprintf(format, args...))
	}))

	idleConnsClosed := make(chan struct{})
	deps, cleanup := buildDeps(cfg, idleConnsClosed)
	defer cleanup()

	app, err := server.New(deps)
	if err != nil {
		logging.Error("Failed to build server", "error", err)
		os.Exit(1)
	}

	logging.Info("Starting md2docx", "addr", cfg.Server.Host+cfg.Server.Port, "pandoc", cfg.Pandoc.Path)
	startServer(app, cfg, idleConnsClosed)
	<-idleConnsClosed
}

// buildDeps wires the optional Redis and Postgres collaborators. Missing
// infrastructure degrades features instead of stopping the service.
func buildDeps(cfg config.Config, stop <-chan struct{}) (server.Deps, func()) {
	deps := server.Deps{
		Config:    cfg,
		Converter: pandoc.NewConverter(cfg.Pandoc),
	}
	var closers []func()

	if cfg.Cache.Enabled && cfg.Cache.RedisHost != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisHost,
			DB:   cfg.Cache.ResultDB,
		})
		deps.Cache = cache.New(rdb, cfg.Cache.TTL)
		closers = append(closers, func() { _ = rdb.Close() })
	}

	deps.Storage = ratelimit.NewStore(ratelimit.RedisConfig{
		Addr: cfg.Cache.RedisHost,
		DB:   cfg.Cache.RateLimitDB,
	})

	if cfg.Auth.Postgres.Enabled() {
		store := tokens.NewStore(cfg.Auth.Postgres)
		if err := store.Load(context.Background()); err != nil {
			logging.Error("Failed to load API tokens", "error", err)
		}
		go store.RefreshPeriodically(cfg.Auth.RefreshInterval, stop)
		deps.Tokens = store
		closers = append(closers, func() { _ = store.Close() })
	}

	return deps, func() {
		for _, c := range closers {
			c()
		}
	}
}

// startServer starts the Fiber app and listens for shutdown signals
func startServer(app *fiber.App, cfg config.Config, idleConnsClosed chan struct{}) {
	go func() {
		if err := app.Listen(cfg.Server.Host + cfg.Server.Port); err != nil {
			logging.Error("Server error", "error", err)
		}
	}()

	// Listen for OS termination signals
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	<-sigint
	signal.Stop(sigint)

	logging.Warn("Shutdown signal received, closing server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
	}

	close(idleConnsClosed)
	logging.Info("Server stopped cleanly")
}
