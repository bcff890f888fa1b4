package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/fjod/storefront/internal/api"
	"github.com/fjod/storefront/internal/app"
	"github.com/fjod/storefront/internal/config"
	"github.com/fjod/storefront/internal/session"
	"github.com/fjod/storefront/internal/shell"
	"github.com/fjod/storefront/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "storefront:", err)
		os.Exit(1)
	}
}

func run() error {
	envFile := flag.String("env-file", ".env", "optional file with environment variables")
	apiBase := flag.String("api-base", "", "storefront API base URL (overrides STOREFRONT_API_BASE)")
	backend := flag.String("session-backend", "", "session store: memory, redis or sqlite (overrides SESSION_BACKEND)")
	logLevel := flag.String("log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	dev := flag.Bool("dev", false, "human-readable logs (overrides LOG_DEV)")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	if flag.CommandLine.Changed("api-base") {
		cfg.APIBase = *apiBase
	}
	if flag.CommandLine.Changed("session-backend") {
		cfg.SessionBackend = *backend
	}
	if flag.CommandLine.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if flag.CommandLine.Changed("dev") {
		cfg.LogDev = *dev
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessions, err := openSessionStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer sessions.Close()

	client := api.NewClient(api.Config{
		BaseURL:           cfg.APIBase,
		CategoriesTimeout: cfg.CategoriesTimeout,
		Breaker:           cfg.Breaker,
	}, log.Named("api"))

	a := app.New(client, sessions, log)
	if err := a.Start(ctx); err != nil {
		log.Warn("could not restore session", zap.Error(err))
	}
	if s, ok := a.Auth.Session(); ok {
		fmt.Printf("welcome back, %s\n", s.Name)
	}

	log.Info("storefront started",
		zap.String("api", cfg.APIBase),
		zap.String("session_backend", cfg.SessionBackend))

	sh := shell.New(a, os.Stdout, log.Named("shell"))
	fmt.Println("type help for a list of commands")
	if err := sh.Run(ctx, os.Stdin); err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	log.Info("storefront stopped")
	return nil
}

func openSessionStore(ctx context.Context, cfg config.Config, log *zap.Logger) (session.Store, error) {
	switch cfg.SessionBackend {
	case config.BackendRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisClient.Close()
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		log.Info("redis ping succeeded", zap.String("addr", cfg.RedisAddr))
		return session.NewRedisStore(redisClient, cfg.SessionTTL), nil
	case config.BackendSQLite:
		store, err := session.NewSQLiteStore(cfg.SessionDBPath)
		if err != nil {
			return nil, err
		}
		log.Info("session database opened", zap.String("path", cfg.SessionDBPath))
		return store, nil
	default:
		return session.NewMemoryStore(), nil
	}
}
