package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"anoa.com/librarydesk/internal/bootstrap"
	"anoa.com/librarydesk/internal/config"
	"anoa.com/librarydesk/internal/server"
	"anoa.com/librarydesk/pkg/database"
	"anoa.com/librarydesk/pkg/logger"
	"github.com/redis/go-redis/v9"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Setup(logger.Config{Environment: cfg.AppEnv, Level: cfg.LogLevel})

	db, err := database.Connect(database.Options{
		Driver:     cfg.DBDriver,
		Host:       cfg.DBHost,
		User:       cfg.DBUser,
		Password:   cfg.DBPassword,
		Name:       cfg.DBName,
		Port:       cfg.DBPort,
		SQLitePath: cfg.SQLitePath,
		LogLevel:   gormlogger.Warn,
	})
	if err != nil {
		slog.Error("failed to connect database", "error", err)
		os.Exit(1)
	}

	if err := bootstrap.Migrate(db); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	if cfg.AppEnv == "development" {
		if err := bootstrap.SeedDemoAccounts(db); err != nil {
			slog.Error("failed to seed demo accounts", "error", err)
			os.Exit(1)
		}
	}

	redisClient := connectRedis(cfg.RedisURL)
	if redisClient != nil {
		defer redisClient.Close()
	}

	srv, err := server.NewServer(cfg, db, redisClient)
	if err != nil {
		slog.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

// connectRedis returns nil when REDIS_URL is unset or unreachable; the
// server then runs without the redis-backed features.
func connectRedis(url string) *redis.Client {
	if url == "" {
		slog.Warn("REDIS_URL not set, running without redis")
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		slog.Warn("invalid REDIS_URL, running without redis", "error", err)
		return nil
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		slog.Warn("redis unreachable, running without redis", "error", err)
		_ = client.Close()
		return nil
	}

	slog.Info("connected to redis", "addr", opts.Addr)
	return client
}
