package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	api "actionitems-backend/cmd/api"
	scheduleRepo "actionitems-backend/internal/schedule/repository"
	scheduleUsecase "actionitems-backend/internal/schedule/usecase"
	"actionitems-backend/pkg/config"
	"actionitems-backend/pkg/database"
	"actionitems-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	repo, closeRepo, err := newScheduleRepository(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("failed to initialize storage")
	}
	defer closeRepo()

	// Initialize use cases and HTTP handler
	scheduleUc := scheduleUsecase.NewScheduleUsecase(repo, log)
	handler := api.NewHandler(scheduleUc, cfg, log)

	if err := handler.Start(ctx, ":"+cfg.Port); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		closeRepo()
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}

// newScheduleRepository opens the configured backend and returns a function
// that releases its connections.
func newScheduleRepository(ctx context.Context, cfg *config.Config, log zerolog.Logger) (scheduleRepo.ScheduleRepository, func(), error) {
	noop := func() {}

	switch strings.ToLower(cfg.StorageDriver) {
	case "", "memory":
		log.Warn().Msg("using in-memory storage; schedules are lost on restart")
		return scheduleRepo.NewMemoryScheduleRepository(), noop, nil

	case "postgres":
		db, err := database.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		repo, err := scheduleRepo.NewGormScheduleRepository(db)
		if err != nil {
			closeDB()
			return nil, noop, err
		}
		log.Info().Msg("using postgres storage")
		return repo, closeDB, nil

	case "redis":
		client, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		log.Info().Str("prefix", cfg.RedisKeyPrefix).Msg("using redis storage")
		return scheduleRepo.NewRedisScheduleRepository(client, cfg.RedisKeyPrefix), func() { _ = client.Close() }, nil

	case "sqlite":
		db, err := database.NewSQLiteConnection(cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		repo, err := scheduleRepo.NewSQLiteScheduleRepository(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("using sqlite storage")
		return repo, func() { _ = db.Close() }, nil

	default:
		return nil, noop, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
}
