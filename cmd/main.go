package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	httpapi "github.com/soniva/soniva/internal/api/http"
	"github.com/soniva/soniva/internal/auth"
	"github.com/soniva/soniva/internal/config"
	"github.com/soniva/soniva/internal/queue"
	"github.com/soniva/soniva/internal/realtime"
	"github.com/soniva/soniva/internal/repository"
	"github.com/soniva/soniva/internal/repository/model"
	"github.com/soniva/soniva/internal/service"
	"github.com/soniva/soniva/lib/logger/slogpretty"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)

	db, err := connectDatabase(cfg.Database)
	if err != nil {
		log.Error("failed to connect database", slog.Any("error", err))
		os.Exit(1)
	}

	roomRepo := repository.NewPostgresRoomRepository(db)
	memberRepo := repository.NewPostgresMembershipRepository(db)
	seatRepo := repository.NewPostgresSeatRepository(db)
	requestRepo := repository.NewPostgresMicRequestRepository(db)
	messageRepo := repository.NewPostgresMessageRepository(db)
	userRepo := repository.NewPostgresUserRepository(db)

	cache := connectRedis(cfg.Redis, log)
	publisher := queue.NewPublisher(cfg.Queue.AMQPURL, log)
	locks := service.NewRoomLocks()

	roomService := service.NewRoomService(roomRepo, memberRepo, seatRepo, messageRepo, userRepo, locks, cache, publisher, log)
	seatService := service.NewSeatService(roomRepo, seatRepo, requestRepo, locks, log)
	userService := service.NewUserService(userRepo, log)

	tokens := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	registry := realtime.NewRegistry(log)

	roomController := httpapi.NewRoomController(roomService, seatService)
	userController := httpapi.NewUserController(userService, tokens)
	gateway := httpapi.NewRoomGateway(roomService, userService, tokens, registry, log)

	router := httpapi.SetupRouter(roomController, userController, gateway, tokens)

	log.Info("starting application", slog.String("addr", cfg.HTTP.Address))
	if err := router.Run(cfg.HTTP.Address); err != nil {
		log.Error("http server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = setupPrettySlog()
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}

func connectDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database dsn is empty")
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.Room{},
		&model.Seat{},
		&model.Membership{},
		&model.MicRequest{},
		&model.RoomMessage{},
	); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnLifetime)

	return db, nil
}

// connectRedis returns nil when no address is configured; the room service
// treats a nil client as cache-off.
func connectRedis(cfg config.RedisConfig, log *slog.Logger) *redis.Client {
	if cfg.Address == "" {
		log.Info("redis not configured, room list cache disabled")
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
