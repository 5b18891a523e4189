package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"

	"ms-admission/internal/admission"
	"ms-admission/internal/admission/admission_api"
	"ms-admission/internal/config"
	"ms-admission/internal/database"
	"ms-admission/internal/database/migrations"
	entry_db "ms-admission/internal/entrylog/db"
	"ms-admission/internal/entrylog/history_api"
	entrylog "ms-admission/internal/entrylog/service"
	"ms-admission/internal/kafka"
	"ms-admission/internal/lock"
	"ms-admission/internal/logger"
	"ms-admission/internal/router"
	"ms-admission/internal/sse"
	ticket_db "ms-admission/internal/tickets/db"
	tickets "ms-admission/internal/tickets/service"
	"ms-admission/internal/tickets/ticket_api"
	"ms-admission/internal/utils"
)

const shutdownTimeout = 5 * time.Second

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.LogDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("APP", "Starting admission service initialization")
	if envErr != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	loc, err := utils.LoadLocation(cfg.Venue.Timezone)
	if err != nil {
		log.Fatal("CONFIG", fmt.Sprintf("Invalid VENUE_TIMEZONE %q: %v", cfg.Venue.Timezone, err))
	}
	log.Info("CONFIG", fmt.Sprintf("Venue timezone: %s", loc))

	ctx := context.Background()
	bunDB := openDatabase(ctx, cfg, log)
	defer bunDB.Close()

	locker, redisClient := newLocker(ctx, cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	clock := utils.SystemClock{Location: loc}
	ticketStore := &ticket_db.DB{Bun: bunDB}
	entryStore := &entry_db.DB{Bun: bunDB}
	emitter := sse.NewAdmissionEventEmitter()

	admissionService := admission.NewService(
		admission.NewJudge(ticketStore, entryStore, clock),
		admission.NewRecorder(entryStore, clock),
		locker,
		log,
	)
	admissionService.Emitter = emitter

	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{cfg.Kafka.AdmissionTopic}, log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.AdmissionTopic, log)
		defer producer.Close()
		admissionService.Publisher = producer
		log.Info("KAFKA", fmt.Sprintf("Publishing admissions to %s via %v", cfg.Kafka.AdmissionTopic, cfg.Kafka.Brokers))
	}

	ticketService := tickets.NewTicketService(ticketStore, clock, log)
	historyService := entrylog.NewHistoryService(entryStore, ticketService, clock, loc, log)

	log.Info("HTTP", "Setting up router and middleware")
	handler := router.New(router.Handlers{
		Admission: admission_api.NewHandler(admissionService, emitter, log, loc),
		Tickets:   ticket_api.NewHandler(ticketService, log, loc, cfg.Server.UploadMaxBytes),
		History:   history_api.NewHandler(historyService, log, loc),
	}, cfg.Server.AllowedOrigins, log)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Admission service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	} else {
		log.Info("HTTP", "Admission service shutdown complete")
	}
}

func openDatabase(ctx context.Context, cfg *config.Config, log *logger.Logger) *bun.DB {
	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}

	if cfg.Database.AutoMigrate {
		if err := migrations.NewRunner(bunDB, log).RunMigrations(); err != nil {
			log.Fatal("MIGRATE", fmt.Sprintf("Failed to run migrations: %v", err))
		}
	}
	return bunDB
}

// newLocker serialises admissions per pass. Redis is needed once more than one instance
// shares the database.
func newLocker(ctx context.Context, cfg *config.Config, log *logger.Logger) (lock.Locker, *redis.Client) {
	if !cfg.Redis.Enabled {
		log.Info("LOCK", "Using in-process pass locks")
		return lock.NewLocalLocker(), nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("REDIS", fmt.Sprintf("Redis connection successful to %s (DB: %d)", cfg.Redis.Addr, client.Options().DB))
	return lock.NewRedisLocker(client, cfg.Lock.TTL, cfg.Lock.Wait, cfg.Lock.Retry, log), client
}
