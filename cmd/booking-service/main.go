package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"ms-autobook/internal/auth"
	"ms-autobook/internal/booking"
	"ms-autobook/internal/booking/booking_api"
	"ms-autobook/internal/booking/db"
	"ms-autobook/internal/booking/lock"
	"ms-autobook/internal/cancellation"
	"ms-autobook/internal/config"
	"ms-autobook/internal/database/migrations"
	"ms-autobook/internal/flags"
	"ms-autobook/internal/logger"
	"ms-autobook/internal/notify"
	"ms-autobook/internal/payment"
	"ms-autobook/internal/supplier"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := config.Load()

	appLogger := logger.NewLogger()
	defer appLogger.Close()

	// --- PostgreSQL Setup ---
	connector := pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN()))
	sqldb := sql.OpenDB(connector)
	defer sqldb.Close()
	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := sqldb.Ping(); err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	// Run migrations
	migrator := migrations.NewRunner(bunDB, os.Getenv("MIGRATIONS_DIR"))
	if err := migrator.Up(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	defer migrator.Close()

	// --- Redis Setup ---
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// --- Initialize Dependencies ---
	store := &db.DB{Bun: bunDB}
	locker := &lock.Coordinator{Bun: bunDB}
	supplierClient := supplier.NewClient(
		cfg.Supplier.BaseURL,
		cfg.Supplier.ClientID,
		cfg.Supplier.ClientSecret,
		supplier.NewRedisTokenCache(redisClient),
		appLogger,
	)
	paymentClient := payment.NewClient(cfg.Stripe.SecretKey, appLogger)
	if err := notify.EnsureTopicExists(cfg.Kafka.Brokers); err != nil {
		log.Printf("Could not ensure Kafka topic exists: %v", err)
	}
	producer := notify.NewProducer(cfg.Kafka.Brokers, appLogger)
	defer producer.Close()

	orchestrator := booking.NewOrchestrator(locker, supplierClient, paymentClient, store, appLogger)
	orchestrator.Notifier = producer
	canceler := cancellation.NewCoordinator(store, supplierClient, paymentClient, producer, appLogger)
	flagStore := flags.NewStore(redisClient, appLogger)
	handler := booking_api.NewHandler(orchestrator, canceler, flagStore, appLogger)

	// --- Setup Router ---
	r := chi.NewRouter()
	handler.Routes(r, auth.Middleware(cfg.Auth.OIDCIssuer))

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("Booking service running on %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received. Cleaning up...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited gracefully")
}
