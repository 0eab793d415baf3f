package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"ms-autobook/internal/booking/db"
	"ms-autobook/internal/config"
	"ms-autobook/internal/logger"
	"ms-autobook/internal/notify"
)

func main() {
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

	if err := sqldb.Ping(); err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	if err := notify.EnsureTopicExists(cfg.Kafka.Brokers); err != nil {
		log.Printf("Could not ensure Kafka topic exists: %v", err)
	}

	store := &db.DB{Bun: bunDB}
	consumer := notify.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, store, appLogger)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutdown signal received, stopping consumer...")
		cancel()
	}()

	consumer.Start(ctx)
	log.Println("Notify worker exited gracefully")
}
