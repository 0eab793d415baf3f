package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Supplier SupplierConfig
	Stripe   StripeConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// DSN renders the postgres connection string for the pg driver.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
}

type SupplierConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
}

type StripeConfig struct {
	SecretKey string
}

type AuthConfig struct {
	OIDCIssuer string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Username:     getEnv("DB_USERNAME", "autobook_user"),
			Password:     getEnv("DB_PASSWORD", "autobook_pass"),
			Database:     getEnv("DB_NAME", "autobook"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Kafka: KafkaConfig{
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			GroupID: getEnv("KAFKA_GROUP_ID", "autobook-notify"),
		},
		Supplier: SupplierConfig{
			BaseURL:      getEnv("SUPPLIER_BASE_URL", "https://test.api.amadeus.com"),
			ClientID:     getEnv("SUPPLIER_CLIENT_ID", ""),
			ClientSecret: getEnv("SUPPLIER_CLIENT_SECRET", ""),
		},
		Stripe: StripeConfig{
			SecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		},
		Auth: AuthConfig{
			OIDCIssuer: getEnv("OIDC_ISSUER", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
