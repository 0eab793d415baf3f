package flags

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"ms-autobook/internal/logger"
)

// AutoBookingFlag is the Redis key gating the auto-booking endpoint.
const AutoBookingFlag = "feature:auto_booking_enabled"

// Store reads feature flags from Redis. A missing key or an unreachable
// Redis reads as disabled.
type Store struct {
	Client *redis.Client
	Logger *logger.Logger
}

func NewStore(client *redis.Client, log *logger.Logger) *Store {
	return &Store{Client: client, Logger: log}
}

// AutoBookingEnabled reports whether the auto-booking gate is open. Only the
// literal value "true" opens it.
func (s *Store) AutoBookingEnabled(ctx context.Context) bool {
	val, err := s.Client.Get(ctx, AutoBookingFlag).Result()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		s.Logger.Warn("FLAGS", fmt.Sprintf("failed to read %s, treating as disabled: %v", AutoBookingFlag, err))
		return false
	}
	return val == "true"
}

// SetAutoBooking writes the gate value, used by operational tooling and
// tests.
func (s *Store) SetAutoBooking(ctx context.Context, enabled bool) error {
	val := "false"
	if enabled {
		val = "true"
	}
	return s.Client.Set(ctx, AutoBookingFlag, val, 0).Err()
}
