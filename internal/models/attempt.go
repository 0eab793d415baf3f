package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Booking attempt statuses. The partial unique index on trip_request_id over
// in_progress/completed rows is the system's concurrency-control primitive.
const (
	AttemptStatusPending    = "pending"
	AttemptStatusInProgress = "in_progress"
	AttemptStatusCompleted  = "completed"
	AttemptStatusFailed     = "failed"
)

// BookingAttempt is one row in the idempotency ledger: created when the saga
// reserves a trip, updated exactly once with the terminal outcome.
type BookingAttempt struct {
	bun.BaseModel `bun:"table:booking_attempts"`

	ID            string    `bun:"id,pk" json:"id"`
	TripRequestID string    `bun:"trip_request_id,notnull" json:"trip_request_id"`
	Status        string    `bun:"status,notnull" json:"status"`
	ErrorMessage  string    `bun:"error_message,nullzero" json:"error_message,omitempty"`
	FlightOrderID string    `bun:"flight_order_id,nullzero" json:"flight_order_id,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}
