package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"ms-autobook/internal/models"
)

// Reservation is the tagged result of reserving the idempotency slot for a
// trip request. AlreadyReserved means another execution owns the trip; the
// caller must short-circuit with success and touch no other collaborator.
type Reservation struct {
	AttemptID       string
	AlreadyReserved bool
}

// Coordinator reserves the per-trip idempotency slot by inserting a
// booking_attempts row. The store's uniqueness constraint on trip_request_id
// (over in_progress/completed rows) is what serializes concurrent saga
// executions across stateless instances.
type Coordinator struct {
	Bun *bun.DB
}

// Reserve inserts an in_progress attempt for the trip. A duplicate-key
// violation is not an error: it is the signal that another execution already
// holds the slot, returned as AlreadyReserved.
func (c *Coordinator) Reserve(ctx context.Context, tripRequestID string) (Reservation, error) {
	attempt := models.BookingAttempt{
		ID:            uuid.NewString(),
		TripRequestID: tripRequestID,
		Status:        models.AttemptStatusInProgress,
		CreatedAt:     time.Now().UTC(),
	}

	_, err := c.Bun.NewInsert().Model(&attempt).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return Reservation{AlreadyReserved: true}, nil
		}
		return Reservation{}, err
	}
	return Reservation{AttemptID: attempt.ID}, nil
}

// isUniqueViolation recognizes the duplicate-key error of the postgres driver
// used at runtime and of the sqlite driver used in tests.
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == "23505" {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
