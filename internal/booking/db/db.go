package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"ms-autobook/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// DB is the durable store for trip requests, bookings and the attempt
// ledger.
type DB struct {
	Bun *bun.DB
}

// GetTripRequest fetches one trip request by id.
func (d *DB) GetTripRequest(ctx context.Context, id string) (*models.TripRequest, error) {
	var trip models.TripRequest
	err := d.Bun.NewSelect().
		Model(&trip).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &trip, nil
}

// GetBooking fetches one booking by id.
func (d *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	err := d.Bun.NewSelect().
		Model(&booking).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &booking, nil
}

// PersistOutcome writes the booking row and the trip request's terminal
// booked state in one transaction.
func (d *DB) PersistOutcome(ctx context.Context, booking *models.Booking) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(booking).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewUpdate().
			Model((*models.TripRequest)(nil)).
			Set("status = ?", models.TripStatusBooked).
			Set("auto_book = ?", false).
			Where("id = ?", booking.TripRequestID).
			Exec(ctx)
		return err
	})
}

// MarkTripRequestFailed records the terminal failed state and the error on
// the trip request.
func (d *DB) MarkTripRequestFailed(ctx context.Context, tripRequestID, reason string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.TripRequest)(nil)).
		Set("status = ?", models.TripStatusFailed).
		Set("auto_book_error = ?", reason).
		Where("id = ?", tripRequestID).
		Exec(ctx)
	return err
}

// FinishAttempt writes the single terminal record to the attempt ledger.
func (d *DB) FinishAttempt(ctx context.Context, attemptID, status, errorMessage, flightOrderID string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.BookingAttempt)(nil)).
		Set("status = ?", status).
		Set("error_message = ?", errorMessage).
		Set("flight_order_id = ?", flightOrderID).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", attemptID).
		Exec(ctx)
	return err
}

// TransitionBookingCanceled atomically moves a cancelable booking to
// canceled, mirroring the state on the linked trip request. The conditional
// update closes the race between two concurrent cancel calls: zero affected
// rows means another call already moved the status and the caller treats it
// as a no-op.
func (d *DB) TransitionBookingCanceled(ctx context.Context, bookingID, tripRequestID string) (bool, error) {
	var transitioned bool
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.Booking)(nil)).
			Set("status = ?", models.BookingStatusCanceled).
			Where("id = ?", bookingID).
			Where("status IN (?)", bun.In([]string{models.BookingStatusTicketed, models.BookingStatusBooked})).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		transitioned = true
		if tripRequestID == "" {
			return nil
		}
		_, err = tx.NewUpdate().
			Model((*models.TripRequest)(nil)).
			Set("status = ?", models.TripStatusCanceled).
			Where("id = ?", tripRequestID).
			Exec(ctx)
		return err
	})
	return transitioned, err
}

// SaveNotification persists one user-facing notification row.
func (d *DB) SaveNotification(ctx context.Context, n *models.Notification) error {
	_, err := d.Bun.NewInsert().Model(n).Exec(ctx)
	return err
}
