package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-autobook/internal/booking/db"
	"ms-autobook/internal/models"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	// Connect to an in-memory SQLite DB for testing
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	// Create required tables
	for _, model := range []interface{}{
		(*models.TripRequest)(nil),
		(*models.Booking)(nil),
		(*models.BookingAttempt)(nil),
		(*models.Notification)(nil),
	} {
		_, err = bunDB.NewCreateTable().Model(model).Exec(context.Background())
		if err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func insertTripRequest(t *testing.T, bunDB *bun.DB, trip *models.TripRequest) {
	t.Helper()
	_, err := bunDB.NewInsert().Model(trip).Exec(context.Background())
	assert.NoError(t, err)
}

func TestGetTripRequest(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	tripID := uuid.New().String()
	insertTripRequest(t, bunDB, &models.TripRequest{
		ID:              tripID,
		UserID:          "user123",
		Origin:          "MVY",
		Destination:     "JFK",
		MaxPrice:        "500.00",
		Currency:        "USD",
		AutoBook:        true,
		Status:          models.TripStatusPending,
		PaymentIntentID: "pi_123",
		CreatedAt:       time.Now(),
	})

	trip, err := store.GetTripRequest(context.Background(), tripID)
	assert.NoError(t, err)
	assert.NotNil(t, trip)
	assert.Equal(t, "user123", trip.UserID)
	assert.Equal(t, "MVY", trip.Origin)

	trip, err = store.GetTripRequest(context.Background(), "non-existent")
	assert.ErrorIs(t, err, db.ErrNotFound)
	assert.Nil(t, trip)
}

func TestPersistOutcome(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	tripID := uuid.New().String()
	insertTripRequest(t, bunDB, &models.TripRequest{
		ID:       tripID,
		UserID:   "user123",
		MaxPrice: "500.00",
		Currency: "USD",
		AutoBook: true,
		Status:   models.TripStatusPending,
	})

	seat := "12C"
	booking := &models.Booking{
		ID:                 uuid.New().String(),
		UserID:             "user123",
		TripRequestID:      tripID,
		Status:             models.BookingStatusTicketed,
		SelectedSeatNumber: &seat,
		SupplierOrderID:    "order-1",
		PNR:                "ABC123",
		PaymentIntentID:    "pi_123",
		Amount:             "465.00",
		Currency:           "USD",
		CreatedAt:          time.Now(),
	}
	err := store.PersistOutcome(context.Background(), booking)
	assert.NoError(t, err)

	got, err := store.GetBooking(context.Background(), booking.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.BookingStatusTicketed, got.Status)
	assert.Equal(t, "ABC123", got.PNR)

	trip, err := store.GetTripRequest(context.Background(), tripID)
	assert.NoError(t, err)
	assert.Equal(t, models.TripStatusBooked, trip.Status)
	assert.False(t, trip.AutoBook)
}

func TestMarkTripRequestFailed(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	tripID := uuid.New().String()
	insertTripRequest(t, bunDB, &models.TripRequest{
		ID:     tripID,
		UserID: "user123",
		Status: models.TripStatusPending,
	})

	err := store.MarkTripRequestFailed(context.Background(), tripID, "no offers within budget")
	assert.NoError(t, err)

	trip, err := store.GetTripRequest(context.Background(), tripID)
	assert.NoError(t, err)
	assert.Equal(t, models.TripStatusFailed, trip.Status)
	assert.Equal(t, "no offers within budget", trip.AutoBookError)
}

func TestFinishAttempt(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	attemptID := uuid.New().String()
	attempt := models.BookingAttempt{
		ID:            attemptID,
		TripRequestID: uuid.New().String(),
		Status:        models.AttemptStatusInProgress,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	_, err := bunDB.NewInsert().Model(&attempt).Exec(context.Background())
	assert.NoError(t, err)

	err = store.FinishAttempt(context.Background(), attemptID, models.AttemptStatusCompleted, "", "order-1")
	assert.NoError(t, err)

	var got models.BookingAttempt
	err = bunDB.NewSelect().Model(&got).Where("id = ?", attemptID).Scan(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, models.AttemptStatusCompleted, got.Status)
	assert.Equal(t, "order-1", got.FlightOrderID)
}

func TestTransitionBookingCanceled(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	tripID := uuid.New().String()
	insertTripRequest(t, bunDB, &models.TripRequest{
		ID:     tripID,
		UserID: "user123",
		Status: models.TripStatusBooked,
	})

	bookingID := uuid.New().String()
	booking := models.Booking{
		ID:            bookingID,
		UserID:        "user123",
		TripRequestID: tripID,
		Status:        models.BookingStatusTicketed,
		CreatedAt:     time.Now(),
	}
	_, err := bunDB.NewInsert().Model(&booking).Exec(context.Background())
	assert.NoError(t, err)

	transitioned, err := store.TransitionBookingCanceled(context.Background(), bookingID, tripID)
	assert.NoError(t, err)
	assert.True(t, transitioned)

	got, err := store.GetBooking(context.Background(), bookingID)
	assert.NoError(t, err)
	assert.Equal(t, models.BookingStatusCanceled, got.Status)

	trip, err := store.GetTripRequest(context.Background(), tripID)
	assert.NoError(t, err)
	assert.Equal(t, models.TripStatusCanceled, trip.Status)

	// Second transition is a no-op: the status guard matches zero rows.
	transitioned, err = store.TransitionBookingCanceled(context.Background(), bookingID, tripID)
	assert.NoError(t, err)
	assert.False(t, transitioned)
}

func TestSaveNotification(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	n := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    "user123",
		Type:      models.EventBookingCanceled,
		Payload:   `{"booking_id":"b-1","pnr":"ABC123"}`,
		CreatedAt: time.Now(),
	}
	err := store.SaveNotification(context.Background(), n)
	assert.NoError(t, err)

	var got models.Notification
	err = bunDB.NewSelect().Model(&got).Where("id = ?", n.ID).Scan(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, models.EventBookingCanceled, got.Type)
}