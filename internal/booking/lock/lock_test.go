package lock_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-autobook/internal/booking/lock"
	"ms-autobook/internal/models"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// A single connection keeps the in-memory database shared across
	// goroutines.
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	_, err = bunDB.NewCreateTable().Model((*models.BookingAttempt)(nil)).Exec(context.Background())
	require.NoError(t, err)

	// Same shape as the production migration: only live attempts hold the
	// slot, failed ones release it.
	_, err = bunDB.ExecContext(context.Background(),
		`CREATE UNIQUE INDEX uq_booking_attempts_live
		 ON booking_attempts (trip_request_id)
		 WHERE status IN ('in_progress', 'completed')`)
	require.NoError(t, err)

	return bunDB
}

func TestReserveFirstWins(t *testing.T) {
	coord := &lock.Coordinator{Bun: setupTestDB(t)}
	tripID := uuid.New().String()

	first, err := coord.Reserve(context.Background(), tripID)
	require.NoError(t, err)
	assert.False(t, first.AlreadyReserved)
	assert.NotEmpty(t, first.AttemptID)

	second, err := coord.Reserve(context.Background(), tripID)
	require.NoError(t, err)
	assert.True(t, second.AlreadyReserved)
	assert.Empty(t, second.AttemptID)
}

func TestReserveIndependentTrips(t *testing.T) {
	coord := &lock.Coordinator{Bun: setupTestDB(t)}

	a, err := coord.Reserve(context.Background(), uuid.New().String())
	require.NoError(t, err)
	b, err := coord.Reserve(context.Background(), uuid.New().String())
	require.NoError(t, err)

	assert.False(t, a.AlreadyReserved)
	assert.False(t, b.AlreadyReserved)
	assert.NotEqual(t, a.AttemptID, b.AttemptID)
}

func TestReserveReleasedByFailedAttempt(t *testing.T) {
	db := setupTestDB(t)
	coord := &lock.Coordinator{Bun: db}
	tripID := uuid.New().String()

	first, err := coord.Reserve(context.Background(), tripID)
	require.NoError(t, err)

	// A failed attempt no longer matches the partial index, so the trip can
	// be retried.
	_, err = db.NewUpdate().
		Model((*models.BookingAttempt)(nil)).
		Set("status = ?", models.AttemptStatusFailed).
		Where("id = ?", first.AttemptID).
		Exec(context.Background())
	require.NoError(t, err)

	retry, err := coord.Reserve(context.Background(), tripID)
	require.NoError(t, err)
	assert.False(t, retry.AlreadyReserved)
}

func TestReserveConcurrentSingleWinner(t *testing.T) {
	coord := &lock.Coordinator{Bun: setupTestDB(t)}
	tripID := uuid.New().String()

	const workers = 10
	var wg sync.WaitGroup
	results := make(chan lock.Reservation, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := coord.Reserve(context.Background(), tripID)
			assert.NoError(t, err)
			results <- res
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for res := range results {
		if !res.AlreadyReserved {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}