package seats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-autobook/internal/booking/seats"
	"ms-autobook/internal/models"
	"ms-autobook/internal/money"
)

func seat(number, price string, available bool, features ...string) models.Seat {
	return models.Seat{
		SeatNumber: number,
		Features:   features,
		Price:      price,
		Currency:   "USD",
		Available:  available,
	}
}

func rows(seatList ...models.Seat) []models.SeatRow {
	return []models.SeatRow{{Seats: seatList}}
}

func usd(t *testing.T, v string) money.Amount {
	t.Helper()
	a, err := money.Parse(v, "USD")
	require.NoError(t, err)
	return a
}

func TestSelectPrefersAisleOverWindowOverMiddle(t *testing.T) {
	m := rows(
		seat("10B", "5.00", true, models.SeatFeatureMiddle),
		seat("10A", "5.00", true, models.SeatFeatureWindow),
		seat("10C", "15.00", true, models.SeatFeatureAisle),
	)

	chosen := seats.Select(m, usd(t, "450.00"), usd(t, "500.00"), true)
	require.NotNil(t, chosen)
	assert.Equal(t, "10C", chosen.SeatNumber)
}

func TestSelectCheapestWithinWinningTier(t *testing.T) {
	m := rows(
		seat("10C", "25.00", true, models.SeatFeatureAisle),
		seat("12C", "10.00", true, models.SeatFeatureAisle),
		seat("14D", "18.00", true, models.SeatFeatureAisle),
	)

	chosen := seats.Select(m, usd(t, "450.00"), usd(t, "500.00"), false)
	require.NotNil(t, chosen)
	assert.Equal(t, "12C", chosen.SeatNumber)
}

func TestSelectTieBrokenBySeatNumber(t *testing.T) {
	m := rows(
		seat("14D", "10.00", true, models.SeatFeatureAisle),
		seat("12C", "10.00", true, models.SeatFeatureAisle),
	)

	chosen := seats.Select(m, usd(t, "450.00"), usd(t, "500.00"), false)
	require.NotNil(t, chosen)
	assert.Equal(t, "12C", chosen.SeatNumber)
}

func TestSelectSkipsUnavailableSeats(t *testing.T) {
	m := rows(
		seat("10C", "10.00", false, models.SeatFeatureAisle),
		seat("10A", "12.00", true, models.SeatFeatureWindow),
	)

	chosen := seats.Select(m, usd(t, "450.00"), usd(t, "500.00"), false)
	require.NotNil(t, chosen)
	assert.Equal(t, "10A", chosen.SeatNumber)
}

func TestSelectExcludesMiddleUnlessAllowed(t *testing.T) {
	m := rows(seat("10B", "5.00", true, models.SeatFeatureMiddle))

	assert.Nil(t, seats.Select(m, usd(t, "450.00"), usd(t, "500.00"), false))

	chosen := seats.Select(m, usd(t, "450.00"), usd(t, "500.00"), true)
	require.NotNil(t, chosen)
	assert.Equal(t, "10B", chosen.SeatNumber)
}

func TestSelectRespectsRemainingBudget(t *testing.T) {
	// Remaining budget is 500.00 - 495.00 = 5.00.
	m := rows(
		seat("10C", "5.01", true, models.SeatFeatureAisle),
		seat("10A", "5.00", true, models.SeatFeatureWindow),
	)

	chosen := seats.Select(m, usd(t, "495.00"), usd(t, "500.00"), false)
	require.NotNil(t, chosen)
	assert.Equal(t, "10A", chosen.SeatNumber)
}

func TestSelectNilWhenBudgetExhausted(t *testing.T) {
	m := rows(seat("10C", "0.01", true, models.SeatFeatureAisle))
	assert.Nil(t, seats.Select(m, usd(t, "500.00"), usd(t, "500.00"), false))

	// A zero-price seat still qualifies at an exhausted budget.
	free := rows(seat("10C", "0.00", true, models.SeatFeatureAisle))
	chosen := seats.Select(free, usd(t, "500.00"), usd(t, "500.00"), false)
	require.NotNil(t, chosen)
}

func TestSelectNilOnEmptyMap(t *testing.T) {
	assert.Nil(t, seats.Select(nil, usd(t, "450.00"), usd(t, "500.00"), true))
}