// Package seats picks a paid seat for a priced itinerary. Selection is a pure
// function over the seat map so it can be tested exhaustively with synthetic
// maps.
package seats

import (
	"sort"

	"ms-autobook/internal/models"
	"ms-autobook/internal/money"
)

// Select chooses a seat from the map given the already-priced itinerary total
// and the trip's budget. The remaining budget is maxPrice - currentTotal;
// only available seats at or under it qualify, middle seats only when
// allowed. Among qualifying seats the preference order is aisle, then window,
// then middle; within the winning tier the cheapest seat wins, ties broken by
// seat number so the result is deterministic. Returns nil when nothing
// qualifies.
func Select(rows []models.SeatRow, currentTotal, maxPrice money.Amount, allowMiddleSeat bool) *models.Seat {
	remaining, err := maxPrice.Sub(currentTotal)
	if err != nil || remaining.MinorUnits() < 0 {
		return nil
	}

	type candidate struct {
		seat  models.Seat
		price money.Amount
	}
	var aisle, window, middle []candidate

	for _, row := range rows {
		for _, seat := range row.Seats {
			if !seat.Available {
				continue
			}
			isMiddle := seat.HasFeature(models.SeatFeatureMiddle)
			if isMiddle && !allowMiddleSeat {
				continue
			}
			price, err := money.Parse(seat.Price, remaining.Currency())
			if err != nil {
				continue
			}
			within, err := price.LessOrEqual(remaining)
			if err != nil || !within {
				continue
			}
			c := candidate{seat: seat, price: price}
			switch {
			case seat.HasFeature(models.SeatFeatureAisle):
				aisle = append(aisle, c)
			case seat.HasFeature(models.SeatFeatureWindow):
				window = append(window, c)
			case isMiddle:
				middle = append(middle, c)
			}
		}
	}

	for _, tier := range [][]candidate{aisle, window, middle} {
		if len(tier) == 0 {
			continue
		}
		sort.Slice(tier, func(i, j int) bool {
			if tier[i].price.MinorUnits() != tier[j].price.MinorUnits() {
				return tier[i].price.MinorUnits() < tier[j].price.MinorUnits()
			}
			return tier[i].seat.SeatNumber < tier[j].seat.SeatNumber
		})
		chosen := tier[0].seat
		return &chosen
	}
	return nil
}
