package models

import "time"

// OfferQuery is the supplier search request built from a trip request.
type OfferQuery struct {
	Origin        string `json:"originLocationCode"`
	Destination   string `json:"destinationLocationCode"`
	DepartureDate string `json:"departureDate"`
	ReturnDate    string `json:"returnDate,omitempty"`
	Adults        int    `json:"adults"`
	Currency      string `json:"currencyCode"`
}

// Offer is a supplier search result before re-pricing.
type Offer struct {
	ID          string `json:"id"`
	TotalAmount string `json:"total_amount"`
	Currency    string `json:"total_currency"`
}

// PricedOffer is a supplier quote with a confirmed, time-bounded total. All
// monetary fields stay decimal strings end to end.
type PricedOffer struct {
	ID          string    `json:"id"`
	TotalAmount string    `json:"total_amount"`
	Currency    string    `json:"total_currency"`
	ExpiresAt   time.Time `json:"expires_at"`
	SegmentIDs  []string  `json:"segment_ids"`
}

// Expired reports whether the quote is no longer bookable at now.
func (o *PricedOffer) Expired(now time.Time) bool {
	return !o.ExpiresAt.IsZero() && !now.Before(o.ExpiresAt)
}

// Seat feature tags as the supplier reports them.
const (
	SeatFeatureAisle  = "AISLE"
	SeatFeatureWindow = "WINDOW"
	SeatFeatureMiddle = "MIDDLE"
)

// Seat is one selectable seat on a seat map row.
type Seat struct {
	SeatNumber string   `json:"seatNumber"`
	Features   []string `json:"features"`
	Price      string   `json:"price"`
	Currency   string   `json:"currency"`
	Available  bool     `json:"available"`
}

// HasFeature reports whether the seat carries the given feature tag.
func (s Seat) HasFeature(feature string) bool {
	for _, f := range s.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// SeatRow is one physical row of the cabin.
type SeatRow struct {
	Seats []Seat `json:"seats"`
}

// SeatMap is the seat layout for the first segment of a priced offer.
type SeatMap struct {
	SegmentID string    `json:"segmentId"`
	Rows      []SeatRow `json:"rows"`
}

// SeatSelection is the seat assignment forwarded on order creation.
type SeatSelection struct {
	SegmentID  string `json:"segmentId"`
	SeatNumber string `json:"seatNumber"`
}

// OrderRequest is the supplier order-creation payload.
type OrderRequest struct {
	OfferID        string          `json:"offerId"`
	Traveler       Traveler        `json:"traveler"`
	SeatSelections []SeatSelection `json:"seatSelections"`
	IdempotencyKey string          `json:"-"`
}

// SupplierOrder is the confirmed reservation returned by the supplier.
type SupplierOrder struct {
	ID          string `json:"id"`
	PNR         string `json:"booking_reference"`
	Status      string `json:"status"`
	TotalAmount string `json:"total_amount"`
	Currency    string `json:"total_currency"`
}
