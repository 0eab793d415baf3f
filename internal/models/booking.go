package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Booking status values. The booking saga writes booked or failed; ticketing
// and cancellation move a booked record through ticketed to canceled.
const (
	BookingStatusCreated      = "created"
	BookingStatusPriced       = "priced"
	BookingStatusSeatSelected = "seat_selected"
	BookingStatusBooked       = "booked"
	BookingStatusFailed       = "failed"
	BookingStatusTicketed     = "ticketed"
	BookingStatusCanceled     = "canceled"
)

// Booking is the outcome record of one saga execution. A supplier order id
// without a captured payment exists only transiently between order creation
// and capture; every terminal row has both or neither.
type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID                 string    `bun:"id,pk" json:"id"`
	UserID             string    `bun:"user_id,notnull" json:"user_id"`
	TripRequestID      string    `bun:"trip_request_id,notnull" json:"trip_request_id"`
	Status             string    `bun:"status,notnull" json:"status"`
	SelectedSeatNumber *string   `bun:"selected_seat_number,nullzero" json:"selected_seat_number,omitempty"`
	SupplierOrderID    string    `bun:"supplier_order_id,nullzero" json:"supplier_order_id,omitempty"`
	PNR                string    `bun:"pnr,nullzero" json:"pnr,omitempty"`
	PaymentIntentID    string    `bun:"payment_intent_id,nullzero" json:"payment_intent_id,omitempty"`
	Amount             string    `bun:"amount,notnull" json:"amount"`
	Currency           string    `bun:"currency,notnull" json:"currency"`
	CreatedAt          time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}
