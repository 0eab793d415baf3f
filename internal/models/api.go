package models

import (
	"time"

	"github.com/uptrace/bun"
)

// AutoBookRequest is the booking trigger payload.
type AutoBookRequest struct {
	TripRequestID string `json:"tripRequestId"`
	MaxPrice      string `json:"maxPrice,omitempty"`
}

// AutoBookResponse is the booking trigger response body.
type AutoBookResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	FlightOrderID string `json:"flightOrderId,omitempty"`
	Error         string `json:"error,omitempty"`
}

// CancelBookingRequest is the cancellation trigger payload.
type CancelBookingRequest struct {
	BookingID string `json:"booking_id"`
}

// CancelBookingResponse is the cancellation trigger response body.
type CancelBookingResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// BookingEvent is the payload published to Kafka on booking lifecycle
// transitions. Cancellation publishes type booking_canceled.
type BookingEvent struct {
	Type          string    `json:"type"`
	BookingID     string    `json:"booking_id"`
	PNR           string    `json:"pnr,omitempty"`
	TripRequestID string    `json:"trip_request_id"`
	FlightOrderID string    `json:"flight_order_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Event types carried in BookingEvent.Type.
const (
	EventBookingBooked   = "booking_booked"
	EventBookingCanceled = "booking_canceled"
)

// Notification is the persisted, user-facing record the notify worker writes
// for each consumed booking event.
type Notification struct {
	bun.BaseModel `bun:"table:notifications"`

	ID        string    `bun:"id,pk" json:"id"`
	UserID    string    `bun:"user_id,nullzero" json:"user_id,omitempty"`
	Type      string    `bun:"type,notnull" json:"type"`
	Payload   string    `bun:"payload,type:jsonb" json:"payload"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}
