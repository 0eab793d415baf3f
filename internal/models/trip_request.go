package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Trip request status values written by the booking saga.
const (
	TripStatusPending  = "pending"
	TripStatusBooked   = "booked"
	TripStatusFailed   = "failed"
	TripStatusCanceled = "canceled"
)

// TripRequest is the stored travel search the saga executes against. It is
// created upstream; the saga only writes the terminal status fields.
type TripRequest struct {
	bun.BaseModel `bun:"table:trip_requests"`

	ID              string    `bun:"id,pk" json:"id"`
	UserID          string    `bun:"user_id,notnull" json:"user_id"`
	Origin          string    `bun:"origin_location_code,notnull" json:"origin_location_code"`
	Destination     string    `bun:"destination_location_code,notnull" json:"destination_location_code"`
	DepartureDate   string    `bun:"departure_date,notnull" json:"departure_date"`
	ReturnDate      string    `bun:"return_date,nullzero" json:"return_date,omitempty"`
	Adults          int       `bun:"adults,notnull" json:"adults"`
	MaxPrice        string    `bun:"max_price,notnull" json:"max_price"`
	Currency        string    `bun:"currency,notnull" json:"currency"`
	AllowMiddleSeat bool      `bun:"allow_middle_seat" json:"allow_middle_seat"`
	AutoBook        bool      `bun:"auto_book" json:"auto_book"`
	Status          string    `bun:"status,notnull" json:"status"`
	AutoBookError   string    `bun:"auto_book_error,nullzero" json:"auto_book_error,omitempty"`
	PaymentIntentID string    `bun:"payment_intent_id,nullzero" json:"payment_intent_id,omitempty"`
	Traveler        *Traveler `bun:"traveler_data,type:jsonb" json:"traveler_data,omitempty"`
	CreatedAt       time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// Traveler is the passenger profile forwarded to the supplier order.
type Traveler struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty"`
	DateOfBirth    string `json:"dateOfBirth"`
	Gender         string `json:"gender,omitempty"`
	PassportNumber string `json:"passportNumber,omitempty"`
	Nationality    string `json:"nationality,omitempty"`
}

// Complete reports whether the profile carries the fields the supplier
// requires on every order.
func (t *Traveler) Complete() bool {
	return t != nil && t.FirstName != "" && t.LastName != "" && t.Email != ""
}
