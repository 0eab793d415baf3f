package booking_api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-autobook/internal/auth"
	"ms-autobook/internal/booking"
	"ms-autobook/internal/cancellation"
	"ms-autobook/internal/logger"
	"ms-autobook/internal/models"
)

// BookingService runs the booking saga.
type BookingService interface {
	Execute(ctx context.Context, req booking.Request) (*booking.Outcome, error)
}

// CancelService runs the cancellation reverse saga.
type CancelService interface {
	Cancel(ctx context.Context, req cancellation.Request) (*cancellation.Result, error)
}

// FlagStore gates the auto-booking endpoint.
type FlagStore interface {
	AutoBookingEnabled(ctx context.Context) bool
}

type Handler struct {
	Bookings      BookingService
	Cancellations CancelService
	Flags         FlagStore
	Logger        *logger.Logger
}

func NewHandler(bookings BookingService, cancellations CancelService, flags FlagStore, log *logger.Logger) *Handler {
	return &Handler{
		Bookings:      bookings,
		Cancellations: cancellations,
		Flags:         flags,
		Logger:        log,
	}
}

// Routes mounts the booking endpoints behind the OIDC middleware.
func (h *Handler) Routes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/auto-book", h.AutoBook)
		r.Post("/cancel-booking", h.CancelBooking)
	})
}

func (h *Handler) AutoBook(w http.ResponseWriter, r *http.Request) {
	if !h.Flags.AutoBookingEnabled(r.Context()) {
		h.Logger.Warn("API", "AutoBook: feature flag disabled, rejecting request")
		writeJSON(w, http.StatusServiceUnavailable, models.AutoBookResponse{
			Success: false,
			Error:   "Auto-booking is currently disabled",
		})
		return
	}

	var req models.AutoBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("AutoBook: failed to decode request body: %v", err))
		writeJSON(w, http.StatusBadRequest, models.AutoBookResponse{Success: false, Error: "Invalid request body"})
		return
	}
	h.Logger.Info("API", fmt.Sprintf("AutoBook: tripRequestId=%s", req.TripRequestID))

	outcome, err := h.Bookings.Execute(r.Context(), booking.Request{
		TripRequestID: req.TripRequestID,
		MaxPrice:      req.MaxPrice,
	})
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("AutoBook: saga failed: %v", err))
		writeJSON(w, bookingStatusFor(err), models.AutoBookResponse{Success: false, Error: err.Error()})
		return
	}

	if outcome.AlreadyInProgress {
		writeJSON(w, http.StatusOK, models.AutoBookResponse{Success: true, Message: outcome.Message})
		return
	}

	writeJSON(w, http.StatusOK, models.AutoBookResponse{
		Success:       true,
		Message:       fmt.Sprintf("Flight booked successfully (PNR %s)", outcome.PNR),
		FlightOrderID: outcome.FlightOrderID,
	})
}

func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.CancelBookingResponse{
			Success: false,
			Error:   "Authentication failed or user not found",
		})
		return
	}

	var req models.CancelBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CancelBooking: failed to decode request body: %v", err))
		writeJSON(w, http.StatusBadRequest, models.CancelBookingResponse{Success: false, Error: "Missing or invalid booking_id"})
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CancelBooking: booking_id=%s user=%s", req.BookingID, userID))

	result, err := h.Cancellations.Cancel(r.Context(), cancellation.Request{
		BookingID: req.BookingID,
		UserID:    userID,
	})
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CancelBooking: failed: %v", err))
		writeJSON(w, cancelStatusFor(err), models.CancelBookingResponse{Success: false, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, models.CancelBookingResponse{Success: true, Message: result.Message})
}

// bookingStatusFor maps saga errors onto HTTP statuses: caller mistakes and
// policy rejections are 400, everything else is 500.
func bookingStatusFor(err error) int {
	var verr *booking.ValidationError
	var perr *booking.PolicyViolation
	switch {
	case errors.As(err, &verr), errors.As(err, &perr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func cancelStatusFor(err error) int {
	var verr *booking.ValidationError
	var perr *booking.PolicyViolation
	var nfe *booking.NotFoundError
	var uerr *booking.UnauthorizedError
	switch {
	case errors.As(err, &verr), errors.As(err, &perr):
		return http.StatusBadRequest
	case errors.As(err, &nfe):
		return http.StatusNotFound
	case errors.As(err, &uerr):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		return
	}
}
