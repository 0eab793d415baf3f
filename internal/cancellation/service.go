package cancellation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-autobook/internal/booking"
	"ms-autobook/internal/booking/db"
	"ms-autobook/internal/logger"
	"ms-autobook/internal/models"
)

// RefundReason is the reason code passed to the payment processor on every
// customer-initiated cancellation.
const RefundReason = "requested_by_customer"

// cancelWindow is how long after creation a booking stays cancelable.
const cancelWindow = 24 * time.Hour

// StateStore is the durable record layer the coordinator reads and updates.
type StateStore interface {
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	TransitionBookingCanceled(ctx context.Context, bookingID, tripRequestID string) (bool, error)
}

// SupplierClient voids the live order at the flight supplier.
type SupplierClient interface {
	CancelOrder(ctx context.Context, orderID string) error
}

// PaymentClient refunds the captured payment.
type PaymentClient interface {
	Refund(ctx context.Context, paymentIntentID, reason string) (*models.Refund, error)
}

// Notifier publishes booking lifecycle events.
type Notifier interface {
	PublishBookingEvent(ctx context.Context, event models.BookingEvent) error
}

// Request identifies the booking to cancel and the authenticated caller.
type Request struct {
	BookingID string
	UserID    string
}

// Result is the caller-visible outcome of a cancellation.
type Result struct {
	Message string
}

// Coordinator runs the cancellation reverse saga: void the supplier order,
// refund the payment, then record the canceled state. The order is fixed so
// that a refund is never issued for an order the supplier still holds live.
type Coordinator struct {
	Store    StateStore
	Supplier SupplierClient
	Payments PaymentClient
	Notifier Notifier
	Logger   *logger.Logger

	// now is swappable for cancellation-window tests.
	now func() time.Time
}

func NewCoordinator(st StateStore, s SupplierClient, p PaymentClient, n Notifier, log *logger.Logger) *Coordinator {
	return &Coordinator{Store: st, Supplier: s, Payments: p, Notifier: n, Logger: log, now: time.Now}
}

// Cancel cancels one booking on behalf of its owner. Preconditions are
// checked before any external call is made; past that point failures surface
// as errors and leave the booking record untouched for a retry.
func (c *Coordinator) Cancel(ctx context.Context, req Request) (*Result, error) {
	if req.BookingID == "" {
		return nil, &booking.ValidationError{Msg: "Missing or invalid booking_id"}
	}

	b, err := c.Store.GetBooking(ctx, req.BookingID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, &booking.NotFoundError{Kind: "booking", ID: req.BookingID}
		}
		return nil, &booking.PersistenceError{Op: "load booking", Err: err}
	}
	if b.UserID != req.UserID {
		return nil, &booking.UnauthorizedError{Msg: "Unauthorized to cancel this booking"}
	}
	if b.Status != models.BookingStatusTicketed && b.Status != models.BookingStatusBooked {
		return nil, &booking.PolicyViolation{Reason: fmt.Sprintf("booking is not in a cancelable state (status %s)", b.Status)}
	}
	if c.now().Sub(b.CreatedAt) > cancelWindow {
		return nil, &booking.PolicyViolation{Reason: "Cancellation window has passed"}
	}
	if b.PaymentIntentID == "" {
		return nil, &booking.PaymentError{Op: "refund", Err: errors.New("payment intent id not found on booking")}
	}

	if err := c.Supplier.CancelOrder(ctx, b.SupplierOrderID); err != nil {
		return nil, &booking.SupplierError{Op: "cancel order", Err: err}
	}
	c.Logger.Info("CANCEL", fmt.Sprintf("booking %s: supplier order %s voided", b.ID, b.SupplierOrderID))

	refund, err := c.Payments.Refund(ctx, b.PaymentIntentID, RefundReason)
	if err != nil {
		return nil, &booking.PaymentError{Op: "refund", Err: err}
	}
	c.Logger.Info("CANCEL", fmt.Sprintf("booking %s: refund %s issued on %s", b.ID, refund.ID, b.PaymentIntentID))

	transitioned, err := c.Store.TransitionBookingCanceled(ctx, b.ID, b.TripRequestID)
	if err != nil {
		return nil, &booking.PersistenceError{Op: "update booking status", Err: err}
	}
	if !transitioned {
		// A concurrent cancel already moved the status. The external calls
		// above are idempotent at the supplier and the processor.
		c.Logger.Warn("CANCEL", fmt.Sprintf("booking %s: already canceled, nothing to update", b.ID))
	}

	event := models.BookingEvent{
		Type:          models.EventBookingCanceled,
		BookingID:     b.ID,
		PNR:           b.PNR,
		TripRequestID: b.TripRequestID,
		FlightOrderID: b.SupplierOrderID,
		Timestamp:     c.now().UTC(),
	}
	if err := c.Notifier.PublishBookingEvent(ctx, event); err != nil {
		// Notification is best effort: the cancellation itself already
		// succeeded.
		c.Logger.Warn("CANCEL", fmt.Sprintf("booking %s: failed to publish cancellation event: %v", b.ID, err))
	}

	return &Result{Message: "Booking canceled and refund initiated successfully."}, nil
}
