package booking

import (
	"context"

	"ms-autobook/internal/models"
	"ms-autobook/internal/money"
)

// State names the last step the saga completed. Compensation is keyed by this
// value, which keeps the undo policy in one auditable table instead of
// scattered across error branches.
type State string

const (
	StateLocked       State = "LOCKED"
	StatePriced       State = "PRICED"
	StateSeatSelected State = "SEAT_SELECTED"
	StateOrdered      State = "ORDERED"
	StateCaptured     State = "CAPTURED"
	StatePersisted    State = "PERSISTED"
	StateFailed       State = "FAILED"
	StateCompensated  State = "COMPENSATED"
)

// sagaRun is the explicit step-result value threaded through the pipeline.
// Each step reads the fields earlier steps filled in and writes its own, so
// nothing hides in closures.
type sagaRun struct {
	trip      *models.TripRequest
	attemptID string

	maxPrice money.Amount

	offer   *models.PricedOffer
	total   money.Amount
	seatMap *models.SeatMap
	seat    *models.Seat
	order   *models.SupplierOrder
	capture *models.PaymentCapture
	booking *models.Booking

	lastCompleted State
}

// step is one forward action of the saga. nonFatal steps log and continue on
// error instead of aborting the run (the seat map fetch is the only one).
type step struct {
	name     string
	reaches  State
	nonFatal bool
	run      func(ctx context.Context, sr *sagaRun) error
}

// compensator undoes the side effect of the state it is keyed by when a later
// step fails.
type compensator func(ctx context.Context, sr *sagaRun) error

// compensations maps "last completed state" to its undo action.
//
//   - ORDERED: the supplier order exists but no payment was captured, so the
//     order is cancelled.
//   - CAPTURED: the money is taken and the supplier order is real; there is
//     no safe automatic undo, so persistence failures after capture are
//     surfaced for manual reconciliation instead (logged under RECONCILE).
//   - Everything earlier left no external side effect to undo.
func (o *Orchestrator) compensations() map[State]compensator {
	return map[State]compensator{
		StateOrdered: o.compensateCancelOrder,
	}
}

func (o *Orchestrator) compensateCancelOrder(ctx context.Context, sr *sagaRun) error {
	return o.Supplier.CancelOrder(ctx, sr.order.ID)
}
