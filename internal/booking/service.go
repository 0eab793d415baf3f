package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"ms-autobook/internal/booking/db"
	"ms-autobook/internal/booking/lock"
	"ms-autobook/internal/booking/seats"
	"ms-autobook/internal/logger"
	"ms-autobook/internal/models"
	"ms-autobook/internal/money"
)

// Locker reserves the per-trip idempotency slot.
type Locker interface {
	Reserve(ctx context.Context, tripRequestID string) (lock.Reservation, error)
}

// SupplierClient talks to the flight supplier.
type SupplierClient interface {
	SearchOffers(ctx context.Context, query models.OfferQuery) ([]models.Offer, error)
	PriceOffer(ctx context.Context, offerID string) (*models.PricedOffer, error)
	GetSeatMap(ctx context.Context, offerID string) (*models.SeatMap, error)
	CreateOrder(ctx context.Context, req models.OrderRequest) (*models.SupplierOrder, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// CaptureParams identifies the payment to capture and the exact amount the
// supplier priced. The idempotency key makes a retried capture a no-op at the
// processor.
type CaptureParams struct {
	PaymentIntentID string
	Amount          money.Amount
	IdempotencyKey  string
}

// PaymentClient talks to the payment processor.
type PaymentClient interface {
	Capture(ctx context.Context, params CaptureParams) (*models.PaymentCapture, error)
	Refund(ctx context.Context, paymentIntentID, reason string) (*models.Refund, error)
}

// Notifier publishes booking lifecycle events. Publishing is best effort on
// the booking path.
type Notifier interface {
	PublishBookingEvent(ctx context.Context, event models.BookingEvent) error
}

// StateStore is the durable record layer for trips, bookings and the attempt
// ledger.
type StateStore interface {
	GetTripRequest(ctx context.Context, id string) (*models.TripRequest, error)
	PersistOutcome(ctx context.Context, booking *models.Booking) error
	MarkTripRequestFailed(ctx context.Context, tripRequestID, reason string) error
	FinishAttempt(ctx context.Context, attemptID, status, errorMessage, flightOrderID string) error
}

// Request triggers one saga execution. MaxPrice, when set, overrides the
// stored budget for this execution only.
type Request struct {
	TripRequestID string
	MaxPrice      string
}

// Outcome is the caller-visible result of a saga execution.
type Outcome struct {
	Booked            bool
	AlreadyInProgress bool
	Message           string
	FlightOrderID     string
	PNR               string
	SeatNumber        *string
	TotalAmount       string
	Currency          string
}

// Orchestrator drives the booking saga: reserve the idempotency slot, then
// price, seat-select, order, capture and persist, with compensation applied
// from the table in saga.go when a step fails.
type Orchestrator struct {
	Lock     Locker
	Supplier SupplierClient
	Payments PaymentClient
	Store    StateStore
	Logger   *logger.Logger

	// Notifier is optional; when set, a booking_booked event is published
	// after a successful run.
	Notifier Notifier

	// now is swappable for offer-expiry tests.
	now func() time.Time
}

func NewOrchestrator(l Locker, s SupplierClient, p PaymentClient, st StateStore, log *logger.Logger) *Orchestrator {
	return &Orchestrator{Lock: l, Supplier: s, Payments: p, Store: st, Logger: log, now: time.Now}
}

// Execute runs the saga for one trip request. Every execution that gets past
// the lock writes exactly one terminal record to the attempt ledger, success
// or failure.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (*Outcome, error) {
	if req.TripRequestID == "" {
		return nil, &ValidationError{Msg: "tripRequestId is required"}
	}

	trip, err := o.Store.GetTripRequest(ctx, req.TripRequestID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, &ValidationError{Msg: fmt.Sprintf("trip request %s not found", req.TripRequestID)}
		}
		return nil, &PersistenceError{Op: "load trip request", Err: err}
	}
	if !trip.Traveler.Complete() {
		return nil, &ValidationError{Msg: "missing required traveler data: firstName, lastName, email"}
	}
	if trip.PaymentIntentID == "" {
		return nil, &ValidationError{Msg: "trip request has no authorized payment intent"}
	}

	maxPriceStr := trip.MaxPrice
	if req.MaxPrice != "" {
		maxPriceStr = req.MaxPrice
	}
	maxPrice, err := money.Parse(maxPriceStr, trip.Currency)
	if err != nil {
		return nil, &ValidationError{Msg: fmt.Sprintf("invalid max price %q", maxPriceStr)}
	}

	reservation, err := o.Lock.Reserve(ctx, trip.ID)
	if err != nil {
		return nil, &PersistenceError{Op: "reserve booking attempt", Err: err}
	}
	if reservation.AlreadyReserved {
		o.Logger.Info("SAGA", fmt.Sprintf("trip %s already reserved, short-circuiting", trip.ID))
		return &Outcome{AlreadyInProgress: true, Message: "already in progress or completed"}, nil
	}

	sr := &sagaRun{
		trip:          trip,
		attemptID:     reservation.AttemptID,
		maxPrice:      maxPrice,
		lastCompleted: StateLocked,
	}
	o.Logger.Info("SAGA", fmt.Sprintf("attempt %s: locked trip %s", sr.attemptID, trip.ID))

	if err := o.runForward(ctx, sr); err != nil {
		o.compensate(ctx, sr, err)
		o.finishFailed(ctx, sr, err)
		return nil, err
	}

	o.finishCompleted(ctx, sr)
	o.publishBooked(ctx, sr)
	return &Outcome{
		Booked:        true,
		FlightOrderID: sr.order.ID,
		PNR:           sr.order.PNR,
		SeatNumber:    sr.booking.SelectedSeatNumber,
		TotalAmount:   sr.total.String(),
		Currency:      sr.total.Currency(),
	}, nil
}

func (o *Orchestrator) runForward(ctx context.Context, sr *sagaRun) error {
	steps := []step{
		{name: "price offer", reaches: StatePriced, run: o.stepPriceOffer},
		{name: "fetch seat map", nonFatal: true, run: o.stepFetchSeatMap},
		{name: "select seat", reaches: StateSeatSelected, run: o.stepSelectSeat},
		{name: "create supplier order", reaches: StateOrdered, run: o.stepCreateOrder},
		{name: "capture payment", reaches: StateCaptured, run: o.stepCapturePayment},
		{name: "persist outcome", reaches: StatePersisted, run: o.stepPersistOutcome},
	}

	for _, s := range steps {
		if err := s.run(ctx, sr); err != nil {
			if s.nonFatal {
				o.Logger.Warn("SAGA", fmt.Sprintf("attempt %s: %s failed, continuing: %v", sr.attemptID, s.name, err))
				continue
			}
			o.Logger.Error("SAGA", fmt.Sprintf("attempt %s: %s failed in state %s: %v", sr.attemptID, s.name, sr.lastCompleted, err))
			return err
		}
		if s.reaches != "" {
			sr.lastCompleted = s.reaches
		}
	}
	return nil
}

// stepPriceOffer searches, picks the cheapest in-budget offer and confirms
// its price. The priced total must be at or under the budget before any
// payment is touched.
func (o *Orchestrator) stepPriceOffer(ctx context.Context, sr *sagaRun) error {
	query := models.OfferQuery{
		Origin:        sr.trip.Origin,
		Destination:   sr.trip.Destination,
		DepartureDate: sr.trip.DepartureDate,
		ReturnDate:    sr.trip.ReturnDate,
		Adults:        sr.trip.Adults,
		Currency:      sr.trip.Currency,
	}
	offers, err := o.Supplier.SearchOffers(ctx, query)
	if err != nil {
		return &SupplierError{Op: "search offers", Err: err}
	}
	if len(offers) == 0 {
		return &PolicyViolation{Reason: "no flights found for the trip criteria"}
	}

	type pricedCandidate struct {
		offer  models.Offer
		amount money.Amount
	}
	var inBudget []pricedCandidate
	for _, off := range offers {
		amount, err := money.Parse(off.TotalAmount, off.Currency)
		if err != nil {
			continue
		}
		within, err := amount.LessOrEqual(sr.maxPrice)
		if err != nil || !within {
			continue
		}
		inBudget = append(inBudget, pricedCandidate{offer: off, amount: amount})
	}
	if len(inBudget) == 0 {
		return &PolicyViolation{Reason: fmt.Sprintf("no offers within budget of %s %s", sr.maxPrice.String(), sr.maxPrice.Currency())}
	}
	sort.Slice(inBudget, func(i, j int) bool {
		return inBudget[i].amount.MinorUnits() < inBudget[j].amount.MinorUnits()
	})

	priced, err := o.Supplier.PriceOffer(ctx, inBudget[0].offer.ID)
	if err != nil {
		return &SupplierError{Op: "price offer", Err: err}
	}
	total, err := money.Parse(priced.TotalAmount, priced.Currency)
	if err != nil {
		return &SupplierError{Op: "price offer", Err: fmt.Errorf("unparseable total %q: %w", priced.TotalAmount, err)}
	}
	within, err := total.LessOrEqual(sr.maxPrice)
	if err != nil {
		return &PolicyViolation{Reason: fmt.Sprintf("offer priced in %s but budget is %s", total.Currency(), sr.maxPrice.Currency())}
	}
	if !within {
		return &PolicyViolation{Reason: fmt.Sprintf("priced total %s exceeds budget %s", total.String(), sr.maxPrice.String())}
	}

	sr.offer = priced
	sr.total = total
	o.Logger.Info("SAGA", fmt.Sprintf("attempt %s: priced offer %s at %s %s", sr.attemptID, priced.ID, total.String(), total.Currency()))
	return nil
}

// stepFetchSeatMap is non-fatal: a missing or failing seat map means the
// order simply goes out without a seat selection.
func (o *Orchestrator) stepFetchSeatMap(ctx context.Context, sr *sagaRun) error {
	seatMap, err := o.Supplier.GetSeatMap(ctx, sr.offer.ID)
	if err != nil {
		return &SupplierError{Op: "get seat map", Err: err}
	}
	sr.seatMap = seatMap
	return nil
}

func (o *Orchestrator) stepSelectSeat(_ context.Context, sr *sagaRun) error {
	if sr.seatMap == nil {
		return nil
	}
	sr.seat = seats.Select(sr.seatMap.Rows, sr.total, sr.maxPrice, sr.trip.AllowMiddleSeat)
	if sr.seat != nil {
		o.Logger.Info("SAGA", fmt.Sprintf("attempt %s: selected seat %s", sr.attemptID, sr.seat.SeatNumber))
	}
	return nil
}

func (o *Orchestrator) stepCreateOrder(ctx context.Context, sr *sagaRun) error {
	if sr.offer.Expired(o.now()) {
		return &PolicyViolation{Reason: fmt.Sprintf("offer %s expired at %s", sr.offer.ID, sr.offer.ExpiresAt.Format(time.RFC3339))}
	}

	orderReq := models.OrderRequest{
		OfferID:        sr.offer.ID,
		Traveler:       *sr.trip.Traveler,
		SeatSelections: []models.SeatSelection{},
		IdempotencyKey: sr.attemptID,
	}
	if sr.seat != nil && len(sr.offer.SegmentIDs) > 0 {
		orderReq.SeatSelections = append(orderReq.SeatSelections, models.SeatSelection{
			SegmentID:  sr.offer.SegmentIDs[0],
			SeatNumber: sr.seat.SeatNumber,
		})
	}

	order, err := o.Supplier.CreateOrder(ctx, orderReq)
	if err != nil {
		return &SupplierError{Op: "create order", Err: err}
	}
	sr.order = order
	o.Logger.Info("SAGA", fmt.Sprintf("attempt %s: supplier order %s created (pnr %s)", sr.attemptID, order.ID, order.PNR))
	return nil
}

func (o *Orchestrator) stepCapturePayment(ctx context.Context, sr *sagaRun) error {
	capture, err := o.Payments.Capture(ctx, CaptureParams{
		PaymentIntentID: sr.trip.PaymentIntentID,
		Amount:          sr.total,
		IdempotencyKey:  fmt.Sprintf("charge-%s-%s", sr.trip.ID, sr.attemptID),
	})
	if err != nil {
		return &PaymentError{Op: "capture", Err: err}
	}
	if !capture.Succeeded() {
		return &PaymentError{Op: "capture", Err: fmt.Errorf("payment intent %s ended in status %s", capture.PaymentIntentID, capture.Status)}
	}
	sr.capture = capture
	o.Logger.Info("PAYMENT", fmt.Sprintf("attempt %s: captured %s %s on %s", sr.attemptID, sr.total.String(), sr.total.Currency(), capture.PaymentIntentID))
	return nil
}

func (o *Orchestrator) stepPersistOutcome(ctx context.Context, sr *sagaRun) error {
	var seatNumber *string
	if sr.seat != nil {
		n := sr.seat.SeatNumber
		seatNumber = &n
	}
	sr.booking = &models.Booking{
		ID:                 sr.attemptID,
		UserID:             sr.trip.UserID,
		TripRequestID:      sr.trip.ID,
		Status:             models.BookingStatusBooked,
		SelectedSeatNumber: seatNumber,
		SupplierOrderID:    sr.order.ID,
		PNR:                sr.order.PNR,
		PaymentIntentID:    sr.capture.PaymentIntentID,
		Amount:             sr.total.String(),
		Currency:           sr.total.Currency(),
		CreatedAt:          o.now().UTC(),
	}
	if err := o.Store.PersistOutcome(ctx, sr.booking); err != nil {
		return &PersistenceError{Op: "persist booking", Err: err}
	}
	return nil
}

// compensate applies the undo action for the last completed state, if the
// table has one. A persistence failure after capture has no safe undo and is
// escalated for manual reconciliation instead.
func (o *Orchestrator) compensate(ctx context.Context, sr *sagaRun, cause error) {
	comp, ok := o.compensations()[sr.lastCompleted]
	if !ok {
		if sr.lastCompleted == StateCaptured {
			o.Logger.Error("RECONCILE", fmt.Sprintf(
				"MANUAL RECONCILIATION REQUIRED: attempt %s captured payment %s for live order %s but persistence failed: %v",
				sr.attemptID, sr.capture.PaymentIntentID, sr.order.ID, cause))
		}
		return
	}
	if err := comp(ctx, sr); err != nil {
		o.Logger.Error("RECONCILE", fmt.Sprintf(
			"compensation for attempt %s in state %s failed, order %s may be live: %v",
			sr.attemptID, sr.lastCompleted, sr.order.ID, err))
		return
	}
	sr.lastCompleted = StateCompensated
	o.Logger.Info("SAGA", fmt.Sprintf("attempt %s: compensated, supplier order cancelled", sr.attemptID))
}

func (o *Orchestrator) finishCompleted(ctx context.Context, sr *sagaRun) {
	if err := o.Store.FinishAttempt(ctx, sr.attemptID, models.AttemptStatusCompleted, "", sr.order.ID); err != nil {
		o.Logger.Error("SAGA", fmt.Sprintf("attempt %s: failed to record completion: %v", sr.attemptID, err))
	}
	o.Logger.Info("SAGA", fmt.Sprintf("attempt %s: completed, flight order %s", sr.attemptID, sr.order.ID))
}

// publishBooked is best effort: the booking is already durable when it runs.
func (o *Orchestrator) publishBooked(ctx context.Context, sr *sagaRun) {
	if o.Notifier == nil {
		return
	}
	event := models.BookingEvent{
		Type:          models.EventBookingBooked,
		BookingID:     sr.booking.ID,
		PNR:           sr.order.PNR,
		TripRequestID: sr.trip.ID,
		FlightOrderID: sr.order.ID,
		Timestamp:     o.now().UTC(),
	}
	if err := o.Notifier.PublishBookingEvent(ctx, event); err != nil {
		o.Logger.Warn("KAFKA", fmt.Sprintf("attempt %s: failed to publish booking event: %v", sr.attemptID, err))
	}
}

func (o *Orchestrator) finishFailed(ctx context.Context, sr *sagaRun, cause error) {
	if err := o.Store.MarkTripRequestFailed(ctx, sr.trip.ID, cause.Error()); err != nil {
		o.Logger.Error("SAGA", fmt.Sprintf("attempt %s: failed to mark trip request failed: %v", sr.attemptID, err))
	}
	orderID := ""
	if sr.order != nil {
		orderID = sr.order.ID
	}
	if err := o.Store.FinishAttempt(ctx, sr.attemptID, models.AttemptStatusFailed, cause.Error(), orderID); err != nil {
		o.Logger.Error("SAGA", fmt.Sprintf("attempt %s: failed to record failure: %v", sr.attemptID, err))
	}
}
