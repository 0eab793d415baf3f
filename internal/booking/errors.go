package booking

import "fmt"

// ValidationError covers malformed or unusable input. It short-circuits
// before any external call.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// PolicyViolation covers requests that are well formed but not allowed:
// expired offer, budget exceeded, wrong booking status, cancellation window
// passed.
type PolicyViolation struct {
	Reason string
}

func (e *PolicyViolation) Error() string { return e.Reason }

// SupplierError wraps a failure talking to the flight supplier.
type SupplierError struct {
	Op  string
	Err error
}

func (e *SupplierError) Error() string { return fmt.Sprintf("supplier %s: %v", e.Op, e.Err) }
func (e *SupplierError) Unwrap() error { return e.Err }

// PaymentError wraps a failure talking to the payment processor.
type PaymentError struct {
	Op  string
	Err error
}

func (e *PaymentError) Error() string { return fmt.Sprintf("payment %s: %v", e.Op, e.Err) }
func (e *PaymentError) Unwrap() error { return e.Err }

// PersistenceError wraps a store failure. When it happens after a successful
// capture it is surfaced without compensation (see the saga notes).
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persistence %s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

// NotFoundError covers a missing booking or trip request.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Kind, e.ID) }

// UnauthorizedError covers a requester acting on another user's booking.
type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string { return e.Msg }
