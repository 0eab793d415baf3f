package models

// CaptureStatusSucceeded is the only processor status that means the money
// was actually taken.
const CaptureStatusSucceeded = "succeeded"

// PaymentCapture is the processor-side record of a captured payment intent.
type PaymentCapture struct {
	PaymentIntentID string `json:"payment_intent_id"`
	Status          string `json:"status"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
}

// Succeeded reports whether the capture actually took the money.
func (c *PaymentCapture) Succeeded() bool {
	return c != nil && c.Status == CaptureStatusSucceeded
}

// Refund is the processor-side record of a refund.
type Refund struct {
	ID              string `json:"id"`
	PaymentIntentID string `json:"payment_intent_id"`
	Status          string `json:"status"`
}
