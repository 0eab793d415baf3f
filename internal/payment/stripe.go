package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"ms-autobook/internal/booking"
	"ms-autobook/internal/logger"
	"ms-autobook/internal/models"
)

// Client wraps the Stripe SDK for payment capture and refunds. The caller's
// payment intents are authorized upstream; this client only moves them to
// captured or refunded.
type Client struct {
	api    *client.API
	Logger *logger.Logger
}

func NewClient(secretKey string, log *logger.Logger) *Client {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &Client{api: sc, Logger: log}
}

// NewClientWithBackends builds a client against custom Stripe backends, used
// to point the SDK at a test server.
func NewClientWithBackends(secretKey string, backends *stripe.Backends, log *logger.Logger) *Client {
	sc := &client.API{}
	sc.Init(secretKey, backends)
	return &Client{api: sc, Logger: log}
}

// Capture captures the authorized payment intent for exactly the priced
// amount. The idempotency key makes a retried capture return the first
// result instead of charging twice.
func (c *Client) Capture(ctx context.Context, params booking.CaptureParams) (*models.PaymentCapture, error) {
	captureParams := &stripe.PaymentIntentCaptureParams{
		AmountToCapture: stripe.Int64(params.Amount.MinorUnits()),
	}
	captureParams.Context = ctx
	if params.IdempotencyKey != "" {
		captureParams.SetIdempotencyKey(params.IdempotencyKey)
	}

	intent, err := c.api.PaymentIntents.Capture(params.PaymentIntentID, captureParams)
	if err != nil {
		return nil, fmt.Errorf("stripe capture failed for %s: %w", params.PaymentIntentID, err)
	}

	if intent.Amount != params.Amount.MinorUnits() {
		return nil, fmt.Errorf("captured amount %d does not match priced amount %d for %s",
			intent.Amount, params.Amount.MinorUnits(), params.PaymentIntentID)
	}
	if !strings.EqualFold(string(intent.Currency), params.Amount.Currency()) {
		return nil, fmt.Errorf("captured currency %s does not match priced currency %s for %s",
			intent.Currency, params.Amount.Currency(), params.PaymentIntentID)
	}

	c.Logger.Info("PAYMENT", fmt.Sprintf("captured %s %s on intent %s", params.Amount.String(), params.Amount.Currency(), intent.ID))
	return &models.PaymentCapture{
		PaymentIntentID: intent.ID,
		Status:          string(intent.Status),
		Amount:          params.Amount.String(),
		Currency:        params.Amount.Currency(),
	}, nil
}

// Refund refunds the full captured amount on the payment intent.
func (c *Client) Refund(ctx context.Context, paymentIntentID, reason string) (*models.Refund, error) {
	refundParams := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Reason:        stripe.String(reason),
	}
	refundParams.Context = ctx

	refund, err := c.api.Refunds.New(refundParams)
	if err != nil {
		return nil, fmt.Errorf("stripe refund failed for %s: %w", paymentIntentID, err)
	}

	c.Logger.Info("PAYMENT", fmt.Sprintf("refund %s issued on intent %s (%s)", refund.ID, paymentIntentID, reason))
	return &models.Refund{
		ID:              refund.ID,
		PaymentIntentID: paymentIntentID,
		Status:          string(refund.Status),
	}, nil
}
