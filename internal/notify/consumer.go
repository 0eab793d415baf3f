package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"ms-autobook/internal/logger"
	"ms-autobook/internal/models"
)

// Store is the persistence the worker needs: resolving the booking owner and
// writing the notification row.
type Store interface {
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	SaveNotification(ctx context.Context, n *models.Notification) error
}

type Consumer struct {
	reader *kafka.Reader
	Store  Store
	Logger *logger.Logger
}

// NewConsumer creates a Kafka consumer on the booking events topic.
func NewConsumer(brokers []string, groupID string, store Store, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    Topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader, Store: store, Logger: log}
}

// Start consumes booking events until the context is canceled. A message
// that fails to persist is logged and skipped rather than blocking the
// stream.
func (c *Consumer) Start(ctx context.Context) {
	c.Logger.Info("KAFKA", "notify consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			c.Logger.Error("KAFKA", fmt.Sprintf("error reading message: %v", err))
			continue
		}

		var event models.BookingEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.Logger.Warn("KAFKA", fmt.Sprintf("failed to unmarshal booking event: %v", err))
			continue
		}

		if err := c.Handle(ctx, event); err != nil {
			c.Logger.Error("KAFKA", fmt.Sprintf("failed to handle %s for booking %s: %v", event.Type, event.BookingID, err))
		}
	}
}

// Handle persists one notification row for a consumed booking event.
func (c *Consumer) Handle(ctx context.Context, event models.BookingEvent) error {
	userID := ""
	if booking, err := c.Store.GetBooking(ctx, event.BookingID); err == nil {
		userID = booking.UserID
	} else {
		c.Logger.Warn("KAFKA", fmt.Sprintf("could not resolve owner of booking %s: %v", event.BookingID, err))
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	notification := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      event.Type,
		Payload:   string(payload),
		CreatedAt: time.Now().UTC(),
	}
	if err := c.Store.SaveNotification(ctx, notification); err != nil {
		return err
	}

	c.Logger.Info("KAFKA", fmt.Sprintf("stored %s notification for booking %s", event.Type, event.BookingID))
	return nil
}

// Close gracefully shuts down the Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
