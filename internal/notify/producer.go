package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ms-autobook/internal/logger"
	"ms-autobook/internal/models"
)

// Topic carries booking lifecycle events to the notify worker.
const Topic = "booking_events"

type Producer struct {
	Writer *kafka.Writer
	Logger *logger.Logger
}

func NewProducer(brokers []string, log *logger.Logger) *Producer {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
		Topic:   Topic,
	})
	return &Producer{Writer: writer, Logger: log}
}

// PublishBookingEvent streams one booking lifecycle event, keyed by booking
// id so events for one booking stay ordered.
func (p *Producer) PublishBookingEvent(ctx context.Context, event models.BookingEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	p.Logger.Info("KAFKA", fmt.Sprintf("publishing %s for booking %s", event.Type, event.BookingID))
	return p.Writer.WriteMessages(ctx,
		kafka.Message{
			Key:   []byte(event.BookingID),
			Value: msgBytes,
		},
	)
}

// Close flushes and shuts down the writer.
func (p *Producer) Close() error {
	return p.Writer.Close()
}
