package analytics

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"tabletap/internal/domain"
)

// EventPublisher streams customer order events to Kafka for the
// restaurant's analytics pipeline. Publishing is best-effort; the order
// flow never fails because analytics is down.
type EventPublisher struct {
	Writer *kafka.Writer
}

func NewEventPublisher(writer *kafka.Writer) *EventPublisher {
	return &EventPublisher{Writer: writer}
}

func (p *EventPublisher) PublishOrderPlaced(ctx context.Context, event domain.OrderEvent) error {
	payload, _ := json.Marshal(event)
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderID),
		Value: payload,
	})
}
