package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const (
	EventLowStock       = "inventory.low_stock"
	EventOrderConfirmed = "order.confirmed"
	EventHighValueSale  = "order.high_value"
)

// KafkaSink publishes notification events to a single topic. Events
// are keyed by their subject (product ref or order number) so
// per-subject ordering is preserved.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(topic string, brokers ...string) *KafkaSink {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaSink{writer: w}
}

func (s *KafkaSink) LowStock(ctx context.Context, productRef string, remaining int) error {
	return s.publish(ctx, EventLowStock, productRef, map[string]any{
		"product_ref": productRef,
		"remaining":   remaining,
	})
}

func (s *KafkaSink) OrderConfirmed(ctx context.Context, orderNumber string, total decimal.Decimal) error {
	return s.publish(ctx, EventOrderConfirmed, orderNumber, map[string]any{
		"order_number": orderNumber,
		"total":        total.String(),
	})
}

func (s *KafkaSink) HighValueSale(ctx context.Context, orderNumber string, total decimal.Decimal) error {
	return s.publish(ctx, EventHighValueSale, orderNumber, map[string]any{
		"order_number": orderNumber,
		"total":        total.String(),
	})
}

func (s *KafkaSink) publish(ctx context.Context, eventType, key string, payload map[string]any) error {
	payload["emitted_at"] = time.Now().UTC().Format(time.RFC3339)

	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}

	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
