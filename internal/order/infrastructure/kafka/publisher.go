package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/segmentio/kafka-go"

	"github.com/pratyushm21/ecommerce-saga/internal/order/domain"
	"github.com/pratyushm21/ecommerce-saga/pkg/tracing"
)

const (
	TopicOrderEvents = "order.events"
	sourceService    = "order-service"
)

// Publisher writes order lifecycle events to the order.events topic. Messages
// are keyed by order id so all events of one order land on the same partition
// in order.
type Publisher struct {
	log    *slog.Logger
	writer *kafka.Writer
}

func NewPublisher(log *slog.Logger, brokers []string) *Publisher {
	return &Publisher{
		log: log,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        TopicOrderEvents,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *Publisher) PublishOrderEvent(ctx context.Context, messageType string, o domain.Order) error {
	msg := domain.OrderMessage{
		MessageID:     uuid.NewString(),
		MessageType:   messageType,
		Timestamp:     time.Now().UTC(),
		SourceService: sourceService,
		OrderID:       o.ID.String(),
		UserID:        o.UserID.String(),
		Status:        string(o.Status),
		TotalAmount:   o.Total,
		Items: lo.Map(o.Items, func(it domain.OrderItem, _ int) domain.MessageItem {
			return domain.MessageItem{
				ProductID: it.ProductID,
				SKU:       it.SKU,
				Quantity:  it.Quantity,
				Price:     it.Price,
			}
		}),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", messageType, err)
	}

	headers := []kafka.Header{{Key: "message_type", Value: []byte(messageType)}}
	headers = tracing.InjectKafkaHeaders(ctx, headers)

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(o.ID.String()),
		Value:   payload,
		Headers: headers,
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", messageType, err)
	}

	p.log.Debug("event published", "message_type", messageType, "order_id", o.ID, "message_id", msg.MessageID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
