package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/pratyushm21/ecommerce-saga/internal/inventory/application"
	orderdom "github.com/pratyushm21/ecommerce-saga/internal/order/domain"
	"github.com/pratyushm21/ecommerce-saga/internal/platform/metrics"
	"github.com/pratyushm21/ecommerce-saga/pkg/tracing"
)

const (
	TopicOrderEvents = "order.events"
	TopicDeadLetter  = "order.events.dlq"
	GroupSettlement  = "inventory-settlement"

	maxAttempts = 3
	baseBackoff = time.Second
)

// messageFetcher is the slice of kafka.Reader the consumer uses.
type messageFetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DeadLetterWriter receives messages that could not be processed.
type DeadLetterWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Deduplicator tracks already-processed message ids. Satisfied by
// *idempotency.Store.
type Deduplicator interface {
	Key(consumer, messageID string) string
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// Consumer settles inventory from order lifecycle events: completed orders
// commit the stock deduction, cancelled orders release the reservation.
// Poison messages go to the dead-letter topic; the loop itself never stops on
// a bad message.
type Consumer struct {
	log    *slog.Logger
	reader messageFetcher
	dlq    DeadLetterWriter
	svc    *application.Service
	idem   Deduplicator
	tracer trace.Tracer
	sleep  func(context.Context, time.Duration)
}

func NewConsumer(log *slog.Logger, brokers []string, svc *application.Service, idem Deduplicator) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   TopicOrderEvents,
		GroupID: GroupSettlement,
	})
	dlq := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        TopicDeadLetter,
		RequiredAcks: kafka.RequireAll,
	}
	return newConsumer(log, reader, dlq, svc, idem)
}

func newConsumer(log *slog.Logger, reader messageFetcher, dlq DeadLetterWriter, svc *application.Service, idem Deduplicator) *Consumer {
	return &Consumer{
		log:    log,
		reader: reader,
		dlq:    dlq,
		svc:    svc,
		idem:   idem,
		tracer: otel.Tracer("inventory-settlement"),
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// Run fetches and settles messages until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		c.handle(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "SettleOrderEvent")
	defer span.End()

	var ev orderdom.OrderMessage
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		// Malformed payloads can never succeed; straight to the DLQ.
		c.log.Error("undecodable message", "topic", msg.Topic, "offset", msg.Offset, "err", err)
		metrics.SettlementMessages.WithLabelValues("dead_letter").Inc()
		c.deadLetter(msgCtx, msg, "decode: "+err.Error())
		c.commit(ctx, msg)
		return
	}

	var dedupKey string
	if ev.MessageID != "" {
		dedupKey = c.idem.Key(GroupSettlement, ev.MessageID)
		seen, err := c.idem.Seen(msgCtx, dedupKey)
		if err != nil {
			c.log.Error("dedup check failed", "message_id", ev.MessageID, "err", err)
		} else if seen {
			c.log.Info("duplicate message skipped", "message_id", ev.MessageID, "message_type", ev.MessageType)
			metrics.SettlementMessages.WithLabelValues("duplicate").Inc()
			c.commit(ctx, msg)
			return
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			c.sleep(msgCtx, baseBackoff*time.Duration(1<<attempt))
		}
		lastErr = c.dispatch(msgCtx, ev)
		if lastErr == nil {
			metrics.SettlementMessages.WithLabelValues("processed").Inc()
			c.markProcessed(msgCtx, dedupKey)
			c.commit(ctx, msg)
			return
		}
		c.log.Warn("settlement attempt failed",
			"message_type", ev.MessageType, "order_id", ev.OrderID, "attempt", attempt+1, "err", lastErr)
	}

	c.log.Error("settlement exhausted retries",
		"message_type", ev.MessageType, "order_id", ev.OrderID, "err", lastErr)
	metrics.SettlementMessages.WithLabelValues("dead_letter").Inc()
	c.markProcessed(msgCtx, dedupKey)
	c.deadLetter(msgCtx, msg, lastErr.Error())
	c.commit(ctx, msg)
}

// markProcessed records the message id once its outcome is settled: after a
// successful dispatch or after handing it to the dead-letter topic. Marking
// earlier would make a crash before the offset commit drop the redelivery as
// a duplicate.
func (c *Consumer) markProcessed(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := c.idem.Mark(ctx, key); err != nil {
		c.log.Error("dedup mark failed", "key", key, "err", err)
	}
}

// dispatch routes one decoded event. Unknown message types and
// non-settling statuses are dropped as processed.
func (c *Consumer) dispatch(ctx context.Context, ev orderdom.OrderMessage) error {
	items := settlementItems(ev)
	switch ev.MessageType {
	case orderdom.MessageOrderCompleted:
		return c.svc.CommitOrder(ctx, ev.OrderID, items)
	case orderdom.MessageOrderCancelled:
		return c.svc.ReleaseOrder(ctx, ev.OrderID, items)
	case orderdom.MessageOrderUpdated:
		switch ev.Status {
		case "delivered", "completed":
			return c.svc.CommitOrder(ctx, ev.OrderID, items)
		case "cancelled":
			return c.svc.ReleaseOrder(ctx, ev.OrderID, items)
		default:
			c.log.Debug("update without settlement effect", "order_id", ev.OrderID, "status", ev.Status)
			return nil
		}
	default:
		c.log.Debug("ignoring message type", "message_type", ev.MessageType, "order_id", ev.OrderID)
		return nil
	}
}

func settlementItems(ev orderdom.OrderMessage) []application.SettlementItem {
	items := make([]application.SettlementItem, 0, len(ev.Items))
	for _, it := range ev.Items {
		items = append(items, application.SettlementItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return items
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, reason string) {
	dead := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(msg.Headers,
			kafka.Header{Key: "dlq_reason", Value: []byte(reason)},
			kafka.Header{Key: "dlq_source_topic", Value: []byte(msg.Topic)},
		),
	}
	if err := c.dlq.WriteMessages(ctx, dead); err != nil {
		c.log.Error("dead-letter write failed", "topic", msg.Topic, "offset", msg.Offset, "err", err)
	}
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.log.Error("offset commit failed", "topic", msg.Topic, "offset", msg.Offset, "err", err)
	}
}
