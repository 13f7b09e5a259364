package natsadapter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/medsnear/medsnear/internal/core/ports"
	"github.com/medsnear/medsnear/internal/pkg/metrics"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
//
// Every replica needs to see every catalog event, so subscriptions use
// ephemeral consumers starting at new messages rather than a shared durable.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber connects to NATS and enables JetStream.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeCatalogEvents delivers every catalog event to handler.
func (s *Subscriber) SubscribeCatalogEvents(ctx context.Context, handler ports.CatalogEventHandler) error {
	sub, err := s.js.Subscribe(SubjectPrefix+">", func(msg *nats.Msg) {
		ev, err := DecodeCatalogEvent(msg.Data)
		if err != nil {
			// Poison message; redelivery cannot fix it.
			slog.Warn("dropping malformed catalog event", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		metrics.CatalogEventsReceived.WithLabelValues(string(ev.Kind)).Inc()
		if err := handler(ctx, ev); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return fmt.Errorf("subscribe catalog events: %w", err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
