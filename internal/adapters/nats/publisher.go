package natsadapter

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/medsnear/medsnear/internal/core/domain"
	"github.com/medsnear/medsnear/internal/pkg/metrics"
)

// StreamName is the JetStream stream holding catalog events.
const StreamName = "CATALOG_EVENTS"

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the catalog stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{SubjectPrefix + ">"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist; try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishCatalogEvent publishes ev on the pharmacy's subject.
func (p *Publisher) PublishCatalogEvent(ctx context.Context, ev *domain.CatalogEvent) error {
	data, err := EncodeCatalogEvent(ev)
	if err != nil {
		return err
	}
	if _, err := p.js.Publish(Subject(ev.PharmacyID), data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish catalog event: %w", err)
	}
	metrics.CatalogEventsPublished.WithLabelValues(string(ev.Kind)).Inc()
	return nil
}

// Conn exposes the underlying connection for readiness checks.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection (e.g. for the WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("medsnear"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
