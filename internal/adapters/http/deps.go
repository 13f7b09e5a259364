package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/medsnear/medsnear/internal/core/usecases"
)

// Pinger is a backing service that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Catalog    *usecases.CatalogService
	Pharmacies *usecases.PharmacyService
	Checkout   *usecases.CheckoutService
	NATS       *nats.Conn
	DB         Pinger
	Cache      Pinger
	Version    string
}
