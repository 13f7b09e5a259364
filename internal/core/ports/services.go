package ports

import (
	"context"

	"github.com/medsnear/medsnear/internal/core/domain"
)

// CatalogEventHandler reacts to one catalog change. A non-nil error asks the
// broker to redeliver.
type CatalogEventHandler func(ctx context.Context, ev *domain.CatalogEvent) error

// EventPublisher announces listing changes to other replicas and live clients.
type EventPublisher interface {
	PublishCatalogEvent(ctx context.Context, ev *domain.CatalogEvent) error
}

// EventSubscriber delivers listing changes published by any replica.
type EventSubscriber interface {
	SubscribeCatalogEvents(ctx context.Context, handler CatalogEventHandler) error
}

// CacheService is a byte cache keyed by string. Callers treat any Get error,
// including a miss, as "load from the source of truth".
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
