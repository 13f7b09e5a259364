package valkey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ErrMiss is returned by Get when the key does not exist.
var ErrMiss = errors.New("cache miss")

const keyPrefix = "medsnear:"

// Cache implements ports.CacheService using Valkey (Redis-compatible).
// Keys are namespaced so several services can share one instance.
type Cache struct {
	client valkey.Client
}

// New connects to addr. The snapshot cache is read by every replica, so
// server-assisted client-side caching is left off.
func New(addr string) (*Cache, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:  []string{addr},
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &Cache{client: client}, nil
}

func key(k string) string { return keyPrefix + k }

// Get returns ErrMiss when k is absent or expired.
func (c *Cache) Get(ctx context.Context, k string) ([]byte, error) {
	b, err := c.client.Do(ctx, c.client.B().Get().Key(key(k)).Build()).AsBytes()
	switch {
	case valkey.IsValkeyNil(err):
		return nil, ErrMiss
	case err != nil:
		return nil, fmt.Errorf("valkey get %s: %w", k, err)
	}
	return b, nil
}

// Set stores value under k. ttlSeconds <= 0 keeps it until deleted.
func (c *Cache) Set(ctx context.Context, k string, value []byte, ttlSeconds int) error {
	set := c.client.B().Set().Key(key(k)).Value(valkey.BinaryString(value))
	var err error
	if ttlSeconds > 0 {
		err = c.client.Do(ctx, set.Ex(time.Duration(ttlSeconds)*time.Second).Build()).Error()
	} else {
		err = c.client.Do(ctx, set.Build()).Error()
	}
	if err != nil {
		return fmt.Errorf("valkey set %s: %w", k, err)
	}
	return nil
}

// Delete removes k. Deleting a missing key is not an error.
func (c *Cache) Delete(ctx context.Context, k string) error {
	if err := c.client.Do(ctx, c.client.B().Del().Key(key(k)).Build()).Error(); err != nil {
		return fmt.Errorf("valkey del %s: %w", k, err)
	}
	return nil
}

// Ping checks that the server answers.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}

// Close releases the client.
func (c *Cache) Close() {
	c.client.Close()
}
