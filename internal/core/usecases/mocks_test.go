package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/medsnear/medsnear/internal/core/domain"
)

// --- Mock CatalogRepository ---

type mockCatalogRepo struct {
	upsertFn     func(ctx context.Context, item *domain.CatalogItem) error
	deleteFn     func(ctx context.Context, id string) error
	getByIDFn    func(ctx context.Context, id string) (*domain.CatalogItem, error)
	getByIDsFn   func(ctx context.Context, ids []string) ([]domain.CatalogItem, error)
	listAllFn    func(ctx context.Context) ([]domain.CatalogItem, error)
	listWithinFn func(ctx context.Context, center domain.GeoPoint, radiusKm float64) ([]domain.CatalogItem, error)
}

func (m *mockCatalogRepo) Upsert(ctx context.Context, item *domain.CatalogItem) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, item)
	}
	return nil
}

func (m *mockCatalogRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockCatalogRepo) GetByID(ctx context.Context, id string) (*domain.CatalogItem, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockCatalogRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.CatalogItem, error) {
	if m.getByIDsFn != nil {
		return m.getByIDsFn(ctx, ids)
	}
	return nil, nil
}

func (m *mockCatalogRepo) ListAll(ctx context.Context) ([]domain.CatalogItem, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return nil, nil
}

func (m *mockCatalogRepo) ListWithin(ctx context.Context, center domain.GeoPoint, radiusKm float64) ([]domain.CatalogItem, error) {
	if m.listWithinFn != nil {
		return m.listWithinFn(ctx, center, radiusKm)
	}
	return nil, nil
}

// --- Mock PharmacyRepository ---

type mockPharmacyRepo struct {
	createFn     func(ctx context.Context, p *domain.Pharmacy) error
	getBySlugFn  func(ctx context.Context, slug string) (*domain.Pharmacy, error)
	slugExistsFn func(ctx context.Context, slug string) (bool, error)
	listFn       func(ctx context.Context, offset, limit int) ([]domain.Pharmacy, int, error)
	listActiveFn func(ctx context.Context) ([]domain.Pharmacy, error)
}

func (m *mockPharmacyRepo) Create(ctx context.Context, p *domain.Pharmacy) error {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	return nil
}

func (m *mockPharmacyRepo) GetBySlug(ctx context.Context, slug string) (*domain.Pharmacy, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, slug)
	}
	return nil, domain.ErrNotFound
}

func (m *mockPharmacyRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	if m.slugExistsFn != nil {
		return m.slugExistsFn(ctx, slug)
	}
	return false, nil
}

func (m *mockPharmacyRepo) List(ctx context.Context, offset, limit int) ([]domain.Pharmacy, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockPharmacyRepo) ListActive(ctx context.Context) ([]domain.Pharmacy, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx)
	}
	return nil, nil
}

// --- Mock CouponRepository ---

type mockCouponRepo struct {
	getByCodeFn  func(ctx context.Context, code string) (*domain.Coupon, error)
	deactivateFn func(ctx context.Context, code string) error
	expiringFn   func(ctx context.Context) ([]domain.Coupon, error)
}

func (m *mockCouponRepo) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	if m.getByCodeFn != nil {
		return m.getByCodeFn(ctx, code)
	}
	return nil, domain.ErrNotFound
}

func (m *mockCouponRepo) Deactivate(ctx context.Context, code string) error {
	if m.deactivateFn != nil {
		return m.deactivateFn(ctx, code)
	}
	return nil
}

func (m *mockCouponRepo) ListExpiring(ctx context.Context) ([]domain.Coupon, error) {
	if m.expiringFn != nil {
		return m.expiringFn(ctx)
	}
	return nil, nil
}

// --- In-memory CacheService ---

var errCacheMiss = errors.New("cache miss")

type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deletes []string
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return v, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	c.deletes = append(c.deletes, key)
	return nil
}

// --- Recording EventPublisher ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.CatalogEvent
	err    error
}

func (p *recordingPublisher) PublishCatalogEvent(ctx context.Context, ev *domain.CatalogEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *ev)
	return p.err
}
