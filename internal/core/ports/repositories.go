package ports

import (
	"context"

	"github.com/medsnear/medsnear/internal/core/domain"
)

// CatalogRepository persists catalog listings.
type CatalogRepository interface {
	Upsert(ctx context.Context, item *domain.CatalogItem) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.CatalogItem, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.CatalogItem, error)
	// ListAll returns every in-stock listing of active pharmacies.
	ListAll(ctx context.Context) ([]domain.CatalogItem, error)
	// ListWithin returns listings whose seller is within radiusKm of center.
	ListWithin(ctx context.Context, center domain.GeoPoint, radiusKm float64) ([]domain.CatalogItem, error)
}

// PharmacyRepository persists pharmacies.
type PharmacyRepository interface {
	Create(ctx context.Context, p *domain.Pharmacy) error
	GetBySlug(ctx context.Context, slug string) (*domain.Pharmacy, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, offset, limit int) ([]domain.Pharmacy, int, error)
	ListActive(ctx context.Context) ([]domain.Pharmacy, error)
}

// CouponRepository persists checkout coupons.
type CouponRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)
	Deactivate(ctx context.Context, code string) error
	// ListExpiring returns active coupons that carry an expiry time.
	ListExpiring(ctx context.Context) ([]domain.Coupon, error)
}
