package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medsnear/medsnear/internal/core/domain"
)

// CatalogRepo implements ports.CatalogRepository with pgx.
type CatalogRepo struct {
	db *DB
}

// NewCatalogRepo creates a new CatalogRepo.
func NewCatalogRepo(db *DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

// Optional text columns are coerced to empty strings before listings reach
// the search.
const catalogSelect = `
	SELECT c.id, c.pharmacy_id, p.slug, p.name,
	       c.name, COALESCE(c.ingredient, ''), COALESCE(c.category, ''),
	       ST_Y(p.location::geometry) AS lat,
	       ST_X(p.location::geometry) AS lon,
	       c.price, c.currency, c.stock, c.requires_prescription, c.updated_at
	FROM catalog_items c
	JOIN pharmacies p ON p.id = c.pharmacy_id`

func scanItem(row rowScanner) (domain.CatalogItem, error) {
	var (
		it       domain.CatalogItem
		lat, lon *float64
	)
	err := row.Scan(
		&it.ID, &it.PharmacyID, &it.PharmacySlug, &it.PharmacyName,
		&it.Name, &it.Ingredient, &it.Category,
		&lat, &lon,
		&it.Price, &it.Currency, &it.Stock, &it.RequiresPrescription, &it.UpdatedAt,
	)
	if err != nil {
		return it, err
	}
	if lat != nil && lon != nil {
		it.SellerLocation = &domain.GeoPoint{Lat: *lat, Lon: *lon}
	}
	return it, nil
}

func collectItems(rows pgx.Rows) ([]domain.CatalogItem, error) {
	defer rows.Close()
	var out []domain.CatalogItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Upsert inserts or updates a listing.
func (r *CatalogRepo) Upsert(ctx context.Context, it *domain.CatalogItem) error {
	if _, err := uuid.Parse(it.PharmacyID); err != nil {
		return fmt.Errorf("%w: pharmacy_id %q is not a UUID", domain.ErrInvalidInput, it.PharmacyID)
	}
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO catalog_items (id, pharmacy_id, name, ingredient, category, price, currency, stock, requires_prescription, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE
		SET pharmacy_id = EXCLUDED.pharmacy_id, name = EXCLUDED.name,
		    ingredient = EXCLUDED.ingredient, category = EXCLUDED.category,
		    price = EXCLUDED.price, currency = EXCLUDED.currency, stock = EXCLUDED.stock,
		    requires_prescription = EXCLUDED.requires_prescription,
		    updated_at = EXCLUDED.updated_at
	`, it.ID, it.PharmacyID, it.Name, it.Ingredient, it.Category,
		it.Price, it.Currency, it.Stock, it.RequiresPrescription, it.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert catalog item: %w", translate(err))
	}
	return nil
}

// Delete removes a listing.
func (r *CatalogRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM catalog_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID returns a listing by ID.
func (r *CatalogRepo) GetByID(ctx context.Context, id string) (*domain.CatalogItem, error) {
	it, err := scanItem(r.db.Pool.QueryRow(ctx, catalogSelect+` WHERE c.id = $1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return &it, nil
}

// GetByIDs returns listings by ID, in arbitrary order. Unknown IDs are skipped.
func (r *CatalogRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.CatalogItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Pool.Query(ctx, catalogSelect+` WHERE c.id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	return collectItems(rows)
}

// ListAll returns every in-stock listing of active pharmacies.
func (r *CatalogRepo) ListAll(ctx context.Context) ([]domain.CatalogItem, error) {
	rows, err := r.db.Pool.Query(ctx, catalogSelect+`
		WHERE p.active AND c.stock > 0
		ORDER BY c.id
	`)
	if err != nil {
		return nil, err
	}
	return collectItems(rows)
}

// ListWithin returns in-stock listings whose pharmacy lies within radiusKm
// of center, using PostGIS ST_DWithin.
func (r *CatalogRepo) ListWithin(ctx context.Context, center domain.GeoPoint, radiusKm float64) ([]domain.CatalogItem, error) {
	rows, err := r.db.Pool.Query(ctx, catalogSelect+`
		WHERE p.active AND c.stock > 0
		  AND ST_DWithin(p.location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY c.id
	`, center.Lon, center.Lat, radiusKm*1000)
	if err != nil {
		return nil, err
	}
	return collectItems(rows)
}
