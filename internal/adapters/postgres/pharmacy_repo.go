package postgres

import (
	"context"

	"github.com/medsnear/medsnear/internal/core/domain"
)

// PharmacyRepo implements ports.PharmacyRepository with pgx.
type PharmacyRepo struct {
	db *DB
}

// NewPharmacyRepo creates a new PharmacyRepo.
func NewPharmacyRepo(db *DB) *PharmacyRepo {
	return &PharmacyRepo{db: db}
}

const pharmacyColumns = `
	id, slug, name, COALESCE(address, ''), COALESCE(phone, ''),
	COALESCE(ST_Y(location::geometry), 0) AS lat,
	COALESCE(ST_X(location::geometry), 0) AS lon,
	active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPharmacy(row rowScanner) (domain.Pharmacy, error) {
	var p domain.Pharmacy
	err := row.Scan(
		&p.ID, &p.Slug, &p.Name, &p.Address, &p.Phone,
		&p.Location.Lat, &p.Location.Lon,
		&p.Active, &p.CreatedAt,
	)
	return p, err
}

// Create inserts a pharmacy and fills in its generated ID.
func (r *PharmacyRepo) Create(ctx context.Context, p *domain.Pharmacy) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO pharmacies (slug, name, address, phone, location, active, created_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), ST_SetSRID(ST_MakePoint($5, $6), 4326)::geography, $7, $8)
		RETURNING id
	`, p.Slug, p.Name, p.Address, p.Phone, p.Location.Lon, p.Location.Lat, p.Active, p.CreatedAt).Scan(&p.ID)
	return translate(err)
}

// GetBySlug returns a pharmacy by slug.
func (r *PharmacyRepo) GetBySlug(ctx context.Context, slug string) (*domain.Pharmacy, error) {
	p, err := scanPharmacy(r.db.Pool.QueryRow(ctx, `SELECT `+pharmacyColumns+` FROM pharmacies WHERE slug = $1`, slug))
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// SlugExists reports whether slug is taken.
func (r *PharmacyRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pharmacies WHERE slug = $1)`, slug).Scan(&exists)
	return exists, err
}

// List returns pharmacies ordered by name, plus the total count.
func (r *PharmacyRepo) List(ctx context.Context, offset, limit int) ([]domain.Pharmacy, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM pharmacies`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+pharmacyColumns+`
		FROM pharmacies
		ORDER BY name, slug
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Pharmacy
	for rows.Next() {
		p, err := scanPharmacy(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// ListActive returns every active pharmacy with a location.
func (r *PharmacyRepo) ListActive(ctx context.Context) ([]domain.Pharmacy, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+pharmacyColumns+`
		FROM pharmacies
		WHERE active AND location IS NOT NULL
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Pharmacy
	for rows.Next() {
		p, err := scanPharmacy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
