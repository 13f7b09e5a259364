package postgres

import (
	"context"
	"time"

	"github.com/medsnear/medsnear/internal/core/domain"
)

// CouponRepo implements ports.CouponRepository with pgx.
type CouponRepo struct {
	db *DB
}

// NewCouponRepo creates a new CouponRepo.
func NewCouponRepo(db *DB) *CouponRepo {
	return &CouponRepo{db: db}
}

// GetByCode returns a coupon by its (upper-case) code.
func (r *CouponRepo) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	var (
		c         domain.Coupon
		expiresAt *time.Time
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT code, kind, value, min_order, max_discount, expires_at, active
		FROM coupons WHERE code = upper($1)
	`, code).Scan(&c.Code, &c.Kind, &c.Value, &c.MinOrder, &c.MaxDiscount, &expiresAt, &c.Active)
	if err != nil {
		return nil, translate(err)
	}
	if expiresAt != nil {
		c.ExpiresAt = *expiresAt
	}
	return &c, nil
}

// Deactivate switches a coupon off. Deactivating an inactive coupon is a no-op.
func (r *CouponRepo) Deactivate(ctx context.Context, code string) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE coupons SET active = false WHERE code = upper($1)`, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListExpiring returns active coupons with an expiry time, soonest first.
func (r *CouponRepo) ListExpiring(ctx context.Context) ([]domain.Coupon, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT code, kind, value, min_order, max_discount, expires_at, active
		FROM coupons
		WHERE active AND expires_at IS NOT NULL
		ORDER BY expires_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Coupon
	for rows.Next() {
		var c domain.Coupon
		if err := rows.Scan(&c.Code, &c.Kind, &c.Value, &c.MinOrder, &c.MaxDiscount, &c.ExpiresAt, &c.Active); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
