// Package pricing holds checkout arithmetic.
package pricing

import (
	"errors"
	"math"
	"time"

	"github.com/medsnear/medsnear/internal/core/domain"
)

var (
	ErrCouponInactive = errors.New("coupon is not active")
	ErrCouponExpired  = errors.New("coupon has expired")
	ErrBelowMinimum   = errors.New("order total is below the coupon minimum")
	ErrInvalidCoupon  = errors.New("coupon is misconfigured")
)

// Apply returns the discount c grants on subtotal at time now. All amounts
// are minor currency units. The discount never exceeds the subtotal.
func Apply(subtotal int64, c domain.Coupon, now time.Time) (int64, error) {
	if !c.Active {
		return 0, ErrCouponInactive
	}
	if !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt) {
		return 0, ErrCouponExpired
	}
	if subtotal < c.MinOrder {
		return 0, ErrBelowMinimum
	}
	if subtotal <= 0 {
		return 0, nil
	}

	var discount int64
	switch c.Kind {
	case domain.CouponPercent:
		if c.Value <= 0 || c.Value > 100 {
			return 0, ErrInvalidCoupon
		}
		discount = int64(math.Round(float64(subtotal) * float64(c.Value) / 100))
	case domain.CouponFixed:
		if c.Value <= 0 {
			return 0, ErrInvalidCoupon
		}
		discount = c.Value
	default:
		return 0, ErrInvalidCoupon
	}

	if c.MaxDiscount > 0 && discount > c.MaxDiscount {
		discount = c.MaxDiscount
	}
	if discount > subtotal {
		discount = subtotal
	}
	return discount, nil
}
