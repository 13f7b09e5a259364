package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"

	"github.com/medsnear/medsnear/internal/core/domain"
	"github.com/medsnear/medsnear/internal/core/ports"
)

// CouponActivities holds the activity implementations for the coupon expiry workflow.
type CouponActivities struct {
	Coupons ports.CouponRepository
}

// DeactivateCoupon switches a coupon off. A coupon that no longer exists is
// treated as already handled.
func (a *CouponActivities) DeactivateCoupon(ctx context.Context, code string) error {
	err := a.Coupons.Deactivate(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		activity.GetLogger(ctx).Warn("coupon vanished before expiry", "code", code)
		return nil
	}
	if err != nil {
		return fmt.Errorf("deactivate coupon %s: %w", code, err)
	}
	activity.GetLogger(ctx).Info("coupon deactivated", "code", code)
	return nil
}
