// Package workflows holds the Temporal workflows run by cmd/couponworker.
package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/medsnear/medsnear/internal/core/domain"
)

const (
	// SignalExtend carries a new expiry time (time.Time) for a running workflow.
	SignalExtend = "extend-coupon"
	// QueryExpiresAt returns the expiry time the workflow is waiting for.
	QueryExpiresAt = "expires-at"

	activityDeactivateCoupon = "DeactivateCoupon"
)

// CouponExpiryInput is the input for the coupon expiry workflow.
type CouponExpiryInput struct {
	Code      string
	ExpiresAt time.Time
}

// WorkflowID is the deterministic workflow ID for a coupon, so a coupon has
// at most one running expiry workflow.
func WorkflowID(code string) string {
	return "coupon-expiry-" + code
}

// CouponExpiryWorkflow sleeps until the coupon expires, then deactivates it.
// The expiry can be moved with SignalExtend while the workflow waits.
func CouponExpiryWorkflow(ctx workflow.Context, input CouponExpiryInput) error {
	logger := workflow.GetLogger(ctx)
	if input.Code == "" || input.ExpiresAt.IsZero() {
		return temporal.NewNonRetryableApplicationError("coupon code and expiry are required", "InvalidInput", nil)
	}

	expiresAt := input.ExpiresAt
	if err := workflow.SetQueryHandler(ctx, QueryExpiresAt, func() (time.Time, error) {
		return expiresAt, nil
	}); err != nil {
		return err
	}

	extend := workflow.GetSignalChannel(ctx, SignalExtend)
	for {
		wait := expiresAt.Sub(workflow.Now(ctx))
		if wait <= 0 {
			break
		}

		timerCtx, cancelTimer := workflow.WithCancel(ctx)
		timer := workflow.NewTimer(timerCtx, wait)

		fired := false
		sel := workflow.NewSelector(ctx)
		sel.AddFuture(timer, func(f workflow.Future) {
			fired = f.Get(ctx, nil) == nil
		})
		sel.AddReceive(extend, func(c workflow.ReceiveChannel, more bool) {
			var next time.Time
			c.Receive(ctx, &next)
			logger.Info("coupon expiry extended", "code", input.Code, "from", expiresAt, "to", next)
			expiresAt = next
		})
		sel.Select(ctx)
		cancelTimer()

		if fired {
			break
		}
	}

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	if err := workflow.ExecuteActivity(ctx, activityDeactivateCoupon, input.Code).Get(ctx, nil); err != nil {
		logger.Error("coupon deactivation failed", "code", input.Code, "error", err)
		return err
	}

	logger.Info("coupon expired", "code", input.Code)
	return nil
}

// ScheduleCouponExpiry starts the expiry workflow for c on taskQueue. A
// coupon that already has a running workflow is left alone.
func ScheduleCouponExpiry(ctx context.Context, tc client.Client, taskQueue string, c domain.Coupon) error {
	if c.ExpiresAt.IsZero() {
		return fmt.Errorf("coupon %s has no expiry", c.Code)
	}
	_, err := tc.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        WorkflowID(c.Code),
		TaskQueue: taskQueue,
	}, CouponExpiryWorkflow, CouponExpiryInput{Code: c.Code, ExpiresAt: c.ExpiresAt})

	var started *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &started) {
		return nil
	}
	return err
}
