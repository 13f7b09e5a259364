package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/medsnear/medsnear/internal/adapters/postgres"
	"github.com/medsnear/medsnear/internal/core/domain"
	"github.com/medsnear/medsnear/internal/pkg/config"
	"github.com/medsnear/medsnear/internal/pkg/logging"
	"github.com/medsnear/medsnear/internal/workflows"
)

func main() {
	cfg, err := config.Load("medsnear-couponworker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		slog.Error("database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	coupons := postgres.NewCouponRepo(db)

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		slog.Error("temporal client", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.CouponExpiryWorkflow)
	w.RegisterActivity(&workflows.CouponActivities{Coupons: coupons})

	// Coupons created while no worker was running still need their timers.
	scheduleCtx, scheduleCancel := context.WithTimeout(ctx, time.Minute)
	scheduleExisting(scheduleCtx, c, cfg.Temporal.TaskQueue, coupons)
	scheduleCancel()

	slog.Info("coupon worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		slog.Error("worker", "error", err)
		os.Exit(1)
	}
}

type expiringLister interface {
	ListExpiring(ctx context.Context) ([]domain.Coupon, error)
}

func scheduleExisting(ctx context.Context, c client.Client, taskQueue string, coupons expiringLister) {
	list, err := coupons.ListExpiring(ctx)
	if err != nil {
		slog.Warn("list expiring coupons failed", "error", err)
		return
	}

	scheduled := 0
	for _, cp := range list {
		if err := workflows.ScheduleCouponExpiry(ctx, c, taskQueue, cp); err != nil {
			slog.Warn("schedule coupon expiry failed", "code", cp.Code, "error", err)
			continue
		}
		scheduled++
	}
	slog.Info("coupon expiry workflows scheduled", "scheduled", scheduled, "coupons", len(list))
}
