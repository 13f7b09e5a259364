package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"

	"github.com/medsnear/medsnear/internal/adapters/http"
	natsadapter "github.com/medsnear/medsnear/internal/adapters/nats"
	"github.com/medsnear/medsnear/internal/adapters/postgres"
	"github.com/medsnear/medsnear/internal/adapters/valkey"
	"github.com/medsnear/medsnear/internal/core/ports"
	"github.com/medsnear/medsnear/internal/core/search"
	"github.com/medsnear/medsnear/internal/core/usecases"
	"github.com/medsnear/medsnear/internal/pkg/config"
	"github.com/medsnear/medsnear/internal/pkg/logging"
	"github.com/medsnear/medsnear/internal/pkg/telemetry"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	cfg, err := config.Load("medsnear-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	deps := &http.Dependencies{DB: db, Version: Version}

	// Cache is optional; a nil interface keeps the services on the slow path.
	var cache ports.CacheService
	if c, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer c.Close()
		cache = c
		deps.Cache = c
	}

	// NATS
	var publisher ports.EventPublisher
	if p, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer p.Close()
		publisher = p
		deps.NATS = p.Conn()
	}

	// Search
	synonyms := search.DefaultSynonyms().Merge(cfg.Search.Synonyms)
	if cfg.Search.SynonymsFile != "" {
		if synonyms, err = synonyms.MergeFile(cfg.Search.SynonymsFile); err != nil {
			log.Fatalf("synonyms: %v", err)
		}
	}
	searcher := search.New(synonyms)
	slog.Info("synonym table loaded", "entries", searcher.Synonyms().Len())

	// Repos
	itemRepo := postgres.NewCatalogRepo(db)
	pharmacyRepo := postgres.NewPharmacyRepo(db)
	couponRepo := postgres.NewCouponRepo(db)

	// Use cases
	catalogSvc := usecases.NewCatalogService(itemRepo, cache, publisher, searcher, usecases.CatalogOptions{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
		CacheTTL:     cfg.Search.CacheTTL,
	})
	deps.Catalog = catalogSvc
	deps.Pharmacies = usecases.NewPharmacyService(pharmacyRepo, cfg.Search.NearbyIndexTTL)
	deps.Checkout = usecases.NewCheckoutService(itemRepo, couponRepo)

	// Catalog changes from other replicas invalidate our cached pages.
	if sub, err := natsadapter.NewSubscriber(cfg.NATS.URL); err != nil {
		slog.Warn("nats subscriber unavailable", "error", err)
	} else {
		defer sub.Close()
		if err := sub.SubscribeCatalogEvents(ctx, catalogSvc.HandleEvent); err != nil {
			slog.Warn("catalog event subscription failed", "error", err)
		}
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "MedsNear API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, If-None-Match",
		ExposeHeaders:    "Link, ETag, Location, Deprecation, Sunset, X-Request-ID",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "version", Version)
		return app.Listen(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, draining connections...")

		// Give in-flight requests up to 10s to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
