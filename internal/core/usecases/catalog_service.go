package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/medsnear/medsnear/internal/core/domain"
	"github.com/medsnear/medsnear/internal/core/ports"
	"github.com/medsnear/medsnear/internal/core/search"
	"github.com/medsnear/medsnear/internal/pkg/metrics"
	"github.com/medsnear/medsnear/internal/pkg/telemetry"
)

// ErrQueryTooLong is returned when the search text exceeds MaxQueryLength.
var ErrQueryTooLong = errors.New("search query too long")

const (
	MaxQueryLength     = 200
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
	DefaultCurrency    = "NGN"

	catalogSnapshotKey = "catalog:snapshot"
)

// SearchQuery is a catalog search request.
type SearchQuery struct {
	Text     string
	Near     *domain.GeoPoint
	RadiusKm float64
	Offset   int
	Limit    int
}

// SearchPage is one page of ranked search results.
type SearchPage struct {
	Results []domain.SearchResult `json:"results"`
	Total   int                   `json:"total"`
	Offset  int                   `json:"offset"`
	Limit   int                   `json:"limit"`
}

// CatalogOptions tunes CatalogService.
type CatalogOptions struct {
	DefaultLimit int
	MaxLimit     int
	CacheTTL     time.Duration
}

// CatalogService handles catalog search and listing management.
type CatalogService struct {
	items     ports.CatalogRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
	searcher  *search.Searcher
	opts      CatalogOptions
	tracer    trace.Tracer
	now       func() time.Time
}

// NewCatalogService creates a new CatalogService. cache and publisher may be nil.
func NewCatalogService(
	items ports.CatalogRepository,
	cache ports.CacheService,
	publisher ports.EventPublisher,
	searcher *search.Searcher,
	opts CatalogOptions,
) *CatalogService {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultSearchLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = MaxSearchLimit
	}
	if opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = opts.MaxLimit
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Minute
	}
	if searcher == nil {
		searcher = search.New(search.DefaultSynonyms())
	}
	return &CatalogService{
		items:     items,
		cache:     cache,
		publisher: publisher,
		searcher:  searcher,
		opts:      opts,
		tracer:    otel.Tracer("github.com/medsnear/medsnear/internal/core/usecases"),
		now:       time.Now,
	}
}

// Search ranks catalog listings matching q.Text by travel time from q.Near.
func (s *CatalogService) Search(ctx context.Context, q SearchQuery) (*SearchPage, error) {
	if n := utf8.RuneCountInString(q.Text); n > MaxQueryLength {
		return nil, fmt.Errorf("%w: %d characters, max %d", ErrQueryTooLong, n, MaxQueryLength)
	}
	if q.Near != nil && !q.Near.Valid() {
		q.Near = nil
	}
	if q.Limit <= 0 {
		q.Limit = s.opts.DefaultLimit
	}
	if q.Limit > s.opts.MaxLimit {
		q.Limit = s.opts.MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	mode := "snapshot"
	if q.Near != nil && q.RadiusKm > 0 {
		mode = "radius"
	}

	ctx, span := s.tracer.Start(ctx, "CatalogService.Search", trace.WithAttributes(
		attribute.String(telemetry.AttrSearchMode, mode),
		attribute.Int(telemetry.AttrSearchQueryLength, len(q.Text)),
		attribute.Bool(telemetry.AttrSearchHasLocation, q.Near != nil),
	))
	defer span.End()

	start := time.Now()

	var (
		items []domain.CatalogItem
		err   error
	)
	if mode == "radius" {
		items, err = s.items.ListWithin(ctx, *q.Near, q.RadiusKm)
	} else {
		items, err = s.snapshot(ctx)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load catalog")
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	results := s.searcher.Search(q.Near, items, q.Text)

	metrics.SearchDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	if len(results) == 0 {
		metrics.SearchEmptyResults.WithLabelValues(mode).Inc()
	}
	span.SetAttributes(
		attribute.Int(telemetry.AttrSearchCatalogSize, len(items)),
		attribute.Int(telemetry.AttrSearchMatches, len(results)),
	)

	page := &SearchPage{Total: len(results), Offset: q.Offset, Limit: q.Limit}
	if q.Offset < len(results) {
		end := min(q.Offset+q.Limit, len(results))
		page.Results = results[q.Offset:end]
	} else {
		page.Results = []domain.SearchResult{}
	}
	return page, nil
}

// snapshot returns the full searchable catalog, read through the cache.
func (s *CatalogService) snapshot(ctx context.Context) ([]domain.CatalogItem, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, catalogSnapshotKey); err == nil {
			var items []domain.CatalogItem
			if err := json.Unmarshal(data, &items); err == nil {
				metrics.CacheLookup("catalog_snapshot", true)
				return items, nil
			}
		}
		metrics.CacheLookup("catalog_snapshot", false)
	}

	items, err := s.items.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(items); err == nil {
			_ = s.cache.Set(ctx, catalogSnapshotKey, data, int(s.opts.CacheTTL.Seconds()))
		}
	}
	return items, nil
}

// Item returns a single listing.
func (s *CatalogService) Item(ctx context.Context, id string) (*domain.CatalogItem, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: item id is required", domain.ErrInvalidInput)
	}
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", id, err)
	}
	return item, nil
}

// UpsertItem validates and stores a listing, then notifies other replicas.
func (s *CatalogService) UpsertItem(ctx context.Context, item *domain.CatalogItem) error {
	if err := validateItem(item); err != nil {
		return err
	}
	if item.Currency == "" {
		item.Currency = DefaultCurrency
	}
	item.UpdatedAt = s.now().UTC()

	if err := s.items.Upsert(ctx, item); err != nil {
		return fmt.Errorf("upsert item %s: %w", item.ID, err)
	}

	s.invalidate(ctx)
	s.publish(ctx, domain.CatalogItemUpserted, item.PharmacyID, item.ID)
	return nil
}

// DeleteItem removes a listing.
func (s *CatalogService) DeleteItem(ctx context.Context, id string) error {
	item, err := s.Item(ctx, id)
	if err != nil {
		return err
	}
	if err := s.items.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete item %s: %w", id, err)
	}

	s.invalidate(ctx)
	s.publish(ctx, domain.CatalogItemDeleted, item.PharmacyID, item.ID)
	return nil
}

// HandleEvent reacts to a catalog change published by any replica.
func (s *CatalogService) HandleEvent(ctx context.Context, ev *domain.CatalogEvent) error {
	slog.DebugContext(ctx, "catalog event", "kind", ev.Kind, "pharmacy_id", ev.PharmacyID, "item_id", ev.ItemID)
	s.invalidate(ctx)
	return nil
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, catalogSnapshotKey); err != nil {
		slog.WarnContext(ctx, "catalog cache invalidation failed", "error", err)
	}
}

func (s *CatalogService) publish(ctx context.Context, kind domain.CatalogEventKind, pharmacyID, itemID string) {
	if s.publisher == nil {
		return
	}
	ev := &domain.CatalogEvent{Kind: kind, PharmacyID: pharmacyID, ItemID: itemID, At: s.now().UTC()}
	if err := s.publisher.PublishCatalogEvent(ctx, ev); err != nil {
		slog.WarnContext(ctx, "publish catalog event failed", "error", err, "item_id", itemID)
	}
}

func validateItem(item *domain.CatalogItem) error {
	if item == nil {
		return fmt.Errorf("%w: item is required", domain.ErrInvalidInput)
	}

	var problems []string
	if strings.TrimSpace(item.ID) == "" {
		problems = append(problems, "id is required")
	}
	if strings.TrimSpace(item.PharmacyID) == "" {
		problems = append(problems, "pharmacy_id is required")
	}
	if strings.TrimSpace(item.Name) == "" {
		problems = append(problems, "name is required")
	}
	if item.Price < 0 {
		problems = append(problems, "price must not be negative")
	}
	if item.Stock < 0 {
		problems = append(problems, "stock must not be negative")
	}
	if item.Currency != "" && len(item.Currency) != 3 {
		problems = append(problems, "currency must be a 3-letter code")
	}
	if item.SellerLocation != nil && !item.SellerLocation.Valid() {
		problems = append(problems, "seller_location is out of range")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}
