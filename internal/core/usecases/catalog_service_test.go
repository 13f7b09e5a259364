package usecases_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/medsnear/medsnear/internal/core/domain"
	"github.com/medsnear/medsnear/internal/core/search"
	"github.com/medsnear/medsnear/internal/core/usecases"
)

var lagos = domain.GeoPoint{Lat: 6.5244, Lon: 3.3792}

func catalogFixture() []domain.CatalogItem {
	far := &domain.GeoPoint{Lat: 6.6144, Lon: 3.3792}  // ~10 km north
	near := &domain.GeoPoint{Lat: 6.5334, Lon: 3.3792} // ~1 km north
	return []domain.CatalogItem{
		{ID: "i1", PharmacyID: "p1", Name: "Panadol", Ingredient: "paracetamol", Category: "analgesic", SellerLocation: far, Price: 500, Currency: "NGN", Stock: 10},
		{ID: "i2", PharmacyID: "p2", Name: "Emzor Paracetamol", Ingredient: "paracetamol", Category: "analgesic", SellerLocation: near, Price: 300, Currency: "NGN", Stock: 5},
		{ID: "i3", PharmacyID: "p2", Name: "Ciprotab", Ingredient: "ciprofloxacin", Category: "antibiotic", SellerLocation: near, Price: 1500, Currency: "NGN", Stock: 2},
		{ID: "i4", PharmacyID: "p3", Name: "Calpol", Ingredient: "paracetamol", Category: "analgesic", Price: 700, Currency: "NGN", Stock: 1},
	}
}

func defaultSearcher() *search.Searcher {
	return search.New(search.DefaultSynonyms())
}

func TestCatalogService_Search_RanksByTravelTime(t *testing.T) {
	repo := &mockCatalogRepo{
		listAllFn: func(ctx context.Context) ([]domain.CatalogItem, error) {
			return catalogFixture(), nil
		},
	}
	svc := usecases.NewCatalogService(repo, nil, nil, defaultSearcher(), usecases.CatalogOptions{})

	page, err := svc.Search(context.Background(), usecases.SearchQuery{Text: "pcm", Near: &lagos})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 3 {
		t.Fatalf("expected 3 matches, got %d", page.Total)
	}

	want := []string{"i2", "i1", "i4"}
	for i, r := range page.Results {
		if r.Item.ID != want[i] {
			t.Errorf("result %d: expected %s, got %s", i, want[i], r.Item.ID)
		}
	}
	if page.Results[0].TravelMinutes != 4 {
		t.Errorf("expected 4 minutes for ~1 km, got %v", page.Results[0].TravelMinutes)
	}
	if !math.IsInf(page.Results[2].TravelMinutes, 1) {
		t.Errorf("expected +Inf for seller without location, got %v", page.Results[2].TravelMinutes)
	}
}

func TestCatalogService_Search_Paginates(t *testing.T) {
	repo := &mockCatalogRepo{
		listAllFn: func(ctx context.Context) ([]domain.CatalogItem, error) {
			return catalogFixture(), nil
		},
	}
	svc := usecases.NewCatalogService(repo, nil, nil, defaultSearcher(), usecases.CatalogOptions{})

	page, err := svc.Search(context.Background(), usecases.SearchQuery{Near: &lagos, Offset: 1, Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 4 {
		t.Errorf("expected total 4, got %d", page.Total)
	}
	if len(page.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(page.Results))
	}
	if page.Offset != 1 || page.Limit != 2 {
		t.Errorf("unexpected page window %d/%d", page.Offset, page.Limit)
	}

	page, err = svc.Search(context.Background(), usecases.SearchQuery{Offset: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Results == nil || len(page.Results) != 0 {
		t.Errorf("expected empty non-nil results past the end, got %v", page.Results)
	}
}

func TestCatalogService_Search_ClampLimit(t *testing.T) {
	svc := usecases.NewCatalogService(&mockCatalogRepo{}, nil, nil, defaultSearcher(), usecases.CatalogOptions{})

	page, err := svc.Search(context.Background(), usecases.SearchQuery{Limit: 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Limit != usecases.MaxSearchLimit {
		t.Errorf("expected limit clamped to %d, got %d", usecases.MaxSearchLimit, page.Limit)
	}

	page, _ = svc.Search(context.Background(), usecases.SearchQuery{})
	if page.Limit != usecases.DefaultSearchLimit {
		t.Errorf("expected default limit %d, got %d", usecases.DefaultSearchLimit, page.Limit)
	}
}

func TestCatalogService_Search_QueryTooLong(t *testing.T) {
	called := false
	repo := &mockCatalogRepo{
		listAllFn: func(ctx context.Context) ([]domain.CatalogItem, error) {
			called = true
			return nil, nil
		},
	}
	svc := usecases.NewCatalogService(repo, nil, nil, defaultSearcher(), usecases.CatalogOptions{})

	_, err := svc.Search(context.Background(), usecases.SearchQuery{Text: strings.Repeat("a", usecases.MaxQueryLength+1)})
	if !errors.Is(err, usecases.ErrQueryTooLong) {
		t.Fatalf("expected ErrQueryTooLong, got %v", err)
	}
	if called {
		t.Error("repository should not be queried for a rejected query")
	}

	// Multi-byte text is measured in characters.
	_, err = svc.Search(context.Background(), usecases.SearchQuery{Text: strings.Repeat("é", usecases.MaxQueryLength)})
	if err != nil {
		t.Errorf("unexpected error for %d characters: %v", usecases.MaxQueryLength, err)
	}
}

func TestCatalogService_Search_InvalidLocationIsAbsent(t *testing.T) {
	repo := &mockCatalogRepo{
		listAllFn: func(ctx context.Context) ([]domain.CatalogItem, error) {
			return catalogFixture(), nil
		},
	}
	svc := usecases.NewCatalogService(repo, nil, nil, defaultSearcher(), usecases.CatalogOptions{})

	page, err := svc.Search(context.Background(), usecases.SearchQuery{Text: "cipro", Near: &domain.GeoPoint{Lat: 200, Lon: 3}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(page.Results))
	}
	if !math.IsInf(page.Results[0].TravelMinutes, 1) {
		t.Errorf("expected +Inf without a usable caller location, got %v", page.Results[0].TravelMinutes)
	}
}

func TestCatalogService_Search_RadiusUsesRepositoryFilter(t *testing.T) {
	var gotRadius float64
	repo := &mockCatalogRepo{
		listAllFn: func(ctx context.Context) ([]domain.CatalogItem, error) {
			t.Error("ListAll should not be called for a radius search")
			return nil, nil
		},
		listWithinFn: func(ctx context.Context, center domain.GeoPoint, radiusKm float64) ([]domain.CatalogItem, error) {
			gotRadius = radiusKm
			return catalogFixture()[1:3], nil
		},
	}
	svc := usecases.NewCatalogService(repo, newMemCache(), nil, defaultSearcher(), usecases.CatalogOptions{})

	page, err := svc.Search(context.Background(), usecases.SearchQuery{Near: &lagos, RadiusKm: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotRadius != 3 {
		t.Errorf("expected radius 3, got %v", gotRadius)
	}
	if page.Total != 2 {
		t.Errorf("expected 2 results, got %d", page.Total)
	}
}

func TestCatalogService_Search_UsesSnapshotCache(t *testing.T) {
	loads := 0
	repo := &mockCatalogRepo{
		listAllFn: func(ctx context.Context) ([]domain.CatalogItem, error) {
			loads++
			return catalogFixture(), nil
		},
	}
	svc := usecases.NewCatalogService(repo, newMemCache(), nil, defaultSearcher(), usecases.CatalogOptions{})

	for i := 0; i < 3; i++ {
		page, err := svc.Search(context.Background(), usecases.SearchQuery{Text: "paracetamol", Near: &lagos})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Total != 3 {
			t.Fatalf("call %d: expected 3 matches, got %d", i, page.Total)
		}
	}
	if loads != 1 {
		t.Errorf("expected a single repository load, got %d", loads)
	}
}

func TestCatalogService_Search_RepositoryError(t *testing.T) {
	boom := errors.New("db down")
	repo := &mockCatalogRepo{
		listAllFn: func(ctx context.Context) ([]domain.CatalogItem, error) {
			return nil, boom
		},
	}
	svc := usecases.NewCatalogService(repo, nil, nil, defaultSearcher(), usecases.CatalogOptions{})

	if _, err := svc.Search(context.Background(), usecases.SearchQuery{Text: "x"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped repository error, got %v", err)
	}
}

func TestCatalogService_UpsertItem(t *testing.T) {
	var stored *domain.CatalogItem
	repo := &mockCatalogRepo{
		upsertFn: func(ctx context.Context, item *domain.CatalogItem) error {
			stored = item
			return nil
		},
	}
	cache := newMemCache()
	_ = cache.Set(context.Background(), "catalog:snapshot", []byte("[]"), 60)
	pub := &recordingPublisher{}
	svc := usecases.NewCatalogService(repo, cache, pub, defaultSearcher(), usecases.CatalogOptions{})

	item := &domain.CatalogItem{ID: "i9", PharmacyID: "p1", Name: "Amoxil", Price: 1200, Stock: 3}
	if err := svc.UpsertItem(context.Background(), item); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored == nil || stored.Currency != usecases.DefaultCurrency {
		t.Fatalf("expected stored item with default currency, got %+v", stored)
	}
	if stored.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}
	if _, err := cache.Get(context.Background(), "catalog:snapshot"); err == nil {
		t.Error("expected snapshot to be invalidated")
	}
	if len(pub.events) != 1 || pub.events[0].Kind != domain.CatalogItemUpserted || pub.events[0].PharmacyID != "p1" {
		t.Errorf("unexpected events: %+v", pub.events)
	}
}

func TestCatalogService_UpsertItem_Validation(t *testing.T) {
	svc := usecases.NewCatalogService(&mockCatalogRepo{
		upsertFn: func(ctx context.Context, item *domain.CatalogItem) error {
			t.Error("invalid item must not be stored")
			return nil
		},
	}, nil, nil, defaultSearcher(), usecases.CatalogOptions{})

	tests := []struct {
		name string
		item *domain.CatalogItem
	}{
		{"nil", nil},
		{"missing name", &domain.CatalogItem{ID: "i", PharmacyID: "p", Name: "  "}},
		{"missing pharmacy", &domain.CatalogItem{ID: "i", Name: "x"}},
		{"negative price", &domain.CatalogItem{ID: "i", PharmacyID: "p", Name: "x", Price: -1}},
		{"negative stock", &domain.CatalogItem{ID: "i", PharmacyID: "p", Name: "x", Stock: -1}},
		{"bad currency", &domain.CatalogItem{ID: "i", PharmacyID: "p", Name: "x", Currency: "NAIRA"}},
		{"bad location", &domain.CatalogItem{ID: "i", PharmacyID: "p", Name: "x", SellerLocation: &domain.GeoPoint{Lat: 91}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.UpsertItem(context.Background(), tt.item); !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestCatalogService_DeleteItem(t *testing.T) {
	deleted := ""
	repo := &mockCatalogRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.CatalogItem, error) {
			if id != "i1" {
				return nil, domain.ErrNotFound
			}
			return &domain.CatalogItem{ID: "i1", PharmacyID: "p7"}, nil
		},
		deleteFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	pub := &recordingPublisher{}
	svc := usecases.NewCatalogService(repo, newMemCache(), pub, defaultSearcher(), usecases.CatalogOptions{})

	if err := svc.DeleteItem(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.DeleteItem(context.Background(), "i1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != "i1" {
		t.Errorf("expected i1 deleted, got %q", deleted)
	}
	if len(pub.events) != 1 || pub.events[0].Kind != domain.CatalogItemDeleted || pub.events[0].PharmacyID != "p7" {
		t.Errorf("unexpected events: %+v", pub.events)
	}
}

func TestCatalogService_PublishFailureDoesNotFailWrite(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("nats down")}
	svc := usecases.NewCatalogService(&mockCatalogRepo{}, nil, pub, defaultSearcher(), usecases.CatalogOptions{})

	item := &domain.CatalogItem{ID: "i1", PharmacyID: "p1", Name: "Flagyl"}
	if err := svc.UpsertItem(context.Background(), item); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCatalogService_HandleEvent_InvalidatesSnapshot(t *testing.T) {
	cache := newMemCache()
	svc := usecases.NewCatalogService(&mockCatalogRepo{}, cache, nil, defaultSearcher(), usecases.CatalogOptions{})

	ev := &domain.CatalogEvent{Kind: domain.CatalogItemUpserted, PharmacyID: "p1", ItemID: "i1"}
	if err := svc.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cache.deletes) != 1 || cache.deletes[0] != "catalog:snapshot" {
		t.Errorf("expected snapshot key deleted, got %v", cache.deletes)
	}
}
