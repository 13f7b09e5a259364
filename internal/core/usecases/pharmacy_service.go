package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/medsnear/medsnear/internal/core/domain"
	"github.com/medsnear/medsnear/internal/core/nearby"
	"github.com/medsnear/medsnear/internal/core/ports"
	"github.com/medsnear/medsnear/internal/core/slug"
)

const (
	DefaultNearbyRadiusKm = 5.0
	MaxNearbyRadiusKm     = 50.0
	maxPharmacyNameLen    = 120
)

// RegisterPharmacy is the input for PharmacyService.Register.
type RegisterPharmacy struct {
	Name     string          `json:"name"`
	Address  string          `json:"address"`
	Phone    string          `json:"phone"`
	Location domain.GeoPoint `json:"location"`
}

// PharmacyService handles pharmacy registration and lookups.
type PharmacyService struct {
	pharmacies ports.PharmacyRepository
	index      *nearby.Index
	indexTTL   time.Duration

	mu    sync.Mutex
	stale bool
	now   func() time.Time
}

// NewPharmacyService creates a new PharmacyService. The nearby index is
// rebuilt lazily when older than indexTTL.
func NewPharmacyService(pharmacies ports.PharmacyRepository, indexTTL time.Duration) *PharmacyService {
	if indexTTL <= 0 {
		indexTTL = 5 * time.Minute
	}
	return &PharmacyService{
		pharmacies: pharmacies,
		index:      nearby.New(),
		indexTTL:   indexTTL,
		stale:      true,
		now:        time.Now,
	}
}

// Register validates and stores a new pharmacy under a generated slug.
func (s *PharmacyService) Register(ctx context.Context, in RegisterPharmacy) (*domain.Pharmacy, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if len(name) > maxPharmacyNameLen {
		return nil, fmt.Errorf("%w: name longer than %d characters", domain.ErrInvalidInput, maxPharmacyNameLen)
	}
	if !in.Location.Valid() {
		return nil, fmt.Errorf("%w: location out of range", domain.ErrInvalidInput)
	}

	sl, err := slug.Unique(ctx, name, s.pharmacies.SlugExists)
	if err != nil {
		return nil, err
	}

	p := &domain.Pharmacy{
		Slug:      sl,
		Name:      name,
		Address:   strings.TrimSpace(in.Address),
		Phone:     strings.TrimSpace(in.Phone),
		Location:  in.Location,
		Active:    true,
		CreatedAt: s.now().UTC(),
	}
	if err := s.pharmacies.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create pharmacy: %w", err)
	}

	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()

	slog.InfoContext(ctx, "pharmacy registered", "slug", p.Slug, "id", p.ID)
	return p, nil
}

// GetBySlug returns a single pharmacy.
func (s *PharmacyService) GetBySlug(ctx context.Context, sl string) (*domain.Pharmacy, error) {
	p, err := s.pharmacies.GetBySlug(ctx, sl)
	if err != nil {
		return nil, fmt.Errorf("get pharmacy %s: %w", sl, err)
	}
	return p, nil
}

// List returns a page of pharmacies and the total count.
func (s *PharmacyService) List(ctx context.Context, offset, limit int) ([]domain.Pharmacy, int, error) {
	return s.pharmacies.List(ctx, offset, limit)
}

// Nearby returns active pharmacies within radiusKm of near, nearest first.
func (s *PharmacyService) Nearby(ctx context.Context, near domain.GeoPoint, radiusKm float64, limit int) ([]nearby.Match, error) {
	if !near.Valid() {
		return nil, fmt.Errorf("%w: location out of range", domain.ErrInvalidInput)
	}
	if radiusKm <= 0 {
		radiusKm = DefaultNearbyRadiusKm
	}
	if radiusKm > MaxNearbyRadiusKm {
		radiusKm = MaxNearbyRadiusKm
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	if err := s.ensureIndex(ctx); err != nil {
		return nil, err
	}
	return s.index.Within(near, radiusKm, limit), nil
}

func (s *PharmacyService) ensureIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.stale && s.now().Sub(s.index.BuiltAt()) < s.indexTTL {
		return nil
	}

	ps, err := s.pharmacies.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("load pharmacies: %w", err)
	}
	s.index.Build(ps)
	s.stale = false

	slog.DebugContext(ctx, "nearby index rebuilt", "pharmacies", s.index.Len())
	return nil
}
