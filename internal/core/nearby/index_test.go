package nearby

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medsnear/medsnear/internal/core/domain"
)

func TestIndex_Within(t *testing.T) {
	idx := New()
	idx.Build([]domain.Pharmacy{
		{Slug: "ikeja", Location: domain.GeoPoint{Lat: 6.6018, Lon: 3.3515}},    // ~9 km
		{Slug: "yaba", Location: domain.GeoPoint{Lat: 6.5095, Lon: 3.3711}},     // ~2 km
		{Slug: "ibadan", Location: domain.GeoPoint{Lat: 7.3775, Lon: 3.9470}},   // ~114 km
		{Slug: "broken", Location: domain.GeoPoint{Lat: 123, Lon: 3.0}},         // skipped
		{Slug: "surulere", Location: domain.GeoPoint{Lat: 6.5000, Lon: 3.3500}}, // ~4 km
	})
	require.Equal(t, 4, idx.Len())
	assert.False(t, idx.BuiltAt().IsZero())

	center := domain.GeoPoint{Lat: 6.5244, Lon: 3.3792}
	got := idx.Within(center, 10, 0)

	slugs := make([]string, len(got))
	for i, m := range got {
		slugs[i] = m.Pharmacy.Slug
		assert.LessOrEqual(t, m.DistanceKm, 10.0)
		assert.GreaterOrEqual(t, m.TravelMinutes, 1.0)
	}
	assert.Equal(t, []string{"yaba", "surulere", "ikeja"}, slugs)
}

func TestIndex_WithinLimit(t *testing.T) {
	var ps []domain.Pharmacy
	for i := 0; i < 100; i++ {
		ps = append(ps, domain.Pharmacy{
			Slug:     fmt.Sprintf("p%03d", i),
			Location: domain.GeoPoint{Lat: 6.5 + float64(i)*0.001, Lon: 3.38},
		})
	}
	idx := New()
	idx.Build(ps)

	got := idx.Within(domain.GeoPoint{Lat: 6.5, Lon: 3.38}, 50, 5)
	require.Len(t, got, 5)
	assert.Equal(t, "p000", got[0].Pharmacy.Slug)
	assert.Equal(t, "p004", got[4].Pharmacy.Slug)
}

func TestIndex_InvalidQueries(t *testing.T) {
	idx := New()
	idx.Build([]domain.Pharmacy{{Slug: "a", Location: domain.GeoPoint{Lat: 1, Lon: 1}}})

	assert.Empty(t, idx.Within(domain.GeoPoint{Lat: 1, Lon: 1}, 0, 10))
	assert.Empty(t, idx.Within(domain.GeoPoint{Lat: 100, Lon: 1}, 10, 10))
}

func TestIndex_Rebuild(t *testing.T) {
	idx := New()
	assert.Equal(t, 0, idx.Len())
	assert.Empty(t, idx.Within(domain.GeoPoint{Lat: 1, Lon: 1}, 10, 0))

	idx.Build([]domain.Pharmacy{{Slug: "a", Location: domain.GeoPoint{Lat: 1, Lon: 1}}})
	assert.Len(t, idx.Within(domain.GeoPoint{Lat: 1, Lon: 1}, 10, 0), 1)

	idx.Build(nil)
	assert.Equal(t, 0, idx.Len())
	assert.Empty(t, idx.Within(domain.GeoPoint{Lat: 1, Lon: 1}, 10, 0))
}
