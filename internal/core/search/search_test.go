package search_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/medsnear/medsnear/internal/core/domain"
	"github.com/medsnear/medsnear/internal/core/search"
	"github.com/medsnear/medsnear/internal/pkg/geospatial"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var lagos = domain.GeoPoint{Lat: 6.5244, Lon: 3.3792}

// northOf returns a point km kilometers due north of p.
func northOf(p domain.GeoPoint, km float64) *domain.GeoPoint {
	return &domain.GeoPoint{Lat: p.Lat + km/6371.0*180/math.Pi, Lon: p.Lon}
}

func expectedMinutes(km float64) float64 {
	return math.Max(1, math.Round(km*1.64/25*60))
}

func sampleCatalog() []domain.CatalogItem {
	return []domain.CatalogItem{
		{ID: "1", Name: "Panadol", Ingredient: "paracetamol", Category: "analgesic", SellerLocation: northOf(lagos, 10)},
		{ID: "2", Name: "Ciprotab", Ingredient: "ciprofloxacin", Category: "antibiotic", SellerLocation: northOf(lagos, 1)},
		{ID: "3", Name: "Emzor Paracetamol", Ingredient: "Paracetamol", Category: "Analgesic"},
		{ID: "4", Name: "Coartem", Ingredient: "artemether  lumefantrine", Category: "antimalarial", SellerLocation: northOf(lagos, 3)},
		{ID: "5", Name: "Vitamin C 1000", Ingredient: "", Category: ""},
	}
}

func newSearcher() *search.Searcher {
	return search.New(search.DefaultSynonyms())
}

func TestSearch_SubsetAndReferenceIdentity(t *testing.T) {
	items := sampleCatalog()
	for _, q := range []string{"", "para", "pcm", "nothing-matches", "  ANTI  "} {
		results := newSearcher().Search(&lagos, items, q)
		require.LessOrEqual(t, len(results), len(items), "query %q", q)

		seen := map[*domain.CatalogItem]bool{}
		for _, r := range results {
			found := false
			for i := range items {
				if r.Item == &items[i] {
					found = true
				}
			}
			assert.True(t, found, "query %q returned an item not in the input", q)
			assert.False(t, seen[r.Item], "query %q returned an item twice", q)
			seen[r.Item] = true
		}
	}
}

func TestSearch_EmptyQueryMatchesAll(t *testing.T) {
	items := sampleCatalog()
	for _, q := range []string{"", "   ", "\t\n"} {
		results := newSearcher().Search(&lagos, items, q)
		require.Len(t, results, len(items))
	}

	results := newSearcher().Search(&lagos, items, "")
	for _, r := range results {
		if r.Item.SellerLocation == nil {
			assert.True(t, math.IsInf(r.TravelMinutes, 1))
			continue
		}
		km := geospatial.HaversineKm(lagos, *r.Item.SellerLocation)
		assert.Equal(t, expectedMinutes(km), r.TravelMinutes)
	}
}

func TestSearch_SynonymExpansion(t *testing.T) {
	items := []domain.CatalogItem{{Name: "Panadol", Ingredient: "paracetamol", Category: "analgesic"}}

	results := newSearcher().Search(&lagos, items, "pcm")
	require.Len(t, results, 1)
	assert.Same(t, &items[0], results[0].Item)

	// Whole-query lookup is done after normalization.
	results = newSearcher().Search(&lagos, items, "  PCM ")
	require.Len(t, results, 1)
}

func TestSearch_SynonymWithoutTableDoesNotExpand(t *testing.T) {
	items := []domain.CatalogItem{{Name: "Panadol", Ingredient: "paracetamol", Category: "analgesic"}}

	results := search.New(search.NewSynonyms(nil)).Search(&lagos, items, "pcm")
	assert.Empty(t, results)
}

func TestSearch_SubstringPartialMatch(t *testing.T) {
	items := []domain.CatalogItem{
		{Name: "Generic", Ingredient: "ciprofloxacin"},
		{Name: "Other", Ingredient: "metformin"},
	}

	results := search.New(search.NewSynonyms(nil)).Search(nil, items, "cipro")
	require.Len(t, results, 1)
	assert.Equal(t, "Generic", results[0].Item.Name)
}

func TestSearch_AnyTermAnyField(t *testing.T) {
	items := []domain.CatalogItem{
		{Name: "A", Category: "antipyretic"},
		{Name: "B", Ingredient: "paracetamol"},
		{Name: "C", Ingredient: "ibuprofen"},
	}

	// "fever" expands to "paracetamol antipyretic".
	results := newSearcher().Search(nil, items, "fever")
	require.Len(t, results, 2)
	assert.Equal(t, "A", results[0].Item.Name)
	assert.Equal(t, "B", results[1].Item.Name)
}

func TestSearch_NormalizesItemFields(t *testing.T) {
	items := []domain.CatalogItem{{Name: "Coartem", Ingredient: "Artemether   LUMEFANTRINE"}}

	results := search.New(search.NewSynonyms(nil)).Search(nil, items, "artemether lumefantrine")
	// Multi-word queries are split into terms; either term matching is enough.
	require.Len(t, results, 1)
}

func TestSearch_DistanceRanking(t *testing.T) {
	near := northOf(lagos, 1)
	far := northOf(lagos, 10)
	items := []domain.CatalogItem{
		{ID: "far", Name: "Panadol Extra", SellerLocation: far},
		{ID: "near", Name: "Panadol", SellerLocation: near},
	}

	results := newSearcher().Search(&lagos, items, "panadol")
	require.Len(t, results, 2)
	assert.Equal(t, "near", results[0].Item.ID)
	assert.Equal(t, "far", results[1].Item.ID)
	assert.Less(t, results[0].TravelMinutes, results[1].TravelMinutes)

	nearKm := geospatial.HaversineKm(lagos, *near)
	farKm := geospatial.HaversineKm(lagos, *far)
	assert.InDelta(t, 1, nearKm, 1e-9)
	assert.InDelta(t, 10, farKm, 1e-9)
	assert.Equal(t, expectedMinutes(nearKm), results[0].TravelMinutes)
	assert.Equal(t, expectedMinutes(farKm), results[1].TravelMinutes)
	assert.Equal(t, 4.0, results[0].TravelMinutes)
	assert.Equal(t, 39.0, results[1].TravelMinutes)
}

func TestSearch_MinimumOneMinute(t *testing.T) {
	items := []domain.CatalogItem{{Name: "Panadol", SellerLocation: &lagos}}

	results := newSearcher().Search(&lagos, items, "")
	require.Len(t, results, 1)
	assert.Equal(t, 1.0, results[0].TravelMinutes)
}

func TestSearch_MissingCallerLocation(t *testing.T) {
	items := sampleCatalog()

	results := newSearcher().Search(nil, items, "")
	require.Len(t, results, len(items))
	for i, r := range results {
		assert.True(t, math.IsInf(r.TravelMinutes, 1))
		// Stable sort over a constant key keeps input order.
		assert.Same(t, &items[i], r.Item)
	}
}

func TestSearch_MissingSellerLocation(t *testing.T) {
	items := []domain.CatalogItem{
		{ID: "a", Name: "x-ray film"},
		{ID: "b", Name: "xylometazoline"},
	}

	results := newSearcher().Search(&lagos, items, "x")
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, math.IsInf(r.TravelMinutes, 1))
		assert.False(t, r.TravelKnown())
	}
	assert.Equal(t, "a", results[0].Item.ID)
}

func TestSearch_UnknownDistanceSortsLastAndStable(t *testing.T) {
	items := []domain.CatalogItem{
		{ID: "u1", Name: "Panadol"},
		{ID: "k1", Name: "Panadol", SellerLocation: northOf(lagos, 5)},
		{ID: "u2", Name: "Panadol"},
		{ID: "k2", Name: "Panadol", SellerLocation: northOf(lagos, 5)},
	}

	results := newSearcher().Search(&lagos, items, "panadol")
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Item.ID
	}
	assert.Equal(t, []string{"k1", "k2", "u1", "u2"}, ids)
}

func TestSearch_EmptyCatalog(t *testing.T) {
	assert.Empty(t, newSearcher().Search(&lagos, nil, "pcm"))
	assert.Empty(t, newSearcher().Search(nil, []domain.CatalogItem{}, ""))
}

func TestSearch_DoesNotMutateInput(t *testing.T) {
	items := sampleCatalog()
	before := sampleCatalog()

	_ = newSearcher().Search(&lagos, items, "para")

	if diff := cmp.Diff(before, items); diff != "" {
		t.Errorf("input mutated (-before +after):\n%s", diff)
	}
}

func TestSearch_Idempotent(t *testing.T) {
	items := sampleCatalog()
	s := newSearcher()

	first := s.Search(&lagos, items, "anti")
	second := s.Search(&lagos, items, "anti")

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second search differs (-first +second):\n%s", diff)
	}
}

func TestTerms(t *testing.T) {
	s := newSearcher()

	assert.Equal(t, []string{""}, s.Terms(""))
	assert.Equal(t, []string{"paracetamol", "antipyretic"}, s.Terms(" Fever "))
	assert.Equal(t, []string{"amoxil", "500mg"}, s.Terms("Amoxil   500mg"))
}

func BenchmarkSearch_FiveHundredItems(b *testing.B) {
	items := make([]domain.CatalogItem, 0, 500)
	for i := 0; i < 100; i++ {
		items = append(items, sampleCatalog()...)
	}
	s := newSearcher()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Search(&lagos, items, "fever")
	}
}

func TestSearch_OppositeSideOfTheGlobeStillOrdered(t *testing.T) {
	caller := domain.GeoPoint{Lat: 10, Lon: -170}
	items := []domain.CatalogItem{
		{ID: "10km", Name: "Panadol", SellerLocation: northOf(caller, 10)},
		{ID: "antipode", Name: "Panadol", SellerLocation: &domain.GeoPoint{Lat: -10, Lon: 10}},
		{ID: "1km", Name: "Panadol", SellerLocation: northOf(caller, 1)},
		{ID: "none", Name: "Panadol"},
	}

	results := newSearcher().Search(&caller, items, "panadol")

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Item.ID
		assert.False(t, math.IsNaN(r.TravelMinutes), "%s has NaN travel time", r.Item.ID)
	}
	assert.Equal(t, []string{"1km", "10km", "antipode", "none"}, ids)

	_, err := json.Marshal(results)
	require.NoError(t, err)
}

// Compatibility characters fold before matching, so subscript digits and
// full-width letters behave like their plain forms.
func TestSearch_CompatibilityCharactersFold(t *testing.T) {
	items := []domain.CatalogItem{
		{ID: "b12", Name: "Vitamin B₁₂"},
		{ID: "zinc", Name: "ＺＩＮＣ Tablets"},
		{ID: "c", Name: "Vitamin C"},
	}
	s := search.New(search.NewSynonyms(nil))

	got := s.Search(nil, items, "b12")
	require.Len(t, got, 1)
	assert.Equal(t, "b12", got[0].Item.ID)

	got = s.Search(nil, items, "zinc")
	require.Len(t, got, 1)
	assert.Equal(t, "zinc", got[0].Item.ID)

	assert.Equal(t, "vitamin b12", search.Normalize("  Vitamin   B₁₂ "))
}

func TestSearcher_SynonymsReturnsConfiguredTable(t *testing.T) {
	table := search.NewSynonyms(map[string]string{"fever": "paracetamol", "Pain": "ibuprofen"})
	s := search.New(table)

	assert.Equal(t, 2, s.Synonyms().Len())
	v, ok := s.Synonyms().Lookup("pain")
	require.True(t, ok)
	assert.Equal(t, "ibuprofen", v)
}
