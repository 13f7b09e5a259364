// Package nearby answers "which pharmacies are within R km" from an
// in-memory R-tree of pharmacy locations.
package nearby

import (
	"sort"
	"sync"
	"time"

	"github.com/dhconnelly/rtreego"

	"github.com/medsnear/medsnear/internal/core/domain"
	"github.com/medsnear/medsnear/internal/pkg/geospatial"
)

const (
	dimensions  = 2
	minChildren = 25
	maxChildren = 50
	tolerance   = 1e-7
)

// Match is a pharmacy found by a radius query.
type Match struct {
	Pharmacy      domain.Pharmacy `json:"pharmacy"`
	DistanceKm    float64         `json:"distance_km"`
	TravelMinutes float64         `json:"travel_minutes"`
}

type entry struct {
	pharmacy domain.Pharmacy
	rect     *rtreego.Rect
}

var _ rtreego.Spatial = (*entry)(nil)

func (e *entry) Bounds() *rtreego.Rect {
	return e.rect
}

// Index is a thread-safe R-tree of pharmacy locations.
type Index struct {
	mu      sync.RWMutex
	tree    *rtreego.Rtree
	size    int
	builtAt time.Time
}

// New returns an empty index.
func New() *Index {
	return &Index{tree: rtreego.NewTree(dimensions, minChildren, maxChildren)}
}

// Build replaces the index content with ps. Pharmacies with out-of-range
// coordinates are skipped.
func (x *Index) Build(ps []domain.Pharmacy) {
	objs := make([]rtreego.Spatial, 0, len(ps))
	for _, p := range ps {
		if !p.Location.Valid() {
			continue
		}
		pt := rtreego.Point{p.Location.Lat, p.Location.Lon}
		objs = append(objs, &entry{pharmacy: p, rect: pt.ToRect(tolerance)})
	}

	tree := rtreego.NewTree(dimensions, minChildren, maxChildren, objs...)

	x.mu.Lock()
	defer x.mu.Unlock()
	x.tree = tree
	x.size = len(objs)
	x.builtAt = time.Now()
}

// Len returns the number of indexed pharmacies.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.size
}

// BuiltAt returns when Build last ran, or the zero time.
func (x *Index) BuiltAt() time.Time {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.builtAt
}

// Within returns pharmacies at most radiusKm from center, nearest first.
// A limit <= 0 means no limit.
func (x *Index) Within(center domain.GeoPoint, radiusKm float64, limit int) []Match {
	if radiusKm <= 0 || !center.Valid() {
		return nil
	}

	box := geospatial.BoundsAround(center, radiusKm)
	bounds, err := rtreego.NewRect(
		rtreego.Point{box.MinLat, box.MinLon},
		[]float64{box.MaxLat - box.MinLat, box.MaxLon - box.MinLon},
	)
	if err != nil {
		return nil
	}

	x.mu.RLock()
	candidates := x.tree.SearchIntersect(bounds)
	x.mu.RUnlock()

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		e, ok := c.(*entry)
		if !ok {
			continue
		}
		d := geospatial.HaversineKm(center, e.pharmacy.Location)
		if d > radiusKm {
			continue
		}
		matches = append(matches, Match{
			Pharmacy:      e.pharmacy,
			DistanceKm:    d,
			TravelMinutes: geospatial.MinutesForDistance(d),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].DistanceKm != matches[j].DistanceKm {
			return matches[i].DistanceKm < matches[j].DistanceKm
		}
		return matches[i].Pharmacy.Slug < matches[j].Pharmacy.Slug
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
