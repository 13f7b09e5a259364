// Package search ranks catalog listings by how well they match a free-text
// query and how far the seller is from the customer.
package search

import (
	"slices"
	"strings"

	"github.com/medsnear/medsnear/internal/core/domain"
	"github.com/medsnear/medsnear/internal/pkg/geospatial"
)

// Searcher filters and ranks catalog items. It holds no mutable state.
type Searcher struct {
	synonyms Synonyms
}

// New creates a Searcher that expands queries through synonyms.
func New(synonyms Synonyms) *Searcher {
	return &Searcher{synonyms: synonyms}
}

// Synonyms returns the table the searcher was built with.
func (s *Searcher) Synonyms() Synonyms {
	return s.synonyms
}

// Search returns the items matching query, nearest seller first.
//
// caller may be nil when the customer's location is unknown; every result
// then carries +Inf travel minutes and input order is kept. Results point
// into items and never copy or modify them.
func (s *Searcher) Search(caller *domain.GeoPoint, items []domain.CatalogItem, query string) []domain.SearchResult {
	terms := s.Terms(query)

	results := make([]domain.SearchResult, 0, len(items))
	for i := range items {
		item := &items[i]
		if !matches(item, terms) {
			continue
		}
		results = append(results, domain.SearchResult{
			Item:          item,
			TravelMinutes: geospatial.TravelMinutes(caller, item.SellerLocation),
		})
	}

	slices.SortStableFunc(results, func(a, b domain.SearchResult) int {
		switch {
		case a.TravelMinutes < b.TravelMinutes:
			return -1
		case a.TravelMinutes > b.TravelMinutes:
			return 1
		}
		return 0
	})
	return results
}

// Terms returns the expanded match terms for query. An empty query yields a
// single empty term, which matches everything.
func (s *Searcher) Terms(query string) []string {
	q := Normalize(query)
	if expanded, ok := s.synonyms.Lookup(q); ok {
		q = expanded
	}
	if q == "" {
		return []string{""}
	}
	return strings.Split(q, " ")
}

func matches(item *domain.CatalogItem, terms []string) bool {
	fields := [3]string{
		Normalize(item.Name),
		Normalize(item.Ingredient),
		Normalize(item.Category),
	}
	for _, term := range terms {
		if term == "" {
			return true
		}
		for _, f := range fields {
			if strings.Contains(f, term) {
				return true
			}
		}
	}
	return false
}
