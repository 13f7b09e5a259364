package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/medsnear/medsnear/internal/core/domain"
)

// catalogFile is the on-disk fixture format. JSON is valid YAML, so both load.
type catalogFile struct {
	Pharmacies []pharmacyRecord `yaml:"pharmacies"`
	Items      []itemRecord     `yaml:"items"`
}

type pointRecord struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

type pharmacyRecord struct {
	ID       string       `yaml:"id"`
	Slug     string       `yaml:"slug"`
	Name     string       `yaml:"name"`
	Address  string       `yaml:"address"`
	Location *pointRecord `yaml:"location"`
}

type itemRecord struct {
	ID                   string `yaml:"id"`
	Pharmacy             string `yaml:"pharmacy"` // id or slug
	Name                 string `yaml:"name"`
	Ingredient           string `yaml:"ingredient"`
	Category             string `yaml:"category"`
	Price                int64  `yaml:"price"`
	Currency             string `yaml:"currency"`
	Stock                *int   `yaml:"stock"`
	RequiresPrescription bool   `yaml:"requires_prescription"`
}

// loadCatalogFile reads pharmacies and their listings. Each item inherits
// its seller's location; unknown sellers leave the location unset.
func loadCatalogFile(path string) ([]domain.Pharmacy, []domain.CatalogItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	pharmacies := make([]domain.Pharmacy, 0, len(f.Pharmacies))
	byKey := make(map[string]*domain.Pharmacy, 2*len(f.Pharmacies))
	for i, r := range f.Pharmacies {
		if r.Location == nil {
			return nil, nil, fmt.Errorf("pharmacy %d (%s): location is required", i, r.Name)
		}
		p := domain.Pharmacy{
			ID:       r.ID,
			Slug:     r.Slug,
			Name:     r.Name,
			Address:  r.Address,
			Location: domain.GeoPoint{Lat: r.Location.Lat, Lon: r.Location.Lon},
			Active:   true,
		}
		if p.ID == "" {
			p.ID = p.Slug
		}
		if !p.Location.Valid() {
			return nil, nil, fmt.Errorf("pharmacy %s: location out of range", p.ID)
		}
		pharmacies = append(pharmacies, p)
	}
	for i := range pharmacies {
		p := &pharmacies[i]
		byKey[p.ID] = p
		if p.Slug != "" {
			byKey[p.Slug] = p
		}
	}

	items := make([]domain.CatalogItem, 0, len(f.Items))
	for i, r := range f.Items {
		if strings.TrimSpace(r.ID) == "" || strings.TrimSpace(r.Name) == "" {
			return nil, nil, fmt.Errorf("item %d: id and name are required", i)
		}
		item := domain.CatalogItem{
			ID:                   r.ID,
			Name:                 r.Name,
			Ingredient:           r.Ingredient,
			Category:             r.Category,
			Price:                r.Price,
			Currency:             r.Currency,
			Stock:                1,
			RequiresPrescription: r.RequiresPrescription,
		}
		if r.Stock != nil {
			item.Stock = *r.Stock
		}
		if item.Currency == "" {
			item.Currency = "NGN"
		}
		if p, ok := byKey[r.Pharmacy]; ok {
			loc := p.Location
			item.PharmacyID = p.ID
			item.PharmacySlug = p.Slug
			item.PharmacyName = p.Name
			item.SellerLocation = &loc
		}
		items = append(items, item)
	}
	return pharmacies, items, nil
}
