package domain

import (
	"encoding/json"
	"errors"
	"math"
	"time"
)

var (
	// ErrNotFound is returned by repositories when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput marks validation failures on user-supplied data.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when a write collides with an existing record.
	ErrConflict = errors.New("conflict")
)

// Pharmacy is a business that lists medicines on the marketplace.
type Pharmacy struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Location  GeoPoint  `json:"location"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// CatalogItem is a medicine listed by a pharmacy.
//
// Optional text fields default to the empty string; the storage layer
// coerces missing values before items reach the search.
type CatalogItem struct {
	ID                   string    `json:"id"`
	PharmacyID           string    `json:"pharmacy_id"`
	PharmacySlug         string    `json:"pharmacy_slug,omitempty"`
	PharmacyName         string    `json:"pharmacy_name,omitempty"`
	Name                 string    `json:"name"`
	Ingredient           string    `json:"ingredient"`
	Category             string    `json:"category"` // "class" in the pharmacy domain
	SellerLocation       *GeoPoint `json:"seller_location,omitempty"`
	Price                int64     `json:"price"` // minor units
	Currency             string    `json:"currency"`
	Stock                int       `json:"stock"`
	RequiresPrescription bool      `json:"requires_prescription"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// SearchResult is a catalog item annotated with the estimated driving time
// from the caller to the seller. TravelMinutes is +Inf when unknown.
type SearchResult struct {
	Item          *CatalogItem
	TravelMinutes float64
}

// TravelKnown reports whether TravelMinutes holds a finite estimate.
func (r SearchResult) TravelKnown() bool {
	return !math.IsInf(r.TravelMinutes, 0)
}

// MarshalJSON flattens the item and writes travel_minutes as null when unknown.
func (r SearchResult) MarshalJSON() ([]byte, error) {
	type out struct {
		*CatalogItem
		TravelMinutes *float64 `json:"travel_minutes"`
	}
	o := out{CatalogItem: r.Item}
	if r.TravelKnown() {
		m := r.TravelMinutes
		o.TravelMinutes = &m
	}
	return json.Marshal(o)
}

// UnmarshalJSON is the inverse of MarshalJSON; a null travel_minutes becomes +Inf.
func (r *SearchResult) UnmarshalJSON(data []byte) error {
	var in struct {
		CatalogItem
		TravelMinutes *float64 `json:"travel_minutes"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	item := in.CatalogItem
	r.Item = &item
	r.TravelMinutes = math.Inf(1)
	if in.TravelMinutes != nil {
		r.TravelMinutes = *in.TravelMinutes
	}
	return nil
}

// CouponKind selects how a coupon's Value is interpreted.
type CouponKind string

const (
	CouponPercent CouponKind = "percent"
	CouponFixed   CouponKind = "fixed"
)

// Coupon is a checkout discount code.
type Coupon struct {
	Code        string     `json:"code"`
	Kind        CouponKind `json:"kind"`
	Value       int64      `json:"value"`        // percent (0-100] or minor units
	MinOrder    int64      `json:"min_order"`    // minor units
	MaxDiscount int64      `json:"max_discount"` // minor units, 0 = uncapped
	ExpiresAt   time.Time  `json:"expires_at"`
	Active      bool       `json:"active"`
}

// QuoteLine is one item of a checkout quote.
type QuoteLine struct {
	ItemID    string `json:"item_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	LineTotal int64  `json:"line_total"`
}

// Quote is the priced result of a checkout request.
type Quote struct {
	Lines      []QuoteLine `json:"lines"`
	Subtotal   int64       `json:"subtotal"`
	Discount   int64       `json:"discount"`
	Total      int64       `json:"total"`
	Currency   string      `json:"currency"`
	CouponCode string      `json:"coupon_code,omitempty"`
}

// CatalogEventKind describes what happened to a listing.
type CatalogEventKind string

const (
	CatalogItemUpserted CatalogEventKind = "upserted"
	CatalogItemDeleted  CatalogEventKind = "deleted"
)

// CatalogEvent is published whenever a listing changes.
type CatalogEvent struct {
	Kind       CatalogEventKind `json:"kind"`
	PharmacyID string           `json:"pharmacy_id"`
	ItemID     string           `json:"item_id"`
	At         time.Time        `json:"at"`
}
