package http

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/medsnear/medsnear/internal/core/domain"
	"github.com/medsnear/medsnear/internal/core/nearby"
	"github.com/medsnear/medsnear/internal/core/usecases"
)

// queryLocation reads lat/lon from the query string. Missing, malformed or
// out-of-range coordinates yield nil.
func queryLocation(c *fiber.Ctx) *domain.GeoPoint {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		return nil
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil
	}
	p := &domain.GeoPoint{Lat: lat, Lon: lon}
	if !p.Valid() {
		return nil
	}
	return p
}

// SearchCatalogHandler ranks catalog listings matching q by travel time.
func SearchCatalogHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("q")
		if len([]rune(query)) > usecases.MaxQueryLength {
			return errBadRequest(c, "query too long (max 200 characters)")
		}

		radius := c.QueryFloat("radius_km", 0)
		if radius < 0 || radius > 100 {
			return errBadRequest(c, "radius_km must be between 0 and 100")
		}
		offset := c.QueryInt("offset", 0)
		if offset < 0 {
			return errBadRequest(c, "offset must not be negative")
		}

		near := queryLocation(c)
		page, err := deps.Catalog.Search(c.UserContext(), usecases.SearchQuery{
			Text:     query,
			Near:     near,
			RadiusKm: radius,
			Offset:   offset,
			Limit:    c.QueryInt("limit", 0),
		})
		if err != nil {
			return errFromService(c, err)
		}

		if near != nil {
			c.Set("Cache-Control", "private, max-age=30")
		} else {
			c.Set("Cache-Control", "public, max-age=60")
		}

		pg := Pagination{Offset: page.Offset, Limit: page.Limit, Total: page.Total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page.Results, Pagination: pg})
	}
}

// GetItemHandler returns a single listing.
func GetItemHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		item, err := deps.Catalog.Item(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromService(c, err)
		}
		return c.JSON(item)
	}
}

// PutItemHandler creates or replaces a listing.
func PutItemHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var item domain.CatalogItem
		if err := c.BodyParser(&item); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		id := c.Params("id")
		if item.ID != "" && item.ID != id {
			return errBadRequest(c, "body id does not match path id")
		}
		item.ID = id

		if err := deps.Catalog.UpsertItem(c.UserContext(), &item); err != nil {
			return errFromService(c, err)
		}
		return c.JSON(item)
	}
}

// DeleteItemHandler removes a listing.
func DeleteItemHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Catalog.DeleteItem(c.UserContext(), c.Params("id")); err != nil {
			return errFromService(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ListPharmaciesHandler returns a page of pharmacies.
func ListPharmaciesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		pharmacies, total, err := deps.Pharmacies.List(c.UserContext(), offset, limit)
		if err != nil {
			return errFromService(c, err)
		}
		if pharmacies == nil {
			pharmacies = []domain.Pharmacy{}
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: pharmacies, Pagination: pg})
	}
}

// RegisterPharmacyHandler registers a pharmacy under a generated slug.
func RegisterPharmacyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in usecases.RegisterPharmacy
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		p, err := deps.Pharmacies.Register(c.UserContext(), in)
		if err != nil {
			return errFromService(c, err)
		}

		c.Location("/v1/pharmacies/" + p.Slug)
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// GetPharmacyHandler returns a single pharmacy.
func GetPharmacyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := deps.Pharmacies.GetBySlug(c.UserContext(), c.Params("slug"))
		if err != nil {
			return errFromService(c, err)
		}
		return c.JSON(p)
	}
}

// NearbyPharmaciesHandler returns pharmacies within radius_km of lat/lon.
func NearbyPharmaciesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		near := queryLocation(c)
		if near == nil {
			return errBadRequest(c, "valid lat and lon are required")
		}
		radius := c.QueryFloat("radius_km", usecases.DefaultNearbyRadiusKm)
		if radius <= 0 || radius > usecases.MaxNearbyRadiusKm {
			return errBadRequest(c, "radius_km must be between 0 and 50")
		}

		matches, err := deps.Pharmacies.Nearby(c.UserContext(), *near, radius, c.QueryInt("limit", 20))
		if err != nil {
			return errFromService(c, err)
		}
		if matches == nil {
			matches = []nearby.Match{}
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(matches)
	}
}

// QuoteHandler prices a basket.
func QuoteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req usecases.QuoteRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		req.CouponCode = strings.TrimSpace(req.CouponCode)

		q, err := deps.Checkout.Quote(c.UserContext(), req)
		if err != nil {
			return errFromService(c, err)
		}
		return c.JSON(q)
	}
}
