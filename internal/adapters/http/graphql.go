package http

import (
	"math"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/medsnear/medsnear/internal/core/domain"
	"github.com/medsnear/medsnear/internal/core/nearby"
	"github.com/medsnear/medsnear/internal/core/usecases"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	pharmacyType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Pharmacy",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"slug":     &graphql.Field{Type: graphql.String},
			"name":     &graphql.Field{Type: graphql.String},
			"address":  &graphql.Field{Type: graphql.String},
			"phone":    &graphql.Field{Type: graphql.String},
			"location": &graphql.Field{Type: geoPointType},
			"active":   &graphql.Field{Type: graphql.Boolean},
		},
	})

	listingType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Listing",
		Fields: graphql.Fields{
			"id":                    &graphql.Field{Type: graphql.String},
			"pharmacy_id":           &graphql.Field{Type: graphql.String},
			"pharmacy_slug":         &graphql.Field{Type: graphql.String},
			"pharmacy_name":         &graphql.Field{Type: graphql.String},
			"name":                  &graphql.Field{Type: graphql.String},
			"ingredient":            &graphql.Field{Type: graphql.String},
			"category":              &graphql.Field{Type: graphql.String},
			"seller_location":       &graphql.Field{Type: geoPointType},
			"price":                 &graphql.Field{Type: graphql.Float},
			"currency":              &graphql.Field{Type: graphql.String},
			"stock":                 &graphql.Field{Type: graphql.Int},
			"requires_prescription": &graphql.Field{Type: graphql.Boolean},
			"travel_minutes":        &graphql.Field{Type: graphql.Float, Description: "null when the distance is unknown"},
		},
	})

	nearbyType := graphql.NewObject(graphql.ObjectConfig{
		Name: "NearbyPharmacy",
		Fields: graphql.Fields{
			"pharmacy":       &graphql.Field{Type: pharmacyType},
			"distance_km":    &graphql.Field{Type: graphql.Float},
			"travel_minutes": &graphql.Field{Type: graphql.Float},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"searchCatalog": &graphql.Field{
				Type:        graphql.NewList(listingType),
				Description: "Search listings, nearest seller first",
				Args: graphql.FieldConfigArgument{
					"q":         &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"lat":       &graphql.ArgumentConfig{Type: graphql.Float},
					"lon":       &graphql.ArgumentConfig{Type: graphql.Float},
					"radius_km": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
					"offset":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: usecases.DefaultSearchLimit},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					q := usecases.SearchQuery{
						Text:     p.Args["q"].(string),
						RadiusKm: p.Args["radius_km"].(float64),
						Offset:   p.Args["offset"].(int),
						Limit:    p.Args["limit"].(int),
					}
					lat, okLat := p.Args["lat"].(float64)
					lon, okLon := p.Args["lon"].(float64)
					if okLat && okLon {
						q.Near = &domain.GeoPoint{Lat: lat, Lon: lon}
					}

					page, err := deps.Catalog.Search(p.Context, q)
					if err != nil {
						return nil, err
					}
					result := make([]map[string]interface{}, 0, len(page.Results))
					for _, r := range page.Results {
						result = append(result, listingMap(r))
					}
					return result, nil
				},
			},
			"listing": &graphql.Field{
				Type:        listingType,
				Description: "Get a listing by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					item, err := deps.Catalog.Item(p.Context, p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return listingMap(domain.SearchResult{Item: item, TravelMinutes: unknownTravel}), nil
				},
			},
			"pharmacy": &graphql.Field{
				Type:        pharmacyType,
				Description: "Get a pharmacy by slug",
				Args: graphql.FieldConfigArgument{
					"slug": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Pharmacies.GetBySlug(p.Context, p.Args["slug"].(string))
				},
			},
			"pharmaciesNearby": &graphql.Field{
				Type:        graphql.NewList(nearbyType),
				Description: "Find pharmacies near a location",
				Args: graphql.FieldConfigArgument{
					"lat":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius_km": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: float64(usecases.DefaultNearbyRadiusKm)},
					"limit":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					center := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lon: p.Args["lon"].(float64)}
					matches, err := deps.Pharmacies.Nearby(p.Context, center, p.Args["radius_km"].(float64), p.Args["limit"].(int))
					if err != nil {
						return nil, err
					}
					if matches == nil {
						matches = []nearby.Match{}
					}
					return matches, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

var unknownTravel = math.Inf(1)

// listingMap flattens a search result; an unknown travel time resolves to null.
func listingMap(r domain.SearchResult) map[string]interface{} {
	it := r.Item
	m := map[string]interface{}{
		"id":                    it.ID,
		"pharmacy_id":           it.PharmacyID,
		"pharmacy_slug":         it.PharmacySlug,
		"pharmacy_name":         it.PharmacyName,
		"name":                  it.Name,
		"ingredient":            it.Ingredient,
		"category":              it.Category,
		"price":                 float64(it.Price),
		"currency":              it.Currency,
		"stock":                 it.Stock,
		"requires_prescription": it.RequiresPrescription,
	}
	if it.SellerLocation != nil {
		m["seller_location"] = map[string]interface{}{"lat": it.SellerLocation.Lat, "lon": it.SellerLocation.Lon}
	}
	if r.TravelKnown() {
		m["travel_minutes"] = r.TravelMinutes
	}
	return m
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
