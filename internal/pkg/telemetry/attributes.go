package telemetry

// Span attribute keys used for instrumentation.
const (
	// Search
	AttrSearchMode        = "search.mode"
	AttrSearchQueryLength = "search.query_length"
	AttrSearchHasLocation = "search.has_location"
	AttrSearchCatalogSize = "search.catalog_size"
	AttrSearchMatches     = "search.matches"

	// Messaging
	AttrMessagingSubject = "messaging.destination.name"
	AttrCatalogEventKind = "catalog.event.kind"
)
