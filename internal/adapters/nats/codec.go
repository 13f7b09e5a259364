package natsadapter

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/medsnear/medsnear/internal/core/domain"
)

// SubjectPrefix is the subject namespace for catalog events; the pharmacy
// ID is appended as the last token.
const SubjectPrefix = "catalog.items."

// Subject returns the subject a pharmacy's catalog events are published on.
func Subject(pharmacyID string) string {
	if pharmacyID == "" {
		pharmacyID = "unknown"
	}
	return SubjectPrefix + pharmacyID
}

// EncodeCatalogEvent serialises ev as a protobuf google.protobuf.Struct.
func EncodeCatalogEvent(ev *domain.CatalogEvent) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any{
		"kind":        string(ev.Kind),
		"pharmacy_id": ev.PharmacyID,
		"item_id":     ev.ItemID,
		"at":          ev.At.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("build event struct: %w", err)
	}
	return proto.Marshal(s)
}

// DecodeCatalogEvent is the inverse of EncodeCatalogEvent.
func DecodeCatalogEvent(data []byte) (*domain.CatalogEvent, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	f := s.GetFields()

	ev := &domain.CatalogEvent{
		Kind:       domain.CatalogEventKind(f["kind"].GetStringValue()),
		PharmacyID: f["pharmacy_id"].GetStringValue(),
		ItemID:     f["item_id"].GetStringValue(),
	}
	switch ev.Kind {
	case domain.CatalogItemUpserted, domain.CatalogItemDeleted:
	default:
		return nil, fmt.Errorf("unknown catalog event kind %q", ev.Kind)
	}
	if at := f["at"].GetStringValue(); at != "" {
		t, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("event time: %w", err)
		}
		ev.At = t
	}
	return ev, nil
}
