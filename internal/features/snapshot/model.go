package snapshot

import (
	"sort"
	"time"

	"crm-workflow/pkg/condition"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldValue is one captured field. Values are kept as an ordered list
// because flattened field paths contain dots, which Mongo treats specially in
// document keys.
type FieldValue struct {
	Field string      `json:"field" bson:"field"`
	Value interface{} `json:"value" bson:"value"`
}

// EntitySnapshot is the immutable capture of an entity's fields at match time
type EntitySnapshot struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	EntityType string             `json:"entity_type" bson:"entity_type"`
	EntityID   string             `json:"entity_id" bson:"entity_id"`
	Fields     []FieldValue       `json:"fields" bson:"fields"`
	CapturedAt time.Time          `json:"captured_at" bson:"captured_at"`
}

// New copies values into a snapshot with fields sorted by name.
func New(entityType, entityID string, values condition.Snapshot, capturedAt time.Time) *EntitySnapshot {
	fields := make([]FieldValue, 0, len(values))
	for k, v := range values {
		fields = append(fields, FieldValue{Field: k, Value: v})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })

	return &EntitySnapshot{
		EntityType: entityType,
		EntityID:   entityID,
		Fields:     fields,
		CapturedAt: capturedAt,
	}
}

// Values rebuilds the evaluator view of the snapshot.
func (s *EntitySnapshot) Values() condition.Snapshot {
	values := make(condition.Snapshot, len(s.Fields))
	for _, f := range s.Fields {
		values[f.Field] = f.Value
	}
	return values
}
