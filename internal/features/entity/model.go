package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OwnerField is the document field holding the owning user group.
const OwnerField = "owner_group_id"

// Record is a CRM entity as the routing engine sees it: an identity, an owning
// group and free-form field data.
type Record struct {
	ID           primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	EntityType   string                 `json:"entity_type" bson:"entity_type"`
	EntityID     string                 `json:"entity_id" bson:"entity_id"`
	OwnerGroupID string                 `json:"owner_group_id" bson:"owner_group_id"`
	Data         map[string]interface{} `json:"data" bson:"data"`
	UpdatedAt    time.Time              `json:"updated_at" bson:"updated_at"`
}
