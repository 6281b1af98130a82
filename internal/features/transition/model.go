package transition

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusDead       Status = "dead"
)

// Transition is one routing decision: move an entity from its source group to
// the workflow's target group. Records are never deleted; terminal ones form
// the audit trail.
type Transition struct {
	ID                primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	WorkflowID        primitive.ObjectID `json:"workflow_id" bson:"workflow_id"`
	EntityType        string             `json:"entity_type" bson:"entity_type"`
	EntityID          string             `json:"entity_id" bson:"entity_id"`
	SourceUserGroupID string             `json:"source_user_group_id" bson:"source_user_group_id"`
	TargetUserGroupID string             `json:"target_user_group_id" bson:"target_user_group_id"`
	Status            Status             `json:"status" bson:"status"`
	AttemptCount      int                `json:"attempt_count" bson:"attempt_count"`
	LeaseOwner        string             `json:"lease_owner,omitempty" bson:"lease_owner,omitempty"`
	LeaseExpiresAt    *time.Time         `json:"lease_expires_at,omitempty" bson:"lease_expires_at,omitempty"`
	NotBefore         time.Time          `json:"not_before" bson:"not_before"`
	ErrorMessage      string             `json:"error_message,omitempty" bson:"error_message,omitempty"`
	SnapshotID        primitive.ObjectID `json:"snapshot_id" bson:"snapshot_id"`
	// Open is true while the item is pending or processing; a unique partial
	// index on (entity_type, entity_id, workflow_id, open=true) keeps at most
	// one non-terminal item per tuple.
	Open        bool       `json:"-" bson:"open"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// AdmitResult tells whether admission inserted a new item or found the open one.
type AdmitResult struct {
	ID      primitive.ObjectID
	Created bool
}

// MaxPageSize caps the page size of queue views.
const MaxPageSize = 500

// ErrInvalidPage is returned for a page whose offset can not be represented.
var ErrInvalidPage = errors.New("invalid page")

// PageOffset converts a 1-based page number into an offset, clamping the
// page size to MaxPageSize.
func PageOffset(page, limit int64) (offset, size int64, err error) {
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if page < 1 {
		page = 1
	}
	if page-1 > math.MaxInt64/limit {
		return 0, 0, fmt.Errorf("%w: page %d is too large", ErrInvalidPage, page)
	}
	return (page - 1) * limit, limit, nil
}

// Filter selects transitions for the queue view. Zero values are ignored.
// Items never rest in StatusFailed, so filtering on it selects pending items
// waiting to retry after at least one failed attempt.
type Filter struct {
	Status     Status
	EntityType string
	EntityID   string
	WorkflowID primitive.ObjectID
	From       time.Time
	To         time.Time
	Limit      int64
	Offset     int64
}

// Page is one page of the queue view.
type Page struct {
	Items []Transition `json:"items"`
	Total int64        `json:"total"`
}
