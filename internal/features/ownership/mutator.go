package ownership

import (
	"context"
	"errors"
)

var (
	ErrEntityNotFound    = errors.New("entity not found")
	ErrOwnershipConflict = errors.New("entity is owned by neither the source nor the target group")
)

// Mutator moves an entity between owning groups. ReassignGroup must be
// idempotent: an entity already owned by toGroupID is a success, so a retried
// attempt after a lost acknowledgement does no harm.
type Mutator interface {
	ReassignGroup(ctx context.Context, entityType, entityID, fromGroupID, toGroupID string) error
}

// Store is an ownership backend. Rule matching reads owners from the same
// store the processor writes them to, so a transition's source group is the
// value ReassignGroup will compare against.
type Store interface {
	Mutator
	// OwningGroup returns "" when the store has no row for the entity.
	OwningGroup(ctx context.Context, entityType, entityID string) (string, error)
}
