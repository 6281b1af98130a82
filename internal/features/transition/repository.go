package transition

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound             = errors.New("transition not found")
	ErrNoPending            = errors.New("no pending transition available")
	ErrLeaseLost            = errors.New("transition lease lost")
	ErrInvalidState         = errors.New("transition is not in the required state")
	ErrOpenTransitionExists = errors.New("an open transition already exists for this entity and workflow")
)

// TransitionRepository is the queue ledger. Every status change is a single
// conditional update guarded by the current status (and lease owner), so no
// read-then-write race can double-process an item.
type TransitionRepository interface {
	// Admit inserts t as pending unless an open item exists for the same
	// (entity type, entity id, workflow); then it returns that item's ID.
	Admit(ctx context.Context, t *Transition) (AdmitResult, error)
	FindOpen(ctx context.Context, entityType, entityID string, workflowID primitive.ObjectID) (*Transition, error)
	Get(ctx context.Context, id primitive.ObjectID) (*Transition, error)
	List(ctx context.Context, filter Filter) (Page, error)
	CountByWorkflow(ctx context.Context, workflowID primitive.ObjectID) (int64, error)

	// Lease atomically claims the oldest eligible pending item for owner.
	Lease(ctx context.Context, owner string, ttl time.Duration, now time.Time) (*Transition, error)
	Complete(ctx context.Context, id primitive.ObjectID, owner string, now time.Time) error
	Retry(ctx context.Context, id primitive.ObjectID, owner string, attempts int, errMsg string, notBefore, now time.Time) error
	Bury(ctx context.Context, id primitive.ObjectID, owner string, attempts int, errMsg string, now time.Time) error
	RequeueExpired(ctx context.Context, now time.Time) (int64, error)
	Requeue(ctx context.Context, id primitive.ObjectID, now time.Time) error

	EnsureIndexes(ctx context.Context) error
}

func newPending(t *Transition) {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.NotBefore.IsZero() {
		t.NotBefore = t.CreatedAt
	}
	t.UpdatedAt = t.CreatedAt
	t.Status = StatusPending
	t.Open = true
	t.AttemptCount = 0
	t.LeaseOwner = ""
	t.LeaseExpiresAt = nil
	t.CompletedAt = nil
}
