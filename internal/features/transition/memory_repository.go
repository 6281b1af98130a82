package transition

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryTransitionRepository is the in-process queue. A single mutex makes
// every conditional update atomic, mirroring the guarded updates of the Mongo
// repository.
type MemoryTransitionRepository struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*Transition
	seq   map[primitive.ObjectID]int64
	next  int64
}

func NewMemoryTransitionRepository() *MemoryTransitionRepository {
	return &MemoryTransitionRepository{
		items: make(map[primitive.ObjectID]*Transition),
		seq:   make(map[primitive.ObjectID]int64),
	}
}

var _ TransitionRepository = (*MemoryTransitionRepository)(nil)

func (r *MemoryTransitionRepository) EnsureIndexes(context.Context) error { return nil }

func clone(t *Transition) *Transition {
	c := *t
	if t.LeaseExpiresAt != nil {
		v := *t.LeaseExpiresAt
		c.LeaseExpiresAt = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	return &c
}

func (r *MemoryTransitionRepository) findOpenLocked(entityType, entityID string, workflowID primitive.ObjectID) *Transition {
	for _, t := range r.items {
		if t.Open && t.EntityType == entityType && t.EntityID == entityID && t.WorkflowID == workflowID {
			return t
		}
	}
	return nil
}

func (r *MemoryTransitionRepository) Admit(_ context.Context, t *Transition) (AdmitResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing := r.findOpenLocked(t.EntityType, t.EntityID, t.WorkflowID); existing != nil {
		return AdmitResult{ID: existing.ID}, nil
	}

	newPending(t)
	r.items[t.ID] = clone(t)
	r.next++
	r.seq[t.ID] = r.next
	return AdmitResult{ID: t.ID, Created: true}, nil
}

func (r *MemoryTransitionRepository) FindOpen(_ context.Context, entityType, entityID string, workflowID primitive.ObjectID) (*Transition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t := r.findOpenLocked(entityType, entityID, workflowID); t != nil {
		return clone(t), nil
	}
	return nil, ErrNotFound
}

func (r *MemoryTransitionRepository) Get(_ context.Context, id primitive.ObjectID) (*Transition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(t), nil
}

func (f Filter) matches(t *Transition) bool {
	if f.Status == StatusFailed {
		if t.Status != StatusPending || t.AttemptCount == 0 {
			return false
		}
	} else if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.EntityType != "" && t.EntityType != f.EntityType {
		return false
	}
	if f.EntityID != "" && t.EntityID != f.EntityID {
		return false
	}
	if !f.WorkflowID.IsZero() && t.WorkflowID != f.WorkflowID {
		return false
	}
	if !f.From.IsZero() && t.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.CreatedAt.After(f.To) {
		return false
	}
	return true
}

func (r *MemoryTransitionRepository) List(_ context.Context, f Filter) (Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]*Transition, 0)
	for _, t := range r.items {
		if f.matches(t) {
			matched = append(matched, t)
		}
	}
	// newest first
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return r.seq[matched[i].ID] > r.seq[matched[j].ID]
	})

	page := Page{Items: []Transition{}, Total: int64(len(matched))}
	start := f.Offset
	if start < 0 {
		start = 0
	}
	if start > int64(len(matched)) {
		start = int64(len(matched))
	}
	end := int64(len(matched))
	if f.Limit > 0 && f.Limit < end-start {
		end = start + f.Limit
	}
	for _, t := range matched[start:end] {
		page.Items = append(page.Items, *clone(t))
	}
	return page, nil
}

func (r *MemoryTransitionRepository) CountByWorkflow(_ context.Context, workflowID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.items {
		if t.WorkflowID == workflowID {
			n++
		}
	}
	return n, nil
}

func (r *MemoryTransitionRepository) Lease(_ context.Context, owner string, ttl time.Duration, now time.Time) (*Transition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pick *Transition
	for _, t := range r.items {
		if t.Status != StatusPending || t.NotBefore.After(now) {
			continue
		}
		if pick == nil || t.CreatedAt.Before(pick.CreatedAt) ||
			(t.CreatedAt.Equal(pick.CreatedAt) && r.seq[t.ID] < r.seq[pick.ID]) {
			pick = t
		}
	}
	if pick == nil {
		return nil, ErrNoPending
	}

	expires := now.Add(ttl)
	pick.Status = StatusProcessing
	pick.LeaseOwner = owner
	pick.LeaseExpiresAt = &expires
	pick.UpdatedAt = now
	return clone(pick), nil
}

func (r *MemoryTransitionRepository) leasedLocked(id primitive.ObjectID, owner string) (*Transition, error) {
	t, ok := r.items[id]
	if !ok || t.Status != StatusProcessing || t.LeaseOwner != owner {
		return nil, ErrLeaseLost
	}
	return t, nil
}

func releaseLease(t *Transition) {
	t.LeaseOwner = ""
	t.LeaseExpiresAt = nil
}

func (r *MemoryTransitionRepository) Complete(_ context.Context, id primitive.ObjectID, owner string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.leasedLocked(id, owner)
	if err != nil {
		return err
	}
	releaseLease(t)
	t.Status = StatusSuccess
	t.Open = false
	t.ErrorMessage = ""
	t.UpdatedAt = now
	t.CompletedAt = &now
	return nil
}

func (r *MemoryTransitionRepository) Retry(_ context.Context, id primitive.ObjectID, owner string, attempts int, errMsg string, notBefore, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.leasedLocked(id, owner)
	if err != nil {
		return err
	}
	releaseLease(t)
	t.Status = StatusPending
	t.AttemptCount = attempts
	t.ErrorMessage = errMsg
	t.NotBefore = notBefore
	t.UpdatedAt = now
	return nil
}

func (r *MemoryTransitionRepository) Bury(_ context.Context, id primitive.ObjectID, owner string, attempts int, errMsg string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.leasedLocked(id, owner)
	if err != nil {
		return err
	}
	releaseLease(t)
	t.Status = StatusDead
	t.Open = false
	t.AttemptCount = attempts
	t.ErrorMessage = errMsg
	t.UpdatedAt = now
	t.CompletedAt = &now
	return nil
}

func (r *MemoryTransitionRepository) RequeueExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.items {
		if t.Status != StatusProcessing || t.LeaseExpiresAt == nil || !t.LeaseExpiresAt.Before(now) {
			continue
		}
		releaseLease(t)
		t.Status = StatusPending
		t.NotBefore = now
		t.UpdatedAt = now
		n++
	}
	return n, nil
}

func (r *MemoryTransitionRepository) Requeue(_ context.Context, id primitive.ObjectID, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok {
		return ErrNotFound
	}
	if t.Status != StatusDead {
		return ErrInvalidState
	}
	if r.findOpenLocked(t.EntityType, t.EntityID, t.WorkflowID) != nil {
		return ErrOpenTransitionExists
	}
	t.Status = StatusPending
	t.Open = true
	t.AttemptCount = 0
	t.NotBefore = now
	t.UpdatedAt = now
	t.CompletedAt = nil
	return nil
}
