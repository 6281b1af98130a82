package entity

import (
	"context"
	"fmt"
	"strings"

	"crm-workflow/internal/features/matcher"
	"crm-workflow/internal/features/transition"
	"crm-workflow/pkg/condition"

	"go.uber.org/zap"
)

// EntityService is the change notifier: every entity write is followed by an
// inline rule match.
type EntityService interface {
	Get(ctx context.Context, entityType, entityID string) (*Record, error)
	Save(ctx context.Context, rec *Record) (*transition.Transition, error)
	NotifyChanged(ctx context.Context, entityType, entityID string) (*transition.Transition, error)
}

// OwnerSource is the ownership store the processor mutates. It is the
// authority for an entity's owner even when entity fields live elsewhere.
type OwnerSource interface {
	OwningGroup(ctx context.Context, entityType, entityID string) (string, error)
}

type EntityServiceImpl struct {
	Repo    EntityRepository
	Owners  OwnerSource
	Matcher matcher.Matcher
	Logger  *zap.Logger
}

func NewEntityService(repo EntityRepository, owners OwnerSource, m matcher.Matcher, logger *zap.Logger) EntityService {
	return &EntityServiceImpl{
		Repo:    repo,
		Owners:  owners,
		Matcher: m,
		Logger:  logger,
	}
}

// accessor serves field values from the entity store and the owner from the
// ownership store.
type accessor struct {
	repo   EntityRepository
	owners OwnerSource
}

func (a accessor) Snapshot(ctx context.Context, entityType, entityID string) (condition.Snapshot, error) {
	snap, err := a.repo.Snapshot(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	owner, err := a.owners.OwningGroup(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	snap[OwnerField] = owner
	return snap, nil
}

func (a accessor) OwningGroup(ctx context.Context, entityType, entityID string) (string, error) {
	return a.owners.OwningGroup(ctx, entityType, entityID)
}

func (s *EntityServiceImpl) entityAccessor() matcher.EntityAccessor {
	if s.Owners == nil {
		return s.Repo
	}
	return accessor{repo: s.Repo, owners: s.Owners}
}

func (s *EntityServiceImpl) Get(ctx context.Context, entityType, entityID string) (*Record, error) {
	return s.Repo.Get(ctx, entityType, entityID)
}

func (s *EntityServiceImpl) Save(ctx context.Context, rec *Record) (*transition.Transition, error) {
	rec.EntityType = strings.TrimSpace(rec.EntityType)
	rec.EntityID = strings.TrimSpace(rec.EntityID)
	if rec.EntityType == "" || rec.EntityID == "" {
		return nil, fmt.Errorf("%w: entity_type and entity_id are required", ErrInvalidRecord)
	}
	if rec.Data == nil {
		rec.Data = map[string]interface{}{}
	}
	if err := s.Repo.Upsert(ctx, rec); err != nil {
		return nil, err
	}
	return s.NotifyChanged(ctx, rec.EntityType, rec.EntityID)
}

func (s *EntityServiceImpl) NotifyChanged(ctx context.Context, entityType, entityID string) (*transition.Transition, error) {
	t, err := s.Matcher.Resolve(ctx, entityType, entityID, s.entityAccessor())
	if err != nil {
		s.Logger.Error("Rule matching failed",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.Error(err))
		return nil, err
	}
	return t, nil
}
