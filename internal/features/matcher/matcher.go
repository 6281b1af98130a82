package matcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crm-workflow/internal/features/snapshot"
	"crm-workflow/internal/features/transition"
	"crm-workflow/internal/features/workflow"
	"crm-workflow/pkg/condition"

	"go.uber.org/zap"
)

// EntityAccessor reads the current state of a CRM entity.
type EntityAccessor interface {
	// Snapshot returns the entity's current field values keyed by field path.
	Snapshot(ctx context.Context, entityType, entityID string) (condition.Snapshot, error)
	// OwningGroup returns the entity's current owning user group, or "" when unknown.
	OwningGroup(ctx context.Context, entityType, entityID string) (string, error)
}

// WorkflowSource lists the active workflows for an entity type.
type WorkflowSource interface {
	ListActive(ctx context.Context, entityType string) ([]workflow.Workflow, error)
}

type Matcher interface {
	// Resolve evaluates active workflows against the entity and admits a
	// transition for the first full match. It returns nil when nothing matched
	// or the match was discarded.
	Resolve(ctx context.Context, entityType, entityID string, accessor EntityAccessor) (*transition.Transition, error)
}

type MatcherImpl struct {
	Workflows   WorkflowSource
	Snapshots   snapshot.SnapshotRepository
	Transitions transition.TransitionRepository
	Hub         *transition.Hub
	Logger      *zap.Logger
	Now         func() time.Time
}

func NewMatcher(workflows WorkflowSource, snapshots snapshot.SnapshotRepository, transitions transition.TransitionRepository, hub *transition.Hub, logger *zap.Logger) Matcher {
	return &MatcherImpl{
		Workflows:   workflows,
		Snapshots:   snapshots,
		Transitions: transitions,
		Hub:         hub,
		Logger:      logger,
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

func (m *MatcherImpl) Resolve(ctx context.Context, entityType, entityID string, accessor EntityAccessor) (*transition.Transition, error) {
	workflows, err := m.Workflows.ListActive(ctx, entityType)
	if err != nil {
		return nil, fmt.Errorf("load workflows: %w", err)
	}
	if len(workflows) == 0 {
		return nil, nil
	}
	workflow.SortByPriority(workflows)

	// One capture per change; every workflow sees the same values.
	values, err := accessor.Snapshot(ctx, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("read entity %s/%s: %w", entityType, entityID, err)
	}

	matched := m.firstMatch(workflows, values, entityType, entityID)
	if matched == nil {
		return nil, nil
	}

	log := m.Logger.With(
		zap.String("workflow_id", matched.ID.Hex()),
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID),
	)

	source, err := accessor.OwningGroup(ctx, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("read owning group: %w", err)
	}
	if source == "" {
		log.Warn("Match discarded: entity has no known owning group")
		return nil, nil
	}
	if source == matched.TargetUserGroupID {
		log.Debug("Match discarded: entity already owned by target group",
			zap.String("group_id", source))
		return nil, nil
	}

	existing, err := m.Transitions.FindOpen(ctx, entityType, entityID, matched.ID)
	if err == nil {
		log.Debug("Open transition already queued", zap.String("transition_id", existing.ID.Hex()))
		return existing, nil
	}
	if !errors.Is(err, transition.ErrNotFound) {
		return nil, err
	}

	now := m.Now()
	snap := snapshot.New(entityType, entityID, values, now)
	if err := m.Snapshots.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}

	item := &transition.Transition{
		WorkflowID:        matched.ID,
		EntityType:        entityType,
		EntityID:          entityID,
		SourceUserGroupID: source,
		TargetUserGroupID: matched.TargetUserGroupID,
		SnapshotID:        snap.ID,
		CreatedAt:         now,
	}
	res, err := m.Transitions.Admit(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("admit transition: %w", err)
	}
	if !res.Created {
		// Lost an admission race; the snapshot stays for audit.
		log.Debug("Open transition admitted concurrently", zap.String("transition_id", res.ID.Hex()))
		return m.Transitions.Get(ctx, res.ID)
	}

	log.Info("Transition admitted",
		zap.String("transition_id", item.ID.Hex()),
		zap.String("from_group", source),
		zap.String("to_group", matched.TargetUserGroupID))
	m.Hub.Publish(transition.NewEvent(item, transition.StatusPending, now))
	return item, nil
}

// firstMatch returns the first workflow whose rules all hold. Malformed
// workflows are logged and skipped.
func (m *MatcherImpl) firstMatch(workflows []workflow.Workflow, values condition.Snapshot, entityType, entityID string) *workflow.Workflow {
	for i := range workflows {
		wf := &workflows[i]
		if len(wf.Rules) == 0 {
			m.Logger.Warn("Skipping workflow without rules",
				zap.String("workflow_id", wf.ID.Hex()),
				zap.String("workflow", wf.Name))
			continue
		}

		ok, err := condition.EvaluateAll(wf.Conditions(), values)
		if err != nil {
			m.Logger.Warn("Skipping malformed workflow",
				zap.String("workflow_id", wf.ID.Hex()),
				zap.String("workflow", wf.Name),
				zap.String("entity_type", entityType),
				zap.String("entity_id", entityID),
				zap.Error(err))
			continue
		}
		if ok {
			return wf
		}
	}
	return nil
}
