package transition

import (
	"context"
	"errors"
	"fmt"
	"time"

	common_models "crm-workflow/internal/common/models"
	"crm-workflow/internal/features/audit"
	"crm-workflow/internal/features/snapshot"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 50
	maxExportRows   = 10000
)

// Detail is a transition together with the snapshot that justified it.
type Detail struct {
	Transition
	Snapshot *snapshot.EntitySnapshot `json:"snapshot,omitempty"`
}

type TransitionService interface {
	List(ctx context.Context, filter Filter) (Page, error)
	Get(ctx context.Context, id string) (*Detail, error)
	Requeue(ctx context.Context, id string) (*Transition, error)
	Export(ctx context.Context, filter Filter) ([]byte, error)
}

type TransitionServiceImpl struct {
	Repo         TransitionRepository
	Snapshots    snapshot.SnapshotRepository
	AuditService audit.AuditService
	Hub          *Hub
	Logger       *zap.Logger
}

func NewTransitionService(repo TransitionRepository, snapshots snapshot.SnapshotRepository, auditService audit.AuditService, hub *Hub, logger *zap.Logger) TransitionService {
	return &TransitionServiceImpl{
		Repo:         repo,
		Snapshots:    snapshots,
		AuditService: auditService,
		Hub:          hub,
		Logger:       logger,
	}
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return oid, nil
}

func (s *TransitionServiceImpl) List(ctx context.Context, filter Filter) (Page, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	return s.Repo.List(ctx, filter)
}

func (s *TransitionServiceImpl) Get(ctx context.Context, id string) (*Detail, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	t, err := s.Repo.Get(ctx, oid)
	if err != nil {
		return nil, err
	}

	detail := &Detail{Transition: *t}
	if !t.SnapshotID.IsZero() {
		snap, err := s.Snapshots.GetByID(ctx, t.SnapshotID)
		switch {
		case err == nil:
			detail.Snapshot = snap
		case errors.Is(err, snapshot.ErrNotFound):
			s.Logger.Warn("Transition snapshot missing",
				zap.String("transition_id", id),
				zap.String("snapshot_id", t.SnapshotID.Hex()))
		default:
			return nil, err
		}
	}
	return detail, nil
}

// Requeue puts a dead transition back in the queue with a fresh attempt budget.
func (s *TransitionServiceImpl) Requeue(ctx context.Context, id string) (*Transition, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.Repo.Requeue(ctx, oid, now); err != nil {
		return nil, err
	}

	t, err := s.Repo.Get(ctx, oid)
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Transition requeued by operator",
		zap.String("transition_id", id),
		zap.String("workflow_id", t.WorkflowID.Hex()))

	if err := s.AuditService.LogChange(ctx, common_models.AuditActionTransition, "transition", id, map[string]common_models.Change{
		"status": {Old: StatusDead, New: StatusPending},
	}); err != nil {
		s.Logger.Warn("Failed to write transition audit entry", zap.String("transition_id", id), zap.Error(err))
	}
	s.Hub.Publish(NewEvent(t, StatusPending, now))
	return t, nil
}

func (s *TransitionServiceImpl) Export(ctx context.Context, filter Filter) ([]byte, error) {
	filter.Offset = 0
	if filter.Limit <= 0 || filter.Limit > maxExportRows {
		filter.Limit = maxExportRows
	}
	page, err := s.Repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data, err := WriteXLSX(page.Items)
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return data, nil
}
