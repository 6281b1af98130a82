package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	common_models "crm-workflow/internal/common/models"
	"crm-workflow/internal/features/audit"
	"crm-workflow/pkg/condition"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrInvalidWorkflow    = errors.New("invalid workflow")
	ErrWorkflowReferenced = errors.New("workflow is referenced by transitions; disable it instead")
)

// TransitionCounter reports how many queue items reference a workflow
type TransitionCounter interface {
	CountByWorkflow(ctx context.Context, workflowID primitive.ObjectID) (int64, error)
}

type WorkflowService interface {
	CreateWorkflow(ctx context.Context, wf *Workflow) error
	GetWorkflow(ctx context.Context, id string) (*Workflow, error)
	ListWorkflows(ctx context.Context, entityType string) ([]Workflow, error)
	UpdateWorkflow(ctx context.Context, wf *Workflow) error
	DeleteWorkflow(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool) error
}

type WorkflowServiceImpl struct {
	Repo         WorkflowRepository
	Transitions  TransitionCounter
	AuditService audit.AuditService
	Logger       *zap.Logger
}

func NewWorkflowService(repo WorkflowRepository, transitions TransitionCounter, auditService audit.AuditService, logger *zap.Logger) WorkflowService {
	return &WorkflowServiceImpl{
		Repo:         repo,
		Transitions:  transitions,
		AuditService: auditService,
		Logger:       logger,
	}
}

// Validate checks a definition before it is saved. Malformed rules are
// reported here so administrators see them instead of silent non-matches.
func Validate(wf *Workflow) error {
	var problems []string
	if strings.TrimSpace(wf.Name) == "" {
		problems = append(problems, "name is required")
	}
	if strings.TrimSpace(wf.EntityType) == "" {
		problems = append(problems, "entity_type is required")
	}
	if strings.TrimSpace(wf.TargetUserGroupID) == "" {
		problems = append(problems, "target_user_group_id is required")
	}
	if len(wf.Rules) == 0 {
		problems = append(problems, "at least one rule is required")
	}
	for i := range wf.Rules {
		if err := condition.Validate(wf.Rules[i].Condition()); err != nil {
			problems = append(problems, fmt.Sprintf("rule %d: %v", i, err))
			continue
		}
		// Store the canonical operator name
		op, _ := condition.ParseOperator(string(wf.Rules[i].Operator))
		wf.Rules[i].Operator = op
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidWorkflow, strings.Join(problems, "; "))
	}
	return nil
}

func (s *WorkflowServiceImpl) CreateWorkflow(ctx context.Context, wf *Workflow) error {
	if err := Validate(wf); err != nil {
		return err
	}
	if err := s.Repo.Create(ctx, wf); err != nil {
		return err
	}
	s.audit(ctx, common_models.AuditActionCreate, wf.ID.Hex(), map[string]common_models.Change{
		"workflow": {New: wf},
	})
	return nil
}

func (s *WorkflowServiceImpl) GetWorkflow(ctx context.Context, id string) (*Workflow, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *WorkflowServiceImpl) ListWorkflows(ctx context.Context, entityType string) ([]Workflow, error) {
	return s.Repo.List(ctx, entityType)
}

func (s *WorkflowServiceImpl) UpdateWorkflow(ctx context.Context, wf *Workflow) error {
	if err := Validate(wf); err != nil {
		return err
	}

	// Get old workflow for audit
	old, err := s.Repo.GetByID(ctx, wf.ID.Hex())
	if err != nil {
		return err
	}
	wf.CreatedAt = old.CreatedAt

	if err := s.Repo.Update(ctx, wf); err != nil {
		return err
	}
	s.audit(ctx, common_models.AuditActionUpdate, wf.ID.Hex(), map[string]common_models.Change{
		"workflow": {Old: old, New: wf},
	})
	return nil
}

// DeleteWorkflow refuses to remove a workflow that transitions still point at,
// keeping the audit trail resolvable.
func (s *WorkflowServiceImpl) DeleteWorkflow(ctx context.Context, id string) error {
	old, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	refs, err := s.Transitions.CountByWorkflow(ctx, old.ID)
	if err != nil {
		return fmt.Errorf("count transitions: %w", err)
	}
	if refs > 0 {
		return ErrWorkflowReferenced
	}

	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, common_models.AuditActionDelete, id, map[string]common_models.Change{
		"workflow": {Old: old, New: "DELETED"},
	})
	return nil
}

// SetActive toggles matching for new changes. Already admitted transitions
// keep draining.
func (s *WorkflowServiceImpl) SetActive(ctx context.Context, id string, active bool) error {
	if err := s.Repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.audit(ctx, common_models.AuditActionWorkflow, id, map[string]common_models.Change{
		"is_active": {New: active},
	})
	return nil
}

func (s *WorkflowServiceImpl) audit(ctx context.Context, action common_models.AuditAction, id string, changes map[string]common_models.Change) {
	if err := s.AuditService.LogChange(ctx, action, "workflow", id, changes); err != nil {
		s.Logger.Warn("Failed to write workflow audit entry", zap.String("workflow_id", id), zap.Error(err))
	}
}
