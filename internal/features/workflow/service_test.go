package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	common_models "crm-workflow/internal/common/models"
	"crm-workflow/pkg/condition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MockWorkflowRepo keeps workflows in a map
type MockWorkflowRepo struct {
	WorkflowRepository
	items map[string]*Workflow
}

func newMockRepo() *MockWorkflowRepo {
	return &MockWorkflowRepo{items: map[string]*Workflow{}}
}

func (m *MockWorkflowRepo) Create(_ context.Context, wf *Workflow) error {
	wf.ID = primitive.NewObjectID()
	wf.CreatedAt = time.Now()
	assignRuleIDs(wf)
	c := *wf
	m.items[wf.ID.Hex()] = &c
	return nil
}

func (m *MockWorkflowRepo) GetByID(_ context.Context, id string) (*Workflow, error) {
	wf, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *wf
	return &c, nil
}

func (m *MockWorkflowRepo) Update(_ context.Context, wf *Workflow) error {
	if _, ok := m.items[wf.ID.Hex()]; !ok {
		return ErrNotFound
	}
	c := *wf
	m.items[wf.ID.Hex()] = &c
	return nil
}

func (m *MockWorkflowRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *MockWorkflowRepo) SetActive(_ context.Context, id string, active bool) error {
	wf, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	wf.IsActive = active
	return nil
}

type counter map[primitive.ObjectID]int64

func (c counter) CountByWorkflow(_ context.Context, id primitive.ObjectID) (int64, error) {
	return c[id], nil
}

type recordingAudit struct {
	actions []common_models.AuditAction
}

func (a *recordingAudit) LogChange(_ context.Context, action common_models.AuditAction, _ string, _ string, _ map[string]common_models.Change) error {
	a.actions = append(a.actions, action)
	return nil
}

func (a *recordingAudit) ListLogs(context.Context, map[string]interface{}, int64, int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

func keyAccounts() *Workflow {
	return &Workflow{
		Name:              "Key accounts",
		EntityType:        "Customer",
		IsActive:          true,
		Priority:          1,
		TargetUserGroupID: "key-accounts",
		Rules: []Rule{
			{Field: "annualRevenue", Operator: "gt", Value: 1000000},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(wf *Workflow)
		wantErr string
	}{
		{"valid", func(*Workflow) {}, ""},
		{"missing name", func(wf *Workflow) { wf.Name = " " }, "name is required"},
		{"missing entity type", func(wf *Workflow) { wf.EntityType = "" }, "entity_type is required"},
		{"missing target", func(wf *Workflow) { wf.TargetUserGroupID = "" }, "target_user_group_id is required"},
		{"no rules", func(wf *Workflow) { wf.Rules = nil }, "at least one rule is required"},
		{"unknown operator", func(wf *Workflow) { wf.Rules[0].Operator = "Matches" }, "rule 0"},
		{"between without upper bound", func(wf *Workflow) {
			wf.Rules[0] = Rule{Field: "score", Operator: condition.OperatorBetween, Value: 1}
		}, "value_to"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf := keyAccounts()
			tt.mutate(wf)
			err := Validate(wf)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidWorkflow)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_CanonicalizesOperator(t *testing.T) {
	wf := keyAccounts()
	require.NoError(t, Validate(wf))
	assert.Equal(t, condition.OperatorGreaterThan, wf.Rules[0].Operator)
}

func TestCreateWorkflow(t *testing.T) {
	repo := newMockRepo()
	audit := &recordingAudit{}
	svc := NewWorkflowService(repo, counter{}, audit, zap.NewNop())

	wf := keyAccounts()
	require.NoError(t, svc.CreateWorkflow(context.Background(), wf))
	assert.False(t, wf.ID.IsZero())
	assert.False(t, wf.Rules[0].ID.IsZero())
	assert.Equal(t, []common_models.AuditAction{common_models.AuditActionCreate}, audit.actions)

	bad := keyAccounts()
	bad.Rules = nil
	err := svc.CreateWorkflow(context.Background(), bad)
	assert.ErrorIs(t, err, ErrInvalidWorkflow)
	assert.Len(t, repo.items, 1)
}

func TestUpdateWorkflow_KeepsCreatedAt(t *testing.T) {
	repo := newMockRepo()
	svc := NewWorkflowService(repo, counter{}, &recordingAudit{}, zap.NewNop())

	wf := keyAccounts()
	require.NoError(t, svc.CreateWorkflow(context.Background(), wf))
	created := repo.items[wf.ID.Hex()].CreatedAt

	update := keyAccounts()
	update.ID = wf.ID
	update.Priority = 7
	require.NoError(t, svc.UpdateWorkflow(context.Background(), update))

	got, err := svc.GetWorkflow(context.Background(), wf.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 7, got.Priority)
	assert.Equal(t, created, got.CreatedAt)

	missing := keyAccounts()
	missing.ID = primitive.NewObjectID()
	assert.ErrorIs(t, svc.UpdateWorkflow(context.Background(), missing), ErrNotFound)
}

func TestDeleteWorkflow_RefusesReferenced(t *testing.T) {
	repo := newMockRepo()
	refs := counter{}
	svc := NewWorkflowService(repo, refs, &recordingAudit{}, zap.NewNop())

	wf := keyAccounts()
	require.NoError(t, svc.CreateWorkflow(context.Background(), wf))
	refs[wf.ID] = 2

	err := svc.DeleteWorkflow(context.Background(), wf.ID.Hex())
	assert.True(t, errors.Is(err, ErrWorkflowReferenced))
	assert.Contains(t, repo.items, wf.ID.Hex())

	// Disabling is the way out
	require.NoError(t, svc.SetActive(context.Background(), wf.ID.Hex(), false))
	assert.False(t, repo.items[wf.ID.Hex()].IsActive)

	refs[wf.ID] = 0
	require.NoError(t, svc.DeleteWorkflow(context.Background(), wf.ID.Hex()))
	assert.NotContains(t, repo.items, wf.ID.Hex())
}

func TestSortByPriority(t *testing.T) {
	a := Workflow{ID: primitive.NewObjectID(), Name: "a", Priority: 2}
	b := Workflow{ID: primitive.NewObjectID(), Name: "b", Priority: 1}
	c := Workflow{ID: primitive.NewObjectID(), Name: "c", Priority: 2, CreatedAt: a.CreatedAt.Add(-1)}

	wfs := []Workflow{a, b, c}
	SortByPriority(wfs)
	assert.Equal(t, []string{"b", "c", "a"}, []string{wfs[0].Name, wfs[1].Name, wfs[2].Name})
}
