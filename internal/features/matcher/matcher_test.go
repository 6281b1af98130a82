package matcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"crm-workflow/internal/features/snapshot"
	"crm-workflow/internal/features/transition"
	"crm-workflow/internal/features/workflow"
	"crm-workflow/pkg/condition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type staticWorkflows []workflow.Workflow

func (s staticWorkflows) ListActive(_ context.Context, entityType string) ([]workflow.Workflow, error) {
	out := []workflow.Workflow{}
	for _, wf := range s {
		if wf.IsActive && wf.EntityType == entityType {
			out = append(out, wf)
		}
	}
	return out, nil
}

type fakeAccessor struct {
	values condition.Snapshot
	owner  string
	err    error
	reads  int
}

func (a *fakeAccessor) Snapshot(context.Context, string, string) (condition.Snapshot, error) {
	a.reads++
	return a.values, a.err
}

func (a *fakeAccessor) OwningGroup(context.Context, string, string) (string, error) {
	return a.owner, nil
}

func rule(field string, op condition.Operator, value interface{}) workflow.Rule {
	return workflow.Rule{ID: primitive.NewObjectID(), Field: field, Operator: op, Value: value}
}

func customerWorkflow(name string, priority int, target string, rules ...workflow.Rule) workflow.Workflow {
	return workflow.Workflow{
		ID:                primitive.NewObjectID(),
		Name:              name,
		EntityType:        "Customer",
		IsActive:          true,
		Priority:          priority,
		TargetUserGroupID: target,
		Rules:             rules,
		CreatedAt:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

type fixture struct {
	matcher     *MatcherImpl
	snapshots   *snapshot.MemorySnapshotRepository
	transitions *transition.MemoryTransitionRepository
	hub         *transition.Hub
}

func newFixture(workflows ...workflow.Workflow) *fixture {
	snaps := snapshot.NewMemorySnapshotRepository()
	queue := transition.NewMemoryTransitionRepository()
	hub := transition.NewHub()
	m := NewMatcher(staticWorkflows(workflows), snaps, queue, hub, zap.NewNop()).(*MatcherImpl)
	return &fixture{matcher: m, snapshots: snaps, transitions: queue, hub: hub}
}

func TestResolve_PriorityWins(t *testing.T) {
	w := customerWorkflow("W", 1, "key-accounts", rule("annualRevenue", condition.OperatorGreaterThan, 1000000))
	x := customerWorkflow("X", 2, "emea", rule("region", condition.OperatorEquals, "EMEA"))
	// listed out of order on purpose
	f := newFixture(x, w)
	events, cancel := f.hub.Subscribe()
	defer cancel()

	accessor := &fakeAccessor{
		values: condition.Snapshot{"annualRevenue": 2000000, "region": "EMEA"},
		owner:  "smb",
	}

	got, err := f.matcher.Resolve(context.Background(), "Customer", "C-1", accessor)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, w.ID, got.WorkflowID)
	assert.Equal(t, "smb", got.SourceUserGroupID)
	assert.Equal(t, "key-accounts", got.TargetUserGroupID)
	assert.Equal(t, transition.StatusPending, got.Status)
	assert.Equal(t, 1, accessor.reads)

	page, err := f.transitions.List(context.Background(), transition.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	snap, err := f.snapshots.GetByID(context.Background(), got.SnapshotID)
	require.NoError(t, err)
	assert.Equal(t, "C-1", snap.EntityID)
	assert.Equal(t, "EMEA", snap.Values()["region"])

	select {
	case e := <-events:
		assert.Equal(t, got.ID, e.TransitionID)
		assert.Equal(t, transition.StatusPending, e.Status)
	default:
		t.Fatal("expected admission event")
	}
}

func TestResolve_NoMatch(t *testing.T) {
	f := newFixture(customerWorkflow("W", 1, "key-accounts", rule("annualRevenue", condition.OperatorGreaterThan, 1000000)))

	got, err := f.matcher.Resolve(context.Background(), "Customer", "C-2", &fakeAccessor{
		values: condition.Snapshot{"annualRevenue": 10},
		owner:  "smb",
	})
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, f.snapshots.Len())
}

func TestResolve_NoWorkflowsSkipsEntityRead(t *testing.T) {
	f := newFixture()
	accessor := &fakeAccessor{err: errors.New("must not be called")}

	got, err := f.matcher.Resolve(context.Background(), "Customer", "C-3", accessor)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, accessor.reads)
}

func TestResolve_DiscardsUnknownOwner(t *testing.T) {
	f := newFixture(customerWorkflow("W", 1, "key-accounts", rule("region", condition.OperatorEquals, "EMEA")))

	got, err := f.matcher.Resolve(context.Background(), "Customer", "C-4", &fakeAccessor{
		values: condition.Snapshot{"region": "EMEA"},
	})
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, f.snapshots.Len())
}

func TestResolve_DiscardsWhenAlreadyOwnedByTarget(t *testing.T) {
	f := newFixture(customerWorkflow("W", 1, "key-accounts", rule("region", condition.OperatorEquals, "EMEA")))

	got, err := f.matcher.Resolve(context.Background(), "Customer", "C-5", &fakeAccessor{
		values: condition.Snapshot{"region": "EMEA"},
		owner:  "key-accounts",
	})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResolve_SkipsMalformedWorkflow(t *testing.T) {
	broken := customerWorkflow("broken", 1, "nowhere", rule("region", condition.Operator("Resembles"), "EMEA"))
	empty := customerWorkflow("empty", 2, "nowhere")
	good := customerWorkflow("good", 3, "emea", rule("region", condition.OperatorEquals, "EMEA"))
	f := newFixture(broken, empty, good)

	got, err := f.matcher.Resolve(context.Background(), "Customer", "C-6", &fakeAccessor{
		values: condition.Snapshot{"region": "EMEA"},
		owner:  "smb",
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, good.ID, got.WorkflowID)
}

func TestResolve_DuplicateChangeKeepsOneOpenTransition(t *testing.T) {
	f := newFixture(customerWorkflow("W", 1, "key-accounts", rule("region", condition.OperatorEquals, "EMEA")))
	accessor := &fakeAccessor{values: condition.Snapshot{"region": "EMEA"}, owner: "smb"}

	first, err := f.matcher.Resolve(context.Background(), "Customer", "C-7", accessor)
	require.NoError(t, err)
	second, err := f.matcher.Resolve(context.Background(), "Customer", "C-7", accessor)
	require.NoError(t, err)

	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.snapshots.Len(), "no snapshot for an already queued tuple")

	page, err := f.transitions.List(context.Background(), transition.Filter{EntityID: "C-7"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}

func TestResolve_AccessorError(t *testing.T) {
	f := newFixture(customerWorkflow("W", 1, "key-accounts", rule("region", condition.OperatorEquals, "EMEA")))

	_, err := f.matcher.Resolve(context.Background(), "Customer", "C-8", &fakeAccessor{err: errors.New("entity store down")})
	assert.ErrorContains(t, err, "entity store down")
}
