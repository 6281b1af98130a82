package audit

import (
	"context"
	"testing"

	common_models "crm-workflow/internal/common/models"
	"crm-workflow/internal/testutil"
	"crm-workflow/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockAuditRepo struct {
	AuditRepository
	logs []common_models.AuditLog
}

func (m *MockAuditRepo) Create(_ context.Context, log common_models.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func TestLogChange_Actor(t *testing.T) {
	repo := &MockAuditRepo{}
	svc := NewAuditService(repo)

	// Queue workers have no request claims
	require.NoError(t, svc.LogChange(context.Background(), common_models.AuditActionTransition, "transition", "t-1",
		map[string]common_models.Change{"status": {Old: "processing", New: "success"}}))

	ctx := context.WithValue(context.Background(), utils.UserClaimsKey, &utils.UserClaims{UserID: "ops-1"})
	require.NoError(t, svc.LogChange(ctx, common_models.AuditActionUpdate, "workflow", "w-1", nil))

	require.Len(t, repo.logs, 2)
	assert.Equal(t, "system", repo.logs[0].ActorID)
	assert.Equal(t, "transition", repo.logs[0].Module)
	assert.Equal(t, "success", repo.logs[0].Changes["status"].New)
	assert.Equal(t, "ops-1", repo.logs[1].ActorID)
	assert.False(t, repo.logs[1].ID.IsZero())
}

func TestAuditRepository_Mongo(t *testing.T) {
	ctx := context.Background()
	repo := NewAuditRepository(testutil.NewMongoDatabase(t))
	require.NoError(t, repo.EnsureIndexes(ctx))
	svc := NewAuditService(repo)

	for _, id := range []string{"t-1", "t-1", "t-2"} {
		require.NoError(t, svc.LogChange(ctx, common_models.AuditActionTransition, "transition", id, nil))
	}
	require.NoError(t, svc.LogChange(ctx, common_models.AuditActionCreate, "workflow", "w-1", nil))

	logs, err := svc.ListLogs(ctx, map[string]interface{}{"module": "transition", "record_id": "t-1", "action": ""}, 1, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	logs, err = svc.ListLogs(ctx, map[string]interface{}{"module": "transition"}, 2, 2)
	require.NoError(t, err)
	require.Len(t, logs, 1)
}
