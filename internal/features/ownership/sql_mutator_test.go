package ownership

import (
	"context"
	"testing"

	"crm-workflow/internal/features/entity"
	"crm-workflow/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLMutator_RejectsBadInput(t *testing.T) {
	_, err := OpenSQLMutator(context.Background(), "sqlite", "file::memory:", "entity_ownership")
	assert.ErrorContains(t, err, "unsupported")

	_, err = OpenSQLMutator(context.Background(), "postgres", "postgres://localhost/x", "owners; DROP TABLE x")
	assert.ErrorContains(t, err, "invalid ownership table")
}

func TestSQLMutator_Postgres(t *testing.T) {
	ctx := context.Background()
	dsn := testutil.StartPostgresContainer(t)

	m, err := OpenSQLMutator(ctx, "postgres", dsn, "entity_ownership")
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	_, err = m.db.ExecContext(ctx, `CREATE TABLE entity_ownership (
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		owner_group_id TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (entity_type, entity_id)
	)`)
	require.NoError(t, err)
	_, err = m.db.ExecContext(ctx, `INSERT INTO entity_ownership (entity_type, entity_id, owner_group_id) VALUES ('Customer', 'C-1', 'smb')`)
	require.NoError(t, err)

	require.NoError(t, m.ReassignGroup(ctx, "Customer", "C-1", "smb", "key-accounts"))
	require.NoError(t, m.ReassignGroup(ctx, "Customer", "C-1", "smb", "key-accounts"))

	owner, err := m.OwningGroup(ctx, "Customer", "C-1")
	require.NoError(t, err)
	assert.Equal(t, "key-accounts", owner)

	owner, err = m.OwningGroup(ctx, "Customer", "C-9")
	require.NoError(t, err)
	assert.Equal(t, "", owner)

	assert.ErrorIs(t, m.ReassignGroup(ctx, "Customer", "C-1", "smb", "emea"), ErrOwnershipConflict)
	assert.ErrorIs(t, m.ReassignGroup(ctx, "Customer", "C-9", "smb", "emea"), ErrEntityNotFound)
}

// The store handed to the matcher must read the table the processor writes,
// not entity_records.
func TestSQLMutator_IsOwnerStore(t *testing.T) {
	var _ Store = (*SQLMutator)(nil)
	var _ Store = (*MongoMutator)(nil)
	var _ entity.OwnerSource = Store(nil)
}
