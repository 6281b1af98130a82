package transition

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Mongo keeps millisecond precision
func testNow() time.Time {
	return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func newItem(entityID string, workflowID primitive.ObjectID, createdAt time.Time) *Transition {
	return &Transition{
		WorkflowID:        workflowID,
		EntityType:        "lead",
		EntityID:          entityID,
		SourceUserGroupID: "sales",
		TargetUserGroupID: "enterprise",
		SnapshotID:        primitive.NewObjectID(),
		CreatedAt:         createdAt,
	}
}

// testRepositoryContract runs the queue semantics against any repository.
func testRepositoryContract(t *testing.T, newRepo func(t *testing.T) TransitionRepository) {
	ctx := context.Background()
	const ttl = time.Minute

	t.Run("admit is idempotent per open tuple", func(t *testing.T) {
		repo := newRepo(t)
		wf := primitive.NewObjectID()
		now := testNow()

		first, err := repo.Admit(ctx, newItem("L-1", wf, now))
		require.NoError(t, err)
		assert.True(t, first.Created)

		second, err := repo.Admit(ctx, newItem("L-1", wf, now.Add(time.Second)))
		require.NoError(t, err)
		assert.False(t, second.Created)
		assert.Equal(t, first.ID, second.ID)

		page, err := repo.List(ctx, Filter{EntityID: "L-1"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)
		assert.Equal(t, StatusPending, page.Items[0].Status)
		assert.Equal(t, 0, page.Items[0].AttemptCount)

		// a different workflow is a different tuple
		other, err := repo.Admit(ctx, newItem("L-1", primitive.NewObjectID(), now))
		require.NoError(t, err)
		assert.True(t, other.Created)
	})

	t.Run("concurrent admission creates one row", func(t *testing.T) {
		repo := newRepo(t)
		wf := primitive.NewObjectID()
		now := testNow()

		const callers = 16
		var wg sync.WaitGroup
		results := make(chan AdmitResult, callers)
		errs := make(chan error, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := repo.Admit(ctx, newItem("L-race", wf, now))
				if err != nil {
					errs <- err
					return
				}
				results <- res
			}()
		}
		wg.Wait()
		close(results)
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}
		created := 0
		ids := map[primitive.ObjectID]bool{}
		for res := range results {
			if res.Created {
				created++
			}
			ids[res.ID] = true
		}
		assert.Equal(t, 1, created)
		assert.Len(t, ids, 1)
	})

	t.Run("racing lessees get one winner", func(t *testing.T) {
		repo := newRepo(t)
		now := testNow()
		_, err := repo.Admit(ctx, newItem("L-2", primitive.NewObjectID(), now))
		require.NoError(t, err)

		const workers = 12
		var wg sync.WaitGroup
		var mu sync.Mutex
		winners := 0
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				item, err := repo.Lease(ctx, fmt.Sprintf("worker-%d", i), ttl, now)
				if err == nil {
					mu.Lock()
					winners++
					mu.Unlock()
					assert.Equal(t, StatusProcessing, item.Status)
					return
				}
				assert.ErrorIs(t, err, ErrNoPending)
			}(i)
		}
		wg.Wait()
		assert.Equal(t, 1, winners)
	})

	t.Run("lease takes the oldest eligible item", func(t *testing.T) {
		repo := newRepo(t)
		now := testNow()
		wf := primitive.NewObjectID()

		_, err := repo.Admit(ctx, newItem("newer", wf, now.Add(-time.Minute)))
		require.NoError(t, err)
		_, err = repo.Admit(ctx, newItem("older", wf, now.Add(-2*time.Minute)))
		require.NoError(t, err)
		deferred := newItem("deferred", wf, now.Add(-3*time.Minute))
		deferred.NotBefore = now.Add(time.Hour)
		_, err = repo.Admit(ctx, deferred)
		require.NoError(t, err)

		item, err := repo.Lease(ctx, "w1", ttl, now)
		require.NoError(t, err)
		assert.Equal(t, "older", item.EntityID)
		assert.Equal(t, "w1", item.LeaseOwner)
		require.NotNil(t, item.LeaseExpiresAt)
		assert.True(t, item.LeaseExpiresAt.Equal(now.Add(ttl)))

		item, err = repo.Lease(ctx, "w1", ttl, now)
		require.NoError(t, err)
		assert.Equal(t, "newer", item.EntityID)

		_, err = repo.Lease(ctx, "w1", ttl, now)
		assert.ErrorIs(t, err, ErrNoPending)
	})

	t.Run("complete is guarded by the lease owner", func(t *testing.T) {
		repo := newRepo(t)
		now := testNow()
		wf := primitive.NewObjectID()
		_, err := repo.Admit(ctx, newItem("L-3", wf, now))
		require.NoError(t, err)

		item, err := repo.Lease(ctx, "w1", ttl, now)
		require.NoError(t, err)

		assert.ErrorIs(t, repo.Complete(ctx, item.ID, "w2", now), ErrLeaseLost)
		require.NoError(t, repo.Complete(ctx, item.ID, "w1", now))
		assert.ErrorIs(t, repo.Complete(ctx, item.ID, "w1", now), ErrLeaseLost)

		done, err := repo.Get(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusSuccess, done.Status)
		assert.False(t, done.Open)
		assert.Empty(t, done.LeaseOwner)
		require.NotNil(t, done.CompletedAt)

		_, err = repo.FindOpen(ctx, "lead", "L-3", wf)
		assert.ErrorIs(t, err, ErrNotFound)

		// terminal items free the tuple for a new admission
		res, err := repo.Admit(ctx, newItem("L-3", wf, now.Add(time.Second)))
		require.NoError(t, err)
		assert.True(t, res.Created)
		assert.NotEqual(t, item.ID, res.ID)
	})

	t.Run("retry schedules and bury keeps the error", func(t *testing.T) {
		repo := newRepo(t)
		now := testNow()
		_, err := repo.Admit(ctx, newItem("L-4", primitive.NewObjectID(), now))
		require.NoError(t, err)

		item, err := repo.Lease(ctx, "w1", ttl, now)
		require.NoError(t, err)
		require.NoError(t, repo.Retry(ctx, item.ID, "w1", 1, "mutator unavailable", now.Add(2*time.Second), now))

		retried, err := repo.Get(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, retried.Status)
		assert.Equal(t, 1, retried.AttemptCount)
		assert.Equal(t, "mutator unavailable", retried.ErrorMessage)
		assert.True(t, retried.Open)

		_, err = repo.Lease(ctx, "w1", ttl, now)
		assert.ErrorIs(t, err, ErrNoPending, "backoff must hold the item")

		later := now.Add(3 * time.Second)
		item, err = repo.Lease(ctx, "w1", ttl, later)
		require.NoError(t, err)
		require.NoError(t, repo.Bury(ctx, item.ID, "w1", 2, "still unavailable", later))

		dead, err := repo.Get(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusDead, dead.Status)
		assert.Equal(t, 2, dead.AttemptCount)
		assert.Equal(t, "still unavailable", dead.ErrorMessage)
		assert.False(t, dead.Open)
	})

	t.Run("expired leases return to pending", func(t *testing.T) {
		repo := newRepo(t)
		now := testNow()
		_, err := repo.Admit(ctx, newItem("L-5", primitive.NewObjectID(), now))
		require.NoError(t, err)

		item, err := repo.Lease(ctx, "crashed", ttl, now)
		require.NoError(t, err)

		n, err := repo.RequeueExpired(ctx, now.Add(ttl/2))
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		n, err = repo.RequeueExpired(ctx, now.Add(2*ttl))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		swept, err := repo.Get(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, swept.Status)
		assert.Equal(t, 0, swept.AttemptCount)
		assert.Empty(t, swept.LeaseOwner)

		assert.ErrorIs(t, repo.Complete(ctx, item.ID, "crashed", now.Add(2*ttl)), ErrLeaseLost)

		again, err := repo.Lease(ctx, "survivor", ttl, now.Add(2*ttl))
		require.NoError(t, err)
		assert.Equal(t, item.ID, again.ID)
		require.NoError(t, repo.Complete(ctx, again.ID, "survivor", now.Add(2*ttl)))
	})

	t.Run("operator requeue", func(t *testing.T) {
		repo := newRepo(t)
		now := testNow()
		wf := primitive.NewObjectID()
		_, err := repo.Admit(ctx, newItem("L-6", wf, now))
		require.NoError(t, err)

		item, err := repo.Lease(ctx, "w1", ttl, now)
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Requeue(ctx, item.ID, now), ErrInvalidState)
		require.NoError(t, repo.Bury(ctx, item.ID, "w1", 3, "boom", now))

		// a newer open item for the same tuple blocks the requeue
		blocker, err := repo.Admit(ctx, newItem("L-6", wf, now.Add(time.Second)))
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Requeue(ctx, item.ID, now), ErrOpenTransitionExists)

		blocking, err := repo.Lease(ctx, "w1", ttl, now.Add(time.Second))
		require.NoError(t, err)
		require.Equal(t, blocker.ID, blocking.ID)
		require.NoError(t, repo.Complete(ctx, blocking.ID, "w1", now.Add(time.Second)))

		require.NoError(t, repo.Requeue(ctx, item.ID, now.Add(2*time.Second)))
		requeued, err := repo.Get(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, requeued.Status)
		assert.Equal(t, 0, requeued.AttemptCount)
		assert.True(t, requeued.Open)
		assert.Nil(t, requeued.CompletedAt)

		assert.ErrorIs(t, repo.Requeue(ctx, primitive.NewObjectID(), now), ErrNotFound)
	})

	t.Run("list filters and pages", func(t *testing.T) {
		repo := newRepo(t)
		now := testNow()
		wfA := primitive.NewObjectID()
		wfB := primitive.NewObjectID()

		for i := 0; i < 5; i++ {
			_, err := repo.Admit(ctx, newItem(fmt.Sprintf("A-%d", i), wfA, now.Add(time.Duration(i)*time.Minute)))
			require.NoError(t, err)
		}
		_, err := repo.Admit(ctx, newItem("B-0", wfB, now))
		require.NoError(t, err)

		page, err := repo.List(ctx, Filter{WorkflowID: wfA, Limit: 2, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(5), page.Total)
		require.Len(t, page.Items, 2)
		assert.Equal(t, "A-3", page.Items[0].EntityID)
		assert.Equal(t, "A-2", page.Items[1].EntityID)

		page, err = repo.List(ctx, Filter{From: now.Add(2 * time.Minute), To: now.Add(3 * time.Minute)})
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)

		page, err = repo.List(ctx, Filter{Status: StatusDead})
		require.NoError(t, err)
		assert.Equal(t, int64(0), page.Total)
		assert.NotNil(t, page.Items)

		// out-of-range paging never panics
		page, err = repo.List(ctx, Filter{Offset: -50, Limit: math.MaxInt64})
		require.NoError(t, err)
		assert.Len(t, page.Items, 6)

		// "failed" lists items waiting to retry after a failed attempt
		leased, err := repo.Lease(ctx, "w1", time.Minute, now.Add(time.Hour))
		require.NoError(t, err)
		require.NoError(t, repo.Retry(ctx, leased.ID, "w1", 1, "crm timeout", now.Add(2*time.Hour), now.Add(time.Hour)))

		page, err = repo.List(ctx, Filter{Status: StatusFailed})
		require.NoError(t, err)
		require.Equal(t, int64(1), page.Total)
		assert.Equal(t, leased.ID, page.Items[0].ID)
		assert.Equal(t, StatusPending, page.Items[0].Status)

		page, err = repo.List(ctx, Filter{Status: StatusPending})
		require.NoError(t, err)
		assert.Equal(t, int64(6), page.Total)

		n, err := repo.CountByWorkflow(ctx, wfB)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}
