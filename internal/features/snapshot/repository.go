package snapshot

import (
	"context"
	"errors"
	"sync"
	"time"

	"crm-workflow/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("snapshot not found")

// SnapshotRepository is write-once: snapshots are inserted and read, never updated.
type SnapshotRepository interface {
	Save(ctx context.Context, snap *EntitySnapshot) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*EntitySnapshot, error)
	ListForEntity(ctx context.Context, entityType, entityID string, limit int64) ([]EntitySnapshot, error)
	EnsureIndexes(ctx context.Context) error
}

type SnapshotRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewSnapshotRepository(mongodb *database.MongodbDB) SnapshotRepository {
	return &SnapshotRepositoryImpl{
		Collection: mongodb.DB.Collection("entity_snapshots"),
	}
}

func (r *SnapshotRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "entity_type", Value: 1}, {Key: "entity_id", Value: 1}, {Key: "captured_at", Value: -1}},
		Options: options.Index().SetName("entity_captured_at"),
	})
	return err
}

func (r *SnapshotRepositoryImpl) Save(ctx context.Context, snap *EntitySnapshot) error {
	snap.ID = primitive.NewObjectID()
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = time.Now().UTC()
	}
	_, err := r.Collection.InsertOne(ctx, snap)
	return err
}

func (r *SnapshotRepositoryImpl) GetByID(ctx context.Context, id primitive.ObjectID) (*EntitySnapshot, error) {
	var snap EntitySnapshot
	if err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&snap); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &snap, nil
}

func (r *SnapshotRepositoryImpl) ListForEntity(ctx context.Context, entityType, entityID string, limit int64) ([]EntitySnapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().SetSort(bson.M{"captured_at": -1}).SetLimit(limit)
	cursor, err := r.Collection.Find(ctx, bson.M{"entity_type": entityType, "entity_id": entityID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	snaps := []EntitySnapshot{}
	if err := cursor.All(ctx, &snaps); err != nil {
		return nil, err
	}
	return snaps, nil
}

// MemorySnapshotRepository keeps snapshots in process; used with QUEUE_BACKEND=memory and in tests.
type MemorySnapshotRepository struct {
	mu    sync.RWMutex
	snaps map[primitive.ObjectID]EntitySnapshot
	order []primitive.ObjectID
}

func NewMemorySnapshotRepository() *MemorySnapshotRepository {
	return &MemorySnapshotRepository{snaps: make(map[primitive.ObjectID]EntitySnapshot)}
}

var _ SnapshotRepository = (*MemorySnapshotRepository)(nil)

func (r *MemorySnapshotRepository) EnsureIndexes(context.Context) error { return nil }

func (r *MemorySnapshotRepository) Save(_ context.Context, snap *EntitySnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap.ID = primitive.NewObjectID()
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = time.Now().UTC()
	}
	stored := *snap
	stored.Fields = append([]FieldValue(nil), snap.Fields...)
	r.snaps[snap.ID] = stored
	r.order = append(r.order, snap.ID)
	return nil
}

func (r *MemorySnapshotRepository) GetByID(_ context.Context, id primitive.ObjectID) (*EntitySnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, ok := r.snaps[id]
	if !ok {
		return nil, ErrNotFound
	}
	snap.Fields = append([]FieldValue(nil), snap.Fields...)
	return &snap, nil
}

func (r *MemorySnapshotRepository) ListForEntity(_ context.Context, entityType, entityID string, limit int64) ([]EntitySnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []EntitySnapshot{}
	for i := len(r.order) - 1; i >= 0; i-- {
		snap := r.snaps[r.order[i]]
		if snap.EntityType != entityType || snap.EntityID != entityID {
			continue
		}
		out = append(out, snap)
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

// Len reports the number of stored snapshots.
func (r *MemorySnapshotRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.snaps)
}
