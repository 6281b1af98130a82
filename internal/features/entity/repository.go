package entity

import (
	"context"
	"errors"
	"time"

	"crm-workflow/internal/database"
	"crm-workflow/pkg/condition"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "entity_records"

var (
	ErrNotFound      = errors.New("entity not found")
	ErrInvalidRecord = errors.New("invalid entity record")
)

type EntityRepository interface {
	Get(ctx context.Context, entityType, entityID string) (*Record, error)
	Upsert(ctx context.Context, rec *Record) error
	EnsureIndexes(ctx context.Context) error

	// Snapshot and OwningGroup make the repository an entity accessor for the matcher.
	Snapshot(ctx context.Context, entityType, entityID string) (condition.Snapshot, error)
	OwningGroup(ctx context.Context, entityType, entityID string) (string, error)
}

type EntityRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewEntityRepository(mongodb *database.MongodbDB) EntityRepository {
	return &EntityRepositoryImpl{
		Collection: mongodb.DB.Collection(CollectionName),
	}
}

func (r *EntityRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "entity_type", Value: 1}, {Key: "entity_id", Value: 1}},
		Options: options.Index().SetName("entity_identity").SetUnique(true),
	})
	return err
}

func (r *EntityRepositoryImpl) Get(ctx context.Context, entityType, entityID string) (*Record, error) {
	var rec Record
	filter := bson.M{"entity_type": entityType, "entity_id": entityID}
	if err := r.Collection.FindOne(ctx, filter).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *EntityRepositoryImpl) Upsert(ctx context.Context, rec *Record) error {
	rec.UpdatedAt = time.Now().UTC()
	filter := bson.M{"entity_type": rec.EntityType, "entity_id": rec.EntityID}
	// After creation the owner only moves through the ownership mutator.
	update := bson.M{
		"$set": bson.M{
			"data":       rec.Data,
			"updated_at": rec.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			OwnerField: rec.OwnerGroupID,
		},
	}
	_, err := r.Collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *EntityRepositoryImpl) Snapshot(ctx context.Context, entityType, entityID string) (condition.Snapshot, error) {
	rec, err := r.Get(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	snap := Flatten(rec.Data)
	snap[OwnerField] = rec.OwnerGroupID
	return snap, nil
}

func (r *EntityRepositoryImpl) OwningGroup(ctx context.Context, entityType, entityID string) (string, error) {
	var rec struct {
		OwnerGroupID string `bson:"owner_group_id"`
	}
	filter := bson.M{"entity_type": entityType, "entity_id": entityID}
	opts := options.FindOne().SetProjection(bson.M{OwnerField: 1})
	if err := r.Collection.FindOne(ctx, filter, opts).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", ErrNotFound
		}
		return "", err
	}
	return rec.OwnerGroupID, nil
}
