package ownership

import (
	"context"
	"errors"
	"time"

	"crm-workflow/internal/database"
	"crm-workflow/internal/features/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMutator rewrites owner_group_id on entity_records.
type MongoMutator struct {
	Collection *mongo.Collection
}

func NewMongoMutator(mongodb *database.MongodbDB) *MongoMutator {
	return &MongoMutator{
		Collection: mongodb.DB.Collection(entity.CollectionName),
	}
}

func (m *MongoMutator) OwningGroup(ctx context.Context, entityType, entityID string) (string, error) {
	var rec struct {
		OwnerGroupID string `bson:"owner_group_id"`
	}
	filter := bson.M{"entity_type": entityType, "entity_id": entityID}
	opts := options.FindOne().SetProjection(bson.M{entity.OwnerField: 1})
	if err := m.Collection.FindOne(ctx, filter, opts).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", nil
		}
		return "", err
	}
	return rec.OwnerGroupID, nil
}

func (m *MongoMutator) ReassignGroup(ctx context.Context, entityType, entityID, fromGroupID, toGroupID string) error {
	filter := bson.M{
		"entity_type":     entityType,
		"entity_id":       entityID,
		entity.OwnerField: bson.M{"$in": bson.A{fromGroupID, toGroupID}},
	}
	update := bson.M{
		"$set": bson.M{
			entity.OwnerField: toGroupID,
			"updated_at":      time.Now().UTC(),
		},
	}

	res, err := m.Collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	err = m.Collection.FindOne(ctx, bson.M{"entity_type": entityType, "entity_id": entityID}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrEntityNotFound
	}
	if err != nil {
		return err
	}
	return ErrOwnershipConflict
}
