package transition

import (
	"context"
	"errors"
	"time"

	"crm-workflow/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const admitAttempts = 3

type TransitionRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewTransitionRepository(mongodb *database.MongodbDB) TransitionRepository {
	return &TransitionRepositoryImpl{
		Collection: mongodb.DB.Collection("workflow_transitions"),
	}
}

func (r *TransitionRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "entity_type", Value: 1}, {Key: "entity_id", Value: 1}, {Key: "workflow_id", Value: 1}},
			Options: options.Index().
				SetName("open_transition_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"open": true}),
		},
		{
			// Lease: equality on status, sort on created_at, range on not_before
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}, {Key: "not_before", Value: 1}},
			Options: options.Index().SetName("status_created_at_not_before"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "lease_expires_at", Value: 1}},
			Options: options.Index().SetName("status_lease_expires_at"),
		},
		{
			Keys:    bson.D{{Key: "workflow_id", Value: 1}},
			Options: options.Index().SetName("workflow_id"),
		},
	})
	return err
}

func (r *TransitionRepositoryImpl) Admit(ctx context.Context, t *Transition) (AdmitResult, error) {
	newPending(t)

	for i := 0; i < admitAttempts; i++ {
		_, err := r.Collection.InsertOne(ctx, t)
		if err == nil {
			return AdmitResult{ID: t.ID, Created: true}, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return AdmitResult{}, err
		}

		existing, err := r.FindOpen(ctx, t.EntityType, t.EntityID, t.WorkflowID)
		if err == nil {
			return AdmitResult{ID: existing.ID}, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return AdmitResult{}, err
		}
		// The open item finished between our insert and lookup; try again.
	}
	return AdmitResult{}, ErrOpenTransitionExists
}

func (r *TransitionRepositoryImpl) FindOpen(ctx context.Context, entityType, entityID string, workflowID primitive.ObjectID) (*Transition, error) {
	filter := bson.M{
		"entity_type": entityType,
		"entity_id":   entityID,
		"workflow_id": workflowID,
		"open":        true,
	}
	return r.findOne(ctx, filter)
}

func (r *TransitionRepositoryImpl) Get(ctx context.Context, id primitive.ObjectID) (*Transition, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *TransitionRepositoryImpl) findOne(ctx context.Context, filter bson.M) (*Transition, error) {
	var t Transition
	if err := r.Collection.FindOne(ctx, filter).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func buildFilter(f Filter) bson.M {
	filter := bson.M{}
	switch f.Status {
	case "":
	case StatusFailed:
		filter["status"] = StatusPending
		filter["attempt_count"] = bson.M{"$gt": 0}
	default:
		filter["status"] = f.Status
	}
	if f.EntityType != "" {
		filter["entity_type"] = f.EntityType
	}
	if f.EntityID != "" {
		filter["entity_id"] = f.EntityID
	}
	if !f.WorkflowID.IsZero() {
		filter["workflow_id"] = f.WorkflowID
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		created := bson.M{}
		if !f.From.IsZero() {
			created["$gte"] = f.From
		}
		if !f.To.IsZero() {
			created["$lte"] = f.To
		}
		filter["created_at"] = created
	}
	return filter
}

func (r *TransitionRepositoryImpl) List(ctx context.Context, f Filter) (Page, error) {
	filter := buildFilter(f)

	total, err := r.Collection.CountDocuments(ctx, filter)
	if err != nil {
		return Page{}, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	if f.Offset > 0 {
		opts.SetSkip(f.Offset)
	}

	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return Page{}, err
	}
	defer cursor.Close(ctx)

	items := []Transition{}
	if err := cursor.All(ctx, &items); err != nil {
		return Page{}, err
	}
	return Page{Items: items, Total: total}, nil
}

func (r *TransitionRepositoryImpl) CountByWorkflow(ctx context.Context, workflowID primitive.ObjectID) (int64, error) {
	return r.Collection.CountDocuments(ctx, bson.M{"workflow_id": workflowID})
}

func (r *TransitionRepositoryImpl) Lease(ctx context.Context, owner string, ttl time.Duration, now time.Time) (*Transition, error) {
	filter := bson.M{
		"status":     StatusPending,
		"not_before": bson.M{"$lte": now},
	}
	update := bson.M{
		"$set": bson.M{
			"status":           StatusProcessing,
			"lease_owner":      owner,
			"lease_expires_at": now.Add(ttl),
			"updated_at":       now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetReturnDocument(options.After)

	var t Transition
	if err := r.Collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoPending
		}
		return nil, err
	}
	return &t, nil
}

func leased(id primitive.ObjectID, owner string) bson.M {
	return bson.M{"_id": id, "status": StatusProcessing, "lease_owner": owner}
}

func (r *TransitionRepositoryImpl) updateLeased(ctx context.Context, id primitive.ObjectID, owner string, update bson.M) error {
	res, err := r.Collection.UpdateOne(ctx, leased(id, owner), update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrLeaseLost
	}
	return nil
}

func (r *TransitionRepositoryImpl) Complete(ctx context.Context, id primitive.ObjectID, owner string, now time.Time) error {
	return r.updateLeased(ctx, id, owner, bson.M{
		"$set": bson.M{
			"status":       StatusSuccess,
			"open":         false,
			"updated_at":   now,
			"completed_at": now,
		},
		"$unset": bson.M{"lease_owner": "", "lease_expires_at": "", "error_message": ""},
	})
}

func (r *TransitionRepositoryImpl) Retry(ctx context.Context, id primitive.ObjectID, owner string, attempts int, errMsg string, notBefore, now time.Time) error {
	return r.updateLeased(ctx, id, owner, bson.M{
		"$set": bson.M{
			"status":        StatusPending,
			"attempt_count": attempts,
			"error_message": errMsg,
			"not_before":    notBefore,
			"updated_at":    now,
		},
		"$unset": bson.M{"lease_owner": "", "lease_expires_at": ""},
	})
}

func (r *TransitionRepositoryImpl) Bury(ctx context.Context, id primitive.ObjectID, owner string, attempts int, errMsg string, now time.Time) error {
	return r.updateLeased(ctx, id, owner, bson.M{
		"$set": bson.M{
			"status":        StatusDead,
			"open":          false,
			"attempt_count": attempts,
			"error_message": errMsg,
			"updated_at":    now,
			"completed_at":  now,
		},
		"$unset": bson.M{"lease_owner": "", "lease_expires_at": ""},
	})
}

func (r *TransitionRepositoryImpl) RequeueExpired(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{
		"status":           StatusProcessing,
		"lease_expires_at": bson.M{"$lt": now},
	}
	update := bson.M{
		"$set": bson.M{
			"status":     StatusPending,
			"not_before": now,
			"updated_at": now,
		},
		"$unset": bson.M{"lease_owner": "", "lease_expires_at": ""},
	}
	res, err := r.Collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *TransitionRepositoryImpl) Requeue(ctx context.Context, id primitive.ObjectID, now time.Time) error {
	filter := bson.M{"_id": id, "status": StatusDead}
	update := bson.M{
		"$set": bson.M{
			"status":        StatusPending,
			"open":          true,
			"attempt_count": 0,
			"not_before":    now,
			"updated_at":    now,
		},
		"$unset": bson.M{"completed_at": ""},
	}
	res, err := r.Collection.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrOpenTransitionExists
		}
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return ErrInvalidState
	}
	return nil
}
