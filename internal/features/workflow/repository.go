package workflow

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

var ErrNotFound = errors.New("workflow not found")

type WorkflowRepository interface {
	Create(ctx context.Context, wf *Workflow) error
	GetByID(ctx context.Context, id string) (*Workflow, error)
	ListActive(ctx context.Context, entityType string) ([]Workflow, error)
	List(ctx context.Context, entityType string) ([]Workflow, error)
	Update(ctx context.Context, wf *Workflow) error
	Delete(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool) error
	EnsureIndexes(ctx context.Context) error
}

type WorkflowRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewWorkflowRepository(mongodb *database.MongodbDB) WorkflowRepository {
	return &WorkflowRepositoryImpl{
		Collection: mongodb.DB.Collection("workflows"),
	}
}

var prioritySort = bson.D{{Key: "priority", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

func (r *WorkflowRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "entity_type", Value: 1}, {Key: "is_active", Value: 1}, {Key: "priority", Value: 1}},
		Options: options.Index().SetName("entity_type_active_priority"),
	})
	return err
}

func (r *WorkflowRepositoryImpl) Create(ctx context.Context, wf *Workflow) error {
	wf.ID = primitive.NewObjectID()
	wf.CreatedAt = time.Now()
	wf.UpdatedAt = wf.CreatedAt
	assignRuleIDs(wf)
	_, err := r.Collection.InsertOne(ctx, wf)
	return err
}

func (r *WorkflowRepositoryImpl) GetByID(ctx context.Context, id string) (*Workflow, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var wf Workflow
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&wf)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &wf, nil
}

func (r *WorkflowRepositoryImpl) ListActive(ctx context.Context, entityType string) ([]Workflow, error) {
	return r.find(ctx, bson.M{"entity_type": entityType, "is_active": true})
}

func (r *WorkflowRepositoryImpl) List(ctx context.Context, entityType string) ([]Workflow, error) {
	filter := bson.M{}
	if entityType != "" {
		filter["entity_type"] = entityType
	}
	return r.find(ctx, filter)
}

func (r *WorkflowRepositoryImpl) find(ctx context.Context, filter bson.M) ([]Workflow, error) {
	cursor, err := r.Collection.Find(ctx, filter, options.Find().SetSort(prioritySort))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	workflows := []Workflow{}
	if err = cursor.All(ctx, &workflows); err != nil {
		return nil, err
	}
	return workflows, nil
}

func (r *WorkflowRepositoryImpl) Update(ctx context.Context, wf *Workflow) error {
	wf.UpdatedAt = time.Now()
	assignRuleIDs(wf)
	res, err := r.Collection.UpdateOne(ctx, bson.M{"_id": wf.ID}, bson.M{"$set": bson.M{
		"name":                 wf.Name,
		"description":          wf.Description,
		"entity_type":          wf.EntityType,
		"is_active":            wf.IsActive,
		"priority":             wf.Priority,
		"target_user_group_id": wf.TargetUserGroupID,
		"rules":                wf.Rules,
		"updated_at":           wf.UpdatedAt,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *WorkflowRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *WorkflowRepositoryImpl) SetActive(ctx context.Context, id string, active bool) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"is_active": active, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func assignRuleIDs(wf *Workflow) {
	for i := range wf.Rules {
		if wf.Rules[i].ID.IsZero() {
			wf.Rules[i].ID = primitive.NewObjectID()
		}
	}
}
