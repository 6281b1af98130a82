package workflow

import (
	"sort"
	"time"

	"crm-workflow/pkg/condition"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Rule is one AND-combined condition of a workflow
type Rule struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Field    string             `json:"field" bson:"field"`
	Operator condition.Operator `json:"operator" bson:"operator"`
	Value    interface{}        `json:"value" bson:"value"`
	ValueTo  interface{}        `json:"value_to,omitempty" bson:"value_to,omitempty"`
}

func (r Rule) Condition() condition.Condition {
	return condition.Condition{
		Field:    r.Field,
		Operator: r.Operator,
		Value:    r.Value,
		ValueTo:  r.ValueTo,
	}
}

// Workflow routes entities of EntityType to TargetUserGroupID when all Rules hold.
// Lower Priority values are evaluated first.
type Workflow struct {
	ID                primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name              string             `json:"name" bson:"name"`
	Description       string             `json:"description,omitempty" bson:"description,omitempty"`
	EntityType        string             `json:"entity_type" bson:"entity_type"`
	IsActive          bool               `json:"is_active" bson:"is_active"`
	Priority          int                `json:"priority" bson:"priority"`
	TargetUserGroupID string             `json:"target_user_group_id" bson:"target_user_group_id"`
	Rules             []Rule             `json:"rules" bson:"rules"`
	CreatedAt         time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at" bson:"updated_at"`
}

func (w *Workflow) Conditions() []condition.Condition {
	conds := make([]condition.Condition, len(w.Rules))
	for i, r := range w.Rules {
		conds[i] = r.Condition()
	}
	return conds
}

// SortByPriority orders workflows lowest priority value first; ties fall back to
// creation time, then ID, so the evaluation order is stable.
func SortByPriority(workflows []Workflow) {
	sort.SliceStable(workflows, func(i, j int) bool {
		a, b := workflows[i], workflows[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.Hex() < b.ID.Hex()
	})
}
