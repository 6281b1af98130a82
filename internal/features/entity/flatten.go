package entity

import (
	"fmt"
	"strings"
	"time"

	"crm-workflow/pkg/condition"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Flatten turns a nested record document into dotted field paths with scalar
// values. Arrays of scalars become a comma separated string so Contains can
// search them.
func Flatten(data map[string]interface{}) condition.Snapshot {
	out := condition.Snapshot{}
	flattenInto(out, "", data)
	return out
}

func flattenInto(out condition.Snapshot, prefix string, data map[string]interface{}) {
	for k, v := range data {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		flattenValue(out, key, v)
	}
}

func flattenValue(out condition.Snapshot, key string, v interface{}) {
	switch val := v.(type) {
	case nil:
		// missing and null are the same to the evaluator
	case bson.M:
		flattenInto(out, key, val)
	case map[string]interface{}:
		flattenInto(out, key, val)
	case bson.D:
		flattenInto(out, key, val.Map())
	case bson.A:
		out[key] = joinScalars(val)
	case []interface{}:
		out[key] = joinScalars(val)
	case primitive.DateTime:
		out[key] = val.Time().UTC()
	case primitive.Decimal128:
		if f, ok := condition.DecimalToFloat(val); ok {
			out[key] = f
		} else {
			out[key] = val.String()
		}
	case primitive.ObjectID:
		out[key] = val.Hex()
	case time.Time:
		out[key] = val.UTC()
	default:
		out[key] = val
	}
}

func joinScalars(items []interface{}) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case nil:
		case primitive.ObjectID:
			parts = append(parts, v.Hex())
		default:
			parts = append(parts, fmt.Sprint(v))
		}
	}
	return strings.Join(parts, ",")
}
