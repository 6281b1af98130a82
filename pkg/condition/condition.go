// Package condition evaluates typed rule conditions against a flattened
// snapshot of an entity's field values.
//
// Evaluation is pure: the same condition and snapshot always produce the same
// result. A field that is absent from the snapshot never matches and is never
// an error.
package condition

import (
	"errors"
	"fmt"
	"strings"
)

type Operator string

const (
	OperatorEquals      Operator = "Equals"
	OperatorNotEquals   Operator = "NotEquals"
	OperatorGreaterThan Operator = "GreaterThan"
	OperatorLessThan    Operator = "LessThan"
	OperatorContains    Operator = "Contains"
	OperatorIn          Operator = "In"
	OperatorBetween     Operator = "Between"
)

var ErrMalformedCondition = errors.New("malformed condition")

var operatorAliases = map[string]Operator{
	"equals":      OperatorEquals,
	"eq":          OperatorEquals,
	"notequals":   OperatorNotEquals,
	"not_equals":  OperatorNotEquals,
	"ne":          OperatorNotEquals,
	"greaterthan": OperatorGreaterThan,
	"gt":          OperatorGreaterThan,
	"lessthan":    OperatorLessThan,
	"lt":          OperatorLessThan,
	"contains":    OperatorContains,
	"in":          OperatorIn,
	"between":     OperatorBetween,
}

// ParseOperator resolves canonical names and the legacy lowercase aliases.
func ParseOperator(s string) (Operator, error) {
	if op, ok := operatorAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return op, nil
	}
	return "", fmt.Errorf("%w: unknown operator %q", ErrMalformedCondition, s)
}

// Condition is one typed test of a snapshot field.
type Condition struct {
	Field    string   `json:"field" bson:"field"`
	Operator Operator `json:"operator" bson:"operator"`
	Value    any      `json:"value" bson:"value"`
	ValueTo  any      `json:"value_to,omitempty" bson:"value_to,omitempty"` // upper bound for Between
}

// Snapshot maps a dotted field path to a scalar value (string, number, date or bool).
type Snapshot map[string]any

// Lookup returns the value at field; nil values count as missing.
func (s Snapshot) Lookup(field string) (any, bool) {
	v, ok := s[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Validate reports structural problems that make a condition unusable. It is
// stricter than Evaluate: a Between without an upper bound is rejected here
// but merely fails to match at evaluation time.
func Validate(c Condition) error {
	if strings.TrimSpace(c.Field) == "" {
		return fmt.Errorf("%w: field is required", ErrMalformedCondition)
	}
	op, err := ParseOperator(string(c.Operator))
	if err != nil {
		return err
	}
	if op == OperatorBetween && (isBlank(c.Value) || isBlank(c.ValueTo)) {
		return fmt.Errorf("%w: Between on %q needs value and value_to", ErrMalformedCondition, c.Field)
	}
	return nil
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}
