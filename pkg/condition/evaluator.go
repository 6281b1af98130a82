package condition

import (
	"fmt"
	"strings"
	"time"
)

// Evaluate tests one condition against a snapshot. Only a malformed condition
// (no field, unknown operator) produces an error; type mismatches and missing
// fields are plain non-matches.
func Evaluate(c Condition, snap Snapshot) (bool, error) {
	if strings.TrimSpace(c.Field) == "" {
		return false, fmt.Errorf("%w: field is required", ErrMalformedCondition)
	}
	op, err := ParseOperator(string(c.Operator))
	if err != nil {
		return false, err
	}

	fieldValue, ok := snap.Lookup(c.Field)
	if !ok {
		return false, nil
	}

	switch op {
	case OperatorEquals:
		eq, comparable := equals(fieldValue, c.Value)
		return comparable && eq, nil
	case OperatorNotEquals:
		eq, comparable := equals(fieldValue, c.Value)
		return comparable && !eq, nil
	case OperatorGreaterThan:
		cmp, ok := compare(fieldValue, c.Value)
		return ok && cmp > 0, nil
	case OperatorLessThan:
		cmp, ok := compare(fieldValue, c.Value)
		return ok && cmp < 0, nil
	case OperatorContains:
		return contains(fieldValue, c.Value), nil
	case OperatorIn:
		return in(fieldValue, c.Value), nil
	case OperatorBetween:
		return between(fieldValue, c.Value, c.ValueTo), nil
	}
	return false, fmt.Errorf("%w: unknown operator %q", ErrMalformedCondition, c.Operator)
}

// EvaluateAll AND-combines conditions, stopping at the first non-match or error.
func EvaluateAll(conds []Condition, snap Snapshot) (bool, error) {
	for i, c := range conds {
		matched, err := Evaluate(c, snap)
		if err != nil {
			return false, fmt.Errorf("condition %d: %w", i, err)
		}
		if !matched {
			return false, nil
		}
	}
	return true, nil
}

// equals coerces operand to the field's kind. comparable is false when the
// coercion fails.
func equals(fieldValue, operand any) (eq bool, comparable bool) {
	f, k := normalize(fieldValue)
	switch k {
	case kindNumber:
		o, ok := toNumber(operand)
		return ok && f.(float64) == o, ok
	case kindDate:
		o, ok := toDate(operand)
		return ok && f.(time.Time).Equal(o), ok
	case kindBool:
		o, ok := toBool(operand)
		return ok && f.(bool) == o, ok
	default:
		if operand == nil {
			return false, false
		}
		return f.(string) == stringify(operand), true
	}
}

// compare orders numeric and date fields only; anything else fails closed.
func compare(fieldValue, operand any) (int, bool) {
	f, k := normalize(fieldValue)
	switch k {
	case kindNumber:
		o, ok := toNumber(operand)
		if !ok {
			return 0, false
		}
		return cmpFloat(f.(float64), o), true
	case kindDate:
		o, ok := toDate(operand)
		if !ok {
			return 0, false
		}
		return f.(time.Time).Compare(o), true
	}
	return 0, false
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func contains(fieldValue, operand any) bool {
	needle := stringify(operand)
	if needle == "" {
		return false
	}
	haystack := stringify(normalizeForString(fieldValue))
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func in(fieldValue, operand any) bool {
	value := strings.TrimSpace(stringify(normalizeForString(fieldValue)))
	for _, candidate := range listOperand(operand) {
		if strings.EqualFold(value, candidate) {
			return true
		}
	}
	return false
}

// listOperand splits the comma separated literal list; JSON arrays are accepted too.
func listOperand(operand any) []string {
	var raw []string
	switch t := operand.(type) {
	case nil:
		return nil
	case []any:
		for _, item := range t {
			raw = append(raw, stringify(normalizeForString(item)))
		}
	case []string:
		raw = t
	default:
		raw = strings.Split(stringify(normalizeForString(operand)), ",")
	}

	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func between(fieldValue, lo, hi any) bool {
	if isBlank(lo) || isBlank(hi) {
		return false
	}
	low, ok := compare(fieldValue, lo)
	if !ok || low < 0 {
		return false
	}
	high, ok := compare(fieldValue, hi)
	return ok && high <= 0
}

// normalizeForString keeps stringified numbers stable across int and float kinds.
func normalizeForString(v any) any {
	n, _ := normalize(v)
	return n
}
