package condition

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type kind int

const (
	kindString kind = iota
	kindNumber
	kindDate
	kindBool
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// normalize folds Go numeric kinds to float64 and BSON dates to time.Time.
func normalize(v any) (any, kind) {
	switch t := v.(type) {
	case float64:
		return t, kindNumber
	case float32:
		return float64(t), kindNumber
	case int:
		return float64(t), kindNumber
	case int8:
		return float64(t), kindNumber
	case int16:
		return float64(t), kindNumber
	case int32:
		return float64(t), kindNumber
	case int64:
		return float64(t), kindNumber
	case uint:
		return float64(t), kindNumber
	case uint8:
		return float64(t), kindNumber
	case uint16:
		return float64(t), kindNumber
	case uint32:
		return float64(t), kindNumber
	case uint64:
		return float64(t), kindNumber
	case time.Time:
		return t, kindDate
	case primitive.DateTime:
		return t.Time().UTC(), kindDate
	case primitive.Decimal128:
		if f, ok := DecimalToFloat(t); ok {
			return f, kindNumber
		}
		return t.String(), kindString
	case bool:
		return t, kindBool
	case string:
		return t, kindString
	default:
		return stringify(v), kindString
	}
}

// DecimalToFloat converts a BSON decimal; NaN and infinities are rejected.
func DecimalToFloat(d primitive.Decimal128) (float64, bool) {
	if d.IsNaN() || d.IsInf() != 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(d.String(), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func toNumber(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	n, k := normalize(v)
	switch k {
	case kindNumber:
		return n.(float64), true
	case kindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(n.(string)), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func toDate(v any) (time.Time, bool) {
	if v == nil {
		return time.Time{}, false
	}
	n, k := normalize(v)
	switch k {
	case kindDate:
		return n.(time.Time), true
	case kindString:
		return parseDate(n.(string))
	}
	return time.Time{}, false
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func toBool(v any) (bool, bool) {
	if v == nil {
		return false, false
	}
	n, k := normalize(v)
	switch k {
	case kindBool:
		return n.(bool), true
	case kindString:
		b, err := strconv.ParseBool(strings.TrimSpace(n.(string)))
		if err != nil {
			return false, false
		}
		return b, true
	}
	return false, false
}

// stringify renders a scalar the way it is compared by Contains and In.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case time.Time:
		return t.Format(time.RFC3339)
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339)
	case bool:
		return strconv.FormatBool(t)
	case primitive.ObjectID:
		return t.Hex()
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
