package condition

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEvaluate(t *testing.T) {
	created := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		"annualRevenue":  2000000.0,
		"employees":      int32(250),
		"region":         "EMEA",
		"status":         "pending",
		"name":           "Acme Holdings",
		"vip":            true,
		"createdAt":      created,
		"lastContactAt":  primitive.NewDateTimeFromTime(created.Add(48 * time.Hour)),
		"address.city":   "Berlin",
		"emptyReference": nil,
	}
	dec, err := primitive.ParseDecimal128("2500000.00")
	require.NoError(t, err)
	snap["contractValue"] = dec

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"Equals string", Condition{Field: "region", Operator: OperatorEquals, Value: "EMEA"}, true},
		{"Equals string is exact", Condition{Field: "region", Operator: OperatorEquals, Value: "emea"}, false},
		{"Equals number from string operand", Condition{Field: "annualRevenue", Operator: OperatorEquals, Value: "2000000"}, true},
		{"Equals int32 field", Condition{Field: "employees", Operator: OperatorEquals, Value: 250}, true},
		{"Equals incompatible coercion", Condition{Field: "annualRevenue", Operator: OperatorEquals, Value: "lots"}, false},
		{"Equals bool", Condition{Field: "vip", Operator: OperatorEquals, Value: "true"}, true},
		{"Equals date", Condition{Field: "createdAt", Operator: OperatorEquals, Value: "2024-03-15"}, true},
		{"NotEquals string", Condition{Field: "region", Operator: OperatorNotEquals, Value: "APAC"}, true},
		{"NotEquals same value", Condition{Field: "region", Operator: OperatorNotEquals, Value: "EMEA"}, false},
		{"NotEquals incompatible coercion", Condition{Field: "vip", Operator: OperatorNotEquals, Value: "maybe"}, false},
		{"GreaterThan number", Condition{Field: "annualRevenue", Operator: OperatorGreaterThan, Value: 1000000}, true},
		{"GreaterThan equal is false", Condition{Field: "annualRevenue", Operator: OperatorGreaterThan, Value: 2000000}, false},
		{"GreaterThan on string field fails closed", Condition{Field: "region", Operator: OperatorGreaterThan, Value: "A"}, false},
		{"GreaterThan bad operand", Condition{Field: "annualRevenue", Operator: OperatorGreaterThan, Value: "big"}, false},
		{"LessThan date", Condition{Field: "createdAt", Operator: OperatorLessThan, Value: "2024-04-01T00:00:00Z"}, true},
		{"LessThan bson date", Condition{Field: "lastContactAt", Operator: OperatorLessThan, Value: "2024-03-16"}, false},
		{"Contains case insensitive", Condition{Field: "name", Operator: OperatorContains, Value: "acme"}, true},
		{"Contains stringified number", Condition{Field: "annualRevenue", Operator: OperatorContains, Value: "2000"}, true},
		{"Contains empty operand", Condition{Field: "name", Operator: OperatorContains, Value: ""}, false},
		{"In list", Condition{Field: "region", Operator: OperatorIn, Value: "NA, EMEA ,APAC"}, true},
		{"In list miss", Condition{Field: "region", Operator: OperatorIn, Value: "NA,APAC"}, false},
		{"In numeric field", Condition{Field: "employees", Operator: OperatorIn, Value: "100,250"}, true},
		{"In json array", Condition{Field: "region", Operator: OperatorIn, Value: []any{"emea", "na"}}, true},
		{"Dotted path", Condition{Field: "address.city", Operator: OperatorEquals, Value: "Berlin"}, true},
		{"Nil value is missing", Condition{Field: "emptyReference", Operator: OperatorNotEquals, Value: "x"}, false},
		{"Legacy alias", Condition{Field: "region", Operator: "equals", Value: "EMEA"}, true},
		{"GreaterThan decimal128", Condition{Field: "contractValue", Operator: OperatorGreaterThan, Value: 1000000}, true},
		{"Between decimal128", Condition{Field: "contractValue", Operator: OperatorBetween, Value: 1, ValueTo: 3000000}, true},
		{"Equals decimal128 against integer", Condition{Field: "contractValue", Operator: OperatorEquals, Value: 2500000}, true},
		{"LessThan decimal128", Condition{Field: "contractValue", Operator: OperatorLessThan, Value: "2500000"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.cond, snap)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_MissingFieldNeverMatches(t *testing.T) {
	operators := []Operator{
		OperatorEquals, OperatorNotEquals, OperatorGreaterThan, OperatorLessThan,
		OperatorContains, OperatorIn, OperatorBetween,
	}
	for _, op := range operators {
		got, err := Evaluate(Condition{Field: "missing", Operator: op, Value: "1", ValueTo: "2"}, Snapshot{"other": 1})
		require.NoError(t, err, op)
		assert.False(t, got, op)
	}
}

func TestEvaluate_Malformed(t *testing.T) {
	_, err := Evaluate(Condition{Field: "", Operator: OperatorEquals, Value: "x"}, Snapshot{"": "x"})
	assert.True(t, errors.Is(err, ErrMalformedCondition))

	_, err = Evaluate(Condition{Field: "region", Operator: "Matches", Value: "x"}, Snapshot{"region": "x"})
	assert.True(t, errors.Is(err, ErrMalformedCondition))
}

func TestEvaluate_BetweenIsInclusive(t *testing.T) {
	lo, hi := 10.0, 20.0
	cond := Condition{Field: "score", Operator: OperatorBetween, Value: lo, ValueTo: hi}

	for v := 0.0; v <= 30.0; v += 0.5 {
		got, err := Evaluate(cond, Snapshot{"score": v})
		require.NoError(t, err)
		assert.Equal(t, lo <= v && v <= hi, got, "score=%v", v)
	}
}

func TestEvaluate_BetweenEdgeCases(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name string
		cond Condition
		snap Snapshot
		want bool
	}{
		{"lower bound", Condition{Field: "n", Operator: OperatorBetween, Value: 5, ValueTo: 9}, Snapshot{"n": 5}, true},
		{"upper bound", Condition{Field: "n", Operator: OperatorBetween, Value: "5", ValueTo: "9"}, Snapshot{"n": int64(9)}, true},
		{"missing upper", Condition{Field: "n", Operator: OperatorBetween, Value: 5}, Snapshot{"n": 6}, false},
		{"blank lower", Condition{Field: "n", Operator: OperatorBetween, Value: " ", ValueTo: 9}, Snapshot{"n": 6}, false},
		{"string field", Condition{Field: "n", Operator: OperatorBetween, Value: 1, ValueTo: 9}, Snapshot{"n": "6"}, false},
		{"date inside", Condition{Field: "d", Operator: OperatorBetween, Value: "2024-01-01", ValueTo: "2024-01-10"}, Snapshot{"d": day(10)}, true},
		{"date outside", Condition{Field: "d", Operator: OperatorBetween, Value: "2024-01-01", ValueTo: "2024-01-10"}, Snapshot{"d": day(11)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.cond, tt.snap)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_InIsCaseInsensitiveTrimCompare(t *testing.T) {
	got, err := Evaluate(Condition{Field: "status", Operator: OperatorIn, Value: "Active,Pending"}, Snapshot{"status": " pending "})
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEvaluateAll(t *testing.T) {
	snap := Snapshot{"region": "EMEA", "annualRevenue": 5}

	matched, err := EvaluateAll([]Condition{
		{Field: "region", Operator: OperatorEquals, Value: "EMEA"},
		{Field: "annualRevenue", Operator: OperatorGreaterThan, Value: 1},
	}, snap)
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = EvaluateAll([]Condition{
		{Field: "region", Operator: OperatorEquals, Value: "NA"},
		{Field: "annualRevenue", Operator: "Bogus", Value: 1},
	}, snap)
	require.NoError(t, err, "evaluation stops at the first non-match")
	assert.False(t, matched)

	_, err = EvaluateAll([]Condition{{Field: "region", Operator: "Bogus"}}, snap)
	assert.ErrorIs(t, err, ErrMalformedCondition)
}

func TestEvaluate_Deterministic(t *testing.T) {
	cond := Condition{Field: "tags", Operator: OperatorContains, Value: "Gold"}
	snap := Snapshot{"tags": "silver,gold"}
	first, _ := Evaluate(cond, snap)
	for i := 0; i < 100; i++ {
		got, _ := Evaluate(cond, snap)
		require.Equal(t, first, got)
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(Condition{Field: "a", Operator: "gt", Value: 1}))
	assert.ErrorIs(t, Validate(Condition{Field: " ", Operator: OperatorEquals}), ErrMalformedCondition)
	assert.ErrorIs(t, Validate(Condition{Field: "a", Operator: "Like"}), ErrMalformedCondition)
	assert.ErrorIs(t, Validate(Condition{Field: "a", Operator: OperatorBetween, Value: 1}), ErrMalformedCondition)
}
