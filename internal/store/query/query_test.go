package query

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
)

func movement(id int, user string) core.Movement {
	return core.Movement{
		TransactionID: id,
		User:          user,
		Group:         "G1",
		MovementType:  core.Income,
		Amount:        decimal.NewFromInt(120),
		Category:      core.CategoryMonthlyIncome,
		CreatedAt:     time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
	}
}

func TestParseScalarAndOperators(t *testing.T) {
	f, err := Parse([]byte(`{"group":"G1","transaction_id":{"$lt":10000,"$nin":[9999]}}`))
	require.NoError(t, err)

	assert.True(t, f.Match(movement(12, "DEPTO 1")))
	assert.False(t, f.Match(movement(9999, "DEPTO 1")))
	assert.False(t, f.Match(movement(10001, "DEPTO 1")))

	other := movement(12, "DEPTO 1")
	other.Group = "G2"
	assert.False(t, f.Match(other))
}

func TestParseRejectsUnknownFieldsAndOperators(t *testing.T) {
	cases := map[string]string{
		"unknown field":    `{"owner":"x"}`,
		"unknown operator": `{"transaction_id":{"$regex":"1"}}`,
		"wrong type":       `{"transaction_id":"abc"}`,
		"bad json":         `{"group":`,
		"in not list":      `{"user":{"$in":"DEPTO 1"}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			require.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestParseEmptyFilterMatchesEverything(t *testing.T) {
	f, err := Parse(nil)
	require.NoError(t, err)
	assert.True(t, f.Match(movement(1, "DEPTO 1")))
}

func TestDateExistsAndComparisons(t *testing.T) {
	dated := movement(1, "DEPTO 1")
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	dated.Date = &d
	undated := movement(2, "DEPTO 2")

	f, err := New().Where(FieldDate, OpExists, true).Normalize()
	require.NoError(t, err)
	assert.True(t, f.Match(dated))
	assert.False(t, f.Match(undated))

	f, err = New().Eq(FieldDate, "2024-03-01").Normalize()
	require.NoError(t, err)
	assert.True(t, f.Match(dated))

	f, err = New().Where(FieldDate, OpNe, "2024-03-01").Normalize()
	require.NoError(t, err)
	assert.False(t, f.Match(dated))
	assert.True(t, f.Match(undated), "absent date differs from any value")
}

func TestAmountComparison(t *testing.T) {
	f, err := New().Where(FieldAmount, OpGte, 100.5).Normalize()
	require.NoError(t, err)
	assert.True(t, f.Match(movement(1, "u")))

	f, err = New().Where(FieldAmount, OpGt, "120").Normalize()
	require.NoError(t, err)
	assert.False(t, f.Match(movement(1, "u")))
}

func TestSortAndPage(t *testing.T) {
	ms := []core.Movement{movement(3, "a"), movement(10, "b"), movement(7, "c"), movement(10, "d")}
	SortMovements(ms, []Sort{{Field: FieldTransactionID, Ascending: false}})

	got := []string{ms[0].User, ms[1].User, ms[2].User, ms[3].User}
	assert.Equal(t, []string{"b", "d", "c", "a"}, got, "descending with stable ties")

	page := Page(ms, 1, 2)
	require.Len(t, page, 2)
	assert.Equal(t, "d", page[0].User)
	assert.Nil(t, Page(ms, 10, 2))
}

func TestParseProjection(t *testing.T) {
	fields, err := ParseProjection("user, amount")
	require.NoError(t, err)
	assert.Equal(t, []string{"user", "amount"}, fields)

	fields, err = ParseProjection(`["transaction_id","name"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"transaction_id", "name"}, fields)

	_, err = ParseProjection("password")
	require.ErrorIs(t, err, core.ErrValidation)

	docs := Project([]core.Movement{movement(4, "DEPTO 4")}, []string{"user"})
	require.Len(t, docs, 1)
	assert.Equal(t, map[string]any{"user": "DEPTO 4"}, docs[0])
}

func TestUpdateNormalize(t *testing.T) {
	u, err := Update{FieldTransactionID: 15, FieldCreatedAt: "2024-04-01T00:00:00Z"}.Normalize()
	require.NoError(t, err)

	m := movement(9999, "DEPTO 1")
	for f, v := range u {
		Set(&m, f, v)
	}
	assert.Equal(t, 15, m.TransactionID)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), m.CreatedAt)

	_, err = Update{"owner": "x"}.Normalize()
	require.ErrorIs(t, err, core.ErrValidation)
}
