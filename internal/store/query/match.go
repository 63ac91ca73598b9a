package query

import (
	"sort"

	"expensetracker/internal/core"
)

// Match evaluates a normalized filter against m.
func (f Filter) Match(m core.Movement) bool {
	for field, conds := range f {
		v, present := Value(m, field)
		for _, c := range conds {
			if !matchCondition(c, v, present) {
				return false
			}
		}
	}
	return true
}

func matchCondition(c Condition, v any, present bool) bool {
	switch c.Op {
	case OpExists:
		return present == c.Value.(bool)
	case OpEq:
		if c.Value == nil {
			return !present
		}
		return present && Compare(v, c.Value) == 0
	case OpNe:
		if c.Value == nil {
			return present
		}
		return !present || Compare(v, c.Value) != 0
	case OpIn:
		return present && contains(c.Value.([]any), v)
	case OpNin:
		return !present || !contains(c.Value.([]any), v)
	}
	if !present {
		return false
	}
	cmp := Compare(v, c.Value)
	switch c.Op {
	case OpLt:
		return cmp < 0
	case OpLte:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGte:
		return cmp >= 0
	}
	return false
}

func contains(list []any, v any) bool {
	for _, it := range list {
		if Compare(v, it) == 0 {
			return true
		}
	}
	return false
}

// SortMovements orders ms in place. Ties keep their original order and
// absent values sort first.
func SortMovements(ms []core.Movement, keys []Sort) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(ms, func(i, j int) bool {
		for _, k := range keys {
			a, aok := Value(ms[i], k.Field)
			b, bok := Value(ms[j], k.Field)
			var cmp int
			switch {
			case !aok && !bok:
				cmp = 0
			case !aok:
				cmp = -1
			case !bok:
				cmp = 1
			default:
				cmp = Compare(a, b)
			}
			if cmp == 0 {
				continue
			}
			if k.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})
}

// Page applies skip and limit. A limit of zero means no limit.
func Page(ms []core.Movement, skip, limit int) []core.Movement {
	if skip >= len(ms) {
		return nil
	}
	ms = ms[skip:]
	if limit > 0 && limit < len(ms) {
		ms = ms[:limit]
	}
	return ms
}

// Project turns movements into documents restricted to fields. An empty
// projection keeps every field.
func Project(ms []core.Movement, fields []string) []map[string]any {
	out := make([]map[string]any, 0, len(ms))
	for _, m := range ms {
		doc := make(map[string]any)
		keep := fields
		if len(keep) == 0 {
			keep = allFields
		}
		for _, f := range keep {
			if v, ok := Value(m, f); ok {
				doc[f] = v
			}
		}
		out = append(out, doc)
	}
	return out
}

var allFields = []string{
	FieldTransactionID, FieldUser, FieldGroup, FieldMovementType, FieldAmount,
	FieldCategory, FieldCreatedAt, FieldDate, FieldName, FieldComments,
	FieldStatus, FieldReceiptCategory, FieldRemoved,
}

// ValidateSort rejects unknown sort fields.
func ValidateSort(keys []Sort) error {
	for _, k := range keys {
		if _, ok := Fields[k.Field]; !ok {
			return validationf("unknown sort field %q", k.Field)
		}
	}
	return nil
}
