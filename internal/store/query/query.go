// Package query describes movement filters, sorting and projection in a
// document-store style that every store backend understands.
package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"expensetracker/internal/core"
)

const (
	OpEq     Op = "$eq"
	OpNe     Op = "$ne"
	OpLt     Op = "$lt"
	OpLte    Op = "$lte"
	OpGt     Op = "$gt"
	OpGte    Op = "$gte"
	OpIn     Op = "$in"
	OpNin    Op = "$nin"
	OpExists Op = "$exists"
)

type (
	Op string

	Condition struct {
		Op    Op
		Value any
	}

	// Filter maps a movement field to the conditions it must satisfy.
	// All conditions are combined with AND.
	Filter map[string][]Condition

	Sort struct {
		Field     string
		Ascending bool
	}

	Options struct {
		Projection []string
		Sort       []Sort
		Limit      int
		Skip       int
	}

	// Update assigns new values to movement fields.
	Update map[string]any
)

func (o Op) valid() bool {
	switch o {
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte, OpIn, OpNin, OpExists:
		return true
	}
	return false
}

func New() Filter { return Filter{} }

// Where adds a condition and returns the filter for chaining.
func (f Filter) Where(field string, op Op, v any) Filter {
	f[field] = append(f[field], Condition{Op: op, Value: v})
	return f
}

func (f Filter) Eq(field string, v any) Filter { return f.Where(field, OpEq, v) }

// Has reports whether the filter constrains field.
func (f Filter) Has(field string) bool {
	_, ok := f[field]
	return ok
}

// Clone returns a copy that can be extended without touching f.
func (f Filter) Clone() Filter {
	out := make(Filter, len(f))
	for k, v := range f {
		out[k] = append([]Condition(nil), v...)
	}
	return out
}

// Fields returns the constrained fields in a stable order.
func (f Filter) Fields() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Normalize validates every field and operator and coerces the values to
// the field kind. Stores call it before evaluating a filter.
func (f Filter) Normalize() (Filter, error) {
	out := make(Filter, len(f))
	for field, conds := range f {
		kind, ok := Fields[field]
		if !ok {
			return nil, fmt.Errorf("%w: unknown filter field %q", core.ErrValidation, field)
		}
		for _, c := range conds {
			nc, err := normalizeCondition(kind, c)
			if err != nil {
				return nil, fmt.Errorf("%w: field %q: %v", core.ErrValidation, field, err)
			}
			out[field] = append(out[field], nc)
		}
	}
	return out, nil
}

func normalizeCondition(kind Kind, c Condition) (Condition, error) {
	if !c.Op.valid() {
		return c, fmt.Errorf("unsupported operator %q", c.Op)
	}
	switch c.Op {
	case OpExists:
		b, ok := c.Value.(bool)
		if !ok {
			return c, fmt.Errorf("$exists expects a boolean")
		}
		return Condition{Op: c.Op, Value: b}, nil
	case OpIn, OpNin:
		items, err := asList(c.Value)
		if err != nil {
			return c, err
		}
		vals := make([]any, 0, len(items))
		for _, it := range items {
			v, err := kind.Normalize(it)
			if err != nil {
				return c, err
			}
			vals = append(vals, v)
		}
		return Condition{Op: c.Op, Value: vals}, nil
	default:
		if c.Value == nil && (c.Op == OpEq || c.Op == OpNe) {
			return c, nil
		}
		v, err := kind.Normalize(c.Value)
		if err != nil {
			return c, err
		}
		return Condition{Op: c.Op, Value: v}, nil
	}
}

func asList(v any) ([]any, error) {
	switch l := v.(type) {
	case []any:
		return l, nil
	case []int:
		out := make([]any, len(l))
		for i, x := range l {
			out[i] = x
		}
		return out, nil
	case []string:
		out := make([]any, len(l))
		for i, x := range l {
			out[i] = x
		}
		return out, nil
	}
	return nil, fmt.Errorf("$in and $nin expect a list")
}

// Parse decodes a JSON filter document. A field maps either to a scalar,
// meaning equality, or to an object of operators.
func Parse(raw []byte) (Filter, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return New(), nil
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: malformed filter: %v", core.ErrValidation, err)
	}

	f := New()
	for field, val := range doc {
		val = bytes.TrimSpace(val)
		if len(val) > 0 && val[0] == '{' {
			var ops map[string]json.RawMessage
			if err := json.Unmarshal(val, &ops); err != nil {
				return nil, fmt.Errorf("%w: malformed filter on %q: %v", core.ErrValidation, field, err)
			}
			for op, arg := range ops {
				v, err := decodeValue(arg)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", core.ErrValidation, err)
				}
				f.Where(field, Op(op), v)
			}
			continue
		}
		v, err := decodeValue(val)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrValidation, err)
		}
		f.Eq(field, v)
	}
	return f.Normalize()
}

func decodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode filter value: %w", err)
	}
	return v, nil
}

// ParseProjection accepts either a comma separated list or a JSON array
// of field names.
func ParseProjection(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var fields []string
	if strings.HasPrefix(s, "[") {
		if err := json.Unmarshal([]byte(s), &fields); err != nil {
			return nil, fmt.Errorf("%w: malformed projection: %v", core.ErrValidation, err)
		}
	} else {
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				fields = append(fields, p)
			}
		}
	}
	for _, f := range fields {
		if _, ok := Fields[f]; !ok {
			return nil, fmt.Errorf("%w: unknown projection field %q", core.ErrValidation, f)
		}
	}
	return fields, nil
}

// Normalize validates the update and coerces values to field kinds.
func (u Update) Normalize() (Update, error) {
	out := make(Update, len(u))
	for field, v := range u {
		kind, ok := Fields[field]
		if !ok {
			return nil, fmt.Errorf("%w: unknown update field %q", core.ErrValidation, field)
		}
		if v == nil {
			if field != FieldDate {
				return nil, fmt.Errorf("%w: field %q cannot be unset", core.ErrValidation, field)
			}
			out[field] = nil
			continue
		}
		nv, err := kind.Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", core.ErrValidation, field, err)
		}
		out[field] = nv
	}
	return out, nil
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{core.ErrValidation}, args...)...)
}
