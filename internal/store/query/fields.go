package query

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

const (
	KindInt Kind = iota
	KindString
	KindDecimal
	KindTime
	KindBool
)

const (
	FieldTransactionID   = "transaction_id"
	FieldUser            = "user"
	FieldGroup           = "group"
	FieldMovementType    = "movement_type"
	FieldAmount          = "amount"
	FieldCategory        = "category"
	FieldCreatedAt       = "created_at"
	FieldDate            = "date"
	FieldName            = "name"
	FieldComments        = "comments"
	FieldStatus          = "status"
	FieldReceiptCategory = "receipt_category"
	FieldRemoved         = "removed"
)

// TimeLayout is fixed width so that stored timestamps compare lexically.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

type Kind int

// Fields lists every queryable movement field and its kind.
var Fields = map[string]Kind{
	FieldTransactionID:   KindInt,
	FieldUser:            KindString,
	FieldGroup:           KindString,
	FieldMovementType:    KindString,
	FieldAmount:          KindDecimal,
	FieldCategory:        KindString,
	FieldCreatedAt:       KindTime,
	FieldDate:            KindTime,
	FieldName:            KindString,
	FieldComments:        KindString,
	FieldStatus:          KindString,
	FieldReceiptCategory: KindString,
	FieldRemoved:         KindBool,
}

// Normalize coerces v to the canonical Go type of the kind:
// int, string, decimal.Decimal, time.Time or bool.
func (k Kind) Normalize(v any) (any, error) {
	switch k {
	case KindInt:
		return toInt(v)
	case KindString:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.String {
			return rv.String(), nil
		}
	case KindDecimal:
		return toDecimal(v)
	case KindTime:
		return toTime(v)
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	}
	return nil, fmt.Errorf("value %v (%T) has the wrong type", v, v)
}

func toInt(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case int32:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return nil, fmt.Errorf("%v is not an integer", n)
		}
		return int(n), nil
	case json.Number:
		i, err := strconv.Atoi(n.String())
		if err != nil {
			return nil, fmt.Errorf("%v is not an integer", n)
		}
		return i, nil
	}
	return nil, fmt.Errorf("value %v (%T) is not an integer", v, v)
}

func toDecimal(v any) (any, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case json.Number:
		return decimal.NewFromString(n.String())
	case string:
		return decimal.NewFromString(n)
	}
	return nil, fmt.Errorf("value %v (%T) is not a number", v, v)
}

func toTime(v any) (any, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case *time.Time:
		if t == nil {
			return nil, fmt.Errorf("nil time")
		}
		return t.UTC(), nil
	case core.Period:
		return t.Time, nil
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02", "2006-01"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC(), nil
			}
		}
		return nil, fmt.Errorf("cannot parse time %q", t)
	}
	return nil, fmt.Errorf("value %v (%T) is not a time", v, v)
}

// Value returns the normalized value of field on m. The second result is
// false when the field is absent, which only happens for an unset date.
func Value(m core.Movement, field string) (any, bool) {
	switch field {
	case FieldTransactionID:
		return m.TransactionID, true
	case FieldUser:
		return m.User, true
	case FieldGroup:
		return m.Group, true
	case FieldMovementType:
		return string(m.MovementType), true
	case FieldAmount:
		return m.Amount, true
	case FieldCategory:
		return m.Category, true
	case FieldCreatedAt:
		return m.CreatedAt.UTC(), true
	case FieldDate:
		if m.Date == nil {
			return nil, false
		}
		return m.Date.UTC(), true
	case FieldName:
		return m.Name, true
	case FieldComments:
		return m.Comments, true
	case FieldStatus:
		return string(m.Status), true
	case FieldReceiptCategory:
		return m.ReceiptCategory, true
	case FieldRemoved:
		return m.Removed, true
	}
	return nil, false
}

// Set assigns an already normalized value to field on m.
func Set(m *core.Movement, field string, v any) {
	switch field {
	case FieldTransactionID:
		m.TransactionID = v.(int)
	case FieldUser:
		m.User = v.(string)
	case FieldGroup:
		m.Group = v.(string)
	case FieldMovementType:
		m.MovementType = core.MovementType(v.(string))
	case FieldAmount:
		m.Amount = v.(decimal.Decimal)
	case FieldCategory:
		m.Category = v.(string)
	case FieldCreatedAt:
		m.CreatedAt = v.(time.Time)
	case FieldDate:
		if v == nil {
			m.Date = nil
			return
		}
		t := v.(time.Time)
		m.Date = &t
	case FieldName:
		m.Name = v.(string)
	case FieldComments:
		m.Comments = v.(string)
	case FieldStatus:
		m.Status = core.MovementStatus(v.(string))
	case FieldReceiptCategory:
		m.ReceiptCategory = v.(string)
	case FieldRemoved:
		m.Removed = v.(bool)
	}
}

// Compare orders two normalized values of the same kind.
func Compare(a, b any) int {
	switch x := a.(type) {
	case int:
		y := b.(int)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case string:
		y := b.(string)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case decimal.Decimal:
		return x.Cmp(b.(decimal.Decimal))
	case time.Time:
		return x.Compare(b.(time.Time))
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	}
	return 0
}
