package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/store/query"
)

// column returns the SQL expression used to compare a movement field.
func column(field string) string {
	if field == query.FieldAmount {
		return `CAST(amount AS REAL)`
	}
	return `"` + field + `"`
}

// sqlArg converts a normalized filter value to a driver argument.
func sqlArg(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.InexactFloat64()
	case time.Time:
		return x.UTC().Format(query.TimeLayout)
	case bool:
		if x {
			return 1
		}
		return 0
	case int:
		return int64(x)
	}
	return v
}

// buildWhere translates a normalized filter into a WHERE clause.
func buildWhere(f query.Filter) (string, []any) {
	var (
		parts []string
		args  []any
	)
	for _, field := range f.Fields() {
		col := column(field)
		for _, c := range f[field] {
			switch c.Op {
			case query.OpExists:
				if c.Value.(bool) {
					parts = append(parts, col+" IS NOT NULL")
				} else {
					parts = append(parts, col+" IS NULL")
				}
			case query.OpEq:
				if c.Value == nil {
					parts = append(parts, col+" IS NULL")
					continue
				}
				parts = append(parts, col+" = ?")
				args = append(args, sqlArg(c.Value))
			case query.OpNe:
				if c.Value == nil {
					parts = append(parts, col+" IS NOT NULL")
					continue
				}
				parts = append(parts, "("+col+" IS NULL OR "+col+" <> ?)")
				args = append(args, sqlArg(c.Value))
			case query.OpIn, query.OpNin:
				list := c.Value.([]any)
				if len(list) == 0 {
					if c.Op == query.OpIn {
						parts = append(parts, "0")
					}
					continue
				}
				ph := strings.TrimSuffix(strings.Repeat("?,", len(list)), ",")
				for _, v := range list {
					args = append(args, sqlArg(v))
				}
				if c.Op == query.OpIn {
					parts = append(parts, fmt.Sprintf("%s IN (%s)", col, ph))
				} else {
					parts = append(parts, fmt.Sprintf("(%s IS NULL OR %s NOT IN (%s))", col, col, ph))
				}
			default:
				parts = append(parts, fmt.Sprintf("%s %s ?", col, sqlOperator(c.Op)))
				args = append(args, sqlArg(c.Value))
			}
		}
	}
	if len(parts) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

func sqlOperator(op query.Op) string {
	switch op {
	case query.OpLt:
		return "<"
	case query.OpLte:
		return "<="
	case query.OpGt:
		return ">"
	case query.OpGte:
		return ">="
	}
	return "="
}

func buildOrder(keys []query.Sort) string {
	if len(keys) == 0 {
		return " ORDER BY id ASC"
	}
	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		dir := "DESC"
		if k.Ascending {
			dir = "ASC"
		}
		parts = append(parts, column(k.Field)+" "+dir)
	}
	parts = append(parts, "id ASC")
	return " ORDER BY " + strings.Join(parts, ", ")
}
