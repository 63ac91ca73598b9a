package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const extraordinarySuffix = " EXTRAORDINARIA"

// Period is an accounting month, always the first day at midnight UTC.
type Period struct {
	time.Time
}

func NewPeriod(year int, month time.Month) Period {
	return Period{time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)}
}

// PeriodOf truncates t to its month.
func PeriodOf(t time.Time) Period {
	t = t.UTC()
	return NewPeriod(t.Year(), t.Month())
}

// ParsePeriod accepts month and year as strings, e.g. ("3", "2024") or ("03", "2024").
func ParsePeriod(month, year string) (Period, error) {
	m, err := strconv.Atoi(strings.TrimSpace(month))
	if err != nil || m < 1 || m > 12 {
		return Period{}, fmt.Errorf("%w: invalid month %q", ErrValidation, month)
	}
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil || y < 1 {
		return Period{}, fmt.Errorf("%w: invalid year %q", ErrValidation, year)
	}
	return NewPeriod(y, time.Month(m)), nil
}

// Label formats the period as YYYY-MM.
func (p Period) Label() string {
	return p.Format("2006-01")
}

func (p Period) Ptr() *time.Time {
	t := p.Time
	return &t
}

// ReceiptName is the display name given to a contribution receipt.
func ReceiptName(p Period, category string) string {
	name := fmt.Sprintf("APORTACION %d %d", int(p.Month()), p.Year())
	if category == CategoryExtraordinaryIncome {
		name += extraordinarySuffix
	}
	return name
}

// CanonicalReceiptName rewrites a receipt name in the form produced by
// ReceiptName, so "APORTACION 03 2024" becomes "APORTACION 3 2024". Names
// that are not receipt names are returned trimmed and unchanged.
func CanonicalReceiptName(name string) string {
	name = strings.TrimSpace(name)
	parts := strings.Fields(name)
	if len(parts) < 3 || len(parts) > 4 || parts[0] != "APORTACION" {
		return name
	}
	category := CategoryMonthlyIncome
	if len(parts) == 4 {
		if parts[3] != strings.TrimSpace(extraordinarySuffix) {
			return name
		}
		category = CategoryExtraordinaryIncome
	}
	p, err := ParsePeriod(parts[1], parts[2])
	if err != nil {
		return name
	}
	return ReceiptName(p, category)
}
