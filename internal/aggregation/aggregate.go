// Package aggregation turns flat movement lists into per-month income,
// expense and debt buckets and reduces them into group totals.
package aggregation

import (
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

type (
	IncomeMonth struct {
		Datetime           string                   `json:"datetime"`
		TotalIncome        decimal.Decimal          `json:"total_income"`
		TotalContributions int                      `json:"total_contributions"`
		IncomeSource       []core.TransactionDetail `json:"income_source"`
	}

	ExpenseMonth struct {
		Datetime      string                   `json:"datetime"`
		TotalExpense  decimal.Decimal          `json:"total_expense"`
		TotalExpenses int                      `json:"total_expenses"`
		ExpenseDetail []core.TransactionDetail `json:"expense_detail"`
	}

	DebtMonth struct {
		Datetime                 string                   `json:"datetime"`
		TotalDebt                decimal.Decimal          `json:"total_debt"`
		TotalContributionsInDebt int                      `json:"total_contributions_in_debt"`
		DebtDetail               []core.TransactionDetail `json:"debt_detail"`
	}

	ParsedData struct {
		Income  []IncomeMonth  `json:"income"`
		Expense []ExpenseMonth `json:"expense"`
		Debt    []DebtMonth    `json:"debt"`
	}
)

// MonthRange lists YYYY-MM labels from start's month through now's month,
// one calendar month apart. It is empty when start is after now.
func MonthRange(start, now time.Time) []string {
	cur := core.PeriodOf(start).Time
	end := core.PeriodOf(now).Time
	var out []string
	for !cur.After(end) {
		out = append(out, cur.Format("2006-01"))
		cur = cur.AddDate(0, 1, 0)
	}
	return out
}

// Aggregate buckets movements into the month skeleton anchored at
// groupCreatedAt. A movement joins at most one stream; movements outside
// the skeleton are dropped.
func Aggregate(movements []core.Movement, groupCreatedAt, now time.Time) ParsedData {
	months := MonthRange(groupCreatedAt, now)
	data := ParsedData{
		Income:  make([]IncomeMonth, len(months)),
		Expense: make([]ExpenseMonth, len(months)),
		Debt:    make([]DebtMonth, len(months)),
	}
	index := make(map[string]int, len(months))
	for i, label := range months {
		index[label] = i
		data.Income[i] = IncomeMonth{Datetime: label, IncomeSource: []core.TransactionDetail{}}
		data.Expense[i] = ExpenseMonth{Datetime: label, ExpenseDetail: []core.TransactionDetail{}}
		data.Debt[i] = DebtMonth{Datetime: label, DebtDetail: []core.TransactionDetail{}}
	}

	for _, m := range movements {
		switch {
		case m.IsIncomeContribution():
			i, ok := index[label(m.CreatedAt)]
			if !ok {
				continue
			}
			b := &data.Income[i]
			b.TotalIncome = b.TotalIncome.Add(m.Amount)
			b.IncomeSource = append(b.IncomeSource, m.Detail())
			b.TotalContributions = len(b.IncomeSource)
		case m.MovementType == core.Expense:
			i, ok := index[label(m.CreatedAt)]
			if !ok {
				continue
			}
			b := &data.Expense[i]
			b.TotalExpense = b.TotalExpense.Add(m.Amount)
			b.ExpenseDetail = append(b.ExpenseDetail, m.Detail())
			b.TotalExpenses = len(b.ExpenseDetail)
		case m.Category == core.CategoryPending:
			if m.Date == nil {
				continue
			}
			i, ok := index[label(*m.Date)]
			if !ok {
				continue
			}
			b := &data.Debt[i]
			b.TotalDebt = b.TotalDebt.Add(m.Amount)
			b.DebtDetail = append(b.DebtDetail, m.Detail())
			b.TotalContributionsInDebt = len(b.DebtDetail)
		}
	}
	return data
}

func label(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Month narrows the data to the bucket labelled month (YYYY-MM). The
// result is empty when the month is outside the range.
func (p ParsedData) Month(month string) ParsedData {
	var out ParsedData
	for _, b := range p.Income {
		if b.Datetime == month {
			out.Income = append(out.Income, b)
		}
	}
	for _, b := range p.Expense {
		if b.Datetime == month {
			out.Expense = append(out.Expense, b)
		}
	}
	for _, b := range p.Debt {
		if b.Datetime == month {
			out.Debt = append(out.Debt, b)
		}
	}
	return out
}

// Empty reports whether no bucket holds any detail.
func (p ParsedData) Empty() bool {
	for _, b := range p.Income {
		if len(b.IncomeSource) > 0 {
			return false
		}
	}
	for _, b := range p.Expense {
		if len(b.ExpenseDetail) > 0 {
			return false
		}
	}
	for _, b := range p.Debt {
		if len(b.DebtDetail) > 0 {
			return false
		}
	}
	return true
}
