package aggregation

import (
	"sort"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// Summarize reduces monthly buckets into group totals. The result does
// not depend on bucket order.
func Summarize(g core.Group, p ParsedData) core.GroupSummary {
	s := core.GroupSummary{
		Group:         g.ID,
		CreatedAt:     g.CreatedAt.UTC().Format("2006-01-02"),
		Members:       g.Members,
		Size:          g.Size,
		TotalIncome:   decimal.Zero,
		TotalExpense:  decimal.Zero,
		TotalDebt:     decimal.Zero,
		UsersWithDebt: []string{},
	}
	if s.Size == 0 {
		s.Size = len(g.Members)
	}

	for _, b := range p.Income {
		s.TotalIncome = s.TotalIncome.Add(b.TotalIncome)
		s.TotalContributions += b.TotalContributions
	}
	for _, b := range p.Expense {
		s.TotalExpense = s.TotalExpense.Add(b.TotalExpense)
	}

	debtors := make(map[string]struct{})
	for _, b := range p.Debt {
		s.TotalDebt = s.TotalDebt.Add(b.TotalDebt)
		s.TotalPendingReceipts += b.TotalContributionsInDebt
		for _, d := range b.DebtDetail {
			debtors[d.User] = struct{}{}
		}
	}
	for u := range debtors {
		s.UsersWithDebt = append(s.UsersWithDebt, u)
	}
	sort.Strings(s.UsersWithDebt)

	s.Balance = s.TotalIncome.Add(s.TotalDebt).Sub(s.TotalExpense)
	s.TotalAvailable = s.TotalIncome.Sub(s.TotalExpense)
	return s
}

// ExpensesByCategory totals the expense details of the given buckets per
// category, in first-seen order.
func ExpensesByCategory(buckets []ExpenseMonth) []CategoryTotal {
	var (
		out   []CategoryTotal
		index = map[string]int{}
	)
	for _, b := range buckets {
		for _, d := range b.ExpenseDetail {
			i, ok := index[d.Category]
			if !ok {
				i = len(out)
				index[d.Category] = i
				out = append(out, CategoryTotal{Category: d.Category})
			}
			out[i].Total = out[i].Total.Add(d.Amount)
		}
	}
	return out
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}
