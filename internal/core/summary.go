package core

import "github.com/shopspring/decimal"

// GroupSummary holds the group-level figures derived from monthly buckets.
type GroupSummary struct {
	Group                string          `json:"group"`
	CreatedAt            string          `json:"created_at"`
	Members              []string        `json:"group_members"`
	Size                 int             `json:"size"`
	TotalIncome          decimal.Decimal `json:"total_income"`
	TotalExpense         decimal.Decimal `json:"total_expense"`
	TotalDebt            decimal.Decimal `json:"total_debt"`
	TotalContributions   int             `json:"total_contributions"`
	TotalPendingReceipts int             `json:"total_pending_receipts"`
	Balance              decimal.Decimal `json:"balance"`
	TotalAvailable       decimal.Decimal `json:"total_available"`
	UsersWithDebt        []string        `json:"users_with_debt"`
}
