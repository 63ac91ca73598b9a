package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income     MovementType = "income"
	Expense    MovementType = "expense"
	Investment MovementType = "investment"
)

const (
	StatusPending   MovementStatus = "pending"
	StatusFinalized MovementStatus = "finalized"
)

// Special categories that drive aggregation and the receipt lifecycle.
const (
	CategoryMonthlyIncome       = "MONTHLY_INCOME"
	CategoryExtraordinaryIncome = "EXTRAORDINARY_INCOME"
	CategoryPending             = "VENCIDO"
)

const (
	// PendingTransactionID is carried by every pending receipt so that
	// readers relying on the legacy sentinel keep working.
	PendingTransactionID = 9999
	// ExpenseIDFloor splits the ID space: income below, expenses above.
	ExpenseIDFloor = 10000

	// DefaultManagementUser is the management account of groups that do
	// not declare one explicitly.
	DefaultManagementUser = "DEPTO 0"
)

type (
	MovementType   string
	MovementStatus string

	Movement struct {
		TransactionID   int             `json:"transaction_id"`
		User            string          `json:"user"`
		Group           string          `json:"group"`
		MovementType    MovementType    `json:"movement_type"`
		Amount          decimal.Decimal `json:"amount"`
		Category        string          `json:"category"`
		CreatedAt       time.Time       `json:"created_at"`
		Date            *time.Time      `json:"date,omitempty"`
		Name            string          `json:"name,omitempty"`
		Comments        string          `json:"comments,omitempty"`
		Status          MovementStatus  `json:"status,omitempty"`
		ReceiptCategory string          `json:"receipt_category,omitempty"`
		Removed         bool            `json:"removed,omitempty"`
	}

	Group struct {
		ID         string    `json:"group"`
		CreatedAt  time.Time `json:"created_at"`
		Members    []string  `json:"group_members"`
		Size       int       `json:"size"`
		Management []string  `json:"management,omitempty"`
	}

	// TransactionDetail is the trimmed projection kept inside month buckets.
	TransactionDetail struct {
		TransactionID int             `json:"transaction_id"`
		User          string          `json:"user"`
		Name          string          `json:"name,omitempty"`
		Amount        decimal.Decimal `json:"amount"`
		Comments      string          `json:"comments,omitempty"`
		Category      string          `json:"category"`
	}
)

var (
	ErrInvalidMovementType = errors.New("invalid movement type")
	ErrEmptyUser           = errors.New("empty user")
	ErrEmptyGroup          = errors.New("empty group")
	ErrNegativeAmount      = errors.New("negative amount")
)

func ParseMovementType(s string) (MovementType, error) {
	switch mt := MovementType(strings.ToLower(strings.TrimSpace(s))); mt {
	case Income, Expense, Investment:
		return mt, nil
	default:
		return "", fmt.Errorf("%w: %w %q", ErrValidation, ErrInvalidMovementType, s)
	}
}

func (mt MovementType) IsValid() bool {
	switch mt {
	case Income, Expense, Investment:
		return true
	}
	return false
}

// IsPending reports whether the movement is a receipt awaiting payment,
// either by its status tag or by the legacy sentinel pair.
func (m Movement) IsPending() bool {
	if m.Status == StatusPending {
		return true
	}
	return m.Status == "" && m.TransactionID == PendingTransactionID && m.Category == CategoryPending
}

// IsIncomeContribution reports whether the movement counts as collected income.
func (m Movement) IsIncomeContribution() bool {
	return m.Category == CategoryMonthlyIncome || m.Category == CategoryExtraordinaryIncome
}

func (m Movement) Detail() TransactionDetail {
	return TransactionDetail{
		TransactionID: m.TransactionID,
		User:          m.User,
		Name:          m.Name,
		Amount:        m.Amount,
		Comments:      m.Comments,
		Category:      m.Category,
	}
}

// FinalCategory is the income category a pending receipt takes once paid.
func (m Movement) FinalCategory() string {
	if m.ReceiptCategory != "" {
		return m.ReceiptCategory
	}
	if strings.HasSuffix(m.Name, extraordinarySuffix) {
		return CategoryExtraordinaryIncome
	}
	return CategoryMonthlyIncome
}

func (m Movement) Validate() error {
	var errs []error
	if strings.TrimSpace(m.Group) == "" {
		errs = append(errs, ErrEmptyGroup)
	}
	if strings.TrimSpace(m.User) == "" {
		errs = append(errs, ErrEmptyUser)
	}
	if !m.MovementType.IsValid() {
		errs = append(errs, ErrInvalidMovementType)
	}
	if m.Amount.IsNegative() {
		errs = append(errs, ErrNegativeAmount)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrValidation, errors.Join(errs...))
	}
	return nil
}

// IsManagement reports whether user holds the management role in the group.
func (g Group) IsManagement(user string) bool {
	mgmt := g.Management
	if len(mgmt) == 0 {
		mgmt = []string{DefaultManagementUser}
	}
	for _, u := range mgmt {
		if u == user {
			return true
		}
	}
	return false
}

func (g Group) HasMember(user string) bool {
	for _, u := range g.Members {
		if u == user {
			return true
		}
	}
	return false
}
