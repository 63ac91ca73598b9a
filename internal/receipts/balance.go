package receipts

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"

	"expensetracker/internal/aggregation"
	"expensetracker/internal/core"
)

var balanceTemplate = template.Must(template.New("balance").Parse(`
ESTADO DE CUENTA - {{ .Group }}
{{ .Year }}-{{ .Month }}
_________________________________________________________________________________
        Ingresos totales
            {{ .Summary.TotalIncome.StringFixed 2 }}
        Gastos totales
            {{ .Summary.TotalExpense.StringFixed 2 }}
        Cuotas por cobrar
            {{ .Summary.TotalDebt.StringFixed 2 }}
        Balance
            {{ .Summary.Balance.StringFixed 2 }}
        Ingresos correspondientes al mes en curso:
            {{ .MonthlyIncome.StringFixed 2 }}
        Gastos del mes en curso:
            {{ .MonthlyExpense.StringFixed 2 }}
        _____________________________________________
        Disponible
            {{ .Summary.TotalAvailable.StringFixed 2 }}


----------- Detalles de gastos del mes ----------{{ range .Categories }}
--------------- {{ .Name }}{{ range .Expenses }}
    Monto: {{ .Amount.StringFixed 2 }}		 - {{ .Name }}{{ end }}{{ end }}

--------------- Deptos con adeudo:
    {{ .UsersWithDebt }}

Atte. Administración {{ .Group }}
`))

type (
	CategoryExpenses struct {
		Name     string
		Expenses []core.TransactionDetail
	}

	// Balance is the monthly statement of a group.
	Balance struct {
		Group          string
		Year           string
		Month          string
		Summary        core.GroupSummary
		MonthlyIncome  decimal.Decimal
		MonthlyExpense decimal.Decimal
		Categories     []CategoryExpenses
		UsersWithDebt  string
	}
)

// NewBalance builds the statement of month from the month's buckets and
// the overall group totals.
func NewBalance(group, year, month string, monthData aggregation.ParsedData, summary core.GroupSummary) Balance {
	b := Balance{Group: group, Year: year, Month: month, Summary: summary}
	index := map[string]int{}
	for _, bucket := range monthData.Income {
		for _, d := range bucket.IncomeSource {
			b.MonthlyIncome = b.MonthlyIncome.Add(d.Amount)
		}
	}
	for _, bucket := range monthData.Expense {
		for _, d := range bucket.ExpenseDetail {
			b.MonthlyExpense = b.MonthlyExpense.Add(d.Amount)
			i, ok := index[d.Category]
			if !ok {
				i = len(b.Categories)
				index[d.Category] = i
				b.Categories = append(b.Categories, CategoryExpenses{Name: d.Category})
			}
			b.Categories[i].Expenses = append(b.Categories[i].Expenses, d)
		}
	}
	b.UsersWithDebt = DebtorList(summary.UsersWithDebt)
	return b
}

// DebtorList shortens "DEPTO 12" style identifiers to their unit number.
func DebtorList(users []string) string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, strings.TrimSpace(strings.Replace(u, "DEPTO", "", 1)))
	}
	return strings.Join(out, ", ")
}

func (b Balance) Text() (string, error) {
	var buf bytes.Buffer
	if err := balanceTemplate.Execute(&buf, b); err != nil {
		return "", fmt.Errorf("render balance: %w", err)
	}
	return buf.String(), nil
}

// WriteBalancePDF renders the statement in a monospaced font.
func WriteBalancePDF(w io.Writer, b Balance) error {
	text, err := b.Text()
	if err != nil {
		return err
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 10)
	pdf.SetFont("Courier", "", 8)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.MultiCell(0, 6, tr(text), "", "L", false)
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write balance pdf: %w", err)
	}
	return nil
}
