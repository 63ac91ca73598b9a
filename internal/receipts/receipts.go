// Package receipts renders payment receipts and monthly balance
// statements as text and PDF.
package receipts

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

const receiptsPerPage = 3

var receiptTemplate = template.Must(template.New("receipt").Parse(`
RECIBO DE PAGO DE CUOTA DE MANTENIMIENTO {{ .Group }}
FOLIO: {{ .TransactionID }}

Recibí de {{ .User }} la cantidad de $ {{ .Amount.StringFixed 2 }} por concepto de cuota de mantenimiento correspondiente a: {{ .Concept }}

Fecha: {{ .CreatedAt.Format "2006-01-02 15:04" }}

Atentamente,
Administración {{ .Group }}
`))

// Receipt is one folio: every movement sharing a transaction id.
type Receipt struct {
	Group         string
	TransactionID int
	User          string
	Amount        decimal.Decimal
	Concept       string
	CreatedAt     time.Time
}

// BuildReceipt folds the movements of one transaction id into a receipt.
// Payer and date come from the first movement.
func BuildReceipt(ms []core.Movement) (Receipt, error) {
	if len(ms) == 0 {
		return Receipt{}, fmt.Errorf("%w: receipt without movements", core.ErrNotFound)
	}
	r := Receipt{
		Group:         ms[0].Group,
		TransactionID: ms[0].TransactionID,
		User:          ms[0].User,
		CreatedAt:     ms[0].CreatedAt,
	}
	names := make([]string, 0, len(ms))
	for _, m := range ms {
		r.Amount = r.Amount.Add(m.Amount)
		if m.Name != "" {
			names = append(names, m.Name)
		}
	}
	r.Concept = strings.Join(names, ", ")
	return r, nil
}

func (r Receipt) Text() (string, error) {
	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("render receipt %d: %w", r.TransactionID, err)
	}
	return buf.String(), nil
}

// WriteReceiptsPDF lays receipts out three per A4 page.
func WriteReceiptsPDF(w io.Writer, rs []Receipt) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 10)
	pdf.SetFont("Arial", "", 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for i, r := range rs {
		if i > 0 && i%receiptsPerPage == 0 {
			pdf.AddPage()
		}
		text, err := r.Text()
		if err != nil {
			return err
		}
		pdf.MultiCell(0, 6, tr(strings.TrimSpace(text)), "1", "L", false)
		pdf.Ln(5)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write receipts pdf: %w", err)
	}
	return nil
}
