package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"expensetracker/internal/core"
)

type (
	receiptsReportRequest struct {
		Group   string `json:"group"`
		StartAt int    `json:"start_at"`
		EndAt   int    `json:"end_at"`
	}

	balanceReportRequest struct {
		Group string `json:"group"`
		Year  string `json:"year"`
		Month string `json:"month"`
	}
)

// The PDF is rendered into memory first so a failure still maps to a
// proper error status.
func (s *Server) handleReceiptsReport(w http.ResponseWriter, r *http.Request, caller core.Owner) {
	var req receiptsReportRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := s.svc.Reports.WriteReceiptsPDF(r.Context(), &buf, caller, req.Group, req.StartAt, req.EndAt); err != nil {
		writeError(w, r, err)
		return
	}
	writePDF(w, fmt.Sprintf("recibos-%s-%d-%d.pdf", req.Group, req.StartAt, req.EndAt), buf.Bytes())
}

func (s *Server) handleBalanceReport(w http.ResponseWriter, r *http.Request, caller core.Owner) {
	var req balanceReportRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := s.svc.Reports.WriteBalancePDF(r.Context(), &buf, caller, req.Group, req.Month, req.Year); err != nil {
		writeError(w, r, err)
		return
	}
	writePDF(w, fmt.Sprintf("balance-%s-%s-%s.pdf", req.Group, req.Year, req.Month), buf.Bytes())
}

func writePDF(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
