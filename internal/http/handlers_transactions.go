package http

import (
	"net/http"
	"strings"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
)

func (s *Server) handleQueryTransactions(w http.ResponseWriter, r *http.Request, caller core.Owner) {
	q := r.URL.Query()
	limit, err := QueryInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	skip, err := QueryInt(r, "skip", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ascending, err := QueryBool(r, "sort_ascending", false)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.svc.Transactions.Query(r.Context(), caller, services.QueryRequest{
		Filter:        []byte(q.Get("filter")),
		Projection:    q.Get("projection"),
		Limit:         limit,
		Skip:          skip,
		SortKey:       strings.TrimSpace(q.Get("sort_key")),
		SortAscending: ascending,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse(res).Write(w)
}

func (s *Server) handleParsedData(w http.ResponseWriter, r *http.Request, caller core.Owner) {
	group, err := requireParam(r, "group_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.svc.Summary.ParsedData(r.Context(), caller, group, strings.TrimSpace(r.URL.Query().Get("user_id")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse(res).Write(w)
}

func (s *Server) handleCreateReceiptBatch(w http.ResponseWriter, r *http.Request, caller core.Owner) {
	var req services.BatchRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.svc.Receipts.CreatePendingBatch(r.Context(), caller, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse(res).Write(w)
}

func (s *Server) handleMarkReceiptAsPaid(w http.ResponseWriter, r *http.Request, caller core.Owner) {
	var req services.PayRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := s.svc.Receipts.MarkPaid(r.Context(), caller, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.structured.LogMovementWritten(r.Context(), applog.OpMarkPaid, m.Group, m.User, m.TransactionID, string(m.MovementType), caller.OwnerID)
	NewJSONResponse(m).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, caller core.Owner) {
	var req services.NewTransaction
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := s.svc.Transactions.Create(r.Context(), caller, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.structured.LogMovementWritten(r.Context(), applog.OpCreate, m.Group, m.User, m.TransactionID, string(m.MovementType), caller.OwnerID)
	NewJSONResponse(m).Status(http.StatusCreated).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request, caller core.Owner) {
	id, err := PathInt(r, "transaction_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch services.TransactionPatch
	if err := DecodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := s.svc.Transactions.Update(r.Context(), caller, r.PathValue("group"), id, r.URL.Query().Get("name"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.structured.LogMovementWritten(r.Context(), applog.OpUpdate, m.Group, m.User, m.TransactionID, string(m.MovementType), caller.OwnerID)
	NewJSONResponse(m).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, caller core.Owner) {
	id, err := PathInt(r, "transaction_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	group := r.PathValue("group")
	if err := s.svc.Transactions.Delete(r.Context(), caller, group, id, r.URL.Query().Get("name")); err != nil {
		writeError(w, r, err)
		return
	}
	s.structured.LogMovementWritten(r.Context(), applog.OpDelete, group, "", id, "", caller.OwnerID)
	NewJSONResponse(nil).Status(http.StatusNoContent).Write(w)
}

type nextIDResponse struct {
	Group             string `json:"group"`
	User              string `json:"user"`
	MovementType      string `json:"movement_type"`
	NextTransactionID int    `json:"next_transaction_id"`
}

func (s *Server) handleNextID(w http.ResponseWriter, r *http.Request, caller core.Owner) {
	user, err := requireParam(r, "user_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	mt := r.URL.Query().Get("movement_type")
	if mt == "" {
		mt = string(core.Income)
	}
	group := r.PathValue("group")
	id, err := s.svc.Transactions.NextID(r.Context(), caller, group, user, mt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse(nextIDResponse{
		Group:             group,
		User:              user,
		MovementType:      mt,
		NextTransactionID: id,
	}).Write(w)
}
