package http

import (
	"net/http"
	"strings"

	"expensetracker/internal/core"
	"expensetracker/internal/services"
)

type (
	incidentStatusRequest struct {
		Status string `json:"incident_status"`
	}

	solveIncidentRequest struct {
		SolvedBy string `json:"solved_by"`
	}
)

func (s *Server) handleListIncidents(w http.ResponseWriter, r *http.Request, caller core.Owner) {
	group, err := requireParam(r, "group_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.svc.Incidents.List(r.Context(), caller, group, strings.TrimSpace(r.URL.Query().Get("user_id")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse(out).Write(w)
}

func (s *Server) handleCreateIncident(w http.ResponseWriter, r *http.Request, caller core.Owner) {
	var req services.NewIncident
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := s.svc.Incidents.Create(r.Context(), caller, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse(in).Status(http.StatusCreated).Write(w)
}

func (s *Server) handleUpdateIncident(w http.ResponseWriter, r *http.Request, caller core.Owner) {
	var patch services.IncidentPatch
	if err := DecodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := s.svc.Incidents.Update(r.Context(), caller, r.PathValue("group"), r.PathValue("incident_id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse(in).Write(w)
}

func (s *Server) handleDeleteIncident(w http.ResponseWriter, r *http.Request, caller core.Owner) {
	if err := s.svc.Incidents.Delete(r.Context(), caller, r.PathValue("group"), r.PathValue("incident_id")); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse(nil).Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleIncidentStatus(w http.ResponseWriter, r *http.Request, caller core.Owner) {
	var req incidentStatusRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := s.svc.Incidents.SetStatus(r.Context(), caller, r.PathValue("group"), r.PathValue("incident_id"), req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse(in).Write(w)
}

// The solve body is optional; without solved_by the caller is recorded.
func (s *Server) handleSolveIncident(w http.ResponseWriter, r *http.Request, caller core.Owner) {
	var req solveIncidentRequest
	if r.ContentLength != 0 {
		if err := DecodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	in, err := s.svc.Incidents.Solve(r.Context(), caller, r.PathValue("group"), r.PathValue("incident_id"), req.SolvedBy)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse(in).Write(w)
}
