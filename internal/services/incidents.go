package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"expensetracker/internal/core"
)

type (
	NewIncident struct {
		Group       string `json:"group_id"`
		Type        string `json:"incident_type"`
		Message     string `json:"message"`
		SubmittedBy string `json:"submitted_by"`
	}

	IncidentPatch struct {
		Type    *string `json:"incident_type,omitempty"`
		Message *string `json:"message,omitempty"`
	}
)

// IncidentService tracks issues reported within a group.
type IncidentService struct {
	*base
}

func (s *IncidentService) List(ctx context.Context, caller core.Owner, group, submittedBy string) ([]core.Incident, error) {
	if _, err := s.loadGroup(ctx, caller, group, false); err != nil {
		return nil, err
	}
	out, err := s.store.FindIncidents(ctx, group, submittedBy)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	if out == nil {
		out = []core.Incident{}
	}
	return out, nil
}

func (s *IncidentService) Create(ctx context.Context, caller core.Owner, req NewIncident) (core.Incident, error) {
	if _, err := s.loadGroup(ctx, caller, req.Group, true); err != nil {
		return core.Incident{}, err
	}
	typ, err := core.ParseIncidentType(req.Type)
	if err != nil {
		return core.Incident{}, err
	}
	if strings.TrimSpace(req.Message) == "" {
		return core.Incident{}, fmt.Errorf("%w: message is required", core.ErrValidation)
	}

	in := core.Incident{
		ID:          uuid.NewString(),
		Type:        typ,
		Message:     strings.TrimSpace(req.Message),
		SubmittedBy: strings.TrimSpace(req.SubmittedBy),
		Group:       req.Group,
		Status:      core.IncidentOpen,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.InsertIncident(ctx, in); err != nil {
		return core.Incident{}, fmt.Errorf("create incident: %w", err)
	}
	s.log.InfoContext(ctx, "Incident created", "group", in.Group, "incident_id", in.ID, "type", in.Type)
	return in, nil
}

// load fetches an incident after checking admin rights on its group.
func (s *IncidentService) load(ctx context.Context, caller core.Owner, group, id string) (core.Incident, error) {
	if _, err := s.loadGroup(ctx, caller, group, true); err != nil {
		return core.Incident{}, err
	}
	return s.store.FindIncident(ctx, group, id)
}

func (s *IncidentService) Update(ctx context.Context, caller core.Owner, group, id string, patch IncidentPatch) (core.Incident, error) {
	in, err := s.load(ctx, caller, group, id)
	if err != nil {
		return core.Incident{}, err
	}
	if patch.Type != nil {
		if in.Type, err = core.ParseIncidentType(*patch.Type); err != nil {
			return core.Incident{}, err
		}
	}
	if patch.Message != nil {
		in.Message = strings.TrimSpace(*patch.Message)
	}
	if err := s.store.UpdateIncident(ctx, in); err != nil {
		return core.Incident{}, fmt.Errorf("update incident: %w", err)
	}
	return in, nil
}

// Delete hides the incident; the record is kept.
func (s *IncidentService) Delete(ctx context.Context, caller core.Owner, group, id string) error {
	in, err := s.load(ctx, caller, group, id)
	if err != nil {
		return err
	}
	in.Removed = true
	if err := s.store.UpdateIncident(ctx, in); err != nil {
		return fmt.Errorf("delete incident: %w", err)
	}
	s.log.InfoContext(ctx, "Incident removed", "group", group, "incident_id", id)
	return nil
}

func (s *IncidentService) SetStatus(ctx context.Context, caller core.Owner, group, id, status string) (core.Incident, error) {
	st, err := core.ParseIncidentStatus(status)
	if err != nil {
		return core.Incident{}, err
	}
	in, err := s.load(ctx, caller, group, id)
	if err != nil {
		return core.Incident{}, err
	}
	in.Status = st
	if err := s.store.UpdateIncident(ctx, in); err != nil {
		return core.Incident{}, fmt.Errorf("update incident status: %w", err)
	}
	return in, nil
}

// Solve resolves an open incident. Solving twice is a conflict.
func (s *IncidentService) Solve(ctx context.Context, caller core.Owner, group, id, solvedBy string) (core.Incident, error) {
	in, err := s.load(ctx, caller, group, id)
	if err != nil {
		return core.Incident{}, err
	}
	if in.Status == core.IncidentResolved {
		return core.Incident{}, fmt.Errorf("%w: incident already solved", core.ErrConflict)
	}
	in.Status = core.IncidentResolved
	in.SolvedBy = strings.TrimSpace(solvedBy)
	if in.SolvedBy == "" {
		in.SolvedBy = caller.OwnerID
	}
	if err := s.store.UpdateIncident(ctx, in); err != nil {
		return core.Incident{}, fmt.Errorf("solve incident: %w", err)
	}
	s.log.InfoContext(ctx, "Incident solved", "group", group, "incident_id", id, "solved_by", in.SolvedBy)
	return in, nil
}
