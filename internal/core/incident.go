package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	IncidentMaintenance IncidentType = "MAINTENANCE"
	IncidentSecurity    IncidentType = "SECURITY"
	IncidentNoise       IncidentType = "NOISE"
	IncidentPayment     IncidentType = "PAYMENT"
	IncidentOther       IncidentType = "OTHER"
)

const (
	IncidentOpen       IncidentStatus = "OPEN"
	IncidentInProgress IncidentStatus = "IN_PROGRESS"
	IncidentResolved   IncidentStatus = "RESOLVED"
	IncidentClosed     IncidentStatus = "CLOSED"
)

type (
	IncidentType   string
	IncidentStatus string

	Incident struct {
		ID          string         `json:"incident_id"`
		Type        IncidentType   `json:"incident_type"`
		Message     string         `json:"message"`
		SubmittedBy string         `json:"submitted_by"`
		SolvedBy    string         `json:"solved_by,omitempty"`
		Group       string         `json:"group"`
		Status      IncidentStatus `json:"status"`
		CreatedAt   time.Time      `json:"created_at"`
		Removed     bool           `json:"removed,omitempty"`
	}
)

func ParseIncidentType(s string) (IncidentType, error) {
	switch t := IncidentType(strings.ToUpper(strings.TrimSpace(s))); t {
	case IncidentMaintenance, IncidentSecurity, IncidentNoise, IncidentPayment, IncidentOther:
		return t, nil
	}
	return "", fmt.Errorf("%w: invalid incident type %q", ErrValidation, s)
}

func ParseIncidentStatus(s string) (IncidentStatus, error) {
	switch st := IncidentStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case IncidentOpen, IncidentInProgress, IncidentResolved, IncidentClosed:
		return st, nil
	}
	return "", fmt.Errorf("%w: invalid incident status %q", ErrValidation, s)
}
