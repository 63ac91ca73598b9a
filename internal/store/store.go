// Package store declares the persistence ports used by the services.
package store

import (
	"context"

	"expensetracker/internal/core"
	"expensetracker/internal/store/query"
)

// Ports for persistence adapters.
type (
	// Movements is a document-style collection of movements.
	//
	// InsertOne and UpdateOne must fail with core.ErrTransactionIDTaken when
	// the write would leave a finalized transaction id of a group owned by
	// two different users. The check and the write are atomic.
	Movements interface {
		Find(ctx context.Context, f query.Filter, opts query.Options) ([]core.Movement, error)
		FindOne(ctx context.Context, f query.Filter, sort ...query.Sort) (core.Movement, bool, error)
		Count(ctx context.Context, f query.Filter) (int64, error)
		InsertOne(ctx context.Context, m core.Movement) error
		UpdateOne(ctx context.Context, f query.Filter, u query.Update) (int64, error)
		DeleteOne(ctx context.Context, f query.Filter) (int64, error)
	}

	Groups interface {
		// FindGroup returns core.ErrNotFound when the group does not exist.
		FindGroup(ctx context.Context, id string) (core.Group, error)
		ListGroups(ctx context.Context) ([]core.Group, error)
		SaveGroup(ctx context.Context, g core.Group) error
	}

	Owners interface {
		// FindOwnerByToken returns core.ErrNotFound for unknown tokens.
		FindOwnerByToken(ctx context.Context, token string) (core.Owner, error)
		SaveOwner(ctx context.Context, o core.Owner) error
	}

	Incidents interface {
		FindIncidents(ctx context.Context, group, submittedBy string) ([]core.Incident, error)
		FindIncident(ctx context.Context, group, id string) (core.Incident, error)
		InsertIncident(ctx context.Context, in core.Incident) error
		UpdateIncident(ctx context.Context, in core.Incident) error
	}

	// Store bundles every port a backend provides.
	Store interface {
		Movements
		Groups
		Owners
		Incidents
		Ping(ctx context.Context) error
		Close() error
	}
)
