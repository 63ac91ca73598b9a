package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/store/query"
)

const (
	DefaultQueryLimit = 200
	MaxQueryLimit     = 2000
)

type (
	NewTransaction struct {
		Group        string          `json:"group_id"`
		User         string          `json:"user_id"`
		MovementType string          `json:"movement_type"`
		Amount       decimal.Decimal `json:"amount"`
		Category     string          `json:"category"`
		Month        string          `json:"month"`
		Year         string          `json:"year"`
		Name         string          `json:"name,omitempty"`
		Comments     string          `json:"comments,omitempty"`
	}

	// TransactionPatch lists the fields an update may change. Nil fields
	// are left untouched.
	TransactionPatch struct {
		Amount   *decimal.Decimal `json:"amount,omitempty"`
		Category *string          `json:"category,omitempty"`
		Name     *string          `json:"name,omitempty"`
		Comments *string          `json:"comments,omitempty"`
		User     *string          `json:"user,omitempty"`
	}

	QueryRequest struct {
		Filter        []byte
		Projection    string
		Limit         int
		Skip          int
		SortKey       string
		SortAscending bool
	}

	QueryResult struct {
		Items []map[string]any `json:"items"`
		Count int              `json:"count"`
	}
)

// TransactionService creates, edits, deletes and queries movements.
type TransactionService struct {
	*base
	alloc *Allocator
}

// Create records a finalized movement with a freshly allocated id.
func (s *TransactionService) Create(ctx context.Context, caller core.Owner, req NewTransaction) (core.Movement, error) {
	g, err := s.loadGroup(ctx, caller, req.Group, true)
	if err != nil {
		return core.Movement{}, err
	}
	mt, err := core.ParseMovementType(req.MovementType)
	if err != nil {
		return core.Movement{}, err
	}
	period, err := core.ParsePeriod(req.Month, req.Year)
	if err != nil {
		return core.Movement{}, err
	}
	category := strings.TrimSpace(req.Category)
	if category == core.CategoryPending {
		return core.Movement{}, fmt.Errorf("%w: pending receipts are created through the receipt batch", core.ErrValidation)
	}
	name := strings.TrimSpace(req.Name)

	m := core.Movement{
		User:         strings.TrimSpace(req.User),
		Group:        g.ID,
		MovementType: mt,
		Amount:       req.Amount,
		Category:     category,
		Date:         period.Ptr(),
		Name:         name,
		Comments:     req.Comments,
		Status:       core.StatusFinalized,
	}
	if err := m.Validate(); err != nil {
		return core.Movement{}, err
	}

	dup := query.New().
		Eq(query.FieldGroup, g.ID).
		Eq(query.FieldUser, m.User).
		Eq(query.FieldDate, period.Time).
		Eq(query.FieldMovementType, string(mt)).
		Eq(query.FieldCategory, category).
		Eq(query.FieldRemoved, false)
	if name != "" {
		dup.Eq(query.FieldName, name)
	}
	n, err := s.store.Count(ctx, dup)
	if err != nil {
		return core.Movement{}, fmt.Errorf("check duplicate transaction: %w", err)
	}
	if n > 0 {
		return core.Movement{}, fmt.Errorf("%w: Transaction already exists", core.ErrConflict)
	}

	if m.Name == "" {
		m.Name = core.ReceiptName(period, "")
	}
	m.CreatedAt = s.now().UTC()

	id, err := s.alloc.Allocate(ctx, g, m.User, mt, func(id int) error {
		m.TransactionID = id
		return s.store.InsertOne(ctx, m)
	})
	if err != nil {
		return core.Movement{}, fmt.Errorf("create transaction: %w", err)
	}
	m.TransactionID = id
	s.changed(ctx, amqp.EventTransactionCreated, m, caller.OwnerID)

	s.log.InfoContext(ctx, "Transaction created",
		"group", g.ID,
		"user", m.User,
		"transaction_id", id,
		"movement_type", mt)
	return m, nil
}

// byIDFilter selects movements of a group by transaction id and, when
// given, name.
func byIDFilter(group string, transactionID int, name string) query.Filter {
	f := query.New().
		Eq(query.FieldGroup, group).
		Eq(query.FieldTransactionID, transactionID).
		Eq(query.FieldRemoved, false)
	return whereName(f, name)
}

// whereName narrows f to name. Receipt names also match their canonical
// spelling, so a zero-padded month finds the stored receipt.
func whereName(f query.Filter, name string) query.Filter {
	name = strings.TrimSpace(name)
	if name == "" {
		return f
	}
	if canonical := core.CanonicalReceiptName(name); canonical != name {
		return f.Where(query.FieldName, query.OpIn, []string{name, canonical})
	}
	return f.Eq(query.FieldName, name)
}

// resolveOne returns the single movement matching f. Several matches need
// a disambiguating name.
func (s *TransactionService) resolveOne(ctx context.Context, f query.Filter, transactionID int) (core.Movement, error) {
	ms, err := s.store.Find(ctx, f, query.Options{Limit: 2})
	if err != nil {
		return core.Movement{}, fmt.Errorf("find transaction: %w", err)
	}
	switch len(ms) {
	case 0:
		return core.Movement{}, fmt.Errorf("%w: transaction %d", core.ErrNotFound, transactionID)
	case 1:
		return ms[0], nil
	}
	return core.Movement{}, fmt.Errorf("%w: several movements share transaction %d, name is required", core.ErrConflict, transactionID)
}

// Update applies patch to the movement identified by id and optional name.
func (s *TransactionService) Update(ctx context.Context, caller core.Owner, group string, transactionID int, name string, patch TransactionPatch) (core.Movement, error) {
	if _, err := s.loadGroup(ctx, caller, group, true); err != nil {
		return core.Movement{}, err
	}
	f := byIDFilter(group, transactionID, name)
	m, err := s.resolveOne(ctx, f, transactionID)
	if err != nil {
		return core.Movement{}, err
	}

	u := query.Update{}
	if patch.Amount != nil {
		if patch.Amount.IsNegative() {
			return core.Movement{}, fmt.Errorf("%w: %w", core.ErrValidation, core.ErrNegativeAmount)
		}
		u[query.FieldAmount] = *patch.Amount
		m.Amount = *patch.Amount
	}
	if patch.Category != nil {
		u[query.FieldCategory] = *patch.Category
		m.Category = *patch.Category
	}
	if patch.Name != nil {
		u[query.FieldName] = *patch.Name
		m.Name = *patch.Name
	}
	if patch.Comments != nil {
		u[query.FieldComments] = *patch.Comments
		m.Comments = *patch.Comments
	}
	if patch.User != nil {
		if strings.TrimSpace(*patch.User) == "" {
			return core.Movement{}, fmt.Errorf("%w: %w", core.ErrValidation, core.ErrEmptyUser)
		}
		u[query.FieldUser] = *patch.User
		m.User = *patch.User
	}
	if len(u) == 0 {
		return core.Movement{}, fmt.Errorf("%w: nothing to update", core.ErrValidation)
	}

	if _, err := s.store.UpdateOne(ctx, f, u); err != nil {
		if errors.Is(err, core.ErrTransactionIDTaken) {
			return core.Movement{}, fmt.Errorf("%w: %w", core.ErrConflict, err)
		}
		return core.Movement{}, fmt.Errorf("update transaction: %w", err)
	}
	s.changed(ctx, amqp.EventTransactionUpdated, m, caller.OwnerID)

	s.log.InfoContext(ctx, "Transaction updated", "group", group, "transaction_id", transactionID, "fields", len(u))
	return m, nil
}

// Delete removes the movement identified by id and optional name.
func (s *TransactionService) Delete(ctx context.Context, caller core.Owner, group string, transactionID int, name string) error {
	if _, err := s.loadGroup(ctx, caller, group, true); err != nil {
		return err
	}
	f := byIDFilter(group, transactionID, name)
	m, err := s.resolveOne(ctx, f, transactionID)
	if err != nil {
		return err
	}
	if _, err := s.store.DeleteOne(ctx, f); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.changed(ctx, amqp.EventTransactionDeleted, m, caller.OwnerID)

	s.log.InfoContext(ctx, "Transaction deleted", "group", group, "transaction_id", transactionID, "user", m.User)
	return nil
}

// Query runs a generic filtered read restricted to the caller scope.
// Removed movements are hidden unless the filter asks for them.
func (s *TransactionService) Query(ctx context.Context, caller core.Owner, req QueryRequest) (QueryResult, error) {
	f, err := query.Parse(req.Filter)
	if err != nil {
		return QueryResult{}, err
	}
	projection, err := query.ParseProjection(req.Projection)
	if err != nil {
		return QueryResult{}, err
	}

	limit := req.Limit
	switch {
	case limit == 0:
		limit = DefaultQueryLimit
	case limit < 0 || limit > MaxQueryLimit:
		return QueryResult{}, fmt.Errorf("%w: limit must be between 1 and %d", core.ErrValidation, MaxQueryLimit)
	}
	if req.Skip < 0 {
		return QueryResult{}, fmt.Errorf("%w: skip must not be negative", core.ErrValidation)
	}

	scope := make([]any, 0, len(caller.Scope))
	for _, g := range caller.Scope {
		scope = append(scope, g)
	}
	f.Where(query.FieldGroup, query.OpIn, scope)
	if !f.Has(query.FieldRemoved) {
		f.Eq(query.FieldRemoved, false)
	}

	opts := query.Options{Projection: projection, Limit: limit, Skip: req.Skip}
	if req.SortKey != "" {
		opts.Sort = []query.Sort{{Field: req.SortKey, Ascending: req.SortAscending}}
	}
	ms, err := s.store.Find(ctx, f, opts)
	if err != nil {
		return QueryResult{}, fmt.Errorf("query transactions: %w", err)
	}
	items := query.Project(ms, projection)
	return QueryResult{Items: items, Count: len(items)}, nil
}

// NextID previews the id the next movement of user would receive. Nothing
// is reserved; a concurrent write may still take it.
func (s *TransactionService) NextID(ctx context.Context, caller core.Owner, group, user, movementType string) (int, error) {
	g, err := s.loadGroup(ctx, caller, group, false)
	if err != nil {
		return 0, err
	}
	mt, err := core.ParseMovementType(movementType)
	if err != nil {
		return 0, err
	}
	next, err := s.alloc.NextID(ctx, g, strings.TrimSpace(user), mt)
	if err != nil {
		return 0, err
	}
	return next + 1, nil
}
