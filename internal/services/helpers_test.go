package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/store/memory"
)

var (
	testNow  = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	admin    = core.Owner{OwnerID: "admin", Scope: []string{"G1"}, TokenType: core.TokenAdmin}
	reader   = core.Owner{OwnerID: "resident", Scope: []string{"G1"}, TokenType: core.TokenUser}
	outsider = core.Owner{OwnerID: "other", Scope: []string{"G2"}, TokenType: core.TokenAdmin}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.MovementEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev *amqp.MovementEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

func newTestServices(t *testing.T) (*Services, *memory.Store, *recordingPublisher) {
	t.Helper()
	st := memory.New()
	err := st.SaveGroup(context.Background(), core.Group{
		ID:        "G1",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Members:   []string{"DEPTO 1", "DEPTO 2"},
		Size:      2,
	})
	if err != nil {
		t.Fatalf("SaveGroup: %v", err)
	}
	pub := &recordingPublisher{}
	svc := New(Deps{Store: st, Events: pub, Now: func() time.Time { return testNow }})
	return svc, st, pub
}
