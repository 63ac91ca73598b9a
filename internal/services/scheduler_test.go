package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	"expensetracker/internal/store/query"
)

func TestDefaultSchedulerConfig(t *testing.T) {
	config := DefaultSchedulerConfig()

	if config.Interval != time.Hour {
		t.Errorf("expected Interval 1h, got %v", config.Interval)
	}
	if !config.Amount.Equal(decimal.NewFromInt(DefaultReceiptAmount)) {
		t.Errorf("expected Amount %d, got %s", DefaultReceiptAmount, config.Amount)
	}
}

func TestReceiptScheduler_RunOnce(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestServices(t)
	_ = st.SaveGroup(ctx, core.Group{ID: "G2", CreatedAt: testNow, Members: []string{"DEPTO 5"}})

	s := NewReceiptScheduler(svc, SchedulerConfig{Interval: time.Minute, Amount: decimal.NewFromInt(90)})
	if got := s.RunOnce(ctx); got != 3 {
		t.Fatalf("first run created %d, want 3", got)
	}
	if got := s.RunOnce(ctx); got != 0 {
		t.Errorf("second run created %d, want 0", got)
	}

	ms, _ := st.Find(ctx, query.New().Eq(query.FieldGroup, "G2"), query.Options{})
	if len(ms) != 1 || ms[0].Name != "APORTACION 3 2024" || !ms[0].Amount.Equal(decimal.NewFromInt(90)) {
		t.Errorf("G2 receipts = %+v", ms)
	}
}

func TestReceiptScheduler_Lifecycle(t *testing.T) {
	svc, st, _ := newTestServices(t)
	s := NewReceiptScheduler(svc, SchedulerConfig{Interval: 50 * time.Millisecond})

	if s.IsRunning() {
		t.Error("scheduler should not be running initially")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(ctx); err == nil {
		t.Error("expected error when starting already running scheduler")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		n, _ := st.Count(ctx, query.New())
		if n == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("scheduler created %d receipts, want 2", n)
		}
		time.Sleep(10 * time.Millisecond)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if s.IsRunning() {
		t.Error("scheduler should not be running after Stop")
	}
}

func TestReceiptScheduler_StopNotRunning(t *testing.T) {
	svc, _, _ := newTestServices(t)
	s := NewReceiptScheduler(svc, DefaultSchedulerConfig())

	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("Stop on idle scheduler: %v", err)
	}
}
