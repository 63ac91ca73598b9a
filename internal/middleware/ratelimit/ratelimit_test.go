package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowWindow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 2})
	defer rl.Stop()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _ := rl.Allow("a"); !ok {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	now = now.Add(20 * time.Second)
	ok, retry := rl.Allow("a")
	if ok {
		t.Fatal("third request allowed")
	}
	if retry != 40*time.Second {
		t.Errorf("retry = %v, want 40s", retry)
	}
	if ok, _ := rl.Allow("b"); !ok {
		t.Error("other client should be independent")
	}

	now = now.Add(time.Minute)
	if ok, _ := rl.Allow("a"); !ok {
		t.Error("new window should allow")
	}
	if m := rl.GetMetrics(); m.TotalHits != 1 || m.ClientCount != 2 {
		t.Errorf("metrics = %+v", m)
	}

	now = now.Add(time.Hour)
	rl.cleanupStaleEntries()
	if rl.ActiveClients() != 0 {
		t.Errorf("stale clients kept: %d", rl.ActiveClients())
	}
}

func TestMiddleware(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()
	h := rl.Middleware(func(r *http.Request) string { return r.Header.Get("Authorization") }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	do := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", token)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}
	if rr := do("t1"); rr.Code != http.StatusNoContent {
		t.Fatalf("first status = %d", rr.Code)
	}
	rr := do("t1")
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Errorf("limited response = %d, Retry-After %q", rr.Code, rr.Header().Get("Retry-After"))
	}
	if rr := do("t2"); rr.Code != http.StatusNoContent {
		t.Errorf("second client status = %d", rr.Code)
	}
}
