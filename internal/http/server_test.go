package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/services"
	"expensetracker/internal/store/memory"
)

const (
	adminToken = "admin-token"
	userToken  = "user-token"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, cfg Config) (*Server, *memory.Store) {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, st.SaveGroup(ctx, core.Group{
		ID:        "G1",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Members:   []string{"DEPTO 1", "DEPTO 2"},
		Size:      2,
	}))
	require.NoError(t, st.SaveOwner(ctx, core.Owner{OwnerID: "admin", AccessToken: adminToken, Scope: []string{"G1"}, TokenType: core.TokenAdmin}))
	require.NoError(t, st.SaveOwner(ctx, core.Owner{OwnerID: "resident", AccessToken: userToken, Scope: []string{"G1"}, TokenType: core.TokenUser}))

	svc := services.New(services.Deps{Store: st, Now: func() time.Time { return testNow }})
	s, err := NewServer(cfg, svc, st, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.limiter.Stop() })
	return s, st
}

func do(t *testing.T, s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthAndReady(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	rr := do(t, s, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rr)["status"])
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr = do(t, s, http.MethodGet, "/readyz", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ready", decode[map[string]string](t, rr)["status"])
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("disk gone") }

func TestReadyReportsStoreFailure(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	s.pinger = failingPinger{}

	rr := do(t, s, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "store unavailable", decode[errorBody](t, rr).Detail)
}

func TestAuthentication(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	path := "/v1/incidents?group_id=G1"

	rr := do(t, s, http.MethodGet, path, "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))
	assert.Contains(t, decode[errorBody](t, rr).Detail, "missing bearer token")

	rr = do(t, s, http.MethodGet, path, "nope", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, s, http.MethodGet, path, userToken, "")
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, Config{RateLimitRPM: 2})

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", "", "").Code)
	}
	rr := do(t, s, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Equal(t, "rate limit exceeded", decode[errorBody](t, rr).Detail)

	// Authenticated callers are counted by token, not by address.
	rr = do(t, s, http.MethodGet, "/v1/incidents?group_id=G1", userToken, "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSuspiciousRequestBlocked(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	rr := do(t, s, http.MethodGet, "/.env", "", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestNewServerRejectsBadProxy(t *testing.T) {
	st := memory.New()
	_, err := NewServer(Config{TrustedProxies: []string{"bogus"}}, services.New(services.Deps{Store: st}), st, nil)
	assert.Error(t, err)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", core.ErrNotFound), http.StatusNotFound},
		{core.ErrConflict, http.StatusConflict},
		{core.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("%w: bad", core.ErrValidation), http.StatusUnprocessableEntity},
		{core.ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("insert movement: %w", core.ErrTransactionIDTaken), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("sql: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "internal server error", decode[errorBody](t, rr).Detail)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestBearerToken(t *testing.T) {
	tests := map[string]struct {
		header string
		want   string
		ok     bool
	}{
		"missing":      {"", "", false},
		"basic":        {"Basic abc", "", false},
		"bearer":       {"Bearer abc", "abc", true},
		"lowercase":    {"bearer abc", "abc", true},
		"empty bearer": {"Bearer  ", "", false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			got, ok := bearerToken(r)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
