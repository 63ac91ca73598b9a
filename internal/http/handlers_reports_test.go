package http

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportsOverHTTP(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/v1/transactions/create-receipt-batch", adminToken,
		`{"group_id":"G1","month":"3","year":"2024"}`).Code)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/v1/transactions/mark-receipt-as-paid", adminToken,
		`{"group_id":"G1","user_id":"DEPTO 1","month":"3","year":"2024"}`).Code)

	rr := do(t, s, http.MethodPost, "/v1/report/receipts", userToken, `{"group":"G1","start_at":1,"end_at":1}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "recibos-G1-1-1.pdf")
	assert.True(t, strings.HasPrefix(rr.Body.String(), "%PDF"))

	rr = do(t, s, http.MethodPost, "/v1/report/receipts", userToken, `{"group":"G1","start_at":5,"end_at":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	rr = do(t, s, http.MethodPost, "/v1/report/balance", userToken, `{"group":"G1","year":"2024","month":"3"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.True(t, strings.HasPrefix(rr.Body.String(), "%PDF"))

	rr = do(t, s, http.MethodPost, "/v1/report/balance", userToken, `{"group":"G2","year":"2024","month":"3"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
