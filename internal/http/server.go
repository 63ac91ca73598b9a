package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	applog "expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/services"
	"expensetracker/internal/store"
)

// Config tunes the HTTP server.
type Config struct {
	Addr         string
	RateLimitRPM int
	// TrustedProxies are CIDRs whose forwarding headers are honored.
	TrustedProxies []string
}

type Server struct {
	http.Server
	svc        *services.Services
	owners     store.Owners
	pinger     interface{ Ping(context.Context) error }
	logger     *applog.Logger
	structured *applog.StructuredLogger

	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. st provides token lookup and readiness checks.
func NewServer(cfg Config, svc *services.Services, st store.Store, logger *applog.Logger) (*Server, error) {
	if logger == nil {
		logger = applog.New(applog.ForEnvironment(false, slog.LevelInfo, applog.ComponentHTTP))
	}

	detector := security.NewDetector()
	for _, cidr := range cfg.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	s := &Server{
		svc:        svc,
		owners:     st,
		pinger:     st,
		logger:     logger,
		structured: applog.NewStructuredLogger(logger),
		detector:   detector,
		limiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitRPM}),
		tracer:     trace.NewMiddleware(detector.ExtractClientIP, logger),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.chain(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.Handle("GET /v1/transactions", s.authenticated(s.handleQueryTransactions))
	mux.Handle("GET /v1/transactions/parsed-data", s.authenticated(s.handleParsedData))
	mux.Handle("POST /v1/transactions/create-receipt-batch", s.authenticated(s.handleCreateReceiptBatch))
	mux.Handle("POST /v1/transactions/mark-receipt-as-paid", s.authenticated(s.handleMarkReceiptAsPaid))
	mux.Handle("POST /v1/transactions/create-new-transaction", s.authenticated(s.handleCreateTransaction))
	mux.Handle("PUT /v1/transactions/{group}/{transaction_id}", s.authenticated(s.handleUpdateTransaction))
	mux.Handle("DELETE /v1/transactions/{group}/{transaction_id}", s.authenticated(s.handleDeleteTransaction))
	mux.Handle("GET /v1/transactions/{group}/next-id", s.authenticated(s.handleNextID))

	mux.Handle("POST /v1/report/receipts", s.authenticated(s.handleReceiptsReport))
	mux.Handle("POST /v1/report/balance", s.authenticated(s.handleBalanceReport))

	mux.Handle("GET /v1/incidents", s.authenticated(s.handleListIncidents))
	mux.Handle("POST /v1/incidents", s.authenticated(s.handleCreateIncident))
	mux.Handle("PUT /v1/incidents/{group}/{incident_id}", s.authenticated(s.handleUpdateIncident))
	mux.Handle("DELETE /v1/incidents/{group}/{incident_id}", s.authenticated(s.handleDeleteIncident))
	mux.Handle("PATCH /v1/incidents/{group}/{incident_id}/status", s.authenticated(s.handleIncidentStatus))
	mux.Handle("PATCH /v1/incidents/{group}/{incident_id}/solve", s.authenticated(s.handleSolveIncident))
}

// chain wraps the mux, outermost first: tracing, security headers,
// probe detection, rate limiting.
func (s *Server) chain(h http.Handler) http.Handler {
	h = s.limiter.Middleware(s.rateLimitKey, func(w http.ResponseWriter, r *http.Request) {
		DetailError(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	})(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	return s.tracer.Middleware(h)
}

// rateLimitKey counts authenticated callers per token and anonymous ones
// per client address.
func (s *Server) rateLimitKey(r *http.Request) string {
	if token, ok := bearerToken(r); ok {
		return "token:" + token
	}
	return "ip:" + s.detector.ExtractClientIP(r)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
