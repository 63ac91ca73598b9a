package http

import (
	"errors"
	"fmt"
	"net/http"

	"expensetracker/internal/core"
)

// ownerHandler is a handler that runs on behalf of an authenticated owner.
type ownerHandler func(w http.ResponseWriter, r *http.Request, caller core.Owner)

// authenticated resolves the bearer token against the owner store.
// Missing or unknown tokens get 401.
func (s *Server) authenticated(next ownerHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, r, fmt.Errorf("%w: missing bearer token", core.ErrUnauthorized))
			return
		}
		owner, err := s.owners.FindOwnerByToken(r.Context(), token)
		if errors.Is(err, core.ErrNotFound) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, r, fmt.Errorf("%w: invalid access token", core.ErrUnauthorized))
			return
		}
		if err != nil {
			writeError(w, r, fmt.Errorf("resolve access token: %w", err))
			return
		}
		next(w, r, owner)
	})
}
