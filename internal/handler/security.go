package handler

import (
	"net/http"
)

// RequireAPIKey authenticates requests via the api_key header, matching
// HMAC-SHA256 hashed keys in constant time. Failures are a bare 401 with no
// hint of whether the key exists.
func (h *Handler) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		key := r.Header.Get("api_key")
		if key == "" {
			key = r.Header.Get("Authorization")
		}

		if _, err := h.verifier.Authenticate(ctx, key); err != nil {
			writeError(ctx, w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
