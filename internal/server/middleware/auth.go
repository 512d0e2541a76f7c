// Package middleware holds the HTTP middleware chain for the engine API:
// authentication, CORS, request logging, and rate limiting. The API is an
// operator/relayer surface, so auth is a single shared key rather than
// per-user sessions.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Auth gates every request on the configured API key. The key is accepted as
// either "Authorization: Bearer <key>" or an X-API-Key header. An empty
// configured key disables the gate entirely, which is the local-development
// default.
func Auth(apiKey string) func(http.Handler) http.Handler {
	keyBytes := []byte(apiKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			presented := presentedKey(r)
			if presented == "" {
				denyRequest(w, "authentication required")
				return
			}
			// Constant-time compare; the key is a credential.
			if subtle.ConstantTimeCompare([]byte(presented), keyBytes) != 1 {
				denyRequest(w, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// presentedKey pulls the API key out of the request, preferring the Bearer
// scheme over the X-API-Key header.
func presentedKey(r *http.Request) string {
	if scheme, rest, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok {
		if strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(rest)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

func denyRequest(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
