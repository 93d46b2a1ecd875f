package api

import (
	"crypto/subtle"
	"log"
	"net/http"
)

// APIKeyMiddleware rejects requests whose X-API-Key header does not match the
// configured key. An empty configured key disables the surface entirely
// rather than leaving it open.
func APIKeyMiddleware(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				log.Printf("APIKeyMiddleware: OPS_API_KEY not set, rejecting %s %s", r.Method, r.URL.Path)
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			got := r.Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
