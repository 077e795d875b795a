package middleware

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader carries the shared secret for the message endpoint.
const APIKeyHeader = "x-api-key"

// APIKey rejects requests whose x-api-key header does not match key.
// An empty key rejects everything.
func APIKey(key string) func(http.Handler) http.Handler {
	want := []byte(key)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(APIKeyHeader))
			if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
				writeAuthError(w, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
