package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"onfleet-workers-go/internal/domain"
	"onfleet-workers-go/internal/logx"
)

// APIKeyAuth accepts requests whose basic-auth user name is one of keys.
// The password is ignored. With no keys every request is rejected.
func APIKeyAuth(logger logx.Logger, keys ...string) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logx.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _, ok := r.BasicAuth()
			if ok && knownKey(user, keys) {
				next.ServeHTTP(w, r)
				return
			}

			id := chimw.GetReqID(r.Context())
			logger.Info("authentication failed",
				logx.String("req_id", id),
				logx.String("path", r.URL.Path),
				logx.Bool("credentials", ok),
			)
			w.Header().Set("WWW-Authenticate", `Basic realm="workers"`)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(domain.NewErrorBody(
				"AuthenticationError", domain.ErrorAuthentication,
				"The API key is invalid or missing.", "", id,
			))
		})
	}
}

func knownKey(user string, keys []string) bool {
	found := false
	for _, k := range keys {
		if k != "" && SecureEqual(user, k) {
			found = true
		}
	}
	return found
}

// SecureEqual compares two secrets in constant time.
func SecureEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
