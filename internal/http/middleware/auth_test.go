package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"onfleet-workers-go/internal/domain"
	"onfleet-workers-go/internal/http/middleware"
)

func TestAPIKeyAuth(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := middleware.APIKeyAuth(nil, "k1", "k2")(next)

	cases := []struct {
		name   string
		setup  func(*http.Request)
		status int
	}{
		{"no credentials", func(*http.Request) {}, http.StatusUnauthorized},
		{"wrong key", func(r *http.Request) { r.SetBasicAuth("nope", "") }, http.StatusUnauthorized},
		{"first key", func(r *http.Request) { r.SetBasicAuth("k1", "") }, http.StatusTeapot},
		{"second key with password", func(r *http.Request) { r.SetBasicAuth("k2", "ignored") }, http.StatusTeapot},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/api/v2/workers", nil)
			tc.setup(req)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			require.Equal(t, tc.status, rr.Code)

			if tc.status == http.StatusUnauthorized {
				require.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))
				var body domain.ErrorBody
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
				require.Equal(t, "AuthenticationError", body.Code)
				require.Equal(t, domain.ErrorAuthentication, body.Message.Error)
			}
		})
	}
}

func TestAPIKeyAuth_NoKeysRejectsEverything(t *testing.T) {
	t.Parallel()

	h := middleware.APIKeyAuth(nil, "")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next must not be called")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("", "")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSecureEqual(t *testing.T) {
	t.Parallel()

	require.False(t, middleware.SecureEqual("a", "ab"))
	require.True(t, middleware.SecureEqual("abc", "abc"))
	require.False(t, middleware.SecureEqual("abc", "abd"))
}
