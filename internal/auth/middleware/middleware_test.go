package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brizzai/entitlement-gate/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestCORSWithOrigins(t *testing.T) {
	h := CORSWithOrigins([]string{"https://fmw.example.com/"})(okHandler)

	tests := []struct {
		name        string
		method      string
		origin      string
		preflight   bool
		wantStatus  int
		wantAllowed string
	}{
		{name: "allowed origin", method: http.MethodGet, origin: "https://fmw.example.com", wantStatus: http.StatusOK, wantAllowed: "https://fmw.example.com"},
		{name: "other origin", method: http.MethodGet, origin: "https://evil.example.com", wantStatus: http.StatusOK},
		{name: "no origin", method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "preflight allowed", method: http.MethodOptions, origin: "https://fmw.example.com", preflight: true, wantStatus: http.StatusNoContent, wantAllowed: "https://fmw.example.com"},
		{name: "preflight rejected", method: http.MethodOptions, origin: "https://evil.example.com", preflight: true, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/auth/check", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantAllowed, rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantAllowed != "" {
				assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger.SetLogger(zap.New(core))
	t.Cleanup(func() { logger.SetLogger(nil) })

	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/oauth/callback?code=secret", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "/api/oauth/callback", fields["path"])
	assert.Equal(t, int64(http.StatusFound), fields["status"])
	for _, v := range fields {
		if s, ok := v.(string); ok {
			assert.NotContains(t, s, "secret")
		}
	}
}
