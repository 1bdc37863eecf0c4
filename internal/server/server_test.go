package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brizzai/entitlement-gate/internal/auth"
	"github.com/brizzai/entitlement-gate/internal/auth/flow"
	"github.com/brizzai/entitlement-gate/internal/auth/handlers"
	"github.com/brizzai/entitlement-gate/internal/auth/policy"
	"github.com/brizzai/entitlement-gate/internal/auth/providers"
	"github.com/brizzai/entitlement-gate/internal/auth/session"
	"github.com/brizzai/entitlement-gate/internal/config"
	"github.com/brizzai/entitlement-gate/internal/metrics"
	"github.com/brizzai/entitlement-gate/internal/requester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, recorder *metrics.Recorder) *Server {
	t.Helper()
	providerCfg := &config.ProviderConfig{
		ClientID:    "client-id",
		AuthURL:     "https://whop.example/oauth",
		RedirectURI: "https://gate.example.com/api/oauth/callback",
		CallTimeout: time.Second,
	}
	provider := providers.NewWhopProvider(providerCfg, requester.NewHTTPRequester(providerCfg))
	opts := handlers.Options{
		ServiceName:  "FMW List Stacker Backend",
		FrontendURL:  "https://fmw.example.com",
		Provider:     provider,
		Orchestrator: flow.NewOrchestrator(provider, policy.DefaultProducts(), &config.AccessConfig{}, providerCfg),
		Gate:         session.NewGate(session.CookieOptions{}),
		Tickets:      session.NewMemoryTicketStore(time.Minute),
	}
	if recorder != nil {
		opts.Observer = recorder
	}
	authService := auth.NewService("https://fmw.example.com", handlers.NewHandler(opts))

	return NewServer(&config.ServerConfig{
		Host:              "127.0.0.1",
		Port:              0,
		Name:              "FMW List Stacker Backend",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
	}, authService, recorder)
}

func TestServer_StartStop(t *testing.T) {
	s := newTestServer(t, metrics.NewRecorder())
	require.NoError(t, s.Start(context.Background()))

	resp, err := http.Get("http://" + s.Addr() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","service":"FMW List Stacker Backend"}`, string(body))

	require.NoError(t, s.Stop(context.Background()))
	_, err = http.Get("http://" + s.Addr() + "/")
	assert.Error(t, err)
}

func TestServer_Routes(t *testing.T) {
	s := newTestServer(t, metrics.NewRecorder())
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/oauth/callback", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://fmw.example.com/login.html?error=denied", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `entitlement_gate_callbacks_total{outcome="denied",reason="missing_code"} 1`)
}

func TestServer_WithoutMetrics(t *testing.T) {
	s := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_StartFailsOnBusyPort(t *testing.T) {
	first := newTestServer(t, nil)
	require.NoError(t, first.Start(context.Background()))
	t.Cleanup(func() { _ = first.Stop(context.Background()) })

	second := newTestServer(t, nil)
	second.httpServer.Addr = first.Addr()
	assert.Error(t, second.Start(context.Background()))
}

func TestServer_ErrChanClosedAfterStop(t *testing.T) {
	s := newTestServer(t, nil)
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))

	select {
	case err, ok := <-s.errChan:
		assert.False(t, ok, "unexpected serve error: %v", err)
	case <-time.After(time.Second):
		t.Fatal("error channel still open after Stop")
	}
}
