package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/irdash/backend/internal/application/dashboard"
	"github.com/irdash/backend/internal/application/identity"
	"github.com/irdash/backend/internal/domain/gateway"
	"github.com/irdash/backend/internal/domain/shared"
	"github.com/irdash/backend/internal/infrastructure/config"
	"github.com/irdash/backend/internal/infrastructure/telemetry"
	"github.com/irdash/backend/internal/interfaces/http/dto"
)

// tokenAuthenticator accepts one fixed password and one fixed token.
type tokenAuthenticator struct{}

func (tokenAuthenticator) SignIn(_ context.Context, email, password string) (*gateway.Session, error) {
	if password != "pw" {
		return nil, shared.NewAuthError("sign_in", nil)
	}
	return &gateway.Session{AccessToken: "tok", UserID: "u1", Email: email, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (tokenAuthenticator) SignOut(context.Context, string) error { return nil }

func (tokenAuthenticator) GetSession(_ context.Context, token string) (*gateway.Session, error) {
	if token != "tok" {
		return nil, nil
	}
	return &gateway.Session{AccessToken: token, UserID: "u1", Email: "ada@example.com"}, nil
}

func newTestEngine(t *testing.T, mutate func(*config.HTTPConfig)) *Engine {
	t.Helper()
	e, _ := newTestEngineWithDashboard(t, mutate)
	return e
}

func newTestEngineWithDashboard(t *testing.T, mutate func(*config.HTTPConfig)) (*Engine, *dashboard.Dashboard) {
	t.Helper()
	httpCfg := config.HTTPConfig{
		CORSAllowOrigins: []string{"https://ir.example.com"},
		CORSAllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		CORSAllowHeaders: []string{"Authorization", "Content-Type"},
		SSEHeartbeat:     time.Hour,
		SSEMaxClients:    10,
		MaxBodyBytes:     1 << 10,
		SignInLimit:      10,
		SignInWindow:     time.Minute,
	}
	if mutate != nil {
		mutate(&httpCfg)
	}

	dash := dashboard.NewDashboard(dashboard.NewVolumeStreamRegistry())
	_ = dash.Start(context.Background(), gateway.Unconfigured{})
	t.Cleanup(dash.Stop)

	e := NewEngine(Deps{
		HTTP:         httpCfg,
		Dashboard:    dash,
		Auth:         identity.NewAuthService(tokenAuthenticator{}, zap.NewNop()),
		Logger:       zap.NewNop(),
		TopInvestors: 5,
	})
	t.Cleanup(e.Close)
	return e, dash
}

func call(e *Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestNewEngine_Routes(t *testing.T) {
	e := newTestEngine(t, nil)

	registered := map[string]bool{}
	for _, r := range e.Routes() {
		registered[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"POST /api/v1/auth/sign-in",
		"POST /api/v1/auth/sign-out",
		"GET /api/v1/auth/session",
		"GET /api/v1/members",
		"POST /api/v1/members/next",
		"POST /api/v1/members/previous",
		"POST /api/v1/members/page/:page",
		"GET /api/v1/members/:id",
		"GET /api/v1/members/:id/commitments",
		"GET /api/v1/items/:type",
		"POST /api/v1/items/:type/next",
		"POST /api/v1/items/:type/previous",
		"POST /api/v1/items/:type/page/:page",
		"GET /api/v1/items/id/:id",
		"POST /api/v1/items",
		"PATCH /api/v1/items/:id",
		"DELETE /api/v1/items/:id",
		"GET /api/v1/commitments",
		"POST /api/v1/commitments/next",
		"POST /api/v1/commitments/previous",
		"POST /api/v1/commitments/page/:page",
		"GET /api/v1/commitments/:id",
		"POST /api/v1/commitments",
		"PATCH /api/v1/commitments/:id",
		"DELETE /api/v1/commitments/:id",
		"GET /api/v1/deals/:id/commitments",
		"GET /api/v1/deals/:id/tickets",
		"GET /api/v1/metrics/committed-volume",
		"GET /api/v1/metrics/committed-volume/stream",
		"GET /api/v1/metrics/key",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}

func TestNewEngine_Health(t *testing.T) {
	e := newTestEngine(t, nil)

	w := call(e, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"gateway":"unconfigured"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestNewEngine_RequiresSession(t *testing.T) {
	e := newTestEngine(t, nil)

	w := call(e, http.MethodGet, "/api/v1/members", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeUnauthorized, errorCode(t, w))

	w = call(e, http.MethodGet, "/api/v1/members", "revoked", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNewEngine_UnconfiguredGatewayServesSnapshots(t *testing.T) {
	e := newTestEngine(t, nil)

	w := call(e, http.MethodGet, "/api/v1/members", "tok", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data dto.PageResponse[json.RawMessage] `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Data.Rows)
	require.NotNil(t, resp.Data.Error)
	assert.Equal(t, dto.ErrCodeConfiguration, resp.Data.Error.Code)

	w = call(e, http.MethodPost, "/api/v1/items", "tok", `{"type":"Deal","title":"Series A"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, dto.ErrCodeConfiguration, errorCode(t, w))
}

func TestNewEngine_SignOutReleasesPagePositions(t *testing.T) {
	e, dash := newTestEngineWithDashboard(t, nil)

	require.Equal(t, http.StatusOK, call(e, http.MethodGet, "/api/v1/members", "tok", "").Code)
	assert.Equal(t, 1, dash.Sessions.Len())

	assert.Equal(t, http.StatusNoContent, call(e, http.MethodPost, "/api/v1/auth/sign-out", "tok", "").Code)
	assert.Zero(t, dash.Sessions.Len())
}

func TestNewEngine_RequestLogCarriesTraceID(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	core, logs := observer.New(zapcore.DebugLevel)

	dash := dashboard.NewDashboard(dashboard.NewVolumeStreamRegistry())
	_ = dash.Start(context.Background(), gateway.Unconfigured{})
	t.Cleanup(dash.Stop)
	e := NewEngine(Deps{
		HTTP:        config.HTTPConfig{SSEHeartbeat: time.Hour},
		Dashboard:   dash,
		Auth:        identity.NewAuthService(tokenAuthenticator{}, zap.NewNop()),
		Tracer:      telemetry.NewTracerProviderWithProcessor(recorder, nil),
		ServiceName: "irdash-test",
		Logger:      zap.New(core),
	})
	t.Cleanup(e.Close)

	require.Equal(t, http.StatusOK, call(e, http.MethodGet, "/api/v1/members", "tok", "").Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	entries := logs.FilterMessage("request handled").All()
	require.Len(t, entries, 1)
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), entries[0].ContextMap()["trace_id"])

	var user string
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "enduser.id" {
			user = kv.Value.AsString()
		}
	}
	assert.Equal(t, "u1", user)

	call(e, http.MethodGet, "/health", "", "")
	assert.Len(t, recorder.Ended(), 1)
}

func TestNewEngine_SignIn(t *testing.T) {
	e := newTestEngine(t, nil)

	w := call(e, http.MethodPost, "/api/v1/auth/sign-in", "", `{"email":"ada@example.com","password":"pw"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"access_token":"tok"`)

	w = call(e, http.MethodPost, "/api/v1/auth/sign-in", "", `{"email":"ada@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNewEngine_SignInRateLimited(t *testing.T) {
	e := newTestEngine(t, func(c *config.HTTPConfig) { c.SignInLimit = 2 })

	body := `{"email":"ada@example.com","password":"nope"}`
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusUnauthorized, call(e, http.MethodPost, "/api/v1/auth/sign-in", "", body).Code)
	}
	w := call(e, http.MethodPost, "/api/v1/auth/sign-in", "", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, dto.ErrCodeRateLimited, errorCode(t, w))

	// Session lookups are not limited.
	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/api/v1/auth/session", "tok", "").Code)
}

func TestNewEngine_BodyLimit(t *testing.T) {
	e := newTestEngine(t, func(c *config.HTTPConfig) { c.MaxBodyBytes = 32 })

	body := `{"email":"ada@example.com","password":"` + strings.Repeat("x", 64) + `"}`
	w := call(e, http.MethodPost, "/api/v1/auth/sign-in", "", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestNewEngine_CORSPreflight(t *testing.T) {
	e := newTestEngine(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/members", nil)
	req.Header.Set("Origin", "https://ir.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://ir.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
