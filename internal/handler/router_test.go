package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentnetwork/agent-gateway/internal/client"
	"github.com/agentnetwork/agent-gateway/internal/config"
	"github.com/agentnetwork/agent-gateway/internal/repository"
	"github.com/agentnetwork/agent-gateway/internal/service"
)

const testAdminKey = "test-admin-key"

func newTestServer(t *testing.T, mutate func(*config.Config)) (*httptest.Server, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb, err := client.NewRedisClient(context.Background(), client.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	cfg := &config.Config{
		Env:      "test",
		AdminKey: testAdminKey,
	}
	cfg.ApplyDefaults()
	if mutate != nil {
		mutate(cfg)
	}

	authRepo := repository.NewRedisAuthRepository(rdb)
	eventRepo := repository.NewRedisEventRepository(rdb)
	messageRepo := repository.NewRedisMessageRepository(rdb)

	analytics := service.NewAnalyticsService(eventRepo, nil)
	tokens := service.NewTokenService(authRepo, cfg.Auth.TokenTTL)
	auth := service.NewAuthService(authRepo, analytics, tokens, service.PollCountPolicy{Threshold: cfg.Auth.ApprovalThreshold}, cfg.Auth)

	router := NewRouter(RouterDeps{
		Config:     cfg,
		Auth:       NewAuthHandler(auth, analytics),
		Capability: NewCapabilityHandler(messageRepo, analytics, cfg.Auth),
		Admin:      NewAdminHandler(analytics),
		Health:     NewHealthHandler("test", cfg.Env),
		Tokens:     tokens,
		Analytics:  analytics,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, mr
}

func doJSON(t *testing.T, method, url, body string, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	}
	return resp, decoded
}

func TestAuthFlowEndToEnd(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v2/agent/auth",
		`{"public_key":"pk1","purpose":"test"}`, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "pending", body["status"])
	assert.EqualValues(t, 3600, body["expires_in"])
	id, _ := body["auth_request_id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "/api/v2/agent/auth/"+id, body["poll_endpoint"])

	pollURL := srv.URL + "/api/v2/agent/auth/" + id
	for i := 0; i < 2; i++ {
		resp, body = doJSON(t, http.MethodGet, pollURL, "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "pending", body["status"])
		assert.Nil(t, body["access_token"])
	}

	resp, body = doJSON(t, http.MethodGet, pollURL, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "approved", body["status"])
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)
	assert.Equal(t, "Bearer", body["token_type"])
	assert.EqualValues(t, 86400, body["expires_in"])

	// Admin analytics after one submit and three polls.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v2/admin/analytics", "",
		map[string]string{"X-Admin-Key": testAdminKey})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	counters, ok := body["counters"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, counters["auth_request_created"])
	assert.EqualValues(t, 3, counters["auth_poll"])

	// A valid token authorizes capability calls.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v2/agent/messages",
		`{"content":"hello","topic":"general"}`,
		map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "delivered", body["status"])
	assert.NotEmpty(t, body["message_id"])

	// Wrong tokens do not.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v2/agent/messages",
		`{"content":"hello"}`,
		map[string]string{"Authorization": "Bearer wrong"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_token", body["reason"])

	// And missing schemes are reported distinctly.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v2/agent/peers", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "missing_bearer_token", body["reason"])

	// The approved request keeps returning the identical token.
	resp, body = doJSON(t, http.MethodGet, pollURL, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, token, body["access_token"])
}

func TestSubmitValidationFailures(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v2/agent/auth", `{not json`, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid JSON body", body["error"])

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v2/agent/auth",
		`{"public_key":"pk1"}`, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "Missing required fields")

	// Both failures are on the attempt log.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v2/admin/auth-attempts", "",
		map[string]string{"X-Admin-Key": testAdminKey})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, body["total"])
	attempts, ok := body["auth_attempts"].([]any)
	require.True(t, ok)
	require.Len(t, attempts, 2)
	for _, raw := range attempts {
		entry, ok := raw.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, false, entry["success"])
		assert.NotEqual(t, "pk1", entry["public_key_hash"])
	}
}

func TestPollUnknownRequest(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/v2/agent/auth/nope", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Auth request not found or expired", body["error"])
}

func TestAdminKeyEnforced(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	for _, headers := range []map[string]string{
		nil,
		{"X-Admin-Key": "wrong-key"},
	} {
		resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/v2/admin/analytics", "", headers)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Unauthorized", body["error"])
	}
}

func TestDiscoveryDocument(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/v2/agent/auth", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ciba", body["auth_method"])
	assert.NotNil(t, body["required_fields"])
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	for _, path := range []string{"/", "/health"} {
		resp, body := doJSON(t, http.MethodGet, srv.URL+path, "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, "agent-gateway", body["service"])
	}
}

func TestOptionsPreflight(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	// OPTIONS answers 204 on every path, including ones owned by nested
	// routers and ones behind the bearer or admin-key middlewares.
	for _, path := range []string{
		"/",
		"/health",
		"/api/v2/agent/auth",
		"/api/v2/agent/messages",
		"/api/v2/admin/analytics",
		"/api/v2/no/such/route",
	} {
		req, err := http.NewRequest(http.MethodOptions, srv.URL+path, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode, "OPTIONS %s", path)
	}

	// A browser preflight gets the CORS headers along with the 204.
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v2/agent/auth", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://agent.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestBearerStoreFailureIsInternalError(t *testing.T) {
	srv, mr := newTestServer(t, nil)
	token := approvedToken(t, srv)

	mr.Close()

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/v2/agent/peers", "",
		map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Internal server error", body["error"])
	assert.Nil(t, body["reason"])
}

func TestCapabilityStubs(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	token := approvedToken(t, srv)
	authz := map[string]string{"Authorization": "Bearer " + token}

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/v2/agent/messages", "", authz)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["has_more"])

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v2/agent/questions", `{"question":"why"}`, authz)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "pending", body["status"])

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v2/agent/peers?status=online", "", authz)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	peers, ok := body["peers"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, peers)
	assert.EqualValues(t, len(peers), body["online_count"])

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v2/agent/subscribe", `{"topic":"general"}`, authz)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "active", body["status"])

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v2/secret", `{"ttl":60}`, authz)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.EqualValues(t, 60, body["expires_in"])
	assert.NotEmpty(t, body["secret_key"])

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v2/agent/handoff", `{"target_agent":"devin-dev-agent"}`, authz)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "initiated", body["status"])
	assert.Equal(t, "devin-dev-agent", body["target_agent"])
}

func TestSubmitRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.RequestsPerWindow = 2
		cfg.RateLimit.Window = time.Minute
	})

	for i := 0; i < 2; i++ {
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v2/agent/auth",
			`{"public_key":"pk1","purpose":"test"}`, nil)
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v2/agent/auth",
		strings.NewReader(`{"public_key":"pk1","purpose":"test"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func approvedToken(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	_, body := doJSON(t, http.MethodPost, srv.URL+"/api/v2/agent/auth",
		`{"public_key":"pk-cap","purpose":"capability test"}`, nil)
	id, _ := body["auth_request_id"].(string)
	require.NotEmpty(t, id)

	var token string
	for i := 0; i < 3; i++ {
		_, body = doJSON(t, http.MethodGet, srv.URL+"/api/v2/agent/auth/"+id, "", nil)
		if v, ok := body["access_token"].(string); ok {
			token = v
		}
	}
	require.NotEmpty(t, token)
	return token
}
