package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"spendly/internal/services"
)

// MockDBService is a mock implementation of database.Service for testing
type MockDBService struct{}

func (m *MockDBService) Health() map[string]string {
	return map[string]string{"message": "Mock DB is healthy"}
}

func (m *MockDBService) Client() *mongo.Client               { return nil }
func (m *MockDBService) Database() *mongo.Database           { return nil }
func (m *MockDBService) EnsureIndexes(context.Context) error { return nil }
func (m *MockDBService) Close() error                        { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	s := newServer(Config{
		Port:           0,
		SessionKey:     []byte("0123456789abcdef0123456789abcdef"),
		JWTSecret:      []byte("jwt-secret"),
		AllowedOrigins: []string{"http://localhost:5173"},
		SMTP:           services.SMTPConfig{},
	}, &MockDBService{})
	t.Cleanup(s.stopAll)

	ts := httptest.NewServer(s.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestHandler(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"Hello World"}`, string(body))
}

func TestHealthAndMetrics(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "spendly_http_requests_total")
}

func TestProtectedRoutesNeedSession(t *testing.T) {
	server := newTestServer(t)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/expense/getall"},
		{http.MethodPost, "/api/v1/expense/add"},
		{http.MethodPut, "/api/v1/expense/update/64b000000000000000000001"},
		{http.MethodDelete, "/api/v1/expense/remove/64b000000000000000000001"},
		{http.MethodDelete, "/api/v1/expense/removeall"},
		{http.MethodGet, "/api/v1/expense/get/64b000000000000000000001"},
		{http.MethodPut, "/api/v1/expense/64b000000000000000000001/done"},
		{http.MethodPut, "/api/v1/user/password"},
	}
	for _, rt := range routes {
		req, err := http.NewRequest(rt.method, server.URL+rt.path, strings.NewReader(`{}`))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, rt.path)
		assert.JSONEq(t, `{"message":"User not authenticated","success":false}`, string(body), rt.path)
	}
}

func TestPreflight(t *testing.T) {
	server := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/api/v1/expense/add", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestLogoutWithoutSession(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/user/logout")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
