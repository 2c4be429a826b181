package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lloro-ai/lloro/internal/agent"
	"github.com/lloro-ai/lloro/internal/handler"
	wire "github.com/lloro-ai/lloro/internal/rpc"
)

func TestHealthEndpoint(t *testing.T) {
	w := agent.NewWrapper("definitely-not-a-real-gemini-binary", nil)
	t.Cleanup(w.Stop)
	require.NoError(t, w.Start("gemini-pro"))

	router := handler.NewRouter(w, "gemini-pro", nil)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status wire.HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "gemini-pro", status.Model)
	assert.Equal(t, "simple", status.Mode)
}

func TestRouterServesRPC(t *testing.T) {
	w := agent.NewWrapper("definitely-not-a-real-gemini-binary", nil)
	t.Cleanup(w.Stop)

	router := handler.NewRouter(w, "gemini-pro", nil)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/rpc", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope wire.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, wire.CodeParseError, envelope.Error.Code)
}

func TestRouterHTTPErrorsAreJSON(t *testing.T) {
	w := agent.NewWrapper("definitely-not-a-real-gemini-binary", nil)
	t.Cleanup(w.Stop)

	router := handler.NewRouter(w, "gemini-pro", nil)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "not found", body["error"])

	resp, err = http.Get(srv.URL + "/rpc")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	body = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "method not allowed", body["error"])
}
