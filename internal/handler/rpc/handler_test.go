package rpc_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lloro-ai/lloro/internal/agent"
	handler "github.com/lloro-ai/lloro/internal/handler/rpc"
	wire "github.com/lloro-ai/lloro/internal/rpc"
)

// newHandler wires the RPC surface around a wrapper whose binary does not
// exist, so InitSession degrades to one-shot mode and Chat fails at exec.
func newHandler(t *testing.T) (*handler.Handler, *agent.Wrapper) {
	t.Helper()
	w := agent.NewWrapper("definitely-not-a-real-gemini-binary", nil)
	t.Cleanup(w.Stop)
	return handler.New(w, "gemini-pro", nil), w
}

func postRPC(t *testing.T, h *handler.Handler, body string) wire.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeRPC(rec, req)

	// JSON-RPC errors travel in the envelope, not the HTTP status.
	require.Equal(t, http.StatusOK, rec.Code)

	var resp wire.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, wire.Version, resp.JSONRPC)
	return resp
}

func TestServeRPCParseError(t *testing.T) {
	h, _ := newHandler(t)
	resp := postRPC(t, h, "{not json")
	require.NotNil(t, resp.Error)
	assert.Equal(t, wire.CodeParseError, resp.Error.Code)
}

func TestServeRPCMethodNotFound(t *testing.T) {
	h, _ := newHandler(t)
	resp := postRPC(t, h, `{"jsonrpc":"2.0","id":7,"method":"Nope"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, wire.CodeMethodNotFound, resp.Error.Code)
	assert.Equal(t, float64(7), resp.ID)
}

func TestServeRPCInvalidParams(t *testing.T) {
	h, _ := newHandler(t)
	for _, body := range []string{
		`{"jsonrpc":"2.0","id":1,"method":"InitSession","params":"not an object"}`,
		`{"jsonrpc":"2.0","id":2,"method":"Chat","params":[1,2,3]}`,
	} {
		resp := postRPC(t, h, body)
		require.NotNil(t, resp.Error)
		assert.Equal(t, wire.CodeInvalidParams, resp.Error.Code)
	}
}

func TestServeRPCInitSession(t *testing.T) {
	h, w := newHandler(t)
	resp := postRPC(t, h, `{"jsonrpc":"2.0","id":1,"method":"InitSession","params":{"model":"gemini-custom"}}`)
	require.Nil(t, resp.Error)

	var result wire.InitSessionResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.True(t, result.Success)
	assert.Equal(t, "gemini-custom", result.Model)
	assert.Equal(t, "simple", result.Mode)
	assert.Equal(t, "gemini-custom", w.Model())
}

func TestServeRPCInitSessionDefaultsModel(t *testing.T) {
	h, w := newHandler(t)
	resp := postRPC(t, h, `{"jsonrpc":"2.0","id":1,"method":"InitSession","params":{}}`)
	require.Nil(t, resp.Error)

	var result wire.InitSessionResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, "gemini-pro", result.Model)
	assert.Equal(t, "gemini-pro", w.Model())
}

func TestServeRPCChatAgentFailure(t *testing.T) {
	h, _ := newHandler(t)
	resp := postRPC(t, h, `{"jsonrpc":"2.0","id":3,"method":"Chat","params":{"message":"hi","context":""}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, wire.CodeServerError, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Message)
}
