package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lloro-ai/lloro/internal/middleware"
)

func doCORS(t *testing.T, method, origin string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	reached := false
	h := middleware.CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(method, "/rpc", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, reached
}

func TestCORSAllowsExtensionOrigin(t *testing.T) {
	rec, reached := doCORS(t, http.MethodPost, "chrome-extension://abcdef")
	assert.True(t, reached)
	assert.Equal(t, "chrome-extension://abcdef", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSAllowsLocalhost(t *testing.T) {
	rec, reached := doCORS(t, http.MethodPost, "http://localhost:3000")
	assert.True(t, reached)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWithholdsHeaderForForeignOrigin(t *testing.T) {
	rec, reached := doCORS(t, http.MethodPost, "https://evil.example")
	// The request still runs; the browser enforces the missing header.
	assert.True(t, reached)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	rec, reached := doCORS(t, http.MethodOptions, "chrome-extension://abcdef")
	assert.False(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
}
