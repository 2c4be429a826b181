package rpc

import "encoding/json"

// Version is the JSON-RPC protocol version spoken on /rpc.
const Version = "2.0"

// JSON-RPC error codes used by the backend.
const (
	CodeParseError     = -32700
	CodeInvalidParams  = -32602
	CodeMethodNotFound = -32601
	CodeServerError    = -32000
)

// Request is the JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is the JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// ErrorObject is the error member of a response.
type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// InitSessionParams selects the model the backend agent should run.
type InitSessionParams struct {
	Model string `json:"model"`
}

// InitSessionResult reports the model and agent mode actually in effect.
type InitSessionResult struct {
	Success bool   `json:"success"`
	Model   string `json:"model"`
	Mode    string `json:"mode"`
}

// ChatParams carries one user turn plus the serialized context bundle
// (empty string when no pinned content is due).
type ChatParams struct {
	Message string `json:"message"`
	Context string `json:"context"`
}

// ChatResult is the assistant's reply.
type ChatResult struct {
	Response string `json:"response"`
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status string `json:"status"`
	Model  string `json:"model,omitempty"`
	Mode   string `json:"mode,omitempty"`
}
