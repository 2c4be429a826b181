package rpc

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client speaks JSON-RPC 2.0 against a single backend endpoint. Each call
// is single-shot: retry and backoff, if wanted, belong to the caller.
type Client struct {
	http          *resty.Client
	healthTimeout time.Duration
	logger        *zap.Logger
	nextID        atomic.Int64
}

// NewClient builds a client for the backend at baseURL (for example
// "http://localhost:6363"). healthTimeout bounds the health probe only.
func NewClient(baseURL string, healthTimeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:          resty.New().SetBaseURL(baseURL),
		healthTimeout: healthTimeout,
		logger:        logger,
	}
}

// Call issues one JSON-RPC request and decodes its result into out (which
// may be nil to discard the result). Errors are typed: *TransportError,
// *ProtocolError or *RemoteError.
func (c *Client) Call(ctx context.Context, method string, params, out any) error {
	req := Request{
		JSONRPC: Version,
		ID:      c.nextID.Add(1),
		Method:  method,
	}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return &ProtocolError{Reason: "encode params", Err: err}
		}
		req.Params = raw
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/rpc")
	if err != nil {
		return &TransportError{Err: err}
	}
	if resp.IsError() {
		return &TransportError{Status: resp.StatusCode()}
	}

	var envelope Response
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return &ProtocolError{Reason: "decode response", Err: err}
	}

	if envelope.Error != nil {
		return &RemoteError{Code: envelope.Error.Code, Message: envelope.Error.Message}
	}
	if envelope.Result == nil {
		return &ProtocolError{Reason: "response carried neither result nor error"}
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return &ProtocolError{Reason: "decode result", Err: err}
		}
	}

	c.logger.Debug("rpc call completed", zap.String("method", method))
	return nil
}

// InitSession asks the backend to (re)start its agent with the model.
func (c *Client) InitSession(ctx context.Context, model string) (InitSessionResult, error) {
	var result InitSessionResult
	err := c.Call(ctx, "InitSession", InitSessionParams{Model: model}, &result)
	return result, err
}

// Chat sends one user turn plus its context bundle and returns the reply.
func (c *Client) Chat(ctx context.Context, message, contextBundle string) (string, error) {
	var result ChatResult
	if err := c.Call(ctx, "Chat", ChatParams{Message: message, Context: contextBundle}, &result); err != nil {
		return "", err
	}
	return result.Response, nil
}

// Health is the outcome of a backend probe. A probe never fails the
// caller; unavailability is reported through Alive.
type Health struct {
	Alive bool
	Model string
	Mode  string
}

// HealthCheck probes GET /health within the configured timeout. A backend
// that answers without naming a model still counts as healthy.
func (c *Client) HealthCheck(ctx context.Context) Health {
	probeCtx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	resp, err := c.http.R().SetContext(probeCtx).Get("/health")
	if err != nil || resp.IsError() {
		c.logger.Debug("health probe failed", zap.Error(err))
		return Health{}
	}

	var status HealthStatus
	if err := json.Unmarshal(resp.Body(), &status); err != nil {
		return Health{}
	}

	return Health{Alive: true, Model: status.Model, Mode: status.Mode}
}
