package rpc

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/lloro-ai/lloro/internal/agent"
	wire "github.com/lloro-ai/lloro/internal/rpc"
	"github.com/lloro-ai/lloro/pkg/utils"
)

// Handler dispatches JSON-RPC 2.0 requests to the agent wrapper.
type Handler struct {
	agent        *agent.Wrapper
	defaultModel string
	logger       *zap.Logger
}

// New creates the RPC handler.
func New(a *agent.Wrapper, defaultModel string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{agent: a, defaultModel: defaultModel, logger: logger}
}

// ServeRPC handles POST /rpc.
func (h *Handler) ServeRPC(w http.ResponseWriter, r *http.Request) {
	var req wire.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondRPCError(w, nil, wire.CodeParseError, "Parse error")
		return
	}

	h.logger.Info("rpc request", zap.String("method", req.Method))

	var result any
	var rpcErr *wire.ErrorObject

	switch req.Method {
	case "InitSession":
		var params wire.InitSessionParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			rpcErr = &wire.ErrorObject{Code: wire.CodeInvalidParams, Message: "Invalid params"}
			break
		}
		res, err := h.initSession(params)
		if err != nil {
			rpcErr = &wire.ErrorObject{Code: wire.CodeServerError, Message: err.Error()}
			break
		}
		result = res

	case "Chat":
		var params wire.ChatParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			rpcErr = &wire.ErrorObject{Code: wire.CodeInvalidParams, Message: "Invalid params"}
			break
		}
		res, err := h.chat(params)
		if err != nil {
			rpcErr = &wire.ErrorObject{Code: wire.CodeServerError, Message: err.Error()}
			break
		}
		result = res

	default:
		rpcErr = &wire.ErrorObject{Code: wire.CodeMethodNotFound, Message: "Method not found"}
	}

	if rpcErr != nil {
		utils.RespondRPCError(w, req.ID, rpcErr.Code, rpcErr.Message)
		return
	}
	utils.RespondRPCResult(w, req.ID, result)
}

func (h *Handler) initSession(params wire.InitSessionParams) (*wire.InitSessionResult, error) {
	model := params.Model
	if model == "" {
		model = h.defaultModel
	}

	if err := h.agent.Start(model); err != nil {
		return nil, err
	}

	return &wire.InitSessionResult{
		Success: true,
		Model:   model,
		Mode:    h.agent.Mode(),
	}, nil
}

func (h *Handler) chat(params wire.ChatParams) (*wire.ChatResult, error) {
	h.logger.Info("chat turn",
		zap.Int("messageLen", len(params.Message)),
		zap.Int("contextLen", len(params.Context)))

	if h.agent.Model() == "" {
		h.logger.Info("agent not initialized, starting with default model",
			zap.String("model", h.defaultModel))
		if err := h.agent.Start(h.defaultModel); err != nil {
			return nil, err
		}
	}

	response, err := h.agent.Chat(agent.BuildPrompt(params.Message, params.Context))
	if err != nil {
		return nil, err
	}
	return &wire.ChatResult{Response: response}, nil
}
