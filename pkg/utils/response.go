package utils

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/lloro-ai/lloro/internal/rpc"
)

// RespondJSON writes payload as a JSON body with the given status.
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// RespondError writes a plain {"error": message} body.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// RespondRPCResult writes a JSON-RPC success envelope. RPC-level failures
// always travel in the envelope, so the HTTP status is 200.
func RespondRPCResult(w http.ResponseWriter, id any, result any) {
	raw, err := json.Marshal(result)
	if err != nil {
		RespondRPCError(w, id, rpc.CodeServerError, "failed to encode result")
		return
	}
	RespondJSON(w, http.StatusOK, rpc.Response{JSONRPC: rpc.Version, ID: id, Result: raw})
}

// RespondRPCError writes a JSON-RPC error envelope.
func RespondRPCError(w http.ResponseWriter, id any, code int, message string) {
	RespondJSON(w, http.StatusOK, rpc.Response{
		JSONRPC: rpc.Version,
		ID:      id,
		Error:   &rpc.ErrorObject{Code: code, Message: message},
	})
}
