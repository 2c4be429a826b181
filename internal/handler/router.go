package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/lloro-ai/lloro/internal/agent"
	rpchandler "github.com/lloro-ai/lloro/internal/handler/rpc"
	middlewarePkg "github.com/lloro-ai/lloro/internal/middleware"
	wire "github.com/lloro-ai/lloro/internal/rpc"
	"github.com/lloro-ai/lloro/pkg/utils"
)

// NewRouter wires the backend's HTTP surface: JSON-RPC on /rpc and the
// health probe on /health.
func NewRouter(a *agent.Wrapper, defaultModel string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	rpcHandler := rpchandler.New(a, defaultModel, logger)
	r.Post("/rpc", rpcHandler.ServeRPC)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, wire.HealthStatus{
			Status: "ok",
			Model:  a.Model(),
			Mode:   a.Mode(),
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}
