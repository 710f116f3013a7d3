// Package api exposes the evaluation pipeline over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ahrav/go-evalflow/internal/application"
	"github.com/ahrav/go-evalflow/internal/domain"
)

// EvaluateRequest is the POST /evaluate payload. Conversation and context
// arrive in whatever shape the upstream retrieval system produced; the
// pipeline normalizes them.
type EvaluateRequest struct {
	Conversation   any    `json:"conversation"`
	ContextVectors any    `json:"context_vectors"`
	ModelType      string `json:"model_type,omitempty"`
	ModelName      string `json:"model_name,omitempty"`
}

// errorResponse is the JSON body for failed requests.
type errorResponse struct {
	Error string `json:"error"`
}

// EvaluateHandler serves the evaluation endpoint.
type EvaluateHandler struct {
	pipeline *application.Pipeline
	logger   *zap.Logger
}

// NewEvaluateHandler creates the handler. A nil logger disables logging.
func NewEvaluateHandler(pipeline *application.Pipeline, logger *zap.Logger) *EvaluateHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvaluateHandler{pipeline: pipeline, logger: logger}
}

// RegisterRoutes registers the evaluation routes on the given mux.
func (h *EvaluateHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /evaluate", h.Evaluate)
	mux.HandleFunc("GET /healthz", h.Health)
}

// Evaluate handles POST /evaluate: it runs the full pipeline and returns
// the report.
func (h *EvaluateHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}

	report, err := h.pipeline.Evaluate(r.Context(), application.EvaluateRequest{
		Conversation: req.Conversation,
		Context:      req.ContextVectors,
		Provider:     req.ModelType,
		Model:        req.ModelName,
	})
	if err != nil {
		h.logger.Warn("evaluation request failed", zap.Error(err))
		h.writeError(w, statusFor(err), err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, report)
}

// Health handles GET /healthz.
func (h *EvaluateHandler) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps pipeline errors to HTTP status codes. Input problems are
// the caller's fault; generation failures are upstream's.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrUnknownModelPricing):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrGenerationFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *EvaluateHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *EvaluateHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Error: message})
}
