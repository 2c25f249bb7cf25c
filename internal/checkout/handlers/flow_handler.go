package handlers

import (
	"context"
	"net/http"
	apperrors "transferly/pkg/errors"
	httputil "transferly/pkg/http"
	"transferly/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

// FlowService is satisfied by service.CheckoutService.
type FlowService interface {
	ExecuteFlow(ctx context.Context, flowName string, input map[string]any) (map[string]any, error)
	GetAvailableFlows() []string
}

type FlowHandler struct {
	service FlowService
	log     *logger.Logger
}

func NewFlowHandler(service FlowService, log *logger.Logger) *FlowHandler {
	return &FlowHandler{
		service: service,
		log:     log,
	}
}

type ExecuteFlowRequest struct {
	Flow  string         `json:"flow"`
	Input map[string]any `json:"input"`
}

type ListFlowsResponse struct {
	Flows []string `json:"flows"`
}

func (h *FlowHandler) ExecuteFlow(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req ExecuteFlowRequest
	if err := httputil.DecodeJSONBody(r, &req); err != nil {
		h.log.Warn("failed to decode flow request", "error", err)
		httputil.WriteError(w, err)
		return
	}

	if req.Flow == "" {
		httputil.WriteError(w, apperrors.InvalidInput("flow name is required"))
		return
	}
	if req.Input == nil {
		req.Input = make(map[string]any)
	}

	h.log.Info("executing flow", "flow", req.Flow)

	output, err := h.service.ExecuteFlow(r.Context(), req.Flow, req.Input)
	if err != nil {
		appErr := apperrors.AsAppError(err)
		if appErr.StatusCode() >= http.StatusInternalServerError {
			h.log.Error("flow execution failed", "flow", req.Flow, "error", err)
		} else {
			h.log.Info("flow rejected", "flow", req.Flow, "code", appErr.Code, "error", err)
		}
		httputil.WriteError(w, err)
		return
	}

	if err := httputil.WriteSuccess(w, output); err != nil {
		h.log.Error("failed to encode response", "error", err)
	}
}

func (h *FlowHandler) ListFlows(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	resp := ListFlowsResponse{
		Flows: h.service.GetAvailableFlows(),
	}
	if err := httputil.WriteSuccess(w, resp); err != nil {
		h.log.Error("failed to encode response", "error", err)
	}
}

func (h *FlowHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/checkout/execute", h.ExecuteFlow)
	router.GET("/api/v1/checkout/flows", h.ListFlows)
}
