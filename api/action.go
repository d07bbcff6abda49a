package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/youssefsiam38/flowent-gateway/models"
	"github.com/youssefsiam38/flowent-gateway/services"
	"github.com/youssefsiam38/flowent-gateway/utils"
	"github.com/youssefsiam38/flowent-gateway/webhooks"
)

type ActionInvoker interface {
	Invoke(ctx context.Context, tenantID, actionName string, params map[string]interface{}) (*webhooks.Result, error)
}

type ActionHandler struct {
	actionService *services.ActionService
	invoker       ActionInvoker
}

func CreateActionHandler(actionService *services.ActionService, invoker ActionInvoker) *ActionHandler {
	return &ActionHandler{
		actionService: actionService,
		invoker:       invoker,
	}
}

func (h *ActionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateActionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	action, err := h.actionService.Register(r.Context(), tenantFrom(r), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, action)
}

func (h *ActionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	actions, err := h.actionService.List(r.Context(), tenantFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if actions == nil {
		actions = []*models.Action{}
	}

	writeJSON(w, http.StatusOK, models.ActionListResponse{Actions: actions, Total: len(actions)})
}

func (h *ActionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	action, err := h.actionService.Get(r.Context(), tenantFrom(r), mux.Vars(r)["name"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, action)
}

func (h *ActionHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateActionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	action, err := h.actionService.Update(r.Context(), tenantFrom(r), mux.Vars(r)["name"], &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, action)
}

func (h *ActionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.actionService.Delete(r.Context(), tenantFrom(r), mux.Vars(r)["name"]); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleInvoke calls the action's webhook. Webhook failures keep the
// invocation details next to the error.
func (h *ActionHandler) HandleInvoke(w http.ResponseWriter, r *http.Request) {
	var req models.InvokeActionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.invoker.Invoke(r.Context(), tenantFrom(r), mux.Vars(r)["name"], req.Parameters)
	if err != nil {
		var invocation *models.InvokeActionResponse
		if result != nil {
			invocation = invocationResponse(result)
		}
		writeErrorWithInvocation(w, r, err, invocation)
		return
	}

	writeJSON(w, http.StatusOK, invocationResponse(result))
}

func invocationResponse(result *webhooks.Result) *models.InvokeActionResponse {
	return &models.InvokeActionResponse{
		InvocationResponse: result.Response,
		Outcome:            result.Outcome,
		StatusCode:         result.StatusCode,
		DurationMS:         result.Duration.Milliseconds(),
	}
}

func tenantFrom(r *http.Request) string {
	return utils.GetTenantID(r.Context())
}
