package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/youssefsiam38/flowent-gateway/models"
	"github.com/youssefsiam38/flowent-gateway/utils"
)

type ErrorResponse struct {
	Error      *utils.APIError              `json:"error"`
	Invocation *models.InvokeActionResponse `json:"invocation,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeErrorWithInvocation(w, r, err, nil)
}

// writeErrorWithInvocation maps err to its status code. Errors outside the
// APIError taxonomy are logged and reported as internal.
func writeErrorWithInvocation(w http.ResponseWriter, r *http.Request, err error, invocation *models.InvokeActionResponse) {
	apiErr := utils.AsAPIError(err)
	if apiErr.Kind == utils.KindInternal {
		utils.LogError(r.Context(), err, "Request failed", map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		})
	}
	writeJSON(w, apiErr.Code, ErrorResponse{Error: apiErr, Invocation: invocation})
}

// decodeJSON reads the request body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return utils.ErrInvalidRequest.WithDetails("request body required")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return utils.ErrPayloadTooLarge.WithDetailsf("request body exceeds %d bytes", maxErr.Limit)
		}
		return utils.ErrInvalidRequest.WithDetails("invalid JSON body").Wrap(err)
	}
	return nil
}
