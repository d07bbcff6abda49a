package api

import (
	"net/http"

	"github.com/youssefsiam38/flowent-gateway/monitoring"
)

type HealthHandler struct {
	checker *monitoring.HealthChecker
}

func CreateHealthHandler(checker *monitoring.HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	report := h.checker.Check(r.Context())

	status := http.StatusOK
	if report.Status != monitoring.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}
