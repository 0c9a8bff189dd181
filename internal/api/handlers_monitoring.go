package api

import (
	"errors"
	"net/http"

	"github.com/pobradovic08/netdash/internal/model"
	"github.com/pobradovic08/netdash/internal/monitor"
	"github.com/pobradovic08/netdash/internal/schema"
)

func (h *APIHandler) requireMonitor(w http.ResponseWriter) bool {
	if h.monitor == nil {
		model.WriteProblem(w, http.StatusServiceUnavailable, "Monitoring is not configured.")
		return false
	}
	return true
}

func (h *APIHandler) ListAlertRules(w http.ResponseWriter, r *http.Request) {
	if !h.requireMonitor(w) {
		return
	}
	model.WriteJSON(w, http.StatusOK, nonNil(h.monitor.ListRules()))
}

// UpdateAlertRule merges the body into an existing rule.
func (h *APIHandler) UpdateAlertRule(w http.ResponseWriter, r *http.Request) {
	if !h.requireMonitor(w) {
		return
	}
	id := r.PathValue("id")
	var patch model.AlertRulePatch
	if !h.decode(w, r, schema.AlertRulePatch, &patch) {
		return
	}

	rule, err := h.monitor.UpdateRule(id, patch)
	switch {
	case errors.Is(err, monitor.ErrRuleNotFound):
		model.WriteProblem(w, http.StatusNotFound, "Alert rule '"+id+"' does not exist.")
	case errors.Is(err, monitor.ErrInvalidRule):
		model.WriteProblem(w, http.StatusBadRequest, err.Error())
	case err != nil:
		internalError(w, r, "update alert rule", err)
	default:
		model.WriteJSON(w, http.StatusOK, rule)
	}
}

// RunMonitoring schedules an immediate monitoring cycle.
func (h *APIHandler) RunMonitoring(w http.ResponseWriter, r *http.Request) {
	if !h.requireMonitor(w) {
		return
	}
	if err := h.monitor.RunNow(); errors.Is(err, monitor.ErrNotRunning) {
		model.WriteProblem(w, http.StatusConflict, "Monitoring is not running.")
		return
	} else if err != nil {
		internalError(w, r, "trigger monitoring cycle", err)
		return
	}
	model.WriteJSON(w, http.StatusAccepted, h.monitor.Status())
}

func (h *APIHandler) MonitoringStatus(w http.ResponseWriter, r *http.Request) {
	if !h.requireMonitor(w) {
		return
	}
	model.WriteJSON(w, http.StatusOK, h.monitor.Status())
}
