package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/pobradovic08/netdash/internal/model"
	"github.com/pobradovic08/netdash/internal/schema"
	"github.com/pobradovic08/netdash/internal/store"
)

// ListAlerts returns alerts newest first.
func (h *APIHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	params, invalid := bindListAlertsParams(r)
	if len(invalid) > 0 {
		model.WriteProblemWithParams(w, http.StatusBadRequest, "Invalid query parameters.", invalid)
		return
	}
	alerts, err := h.store.ListAlerts(r.Context(), params.Filter())
	if err != nil {
		internalError(w, r, "list alerts", err)
		return
	}
	model.WriteJSON(w, http.StatusOK, nonNil(alerts))
}

// ListDeviceAlerts returns the alerts of one device, newest first.
func (h *APIHandler) ListDeviceAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.store.ListAlertsByDevice(r.Context(), r.PathValue("deviceId"))
	if err != nil {
		internalError(w, r, "list device alerts", err)
		return
	}
	model.WriteJSON(w, http.StatusOK, nonNil(alerts))
}

func (h *APIHandler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	var in model.AlertInput
	if !h.decode(w, r, schema.AlertInput, &in) {
		return
	}
	if !h.requireDevice(w, r, in.DeviceID) {
		return
	}
	a, err := h.store.CreateAlert(r.Context(), in)
	if err != nil {
		internalError(w, r, "create alert", err)
		return
	}
	model.WriteJSON(w, http.StatusCreated, a)
}

// AcknowledgeAlert marks an alert as handled by the named operator.
func (h *APIHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var in model.AcknowledgeInput
	if !h.decode(w, r, schema.AcknowledgeInput, &in) {
		return
	}
	by := strings.TrimSpace(in.AcknowledgedBy)
	if by == "" {
		model.WriteProblemWithParams(w, http.StatusBadRequest, "Request body failed validation.",
			[]model.InvalidParam{{Name: "acknowledgedBy", Reason: "must not be blank"}})
		return
	}

	a, err := h.store.AcknowledgeAlert(r.Context(), id, by)
	if errors.Is(err, store.ErrNotFound) {
		model.WriteProblem(w, http.StatusNotFound, "Alert '"+id+"' does not exist.")
		return
	}
	if err != nil {
		internalError(w, r, "acknowledge alert", err)
		return
	}
	model.WriteJSON(w, http.StatusOK, a)
}

func (h *APIHandler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := h.store.DeleteAlert(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		model.WriteProblem(w, http.StatusNotFound, "Alert '"+id+"' does not exist.")
		return
	}
	if err != nil {
		internalError(w, r, "delete alert", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
