package api

import (
	"net/http"

	"github.com/pobradovic08/netdash/internal/model"
	"github.com/pobradovic08/netdash/internal/store"
)

func (h *APIHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	devices, err := h.store.ListDevices(ctx)
	if err != nil {
		internalError(w, r, "list devices", err)
		return
	}
	ports, err := h.store.ListPorts(ctx)
	if err != nil {
		internalError(w, r, "list ports", err)
		return
	}
	alerts, err := h.store.ListAlerts(ctx, store.AlertFilter{})
	if err != nil {
		internalError(w, r, "list alerts", err)
		return
	}
	health, err := h.store.ListDeviceHealth(ctx)
	if err != nil {
		internalError(w, r, "list device health", err)
		return
	}
	model.WriteJSON(w, http.StatusOK, BuildDashboard(devices, ports, alerts, health))
}

func (h *APIHandler) Locations(w http.ResponseWriter, r *http.Request) {
	devices, err := h.store.ListDevices(r.Context())
	if err != nil {
		internalError(w, r, "list devices", err)
		return
	}
	model.WriteJSON(w, http.StatusOK, GroupByLocation(devices))
}

func (h *APIHandler) Topology(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	devices, err := h.store.ListDevices(ctx)
	if err != nil {
		internalError(w, r, "list devices", err)
		return
	}
	ports, err := h.store.ListPorts(ctx)
	if err != nil {
		internalError(w, r, "list ports", err)
		return
	}
	health, err := h.store.ListDeviceHealth(ctx)
	if err != nil {
		internalError(w, r, "list device health", err)
		return
	}
	model.WriteJSON(w, http.StatusOK, BuildTopology(devices, ports, health, h.index))
}
