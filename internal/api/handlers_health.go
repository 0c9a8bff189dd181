package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/pobradovic08/netdash/internal/model"
	"github.com/pobradovic08/netdash/internal/schema"
	"github.com/pobradovic08/netdash/internal/store"
)

func (h *APIHandler) ListDeviceHealth(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListDeviceHealth(r.Context())
	if err != nil {
		internalError(w, r, "list device health", err)
		return
	}
	model.WriteJSON(w, http.StatusOK, nonNil(records))
}

func (h *APIHandler) GetDeviceHealth(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("deviceId")
	rec, err := h.store.GetDeviceHealth(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		model.WriteProblem(w, http.StatusNotFound, "No health record for device '"+id+"'.")
		return
	}
	if err != nil {
		internalError(w, r, "get device health", err)
		return
	}
	model.WriteJSON(w, http.StatusOK, rec)
}

// PutDeviceHealth records a health report for an existing device.
func (h *APIHandler) PutDeviceHealth(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("deviceId")
	var in model.HealthInput
	if !h.decode(w, r, schema.HealthInput, &in) {
		return
	}

	_, err := h.store.GetDevice(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		model.WriteProblem(w, http.StatusNotFound, "Device '"+id+"' does not exist.")
		return
	}
	if err != nil {
		internalError(w, r, "get device", err)
		return
	}

	rec, err := h.store.UpsertDeviceHealth(r.Context(), id, in)
	if errors.Is(err, store.ErrNotFound) {
		model.WriteProblem(w, http.StatusNotFound, "Device '"+id+"' does not exist.")
		return
	}
	if err != nil {
		internalError(w, r, "update device health", err)
		return
	}
	model.WriteJSON(w, http.StatusOK, rec)
}

// ServiceHealth reports whether the store is reachable.
func (h *APIHandler) ServiceHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := model.ServiceHealth{
		Status:        "healthy",
		Store:         h.storeDriver,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	}
	if h.monitor != nil {
		resp.MonitorRunning = h.monitor.Running()
	}

	if err := h.store.Ping(ctx); err != nil {
		resp.Status = "unhealthy"
		model.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	if devices, err := h.store.ListDevices(ctx); err == nil {
		resp.DeviceCount = len(devices)
	}
	model.WriteJSON(w, http.StatusOK, resp)
}
