package api

import (
	"errors"
	"net/http"

	"github.com/pobradovic08/netdash/internal/model"
	"github.com/pobradovic08/netdash/internal/schema"
	"github.com/pobradovic08/netdash/internal/store"
)

func (h *APIHandler) ListPorts(w http.ResponseWriter, r *http.Request) {
	ports, err := h.store.ListPorts(r.Context())
	if err != nil {
		internalError(w, r, "list ports", err)
		return
	}
	model.WriteJSON(w, http.StatusOK, nonNil(ports))
}

func (h *APIHandler) GetPort(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := h.store.GetPort(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		model.WriteProblem(w, http.StatusNotFound, "Port '"+id+"' does not exist.")
		return
	}
	if err != nil {
		internalError(w, r, "get port", err)
		return
	}
	model.WriteJSON(w, http.StatusOK, p)
}

func (h *APIHandler) CreatePort(w http.ResponseWriter, r *http.Request) {
	var in model.PortInput
	if !h.decode(w, r, schema.PortInput, &in) {
		return
	}
	if !h.requireDevice(w, r, in.DeviceID) {
		return
	}
	p, err := h.store.CreatePort(r.Context(), in)
	if err != nil {
		internalError(w, r, "create port", err)
		return
	}
	model.WriteJSON(w, http.StatusCreated, p)
}

// UpdatePort replaces every writable field of a port.
func (h *APIHandler) UpdatePort(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var in model.PortInput
	if !h.decode(w, r, schema.PortInput, &in) {
		return
	}
	if !h.requireDevice(w, r, in.DeviceID) {
		return
	}
	p, err := h.store.UpdatePort(r.Context(), id, in)
	if errors.Is(err, store.ErrNotFound) {
		model.WriteProblem(w, http.StatusNotFound, "Port '"+id+"' does not exist.")
		return
	}
	if err != nil {
		internalError(w, r, "update port", err)
		return
	}
	model.WriteJSON(w, http.StatusOK, p)
}

func (h *APIHandler) DeletePort(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := h.store.DeletePort(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		model.WriteProblem(w, http.StatusNotFound, "Port '"+id+"' does not exist.")
		return
	}
	if err != nil {
		internalError(w, r, "delete port", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requireDevice writes a 400 naming deviceId when the referenced device does
// not exist.
func (h *APIHandler) requireDevice(w http.ResponseWriter, r *http.Request, deviceID string) bool {
	_, err := h.store.GetDevice(r.Context(), deviceID)
	if errors.Is(err, store.ErrNotFound) {
		model.WriteProblemWithParams(w, http.StatusBadRequest, "Request body failed validation.",
			[]model.InvalidParam{{Name: "deviceId", Reason: "device '" + deviceID + "' does not exist"}})
		return false
	}
	if err != nil {
		internalError(w, r, "get device", err)
		return false
	}
	return true
}
