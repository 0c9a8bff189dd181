package api

import (
	"errors"
	"net/http"
	"net/netip"
	"strings"

	"github.com/pobradovic08/netdash/internal/model"
	"github.com/pobradovic08/netdash/internal/schema"
	"github.com/pobradovic08/netdash/internal/store"
)

// ListDevices returns all devices, optionally filtered by type, status and
// location.
func (h *APIHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	params, invalid := bindListDevicesParams(r)
	if len(invalid) > 0 {
		model.WriteProblemWithParams(w, http.StatusBadRequest, "Invalid query parameters.", invalid)
		return
	}

	devices, err := h.store.ListDevices(r.Context())
	if err != nil {
		internalError(w, r, "list devices", err)
		return
	}
	out := make([]model.Device, 0, len(devices))
	for _, d := range devices {
		if params.Match(d) {
			out = append(out, d)
		}
	}
	model.WriteJSON(w, http.StatusOK, out)
}

// GetDevice returns a single device.
func (h *APIHandler) GetDevice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	d, err := h.store.GetDevice(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		model.WriteProblem(w, http.StatusNotFound, "Device '"+id+"' does not exist.")
		return
	}
	if err != nil {
		internalError(w, r, "get device", err)
		return
	}
	model.WriteJSON(w, http.StatusOK, d)
}

// LookupDevice returns the device that owns the address in the ip query
// parameter.
func (h *APIHandler) LookupDevice(w http.ResponseWriter, r *http.Request) {
	params, invalid := bindLookupDeviceParams(r)
	if len(invalid) > 0 {
		model.WriteProblemWithParams(w, http.StatusBadRequest, "Invalid query parameters.", invalid)
		return
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(params.IP))
	if err != nil {
		model.WriteProblemWithParams(w, http.StatusBadRequest, "Invalid query parameters.",
			[]model.InvalidParam{{Name: "ip", Reason: "must be an IPv4 or IPv6 address"}})
		return
	}

	id, ok, err := h.resolveAddress(r, addr)
	if err != nil {
		internalError(w, r, "resolve device address", err)
		return
	}
	if !ok {
		model.WriteProblem(w, http.StatusNotFound, "No device has address "+addr.String()+".")
		return
	}
	d, err := h.store.GetDevice(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		model.WriteProblem(w, http.StatusNotFound, "No device has address "+addr.String()+".")
		return
	}
	if err != nil {
		internalError(w, r, "get device", err)
		return
	}
	model.WriteJSON(w, http.StatusOK, d)
}

// resolveAddress finds the device ID for addr, through the index when one
// is configured.
func (h *APIHandler) resolveAddress(r *http.Request, addr netip.Addr) (string, bool, error) {
	if h.index != nil {
		id, ok := h.index.Lookup(addr)
		return id, ok, nil
	}
	devices, err := h.store.ListDevices(r.Context())
	if err != nil {
		return "", false, err
	}
	for _, d := range devices {
		if a, err := netip.ParseAddr(d.IPAddress); err == nil && a.Unmap() == addr.Unmap() {
			return d.ID, true, nil
		}
	}
	return "", false, nil
}

// CreateDevice validates and stores a new device.
func (h *APIHandler) CreateDevice(w http.ResponseWriter, r *http.Request) {
	var in model.DeviceInput
	if !h.decode(w, r, schema.DeviceInput, &in) {
		return
	}
	d, err := h.store.CreateDevice(r.Context(), in)
	if err != nil {
		internalError(w, r, "create device", err)
		return
	}
	model.WriteJSON(w, http.StatusCreated, d)
}

// UpdateDevice replaces every writable field of a device.
func (h *APIHandler) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var in model.DeviceInput
	if !h.decode(w, r, schema.DeviceInput, &in) {
		return
	}
	d, err := h.store.UpdateDevice(r.Context(), id, in)
	if errors.Is(err, store.ErrNotFound) {
		model.WriteProblem(w, http.StatusNotFound, "Device '"+id+"' does not exist.")
		return
	}
	if err != nil {
		internalError(w, r, "update device", err)
		return
	}
	model.WriteJSON(w, http.StatusOK, d)
}

// DeleteDevice removes a device with its ports and health record.
func (h *APIHandler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := h.store.DeleteDevice(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		model.WriteProblem(w, http.StatusNotFound, "Device '"+id+"' does not exist.")
		return
	}
	if err != nil {
		internalError(w, r, "delete device", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListDevicePorts returns the ports of one device.
func (h *APIHandler) ListDevicePorts(w http.ResponseWriter, r *http.Request) {
	ports, err := h.store.ListPortsByDevice(r.Context(), r.PathValue("id"))
	if err != nil {
		internalError(w, r, "list device ports", err)
		return
	}
	model.WriteJSON(w, http.StatusOK, nonNil(ports))
}
