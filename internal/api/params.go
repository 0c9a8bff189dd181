package api

import (
	"net/http"
	"slices"

	"github.com/oapi-codegen/runtime"

	"github.com/pobradovic08/netdash/internal/model"
	"github.com/pobradovic08/netdash/internal/store"
)

// ListDevicesParams are the query filters of GET /api/devices.
type ListDevicesParams struct {
	Type     *model.DeviceType
	Status   *model.DeviceStatus
	Location *string
}

// ListAlertsParams are the query filters of GET /api/alerts.
type ListAlertsParams struct {
	DeviceID     *string
	Severity     *model.Severity
	Acknowledged *bool
	Limit        *int
}

// LookupDeviceParams is the query of GET /api/devices/lookup.
type LookupDeviceParams struct {
	IP string
}

func bindListDevicesParams(r *http.Request) (ListDevicesParams, []model.InvalidParam) {
	var p ListDevicesParams
	var invalid []model.InvalidParam
	q := r.URL.Query()

	if err := runtime.BindQueryParameter("form", true, false, "type", q, &p.Type); err != nil {
		invalid = append(invalid, model.InvalidParam{Name: "type", Reason: err.Error()})
	} else if p.Type != nil && !slices.Contains(model.DeviceTypes, *p.Type) {
		invalid = append(invalid, model.InvalidParam{Name: "type", Reason: "unknown device type"})
	}
	if err := runtime.BindQueryParameter("form", true, false, "status", q, &p.Status); err != nil {
		invalid = append(invalid, model.InvalidParam{Name: "status", Reason: err.Error()})
	} else if p.Status != nil && !slices.Contains(model.DeviceStatuses, *p.Status) {
		invalid = append(invalid, model.InvalidParam{Name: "status", Reason: "unknown device status"})
	}
	if err := runtime.BindQueryParameter("form", true, false, "location", q, &p.Location); err != nil {
		invalid = append(invalid, model.InvalidParam{Name: "location", Reason: err.Error()})
	}
	return p, invalid
}

// Match reports whether d passes the filters.
func (p ListDevicesParams) Match(d model.Device) bool {
	if p.Type != nil && d.Type != *p.Type {
		return false
	}
	if p.Status != nil && d.Status != *p.Status {
		return false
	}
	if p.Location != nil && d.Location != *p.Location {
		return false
	}
	return true
}

func bindListAlertsParams(r *http.Request) (ListAlertsParams, []model.InvalidParam) {
	var p ListAlertsParams
	var invalid []model.InvalidParam
	q := r.URL.Query()

	if err := runtime.BindQueryParameter("form", true, false, "deviceId", q, &p.DeviceID); err != nil {
		invalid = append(invalid, model.InvalidParam{Name: "deviceId", Reason: err.Error()})
	}
	if err := runtime.BindQueryParameter("form", true, false, "severity", q, &p.Severity); err != nil {
		invalid = append(invalid, model.InvalidParam{Name: "severity", Reason: err.Error()})
	} else if p.Severity != nil && !p.Severity.Valid() {
		invalid = append(invalid, model.InvalidParam{Name: "severity", Reason: "unknown severity"})
	}
	if err := runtime.BindQueryParameter("form", true, false, "acknowledged", q, &p.Acknowledged); err != nil {
		invalid = append(invalid, model.InvalidParam{Name: "acknowledged", Reason: "must be true or false"})
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &p.Limit); err != nil {
		invalid = append(invalid, model.InvalidParam{Name: "limit", Reason: "must be an integer"})
	} else if p.Limit != nil && *p.Limit < 1 {
		invalid = append(invalid, model.InvalidParam{Name: "limit", Reason: "must be at least 1"})
	}
	return p, invalid
}

// Filter converts the parameters to a store filter.
func (p ListAlertsParams) Filter() store.AlertFilter {
	var f store.AlertFilter
	if p.DeviceID != nil {
		f.DeviceID = *p.DeviceID
	}
	if p.Severity != nil {
		f.Severity = *p.Severity
	}
	f.Acknowledged = p.Acknowledged
	if p.Limit != nil {
		f.Limit = *p.Limit
	}
	return f
}

func bindLookupDeviceParams(r *http.Request) (LookupDeviceParams, []model.InvalidParam) {
	var p LookupDeviceParams
	if err := runtime.BindQueryParameter("form", true, true, "ip", r.URL.Query(), &p.IP); err != nil {
		return p, []model.InvalidParam{{Name: "ip", Reason: err.Error()}}
	}
	return p, nil
}
