package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/pobradovic08/netdash/internal/model"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// AlertFilter narrows an alert listing. Zero values match everything.
type AlertFilter struct {
	DeviceID     string
	Severity     model.Severity
	Acknowledged *bool
	Limit        int
}

// Match reports whether a passes the filter, ignoring Limit.
func (f AlertFilter) Match(a model.Alert) bool {
	if f.DeviceID != "" && a.DeviceID != f.DeviceID {
		return false
	}
	if f.Severity != "" && a.Severity != f.Severity {
		return false
	}
	if f.Acknowledged != nil && a.Acknowledged != *f.Acknowledged {
		return false
	}
	return true
}

// Store is the persistence layer for the inventory. Lookups of missing
// records return ErrNotFound.
type Store interface {
	ListDevices(ctx context.Context) ([]model.Device, error)
	GetDevice(ctx context.Context, id string) (model.Device, error)
	CreateDevice(ctx context.Context, in model.DeviceInput) (model.Device, error)
	UpdateDevice(ctx context.Context, id string, in model.DeviceInput) (model.Device, error)
	// DeleteDevice removes the device together with its ports and health
	// record. Alerts are kept.
	DeleteDevice(ctx context.Context, id string) error

	ListPorts(ctx context.Context) ([]model.Port, error)
	GetPort(ctx context.Context, id string) (model.Port, error)
	ListPortsByDevice(ctx context.Context, deviceID string) ([]model.Port, error)
	CreatePort(ctx context.Context, in model.PortInput) (model.Port, error)
	UpdatePort(ctx context.Context, id string, in model.PortInput) (model.Port, error)
	DeletePort(ctx context.Context, id string) error

	// ListAlerts returns alerts newest first.
	ListAlerts(ctx context.Context, f AlertFilter) ([]model.Alert, error)
	GetAlert(ctx context.Context, id string) (model.Alert, error)
	ListAlertsByDevice(ctx context.Context, deviceID string) ([]model.Alert, error)
	CreateAlert(ctx context.Context, in model.AlertInput) (model.Alert, error)
	AcknowledgeAlert(ctx context.Context, id, by string) (model.Alert, error)
	DeleteAlert(ctx context.Context, id string) error

	GetDeviceHealth(ctx context.Context, deviceID string) (model.DeviceHealth, error)
	ListDeviceHealth(ctx context.Context) ([]model.DeviceHealth, error)
	UpsertDeviceHealth(ctx context.Context, deviceID string, in model.HealthInput) (model.DeviceHealth, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	Close()
}

// sortAlerts orders alerts newest first, breaking ties by ID.
func sortAlerts(alerts []model.Alert) {
	sort.Slice(alerts, func(i, j int) bool {
		if !alerts[i].Timestamp.Equal(alerts[j].Timestamp) {
			return alerts[i].Timestamp.After(alerts[j].Timestamp)
		}
		return alerts[i].ID < alerts[j].ID
	})
}

// normalizeHealth builds the stored health record from an input.
func normalizeHealth(deviceID string, in model.HealthInput, now time.Time) model.DeviceHealth {
	h := model.DeviceHealth{
		DeviceID:            deviceID,
		LastChecked:         &now,
		IsOnline:            in.IsOnline,
		Uptime:              in.Uptime,
		ConsecutiveFailures: in.ConsecutiveFailures,
	}
	if in.ResponseTime != nil {
		v := *in.ResponseTime
		h.ResponseTime = &v
	}
	if in.LastOnline != nil {
		v := in.LastOnline.UTC()
		h.LastOnline = &v
	}
	if in.LastOffline != nil {
		v := in.LastOffline.UTC()
		h.LastOffline = &v
	}
	if h.Uptime < 0 {
		h.Uptime = 0
	}
	if h.ConsecutiveFailures < 0 {
		h.ConsecutiveFailures = 0
	}
	return h
}
