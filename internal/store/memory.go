package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pobradovic08/netdash/internal/model"
)

// MemStore keeps the inventory in process memory. It is safe for concurrent
// use; records are copied in and out so callers never alias stored values.
type MemStore struct {
	mu      sync.RWMutex
	devices map[string]model.Device
	ports   map[string]model.Port
	alerts  map[string]model.Alert
	health  map[string]model.DeviceHealth

	// insertion order, so listings are stable
	deviceOrder []string
	portOrder   []string

	now   func() time.Time
	newID func() string
}

type memConfig struct {
	now   func() time.Time
	newID func() string
	seed  bool
}

// MemOption configures a MemStore.
type MemOption func(*memConfig)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) MemOption {
	return func(c *memConfig) { c.now = now }
}

// WithIDGenerator overrides the record ID generator.
func WithIDGenerator(fn func() string) MemOption {
	return func(c *memConfig) { c.newID = fn }
}

// WithSeed loads the demo inventory on construction.
func WithSeed() MemOption {
	return func(c *memConfig) { c.seed = true }
}

// NewMemStore creates an in-memory store.
func NewMemStore(opts ...MemOption) *MemStore {
	cfg := memConfig{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &MemStore{
		devices: make(map[string]model.Device),
		ports:   make(map[string]model.Port),
		alerts:  make(map[string]model.Alert),
		health:  make(map[string]model.DeviceHealth),
		now:     cfg.now,
		newID:   cfg.newID,
	}
	if cfg.seed {
		s.seed()
	}
	return s
}

func (s *MemStore) timestamp() time.Time {
	return s.now().UTC()
}

// Devices

func (s *MemStore) ListDevices(_ context.Context) ([]model.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Device, 0, len(s.deviceOrder))
	for _, id := range s.deviceOrder {
		out = append(out, cloneDevice(s.devices[id]))
	}
	return out, nil
}

func (s *MemStore) GetDevice(_ context.Context, id string) (model.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[id]
	if !ok {
		return model.Device{}, ErrNotFound
	}
	return cloneDevice(d), nil
}

func (s *MemStore) CreateDevice(_ context.Context, in model.DeviceInput) (model.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertDevice(in), nil
}

func (s *MemStore) insertDevice(in model.DeviceInput) model.Device {
	d := cloneDevice(model.Device{ID: s.newID(), DeviceInput: in})
	s.devices[d.ID] = d
	s.deviceOrder = append(s.deviceOrder, d.ID)
	return cloneDevice(d)
}

func (s *MemStore) UpdateDevice(_ context.Context, id string, in model.DeviceInput) (model.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[id]; !ok {
		return model.Device{}, ErrNotFound
	}
	d := cloneDevice(model.Device{ID: id, DeviceInput: in})
	s.devices[id] = d
	return cloneDevice(d), nil
}

func (s *MemStore) DeleteDevice(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[id]; !ok {
		return ErrNotFound
	}
	delete(s.devices, id)
	s.deviceOrder = removeID(s.deviceOrder, id)
	for pid, p := range s.ports {
		if p.DeviceID == id {
			delete(s.ports, pid)
			s.portOrder = removeID(s.portOrder, pid)
		}
	}
	delete(s.health, id)
	return nil
}

// Ports

func (s *MemStore) ListPorts(_ context.Context) ([]model.Port, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Port, 0, len(s.portOrder))
	for _, id := range s.portOrder {
		out = append(out, clonePort(s.ports[id]))
	}
	return out, nil
}

func (s *MemStore) GetPort(_ context.Context, id string) (model.Port, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.ports[id]
	if !ok {
		return model.Port{}, ErrNotFound
	}
	return clonePort(p), nil
}

func (s *MemStore) ListPortsByDevice(_ context.Context, deviceID string) ([]model.Port, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Port{}
	for _, id := range s.portOrder {
		if p := s.ports[id]; p.DeviceID == deviceID {
			out = append(out, clonePort(p))
		}
	}
	return out, nil
}

func (s *MemStore) CreatePort(_ context.Context, in model.PortInput) (model.Port, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertPort(in), nil
}

func (s *MemStore) insertPort(in model.PortInput) model.Port {
	p := clonePort(model.Port{ID: s.newID(), PortInput: in})
	s.ports[p.ID] = p
	s.portOrder = append(s.portOrder, p.ID)
	return clonePort(p)
}

func (s *MemStore) UpdatePort(_ context.Context, id string, in model.PortInput) (model.Port, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ports[id]; !ok {
		return model.Port{}, ErrNotFound
	}
	p := clonePort(model.Port{ID: id, PortInput: in})
	s.ports[id] = p
	return clonePort(p), nil
}

func (s *MemStore) DeletePort(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ports[id]; !ok {
		return ErrNotFound
	}
	delete(s.ports, id)
	s.portOrder = removeID(s.portOrder, id)
	return nil
}

// Alerts

func (s *MemStore) ListAlerts(_ context.Context, f AlertFilter) ([]model.Alert, error) {
	s.mu.RLock()
	out := []model.Alert{}
	for _, a := range s.alerts {
		if f.Match(a) {
			out = append(out, cloneAlert(a))
		}
	}
	s.mu.RUnlock()

	sortAlerts(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *MemStore) GetAlert(_ context.Context, id string) (model.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	if !ok {
		return model.Alert{}, ErrNotFound
	}
	return cloneAlert(a), nil
}

func (s *MemStore) ListAlertsByDevice(ctx context.Context, deviceID string) ([]model.Alert, error) {
	return s.ListAlerts(ctx, AlertFilter{DeviceID: deviceID})
}

func (s *MemStore) CreateAlert(_ context.Context, in model.AlertInput) (model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := model.Alert{
		ID:        s.newID(),
		DeviceID:  in.DeviceID,
		Type:      in.Type,
		Message:   in.Message,
		Severity:  in.Severity,
		Timestamp: s.timestamp(),
	}
	s.alerts[a.ID] = a
	return cloneAlert(a), nil
}

func (s *MemStore) AcknowledgeAlert(_ context.Context, id, by string) (model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return model.Alert{}, ErrNotFound
	}
	at := s.timestamp()
	a.Acknowledged = true
	a.AcknowledgedBy = &by
	a.AcknowledgedAt = &at
	s.alerts[id] = a
	return cloneAlert(a), nil
}

func (s *MemStore) DeleteAlert(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[id]; !ok {
		return ErrNotFound
	}
	delete(s.alerts, id)
	return nil
}

// Device health

func (s *MemStore) GetDeviceHealth(_ context.Context, deviceID string) (model.DeviceHealth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.health[deviceID]
	if !ok {
		return model.DeviceHealth{}, ErrNotFound
	}
	return cloneHealth(h), nil
}

func (s *MemStore) ListDeviceHealth(_ context.Context) ([]model.DeviceHealth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.DeviceHealth, 0, len(s.health))
	for _, id := range s.deviceOrder {
		if h, ok := s.health[id]; ok {
			out = append(out, cloneHealth(h))
		}
	}
	return out, nil
}

func (s *MemStore) UpsertDeviceHealth(_ context.Context, deviceID string, in model.HealthInput) (model.DeviceHealth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[deviceID]; !ok {
		return model.DeviceHealth{}, ErrNotFound
	}
	h := normalizeHealth(deviceID, in, s.timestamp())
	s.health[deviceID] = h
	return cloneHealth(h), nil
}

func (s *MemStore) Ping(context.Context) error { return nil }

func (s *MemStore) Close() {}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneDevice(d model.Device) model.Device {
	d.MACAddress = cloneString(d.MACAddress)
	d.Description = cloneString(d.Description)
	return d
}

func clonePort(p model.Port) model.Port {
	p.ConnectedTo = cloneString(p.ConnectedTo)
	p.Speed = cloneString(p.Speed)
	p.Description = cloneString(p.Description)
	return p
}

func cloneAlert(a model.Alert) model.Alert {
	a.AcknowledgedBy = cloneString(a.AcknowledgedBy)
	a.AcknowledgedAt = cloneTime(a.AcknowledgedAt)
	return a
}

func cloneHealth(h model.DeviceHealth) model.DeviceHealth {
	h.LastChecked = cloneTime(h.LastChecked)
	h.LastOnline = cloneTime(h.LastOnline)
	h.LastOffline = cloneTime(h.LastOffline)
	if h.ResponseTime != nil {
		v := *h.ResponseTime
		h.ResponseTime = &v
	}
	return h
}

var _ Store = (*MemStore)(nil)
