// Package monitor runs the periodic device reachability checks and raises
// alerts from the configured rules.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pobradovic08/netdash/internal/model"
	"github.com/pobradovic08/netdash/internal/store"
)

// ErrNotRunning is returned by RunNow when the loop is stopped.
var ErrNotRunning = errors.New("monitor is not running")

// Listener is told about loop progress. Calls happen on the monitor's
// goroutine and must not block.
type Listener interface {
	CycleCompleted(status model.MonitorStatus)
	Stopped()
}

// Options configure a Service.
type Options struct {
	Store    store.Store
	Prober   Prober
	Notifier Notifier
	Metrics  *Metrics
	Logger   *slog.Logger

	Mode        string
	Interval    time.Duration
	Alerting    bool
	DedupWindow time.Duration
	// Rules replaces DefaultRules when non-empty.
	Rules []model.AlertRule

	// Now defaults to time.Now.
	Now func() time.Time
}

// Service is the monitoring loop.
type Service struct {
	store       store.Store
	prober      Prober
	notifier    Notifier
	metrics     *Metrics
	logger      *slog.Logger
	mode        string
	interval    time.Duration
	alerting    bool
	dedupWindow time.Duration
	now         func() time.Time

	rulesMu sync.RWMutex
	rules   []model.AlertRule

	// cycleMu serialises cycles.
	cycleMu sync.Mutex

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	trigger   chan struct{}
	status    model.MonitorStatus
	listeners []Listener
}

// New validates opts and returns a stopped Service.
func New(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("monitor: store is required")
	}
	if opts.Prober == nil {
		return nil, errors.New("monitor: prober is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = 60 * time.Second
	}
	if opts.DedupWindow <= 0 {
		opts.DedupWindow = time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = NewDispatcher("", 0, opts.Logger)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	rules := opts.Rules
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	seen := make(map[string]bool, len(rules))
	owned := make([]model.AlertRule, 0, len(rules))
	for _, r := range rules {
		if err := validateRule(r); err != nil {
			return nil, fmt.Errorf("monitor: rule %q: %w", r.ID, err)
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("monitor: rule %q: %w", r.ID, ErrDuplicateRule)
		}
		seen[r.ID] = true
		owned = append(owned, r.Clone())
	}

	s := &Service{
		store:       opts.Store,
		prober:      opts.Prober,
		notifier:    opts.Notifier,
		metrics:     opts.Metrics,
		logger:      opts.Logger.With("component", "monitor"),
		mode:        opts.Mode,
		interval:    opts.Interval,
		alerting:    opts.Alerting,
		dedupWindow: opts.DedupWindow,
		now:         opts.Now,
		rules:       owned,
		trigger:     make(chan struct{}, 1),
	}
	s.status = model.MonitorStatus{
		Mode:            s.mode,
		IntervalSeconds: int(s.interval / time.Second),
		AlertingEnabled: s.alerting,
	}
	return s, nil
}

// AddListener registers l for loop notifications.
func (s *Service) AddListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Start launches the loop. The first cycle runs immediately to establish
// baseline health, then one runs every interval. Starting a running
// service is a no-op.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.logger.Info("monitoring service already running")
		return
	}

	// A trigger left over from a RunNow that raced the last Stop would
	// otherwise run a second cycle right after the first.
	select {
	case <-s.trigger:
	default:
	}

	ctx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	s.status.Running = true

	s.logger.Info("starting monitoring service", "mode", s.mode, "interval", s.interval, "alerting", s.alerting)
	go s.loop(ctx, s.done)
}

// Stop cancels the loop and waits for an in-flight cycle to finish. It is
// safe to call on a stopped service.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.status.Running = false
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	cancel()
	<-done

	for _, l := range listeners {
		l.Stopped()
	}
	s.logger.Info("monitoring service stopped")
}

// Running reports whether the loop is active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunNow asks the loop for an extra cycle. Requests made while a cycle is
// pending are coalesced into it.
func (s *Service) RunNow() error {
	if !s.Running() {
		return ErrNotRunning
	}
	select {
	case s.trigger <- struct{}{}:
	default:
	}
	return nil
}

// Status returns a snapshot of the loop state.
func (s *Service) Status() model.MonitorStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	if st.LastCycleAt != nil {
		t := *st.LastCycleAt
		st.LastCycleAt = &t
	}
	return st
}

func (s *Service) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	s.RunCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		case <-s.trigger:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle probes every device once. Cycles never overlap: a call made while
// another cycle runs waits for it.
func (s *Service) RunCycle(ctx context.Context) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	start := s.now()
	devices, err := s.store.ListDevices(ctx)
	if err != nil {
		s.logger.Error("list devices for monitoring cycle", "error", err)
		return
	}
	s.logger.Debug("checking devices", "count", len(devices))

	var checked, online, raised int
	for _, d := range devices {
		if ctx.Err() != nil {
			break
		}
		up, n, ok := s.checkDevice(ctx, d)
		if !ok {
			continue
		}
		checked++
		if up {
			online++
		}
		raised += n
	}

	elapsed := s.now().Sub(start)
	s.metrics.observeCycle(elapsed.Seconds(), online)

	s.mu.Lock()
	s.status.Cycles++
	s.status.LastCycleAt = &start
	s.status.LastDurationMs = elapsed.Milliseconds()
	s.status.DevicesChecked = checked
	s.status.DevicesOnline = online
	s.status.AlertsRaised = raised
	st := s.status
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l.CycleCompleted(st)
	}
}

// checkDevice probes one device, records its health and evaluates the
// rules. ok is false when the device could not be checked.
func (s *Service) checkDevice(ctx context.Context, d model.Device) (online bool, raised int, ok bool) {
	log := s.logger.With("device_id", d.ID, "device", d.Name)

	res, err := s.prober.Probe(ctx, d.IPAddress)
	if err != nil {
		s.metrics.observeProbe("error")
		log.Warn("probe failed", "ip", d.IPAddress, "error", err)
		return false, 0, false
	}
	if res.Online {
		s.metrics.observeProbe("online")
	} else {
		s.metrics.observeProbe("offline")
		res.ResponseTime = nil
	}

	var prev *model.DeviceHealth
	if h, err := s.store.GetDeviceHealth(ctx, d.ID); err == nil {
		prev = &h
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Error("read device health", "error", err)
		return false, 0, false
	}

	now := s.now().UTC()
	in := model.HealthInput{
		IsOnline:     res.Online,
		ResponseTime: res.ResponseTime,
	}
	if prev != nil {
		in.LastOnline = prev.LastOnline
		in.LastOffline = prev.LastOffline
	}
	if res.Online {
		in.Uptime = 100
		in.LastOnline = &now
	} else {
		in.LastOffline = &now
		in.ConsecutiveFailures = 1
		if prev != nil {
			in.ConsecutiveFailures = prev.ConsecutiveFailures + 1
		}
	}

	if _, err := s.store.UpsertDeviceHealth(ctx, d.ID, in); errors.Is(err, store.ErrNotFound) {
		log.Debug("device removed during check")
		return res.Online, 0, false
	} else if err != nil {
		log.Error("update device health", "error", err)
		return res.Online, 0, false
	}

	if s.alerting {
		raised = s.evaluateRules(ctx, d, observation{
			Online:              res.Online,
			ResponseTime:        res.ResponseTime,
			ConsecutiveFailures: in.ConsecutiveFailures,
		})
	}
	return res.Online, raised, true
}

func (s *Service) evaluateRules(ctx context.Context, d model.Device, obs observation) int {
	raised := 0
	for _, rule := range s.ListRules() {
		f, fire := evaluate(rule, d, obs)
		if !fire {
			continue
		}
		created, err := s.raiseAlert(ctx, d, rule, f)
		if err != nil {
			s.logger.Error("raise alert", "device_id", d.ID, "rule", rule.ID, "error", err)
			continue
		}
		if created {
			raised++
		}
	}
	return raised
}

// raiseAlert records the alert unless an unacknowledged alert with the same
// message was raised for the device within the dedup window.
func (s *Service) raiseAlert(ctx context.Context, d model.Device, rule model.AlertRule, f firing) (bool, error) {
	existing, err := s.store.ListAlertsByDevice(ctx, d.ID)
	if err != nil {
		return false, fmt.Errorf("list device alerts: %w", err)
	}
	now := s.now()
	for _, a := range existing {
		if !a.Acknowledged && a.Message == f.Message && now.Sub(a.Timestamp) < s.dedupWindow {
			return false, nil
		}
	}

	alert, err := s.store.CreateAlert(ctx, model.AlertInput{
		DeviceID: d.ID,
		Type:     alertType(rule.Severity),
		Message:  f.Message,
		Severity: rule.Severity,
	})
	if err != nil {
		return false, fmt.Errorf("create alert: %w", err)
	}
	s.metrics.incAlert(rule.ID)
	s.notifier.Notify(ctx, alert, rule.NotificationChannels)
	return true, nil
}

// ListRules returns a copy of the current rules.
func (s *Service) ListRules() []model.AlertRule {
	s.rulesMu.RLock()
	defer s.rulesMu.RUnlock()
	out := make([]model.AlertRule, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.Clone()
	}
	return out
}

// UpdateRule merges patch into the rule with the given ID.
func (s *Service) UpdateRule(id string, patch model.AlertRulePatch) (model.AlertRule, error) {
	s.rulesMu.Lock()
	defer s.rulesMu.Unlock()
	for i, r := range s.rules {
		if r.ID != id {
			continue
		}
		updated, err := applyPatch(r, patch)
		if err != nil {
			return model.AlertRule{}, err
		}
		s.rules[i] = updated
		return updated.Clone(), nil
	}
	return model.AlertRule{}, ErrRuleNotFound
}

// AddRule appends a rule. IDs must be unique.
func (s *Service) AddRule(rule model.AlertRule) error {
	if err := validateRule(rule); err != nil {
		return err
	}
	s.rulesMu.Lock()
	defer s.rulesMu.Unlock()
	for _, r := range s.rules {
		if r.ID == rule.ID {
			return ErrDuplicateRule
		}
	}
	s.rules = append(s.rules, rule.Clone())
	return nil
}
