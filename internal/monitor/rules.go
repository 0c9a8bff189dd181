package monitor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pobradovic08/netdash/internal/model"
)

var (
	// ErrRuleNotFound is returned when a rule ID is unknown.
	ErrRuleNotFound = errors.New("alert rule not found")
	// ErrDuplicateRule is returned when adding a rule whose ID is taken.
	ErrDuplicateRule = errors.New("alert rule already exists")
	// ErrInvalidRule wraps every rule validation failure.
	ErrInvalidRule = errors.New("invalid alert rule")
)

// DefaultRules returns the built-in rule set: a critical alert after three
// failed checks and a warning above 500 ms response time.
func DefaultRules() []model.AlertRule {
	offline := true
	failures := 3
	threshold := 500
	return []model.AlertRule{
		{
			ID:      "device-offline",
			Name:    "Device Offline Alert",
			Enabled: true,
			Conditions: model.RuleConditions{
				DeviceOffline:       &offline,
				ConsecutiveFailures: &failures,
			},
			Severity:             model.SeverityCritical,
			NotificationChannels: []string{model.ChannelLog},
		},
		{
			ID:      "high-latency",
			Name:    "High Latency Warning",
			Enabled: true,
			Conditions: model.RuleConditions{
				ResponseTimeThreshold: &threshold,
			},
			Severity:             model.SeverityWarning,
			NotificationChannels: []string{model.ChannelLog},
		},
	}
}

// observation is what one probe cycle learned about a device.
type observation struct {
	Online              bool
	ResponseTime        *int
	ConsecutiveFailures int
}

// firing is an alert a rule wants to raise.
type firing struct {
	Message string
}

// alertType maps a rule severity to the type of the alert it raises.
func alertType(sev model.Severity) model.AlertType {
	if sev == model.SeverityCritical {
		return model.AlertTypeOffline
	}
	return model.AlertTypeWarning
}

// evaluate checks a rule against an observation. When both the offline and
// the latency condition hold, the latency alert wins.
func evaluate(rule model.AlertRule, d model.Device, obs observation) (firing, bool) {
	if !rule.Enabled {
		return firing{}, false
	}

	var f firing
	fired := false

	c := rule.Conditions
	if c.DeviceOffline != nil && *c.DeviceOffline && !obs.Online &&
		c.ConsecutiveFailures != nil && *c.ConsecutiveFailures > 0 &&
		obs.ConsecutiveFailures >= *c.ConsecutiveFailures {
		f = firing{
			Message: fmt.Sprintf("Device %s (%s) has been offline for %d consecutive checks", d.Name, d.IPAddress, obs.ConsecutiveFailures),
		}
		fired = true
	}

	if c.ResponseTimeThreshold != nil && *c.ResponseTimeThreshold > 0 &&
		obs.ResponseTime != nil && *obs.ResponseTime > *c.ResponseTimeThreshold {
		f = firing{
			Message: fmt.Sprintf("Device %s (%s) has high latency: %dms", d.Name, d.IPAddress, *obs.ResponseTime),
		}
		fired = true
	}

	return f, fired
}

// validateRule checks a complete rule.
func validateRule(r model.AlertRule) error {
	var problems []string
	if strings.TrimSpace(r.ID) == "" {
		problems = append(problems, "id is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		problems = append(problems, "name is required")
	}
	if !r.Severity.Valid() {
		problems = append(problems, fmt.Sprintf("unknown severity %q", r.Severity))
	}
	for _, ch := range r.NotificationChannels {
		if !validChannel(ch) {
			problems = append(problems, fmt.Sprintf("unknown notification channel %q", ch))
		}
	}
	c := r.Conditions
	if c.ConsecutiveFailures != nil && *c.ConsecutiveFailures < 1 {
		problems = append(problems, "consecutiveFailures must be at least 1")
	}
	if c.ResponseTimeThreshold != nil && *c.ResponseTimeThreshold < 1 {
		problems = append(problems, "responseTimeThreshold must be at least 1")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRule, strings.Join(problems, "; "))
	}
	return nil
}

func validChannel(ch string) bool {
	switch ch {
	case model.ChannelLog, model.ChannelConsole, model.ChannelWebhook, model.ChannelEmail:
		return true
	}
	return false
}

// applyPatch merges p into r and validates the result.
func applyPatch(r model.AlertRule, p model.AlertRulePatch) (model.AlertRule, error) {
	out := r.Clone()
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Enabled != nil {
		out.Enabled = *p.Enabled
	}
	if p.Conditions != nil {
		out.Conditions = model.AlertRule{Conditions: *p.Conditions}.Clone().Conditions
	}
	if p.Severity != nil {
		out.Severity = *p.Severity
	}
	if p.NotificationChannels != nil {
		out.NotificationChannels = append([]string(nil), p.NotificationChannels...)
	}
	if err := validateRule(out); err != nil {
		return model.AlertRule{}, err
	}
	return out, nil
}
