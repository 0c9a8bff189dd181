package model

// Notification channels understood by the monitor. ChannelConsole is the
// legacy name for ChannelLog.
const (
	ChannelLog     = "log"
	ChannelConsole = "console"
	ChannelWebhook = "webhook"
	ChannelEmail   = "email"
)

// RuleConditions are the triggers of an alert rule. Unset fields are ignored.
type RuleConditions struct {
	DeviceOffline         *bool `json:"deviceOffline,omitempty" yaml:"device_offline"`
	ConsecutiveFailures   *int  `json:"consecutiveFailures,omitempty" yaml:"consecutive_failures"`
	ResponseTimeThreshold *int  `json:"responseTimeThreshold,omitempty" yaml:"response_time_threshold"`
}

// AlertRule decides when the monitor raises an alert for a device.
type AlertRule struct {
	ID                   string         `json:"id" yaml:"id"`
	Name                 string         `json:"name" yaml:"name"`
	Enabled              bool           `json:"enabled" yaml:"enabled"`
	Conditions           RuleConditions `json:"conditions" yaml:"conditions"`
	Severity             Severity       `json:"severity" yaml:"severity"`
	NotificationChannels []string       `json:"notificationChannels" yaml:"notification_channels"`
}

// Clone returns a deep copy of the rule.
func (r AlertRule) Clone() AlertRule {
	c := r
	if r.Conditions.DeviceOffline != nil {
		v := *r.Conditions.DeviceOffline
		c.Conditions.DeviceOffline = &v
	}
	if r.Conditions.ConsecutiveFailures != nil {
		v := *r.Conditions.ConsecutiveFailures
		c.Conditions.ConsecutiveFailures = &v
	}
	if r.Conditions.ResponseTimeThreshold != nil {
		v := *r.Conditions.ResponseTimeThreshold
		c.Conditions.ResponseTimeThreshold = &v
	}
	c.NotificationChannels = append([]string(nil), r.NotificationChannels...)
	return c
}

// AlertRulePatch is a partial update of an alert rule. Nil fields are left
// unchanged; Conditions replaces the whole condition set when present.
type AlertRulePatch struct {
	Name                 *string         `json:"name"`
	Enabled              *bool           `json:"enabled"`
	Conditions           *RuleConditions `json:"conditions"`
	Severity             *Severity       `json:"severity"`
	NotificationChannels []string        `json:"notificationChannels"`
}
