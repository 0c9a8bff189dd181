package model

import "time"

type AlertType string

const (
	AlertTypeOffline     AlertType = "offline"
	AlertTypeOnline      AlertType = "online"
	AlertTypeError       AlertType = "error"
	AlertTypeWarning     AlertType = "warning"
	AlertTypeMaintenance AlertType = "maintenance"
	AlertTypePerformance AlertType = "performance"
)

var AlertTypes = []AlertType{
	AlertTypeOffline,
	AlertTypeOnline,
	AlertTypeError,
	AlertTypeWarning,
	AlertTypeMaintenance,
	AlertTypePerformance,
}

// Severity ranks how urgently an alert needs attention.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

var Severities = []Severity{
	SeverityCritical,
	SeverityWarning,
	SeverityInfo,
}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	for _, v := range Severities {
		if s == v {
			return true
		}
	}
	return false
}

// AlertInput holds the fields accepted when creating an alert.
type AlertInput struct {
	DeviceID string    `json:"deviceId"`
	Type     AlertType `json:"type"`
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
}

// Alert is a recorded event about a device.
type Alert struct {
	ID             string     `json:"id"`
	DeviceID       string     `json:"deviceId"`
	Type           AlertType  `json:"type"`
	Message        string     `json:"message"`
	Severity       Severity   `json:"severity"`
	Timestamp      time.Time  `json:"timestamp"`
	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedBy *string    `json:"acknowledgedBy"`
	AcknowledgedAt *time.Time `json:"acknowledgedAt"`
}

// AcknowledgeInput is the body of an acknowledge request.
type AcknowledgeInput struct {
	AcknowledgedBy string `json:"acknowledgedBy"`
}
