package model

import "time"

// DeviceHealth is the latest reachability record for a device.
type DeviceHealth struct {
	DeviceID            string     `json:"deviceId"`
	LastChecked         *time.Time `json:"lastChecked"`
	IsOnline            bool       `json:"isOnline"`
	ResponseTime        *int       `json:"responseTime"`
	Uptime              int        `json:"uptime"`
	LastOnline          *time.Time `json:"lastOnline"`
	LastOffline         *time.Time `json:"lastOffline"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
}

// HealthInput holds the writable fields of a health record. LastChecked is
// always stamped by the store.
type HealthInput struct {
	IsOnline            bool       `json:"isOnline"`
	ResponseTime        *int       `json:"responseTime"`
	Uptime              int        `json:"uptime"`
	LastOnline          *time.Time `json:"lastOnline"`
	LastOffline         *time.Time `json:"lastOffline"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
}

// ServiceHealth is the response of the service liveness endpoint.
type ServiceHealth struct {
	Status         string `json:"status"`
	Store          string `json:"store"`
	MonitorRunning bool   `json:"monitorRunning"`
	DeviceCount    int    `json:"deviceCount"`
	UptimeSeconds  int64  `json:"uptimeSeconds"`
}
