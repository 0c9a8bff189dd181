package model

import "time"

// DashboardSummary aggregates inventory and alert counts for the dashboard.
type DashboardSummary struct {
	TotalDevices         int                  `json:"totalDevices"`
	DevicesByStatus      map[DeviceStatus]int `json:"devicesByStatus"`
	DevicesByType        map[DeviceType]int   `json:"devicesByType"`
	TotalPorts           int                  `json:"totalPorts"`
	PortsByStatus        map[PortStatus]int   `json:"portsByStatus"`
	TotalAlerts          int                  `json:"totalAlerts"`
	UnacknowledgedAlerts int                  `json:"unacknowledgedAlerts"`
	CriticalAlerts       int                  `json:"criticalAlerts"`
	MonitoredDevices     int                  `json:"monitoredDevices"`
	OnlineDevices        int                  `json:"onlineDevices"`
	RecentAlerts         []Alert              `json:"recentAlerts"`
}

// LocationGroup lists the devices installed at one location.
type LocationGroup struct {
	Location string   `json:"location"`
	Devices  []Device `json:"devices"`
}

// TopologyNode is a device placed in the topology view.
type TopologyNode struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Type      DeviceType   `json:"type"`
	IPAddress string       `json:"ipAddress"`
	Location  string       `json:"location"`
	Status    DeviceStatus `json:"status"`
	Subnet    *string      `json:"subnet"`
	IsOnline  *bool        `json:"isOnline"`
}

// TopologyEdge links a port on one device to the device it connects to.
type TopologyEdge struct {
	Source     string `json:"source"`
	Target     string `json:"target"`
	PortID     string `json:"portId"`
	PortNumber string `json:"portNumber"`
}

// Topology is the device graph derived from port connections.
type Topology struct {
	Nodes []TopologyNode `json:"nodes"`
	Edges []TopologyEdge `json:"edges"`
	// Unresolved lists ports whose connectedTo matches no device.
	Unresolved []string `json:"unresolved"`
}

// MonitorStatus describes the monitoring loop.
type MonitorStatus struct {
	Running         bool       `json:"running"`
	Mode            string     `json:"mode"`
	IntervalSeconds int        `json:"intervalSeconds"`
	AlertingEnabled bool       `json:"alertingEnabled"`
	Cycles          int64      `json:"cycles"`
	LastCycleAt     *time.Time `json:"lastCycleAt"`
	LastDurationMs  int64      `json:"lastDurationMs"`
	DevicesChecked  int        `json:"devicesChecked"`
	DevicesOnline   int        `json:"devicesOnline"`
	AlertsRaised    int        `json:"alertsRaised"`
}
