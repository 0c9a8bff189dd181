package model

// DeviceType is the kind of network equipment a device represents.
type DeviceType string

const (
	DeviceTypeRouter      DeviceType = "router"
	DeviceTypeSwitch      DeviceType = "switch"
	DeviceTypeAccessPoint DeviceType = "access-point"
	DeviceTypeServer      DeviceType = "server"
	DeviceTypeFirewall    DeviceType = "firewall"
)

// DeviceTypes lists every accepted device type.
var DeviceTypes = []DeviceType{
	DeviceTypeRouter,
	DeviceTypeSwitch,
	DeviceTypeAccessPoint,
	DeviceTypeServer,
	DeviceTypeFirewall,
}

// DeviceStatus is the administrative status of a device.
type DeviceStatus string

const (
	DeviceStatusActive      DeviceStatus = "active"
	DeviceStatusInactive    DeviceStatus = "inactive"
	DeviceStatusMaintenance DeviceStatus = "maintenance"
	DeviceStatusError       DeviceStatus = "error"
)

// DeviceStatuses lists every accepted device status.
var DeviceStatuses = []DeviceStatus{
	DeviceStatusActive,
	DeviceStatusInactive,
	DeviceStatusMaintenance,
	DeviceStatusError,
}

// DeviceInput holds the client-writable fields of a device.
type DeviceInput struct {
	Name        string       `json:"name"`
	Type        DeviceType   `json:"type"`
	Model       string       `json:"model"`
	IPAddress   string       `json:"ipAddress"`
	MACAddress  *string      `json:"macAddress"`
	Location    string       `json:"location"`
	Status      DeviceStatus `json:"status"`
	Description *string      `json:"description"`
}

// Device is an inventoried piece of network equipment.
type Device struct {
	ID string `json:"id"`
	DeviceInput
}
