package model

type PortType string

const (
	PortTypeEthernet PortType = "ethernet"
	PortTypeFiber    PortType = "fiber"
	PortTypeSFP      PortType = "sfp"
	PortTypeUSB      PortType = "usb"
	PortTypeConsole  PortType = "console"
)

var PortTypes = []PortType{
	PortTypeEthernet,
	PortTypeFiber,
	PortTypeSFP,
	PortTypeUSB,
	PortTypeConsole,
}

type PortStatus string

const (
	PortStatusActive   PortStatus = "active"
	PortStatusInactive PortStatus = "inactive"
	PortStatusError    PortStatus = "error"
)

var PortStatuses = []PortStatus{
	PortStatusActive,
	PortStatusInactive,
	PortStatusError,
}

// PortInput holds the client-writable fields of a port.
type PortInput struct {
	DeviceID    string     `json:"deviceId"`
	PortNumber  string     `json:"portNumber"`
	PortType    PortType   `json:"portType"`
	Status      PortStatus `json:"status"`
	ConnectedTo *string    `json:"connectedTo"`
	Speed       *string    `json:"speed"`
	Description *string    `json:"description"`
}

// Port is a physical or logical interface on a device. ConnectedTo names the
// peer, either by device name or by IP address.
type Port struct {
	ID string `json:"id"`
	PortInput
}
