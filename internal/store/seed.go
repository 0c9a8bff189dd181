package store

import (
	"context"
	"fmt"

	"github.com/pobradovic08/netdash/internal/model"
)

type seedPort struct {
	device      int
	number      string
	connectedTo string
	speed       string
	description string
}

var seedDevices = []model.DeviceInput{
	{
		Name:        "Main Building Router",
		Type:        model.DeviceTypeRouter,
		Model:       "Cisco ISR 4331",
		IPAddress:   "192.168.1.1",
		MACAddress:  strPtr("00:1A:2B:3C:4D:5E"),
		Location:    "Server Room A",
		Status:      model.DeviceStatusActive,
		Description: strPtr("Primary router for main building network"),
	},
	{
		Name:        "Floor 2 Switch",
		Type:        model.DeviceTypeSwitch,
		Model:       "Cisco Catalyst 2960",
		IPAddress:   "192.168.1.10",
		MACAddress:  strPtr("00:1A:2B:3C:4D:5F"),
		Location:    "Floor 2 Closet",
		Status:      model.DeviceStatusActive,
		Description: strPtr("48-port switch for second floor"),
	},
	{
		Name:        "Library Access Point",
		Type:        model.DeviceTypeAccessPoint,
		Model:       "Ubiquiti UniFi AP",
		IPAddress:   "192.168.1.20",
		Location:    "Library",
		Status:      model.DeviceStatusActive,
		Description: strPtr("WiFi access point for library area"),
	},
}

var seedPorts = []seedPort{
	{device: 0, number: "Gi0/0/0", connectedTo: "ISP Gateway", speed: "1 Gbps", description: "WAN connection"},
	{device: 0, number: "Gi0/0/1", connectedTo: "Floor 2 Switch", speed: "1 Gbps"},
	{device: 1, number: "Gi1/0/1", connectedTo: "Room 201 PC", speed: "1 Gbps"},
	{device: 1, number: "Gi1/0/2", connectedTo: "Room 202 PC", speed: "1 Gbps"},
}

// Seed loads the demo inventory into s.
func Seed(ctx context.Context, s Store) error {
	ids := make([]string, 0, len(seedDevices))
	for _, in := range seedDevices {
		d, err := s.CreateDevice(ctx, in)
		if err != nil {
			return fmt.Errorf("seed device %q: %w", in.Name, err)
		}
		ids = append(ids, d.ID)
	}
	for _, sp := range seedPorts {
		in := model.PortInput{
			DeviceID:    ids[sp.device],
			PortNumber:  sp.number,
			PortType:    model.PortTypeEthernet,
			Status:      model.PortStatusActive,
			ConnectedTo: strPtr(sp.connectedTo),
			Speed:       strPtr(sp.speed),
		}
		if sp.description != "" {
			in.Description = strPtr(sp.description)
		}
		if _, err := s.CreatePort(ctx, in); err != nil {
			return fmt.Errorf("seed port %q: %w", sp.number, err)
		}
	}
	return nil
}

func (s *MemStore) seed() {
	// MemStore writes cannot fail.
	_ = Seed(context.Background(), s)
}

func strPtr(s string) *string { return &s }
