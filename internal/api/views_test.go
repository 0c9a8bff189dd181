package api

import (
	"testing"
	"time"

	"github.com/pobradovic08/netdash/internal/ipindex"
	"github.com/pobradovic08/netdash/internal/model"
)

func device(id, name, ip, location string) model.Device {
	return model.Device{ID: id, DeviceInput: model.DeviceInput{
		Name:      name,
		Type:      model.DeviceTypeSwitch,
		IPAddress: ip,
		Location:  location,
		Status:    model.DeviceStatusActive,
	}}
}

func port(id, deviceID, connectedTo string) model.Port {
	p := model.Port{ID: id, PortInput: model.PortInput{
		DeviceID:   deviceID,
		PortNumber: "p-" + id,
		Status:     model.PortStatusActive,
	}}
	if connectedTo != "" {
		p.ConnectedTo = &connectedTo
	}
	return p
}

func TestBuildDashboard(t *testing.T) {
	devices := []model.Device{
		device("d1", "a", "10.0.0.1", "x"),
		device("d2", "b", "10.0.0.2", "x"),
	}
	devices[1].Status = model.DeviceStatusError
	ports := []model.Port{port("p1", "d1", ""), port("p2", "d1", "")}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var alerts []model.Alert
	for i := 6; i >= 0; i-- {
		a := model.Alert{
			ID:        string(rune('a' + i)),
			DeviceID:  "d1",
			Severity:  model.SeverityWarning,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		alerts = append(alerts, a)
	}
	alerts[0].Severity = model.SeverityCritical
	alerts[1].Severity = model.SeverityCritical
	alerts[1].Acknowledged = true

	health := []model.DeviceHealth{
		{DeviceID: "d1", IsOnline: true},
		{DeviceID: "d2", IsOnline: false},
		{DeviceID: "gone", IsOnline: true},
	}

	s := BuildDashboard(devices, ports, alerts, health)
	if s.TotalDevices != 2 || s.DevicesByStatus[model.DeviceStatusError] != 1 || s.DevicesByType[model.DeviceTypeSwitch] != 2 {
		t.Errorf("device counts: %+v", s)
	}
	if s.TotalPorts != 2 || s.PortsByStatus[model.PortStatusActive] != 2 {
		t.Errorf("port counts: %+v", s)
	}
	if s.TotalAlerts != 7 || s.UnacknowledgedAlerts != 6 || s.CriticalAlerts != 1 {
		t.Errorf("alert counts: total=%d unack=%d critical=%d", s.TotalAlerts, s.UnacknowledgedAlerts, s.CriticalAlerts)
	}
	if s.MonitoredDevices != 2 || s.OnlineDevices != 1 {
		t.Errorf("health counts: monitored=%d online=%d", s.MonitoredDevices, s.OnlineDevices)
	}
	if len(s.RecentAlerts) != 5 || s.RecentAlerts[0].ID != alerts[0].ID {
		t.Errorf("recent alerts: %+v", s.RecentAlerts)
	}
}

func TestBuildDashboardEmpty(t *testing.T) {
	s := BuildDashboard(nil, nil, nil, nil)
	if s.RecentAlerts == nil || len(s.RecentAlerts) != 0 {
		t.Errorf("expected empty recent alerts, got %v", s.RecentAlerts)
	}
}

func TestGroupByLocation(t *testing.T) {
	groups := GroupByLocation([]model.Device{
		device("1", "zeta", "10.0.0.1", "Lab"),
		device("2", "alpha", "10.0.0.2", "Lab"),
		device("3", "core", "10.0.0.3", "Datacenter"),
	})
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Location != "Datacenter" || groups[1].Location != "Lab" {
		t.Errorf("unexpected order: %s, %s", groups[0].Location, groups[1].Location)
	}
	if lab := groups[1].Devices; lab[0].Name != "alpha" || lab[1].Name != "zeta" {
		t.Errorf("devices not sorted by name: %+v", lab)
	}
}

func TestBuildTopology(t *testing.T) {
	devices := []model.Device{
		device("r1", "Edge Router", "10.0.0.1", "dc"),
		device("s1", "Core Switch", "10.0.1.1", "dc"),
		device("s2", "Access Switch", "2001:db8::10", "floor"),
	}
	ports := []model.Port{
		port("p1", "r1", "core switch"),
		port("p2", "s1", "2001:db8::10"),
		port("p3", "s1", "Printer"),
		port("p4", "s2", ""),
		port("p5", "ghost", "Edge Router"),
	}
	health := []model.DeviceHealth{{DeviceID: "r1", IsOnline: true}}

	lan, err := ipindex.ParseSubnet("lan", "10.0.0.0/16")
	if err != nil {
		t.Fatal(err)
	}
	idx := ipindex.New([]ipindex.Subnet{lan})
	idx.Rebuild(devices)

	for _, tc := range []struct {
		name string
		idx  *ipindex.Index
	}{
		{"indexed", idx},
		{"scan", nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			topo := BuildTopology(devices, ports, health, tc.idx)
			if len(topo.Nodes) != 3 {
				t.Fatalf("expected 3 nodes, got %d", len(topo.Nodes))
			}
			if len(topo.Edges) != 2 {
				t.Fatalf("expected 2 edges, got %+v", topo.Edges)
			}
			if e := topo.Edges[0]; e.Source != "r1" || e.Target != "s1" || e.PortID != "p1" {
				t.Errorf("name edge: %+v", e)
			}
			if e := topo.Edges[1]; e.Source != "s1" || e.Target != "s2" {
				t.Errorf("address edge: %+v", e)
			}
			if len(topo.Unresolved) != 1 || topo.Unresolved[0] != "p3" {
				t.Errorf("unresolved: %v", topo.Unresolved)
			}

			byID := make(map[string]model.TopologyNode)
			for _, n := range topo.Nodes {
				byID[n.ID] = n
			}
			if n := byID["r1"]; n.IsOnline == nil || !*n.IsOnline {
				t.Error("r1 should be online")
			}
			if n := byID["s1"]; n.IsOnline != nil {
				t.Error("s1 has no health record")
			}
			if tc.idx != nil {
				if n := byID["r1"]; n.Subnet == nil || *n.Subnet != "lan" {
					t.Error("r1 should be in lan")
				}
				if n := byID["s2"]; n.Subnet != nil {
					t.Error("s2 matches no subnet")
				}
			}
		})
	}
}
