package api

import (
	"net/netip"
	"sort"
	"strings"

	"github.com/pobradovic08/netdash/internal/ipindex"
	"github.com/pobradovic08/netdash/internal/model"
)

const recentAlertCount = 5

// BuildDashboard aggregates the inventory into dashboard counters. alerts
// must be sorted newest first.
func BuildDashboard(devices []model.Device, ports []model.Port, alerts []model.Alert, health []model.DeviceHealth) model.DashboardSummary {
	s := model.DashboardSummary{
		TotalDevices:    len(devices),
		DevicesByStatus: make(map[model.DeviceStatus]int),
		DevicesByType:   make(map[model.DeviceType]int),
		TotalPorts:      len(ports),
		PortsByStatus:   make(map[model.PortStatus]int),
		TotalAlerts:     len(alerts),
		RecentAlerts:    []model.Alert{},
	}
	for _, d := range devices {
		s.DevicesByStatus[d.Status]++
		s.DevicesByType[d.Type]++
	}
	for _, p := range ports {
		s.PortsByStatus[p.Status]++
	}
	for _, a := range alerts {
		if a.Acknowledged {
			continue
		}
		s.UnacknowledgedAlerts++
		if a.Severity == model.SeverityCritical {
			s.CriticalAlerts++
		}
	}

	known := make(map[string]bool, len(devices))
	for _, d := range devices {
		known[d.ID] = true
	}
	for _, h := range health {
		if !known[h.DeviceID] {
			continue
		}
		s.MonitoredDevices++
		if h.IsOnline {
			s.OnlineDevices++
		}
	}

	n := min(len(alerts), recentAlertCount)
	s.RecentAlerts = append(s.RecentAlerts, alerts[:n]...)
	return s
}

// GroupByLocation groups devices by location. Groups are ordered by location
// and devices within a group by name.
func GroupByLocation(devices []model.Device) []model.LocationGroup {
	byLoc := make(map[string][]model.Device)
	for _, d := range devices {
		byLoc[d.Location] = append(byLoc[d.Location], d)
	}

	groups := make([]model.LocationGroup, 0, len(byLoc))
	for loc, ds := range byLoc {
		sort.Slice(ds, func(i, j int) bool {
			if ds[i].Name != ds[j].Name {
				return ds[i].Name < ds[j].Name
			}
			return ds[i].ID < ds[j].ID
		})
		groups = append(groups, model.LocationGroup{Location: loc, Devices: ds})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Location < groups[j].Location })
	return groups
}

// BuildTopology derives the device graph from port connections. A port's
// connectedTo resolves to a device by case-insensitive name, then by IP
// address. idx may be nil, in which case nodes carry no subnet and IPs are
// matched by a scan.
func BuildTopology(devices []model.Device, ports []model.Port, health []model.DeviceHealth, idx *ipindex.Index) model.Topology {
	topo := model.Topology{
		Nodes:      make([]model.TopologyNode, 0, len(devices)),
		Edges:      []model.TopologyEdge{},
		Unresolved: []string{},
	}

	online := make(map[string]bool, len(health))
	for _, h := range health {
		online[h.DeviceID] = h.IsOnline
	}

	byName := make(map[string]string, len(devices))
	byIP := make(map[netip.Addr]string, len(devices))
	known := make(map[string]bool, len(devices))
	for _, d := range devices {
		known[d.ID] = true
		byName[strings.ToLower(d.Name)] = d.ID
		addr, err := netip.ParseAddr(d.IPAddress)
		if err == nil {
			byIP[addr.Unmap()] = d.ID
		}

		node := model.TopologyNode{
			ID:        d.ID,
			Name:      d.Name,
			Type:      d.Type,
			IPAddress: d.IPAddress,
			Location:  d.Location,
			Status:    d.Status,
		}
		if idx != nil && err == nil {
			if sn, ok := idx.Classify(addr); ok {
				name := sn.Name
				node.Subnet = &name
			}
		}
		if v, ok := online[d.ID]; ok {
			node.IsOnline = &v
		}
		topo.Nodes = append(topo.Nodes, node)
	}
	sort.Slice(topo.Nodes, func(i, j int) bool { return topo.Nodes[i].Name < topo.Nodes[j].Name })

	resolve := func(ref string) (string, bool) {
		if id, ok := byName[strings.ToLower(ref)]; ok {
			return id, true
		}
		addr, err := netip.ParseAddr(ref)
		if err != nil {
			return "", false
		}
		if idx != nil {
			if id, ok := idx.Lookup(addr); ok && known[id] {
				return id, true
			}
		}
		id, ok := byIP[addr.Unmap()]
		return id, ok
	}

	for _, p := range ports {
		if p.ConnectedTo == nil {
			continue
		}
		ref := strings.TrimSpace(*p.ConnectedTo)
		if ref == "" || !known[p.DeviceID] {
			continue
		}
		target, ok := resolve(ref)
		if !ok {
			topo.Unresolved = append(topo.Unresolved, p.ID)
			continue
		}
		topo.Edges = append(topo.Edges, model.TopologyEdge{
			Source:     p.DeviceID,
			Target:     target,
			PortID:     p.ID,
			PortNumber: p.PortNumber,
		})
	}
	return topo
}
