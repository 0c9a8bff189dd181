// Package ipindex resolves device addresses. It maps host addresses to device
// IDs and classifies addresses into configured subnets, both backed by bart
// prefix tables.
package ipindex

import (
	"fmt"
	"net/netip"
	"sync"

	"github.com/gaissmai/bart"

	"github.com/pobradovic08/netdash/internal/model"
)

// Subnet is a named network prefix used to group devices.
type Subnet struct {
	Name   string
	Prefix netip.Prefix
}

// Index is safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	hosts   *bart.Table[string]
	subnets bart.Table[Subnet]
	count   int
}

// New creates an index with the given subnets.
func New(subnets []Subnet) *Index {
	idx := &Index{hosts: new(bart.Table[string])}
	for _, s := range subnets {
		idx.subnets.Insert(s.Prefix.Masked(), s)
	}
	return idx
}

// ParseSubnet builds a subnet from its textual prefix.
func ParseSubnet(name, prefix string) (Subnet, error) {
	pfx, err := netip.ParsePrefix(prefix)
	if err != nil {
		return Subnet{}, fmt.Errorf("subnet %q: %w", name, err)
	}
	return Subnet{Name: name, Prefix: pfx.Masked()}, nil
}

// hostPrefix turns an address string into a single-host prefix.
func hostPrefix(s string) (netip.Prefix, bool) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, false
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), true
}

// Rebuild replaces the host table with the addresses of devices. When two
// devices share an address the first one wins.
func (idx *Index) Rebuild(devices []model.Device) {
	hosts := new(bart.Table[string])
	n := 0
	for _, d := range devices {
		pfx, ok := hostPrefix(d.IPAddress)
		if !ok {
			continue
		}
		if _, exists := hosts.Get(pfx); exists {
			continue
		}
		hosts.Insert(pfx, d.ID)
		n++
	}

	idx.mu.Lock()
	idx.hosts = hosts
	idx.count = n
	idx.mu.Unlock()
}

// Lookup returns the ID of the device that owns addr.
func (idx *Index) Lookup(addr netip.Addr) (string, bool) {
	addr = addr.Unmap()
	pfx := netip.PrefixFrom(addr, addr.BitLen())

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.hosts.Get(pfx)
}

// LookupString is Lookup for a textual address.
func (idx *Index) LookupString(s string) (string, bool) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return "", false
	}
	return idx.Lookup(addr)
}

// Classify returns the most specific configured subnet containing addr.
func (idx *Index) Classify(addr netip.Addr) (Subnet, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.subnets.Lookup(addr.Unmap())
}

// Len returns the number of indexed device addresses.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.count
}
