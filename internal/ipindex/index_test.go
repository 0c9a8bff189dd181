package ipindex

import (
	"context"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/pobradovic08/netdash/internal/model"
	"github.com/pobradovic08/netdash/internal/store"
)

func device(id, ip string) model.Device {
	return model.Device{ID: id, DeviceInput: model.DeviceInput{Name: id, IPAddress: ip}}
}

func TestLookup(t *testing.T) {
	idx := New(nil)
	idx.Rebuild([]model.Device{
		device("r1", "192.168.1.1"),
		device("r2", "2001:db8::1"),
		device("dup", "192.168.1.1"),
		device("bad", "not-an-ip"),
	})

	tests := []struct {
		addr   string
		wantID string
		wantOK bool
	}{
		{"192.168.1.1", "r1", true},
		{"::ffff:192.168.1.1", "r1", true},
		{"2001:db8::1", "r2", true},
		{"192.168.1.2", "", false},
		{"garbage", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			id, ok := idx.LookupString(tt.addr)
			if ok != tt.wantOK || id != tt.wantID {
				t.Errorf("LookupString(%q) = %q, %v; want %q, %v", tt.addr, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}

	if idx.Len() != 2 {
		t.Errorf("Len = %d, want 2", idx.Len())
	}
}

func TestClassify(t *testing.T) {
	var subnets []Subnet
	for name, p := range map[string]string{
		"campus":  "192.168.0.0/16",
		"servers": "192.168.1.0/24",
		"v6":      "2001:db8::/32",
	} {
		s, err := ParseSubnet(name, p)
		if err != nil {
			t.Fatalf("ParseSubnet: %v", err)
		}
		subnets = append(subnets, s)
	}
	idx := New(subnets)

	tests := []struct {
		addr   string
		want   string
		wantOK bool
	}{
		{"192.168.1.20", "servers", true},
		{"192.168.7.1", "campus", true},
		{"2001:db8::5", "v6", true},
		{"10.0.0.1", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			s, ok := idx.Classify(netip.MustParseAddr(tt.addr))
			if ok != tt.wantOK || s.Name != tt.want {
				t.Errorf("Classify(%s) = %q, %v; want %q, %v", tt.addr, s.Name, ok, tt.want, tt.wantOK)
			}
		})
	}

	if _, err := ParseSubnet("bad", "10.0.0.0/33"); err == nil {
		t.Error("expected error for invalid prefix")
	}
}

func TestIndexedStoreTracksDeviceWrites(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemStore()
	s, err := NewIndexedStore(ctx, mem, New(nil))
	if err != nil {
		t.Fatalf("NewIndexedStore: %v", err)
	}

	in := model.DeviceInput{Name: "fw", Type: model.DeviceTypeFirewall, Model: "PA-220", IPAddress: "10.1.1.1", Location: "DC", Status: model.DeviceStatusActive}
	d, err := s.CreateDevice(ctx, in)
	if err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}
	if id, ok := s.Index().LookupString("10.1.1.1"); !ok || id != d.ID {
		t.Fatalf("lookup after create = %q, %v", id, ok)
	}

	in.IPAddress = "10.1.1.2"
	if _, err := s.UpdateDevice(ctx, d.ID, in); err != nil {
		t.Fatalf("UpdateDevice: %v", err)
	}
	if _, ok := s.Index().LookupString("10.1.1.1"); ok {
		t.Error("old address should be gone after update")
	}
	if id, _ := s.Index().LookupString("10.1.1.2"); id != d.ID {
		t.Errorf("new address resolves to %q", id)
	}

	if err := s.DeleteDevice(ctx, d.ID); err != nil {
		t.Fatalf("DeleteDevice: %v", err)
	}
	if s.Index().Len() != 0 {
		t.Errorf("index should be empty, has %d", s.Index().Len())
	}
}

// pausingStore holds the first ListDevices call after arm until release is
// closed, having already taken its snapshot.
type pausingStore struct {
	store.Store

	mu       sync.Mutex
	armed    bool
	snapshot chan struct{}
	release  chan struct{}
}

func (p *pausingStore) arm() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.armed = true
	p.snapshot = make(chan struct{})
	p.release = make(chan struct{})
}

func (p *pausingStore) ListDevices(ctx context.Context) ([]model.Device, error) {
	devices, err := p.Store.ListDevices(ctx)
	p.mu.Lock()
	pause := p.armed
	p.armed = false
	p.mu.Unlock()
	if pause {
		close(p.snapshot)
		<-p.release
	}
	return devices, err
}

func TestIndexedStoreConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	ps := &pausingStore{Store: store.NewMemStore()}
	s, err := NewIndexedStore(ctx, ps, New(nil))
	if err != nil {
		t.Fatalf("NewIndexedStore: %v", err)
	}

	input := func(name, ip string) model.DeviceInput {
		return model.DeviceInput{Name: name, Type: model.DeviceTypeRouter, Model: "m", IPAddress: ip, Location: "DC", Status: model.DeviceStatusActive}
	}

	ps.arm()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := s.CreateDevice(ctx, input("a", "10.0.0.1")); err != nil {
			t.Errorf("create a: %v", err)
		}
	}()
	<-ps.snapshot

	go func() {
		defer wg.Done()
		if _, err := s.CreateDevice(ctx, input("b", "10.0.0.2")); err != nil {
			t.Errorf("create b: %v", err)
		}
	}()
	// Give b the chance to finish ahead of a's stale rebuild.
	time.Sleep(50 * time.Millisecond)
	close(ps.release)
	wg.Wait()

	devices, _ := s.ListDevices(ctx)
	if len(devices) != 2 || s.Index().Len() != 2 {
		t.Fatalf("devices = %d, indexed = %d, want 2 and 2", len(devices), s.Index().Len())
	}
	if _, ok := s.Index().LookupString("10.0.0.2"); !ok {
		t.Error("10.0.0.2 should resolve after both creates")
	}
}
