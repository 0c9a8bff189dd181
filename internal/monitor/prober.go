package monitor

import (
	"context"
	"net/netip"
)

// Result is the outcome of a single reachability probe. ResponseTime is in
// milliseconds and is nil when the device did not answer.
type Result struct {
	Online       bool
	ResponseTime *int
}

// Prober checks whether a device address answers.
type Prober interface {
	Probe(ctx context.Context, addr string) (Result, error)
}

// SimulatedProber derives a deterministic result from the address so that
// development setups show a stable mix of online and offline devices.
type SimulatedProber struct{}

// Probe reports a device offline when the last IPv4 octet is a multiple of
// ten. Online devices answer in 20 to 69 ms.
func (SimulatedProber) Probe(ctx context.Context, addr string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	octet := lastOctet(addr)
	if octet%10 == 0 {
		return Result{}, nil
	}
	rt := octet%50 + 20
	return Result{Online: true, ResponseTime: &rt}, nil
}

// lastOctet returns the final byte of an IPv4 address, or 0 for anything
// else.
func lastOctet(addr string) int {
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return 0
	}
	ip = ip.Unmap()
	if !ip.Is4() {
		return 0
	}
	b := ip.As4()
	return int(b[3])
}
