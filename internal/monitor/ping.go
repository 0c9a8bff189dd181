package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/netip"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"time"
)

// Output patterns of the system ping utility.
var (
	// Matches reply lines such as:
	//   64 bytes from 10.0.0.1: icmp_seq=1 ttl=64 time=0.412 ms
	//   Reply from 10.0.0.1: bytes=32 time<1ms TTL=128
	replyRe = regexp.MustCompile(`(?i)(bytes from|reply from) `)

	// Matches the round-trip time of a reply. Windows reports sub-millisecond
	// replies as time<1ms.
	rttRe = regexp.MustCompile(`(?i)time[=<]\s*([\d.]+)\s*ms`)
)

// runFunc runs a command and returns its combined output.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// ExecProber probes devices by running the system ping utility once per
// device.
type ExecProber struct {
	binary  string
	timeout time.Duration
	goos    string
	run     runFunc
}

// NewExecProber returns a prober that runs binary with a per-reply timeout.
func NewExecProber(binary string, timeout time.Duration) *ExecProber {
	if binary == "" {
		binary = "ping"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ExecProber{
		binary:  binary,
		timeout: timeout,
		goos:    runtime.GOOS,
		run:     runCommand,
	}
}

// Check verifies that the ping binary can be found.
func (p *ExecProber) Check() error {
	if _, err := exec.LookPath(p.binary); err != nil {
		return fmt.Errorf("ping binary: %w", err)
	}
	return nil
}

// Probe sends one echo request. A failed run means the device is offline; an
// error is only returned for an unusable address or a cancelled context.
func (p *ExecProber) Probe(ctx context.Context, addr string) (Result, error) {
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return Result{}, fmt.Errorf("probe %q: %w", addr, err)
	}

	// Give the utility time to print its output after the reply timeout.
	cmdCtx, cancel := context.WithTimeout(ctx, p.timeout+2*time.Second)
	defer cancel()

	out, err := p.run(cmdCtx, p.binary, buildPingArgs(p.goos, ip.String(), p.timeout)...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) && !errors.Is(err, context.DeadlineExceeded) {
			slog.Warn("ping did not run, reporting device offline",
				"binary", p.binary, "ip", ip.String(), "error", err)
		}
		return Result{}, nil
	}
	return parsePingOutput(out), nil
}

// buildPingArgs constructs the platform-specific arguments for one echo
// request.
func buildPingArgs(goos, dest string, timeout time.Duration) []string {
	switch goos {
	case "windows":
		return []string{"-n", "1", "-w", strconv.FormatInt(timeout.Milliseconds(), 10), dest}
	case "darwin":
		// macOS -W expects milliseconds.
		return []string{"-c", "1", "-W", strconv.FormatInt(timeout.Milliseconds(), 10), dest}
	default:
		// Linux -W expects whole seconds.
		secs := int(math.Ceil(timeout.Seconds()))
		if secs < 1 {
			secs = 1
		}
		return []string{"-c", "1", "-W", strconv.Itoa(secs), dest}
	}
}

// parsePingOutput reports the device online when the output contains a reply
// line. The response time is rounded to whole milliseconds.
func parsePingOutput(out []byte) Result {
	if !replyRe.Match(out) {
		return Result{}
	}
	res := Result{Online: true}
	if m := rttRe.FindSubmatch(out); m != nil {
		if ms, err := strconv.ParseFloat(string(m[1]), 64); err == nil {
			rt := int(math.Round(ms))
			res.ResponseTime = &rt
		}
	}
	return res
}
