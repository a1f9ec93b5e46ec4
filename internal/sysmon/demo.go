package sysmon

import (
	"context"
	"math"
	"time"

	"github.com/vesaa/hostdash/internal/terminal"
)

// Demo serves deterministic synthetic data for public deployments. Readings
// are phase-shifted sinusoids of wall-clock time; everything destructive is refused.
type Demo struct {
	now func() time.Time
}

// NewDemo creates the synthetic provider.
func NewDemo() *Demo {
	return &Demo{now: time.Now}
}

// Simulated implements Provider.
func (d *Demo) Simulated() bool { return true }

// Shell implements Provider.
func (d *Demo) Shell() terminal.Executor { return terminal.Refusal{} }

// Sample implements Provider.
func (d *Demo) Sample(context.Context) (Reading, error) {
	return SyntheticReading(d.now()), nil
}

// History implements Provider with a synthetic series ending now.
func (d *Demo) History(_ context.Context, n int, step time.Duration) ([]Reading, error) {
	return d.Series(n, step, d.now()), nil
}

// Series returns n synthetic readings spaced step apart, oldest first, ending at end.
func (d *Demo) Series(n int, step time.Duration, end time.Time) []Reading {
	out := make([]Reading, 0, n)
	for i := n - 1; i >= 0; i-- {
		out = append(out, SyntheticReading(end.Add(-time.Duration(i)*step)))
	}
	return out
}

// SyntheticReading is the demo waveform at t. Every field stays within 0-100.
func SyntheticReading(t time.Time) Reading {
	s := float64(t.UnixNano()) / float64(time.Second)
	return Reading{
		CPU:  round1(45 + 35*math.Sin(s/10)),
		RAM:  round1(60 + 20*math.Cos(s/15)),
		Disk: round1(40 + 5*math.Sin(s/600+1)),
		Swap: round1(15 + 10*math.Cos(s/30+2)),
		At:   t,
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func pct(v float64) *float64 { return &v }

var demoProcesses = []ProcessSnapshot{
	{PID: 1, Name: "systemd", User: "root", Status: "sleep", CPU: pct(0.1), Memory: 0.3},
	{PID: 412, Name: "postgres", User: "postgres", Status: "sleep", CPU: pct(4.2), Memory: 6.8},
	{PID: 733, Name: "nginx", User: "www-data", Status: "sleep", CPU: pct(1.3), Memory: 0.9},
	{PID: 1024, Name: "hostdash", User: "demo", Status: "running", CPU: pct(2.7), Memory: 1.4},
	{PID: 1310, Name: "redis-server", User: "redis", Status: "sleep", CPU: pct(0.8), Memory: 2.1},
	{PID: 2048, Name: "python3", User: "demo", Status: "running", CPU: pct(12.5), Memory: 4.6},
	{PID: 2211, Name: "sshd", User: "root", Status: "sleep", CPU: nil, Memory: 0.2},
	{PID: 3090, Name: "node", User: "demo", Status: "running", CPU: pct(8.9), Memory: 5.3},
}

// Processes implements Provider.
func (d *Demo) Processes(context.Context) ([]ProcessSnapshot, error) {
	out := make([]ProcessSnapshot, len(demoProcesses))
	copy(out, demoProcesses)
	return out, nil
}

// Terminate implements Provider. Nothing is ever signalled.
func (d *Demo) Terminate(_ context.Context, pid int32) KillResult {
	return killResult(pid, KillBlocked, "Blocked in demo mode.")
}

// Interfaces implements Provider.
func (d *Demo) Interfaces(context.Context) (map[string][]InterfaceAddr, error) {
	return map[string][]InterfaceAddr{
		"lo":   {{Address: "127.0.0.1", Netmask: "255.0.0.0", Family: "IPv4"}},
		"eth0": {{Address: "192.168.1.20", Netmask: "255.255.255.0", Family: "IPv4"}},
		"wg0":  {{Address: "10.8.0.2", Netmask: "255.255.255.0", Family: "IPv4"}},
	}, nil
}

var demoConnections = []ConnectionSnapshot{
	{FD: 3, Family: "IPv4", Type: "TCP", Local: "0.0.0.0:22", Remote: "-", Status: StateListen, PID: 2211},
	{FD: 5, Family: "IPv4", Type: "TCP", Local: "0.0.0.0:80", Remote: "-", Status: StateListen, PID: 733},
	{FD: 6, Family: "IPv4", Type: "TCP", Local: "0.0.0.0:8000", Remote: "-", Status: StateListen, PID: 1024},
	{FD: 7, Family: "IPv4", Type: "TCP", Local: "127.0.0.1:5432", Remote: "-", Status: StateListen, PID: 412},
	{FD: 9, Family: "IPv4", Type: "TCP", Local: "192.168.1.20:22", Remote: "192.168.1.50:51234", Status: StateEstablished, PID: 2211},
	{FD: 11, Family: "IPv4", Type: "TCP", Local: "192.168.1.20:8000", Remote: "192.168.1.77:60211", Status: StateEstablished, PID: 1024},
	{FD: 12, Family: "IPv4", Type: "TCP", Local: "127.0.0.1:41822", Remote: "127.0.0.1:5432", Status: StateEstablished, PID: 1024},
	{FD: 0, Family: "IPv4", Type: "TCP", Local: "192.168.1.20:80", Remote: "203.0.113.9:40112", Status: StateTimeWait, PID: 0},
	{FD: 14, Family: "IPv6", Type: "UDP", Local: "[::]:51820", Remote: "-", Status: "NONE", PID: 0},
}

// Connections implements Provider.
func (d *Demo) Connections(context.Context) ([]ConnectionSnapshot, error) {
	out := make([]ConnectionSnapshot, len(demoConnections))
	for i, c := range demoConnections {
		c.Class = Classify(c.Status)
		out[i] = c
	}
	return out, nil
}
