package sysmon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	psnet "github.com/shirou/gopsutil/v4/net"
	"github.com/vesaa/hostdash/internal/terminal"
)

// Socket constants as gopsutil reports them (BSD socket values).
const (
	afInet     = 2
	sockStream = 1
)

// Host reads the real machine.
type Host struct {
	procs     ProcessTable
	shell     terminal.Executor
	recorded  Recorded
	selfPID   int32
	diskPath  string
	cpuWindow time.Duration
}

// HostOption customises a Host provider.
type HostOption func(*Host)

// WithCPUWindow makes Sample block for d while measuring CPU. The default 0
// compares against the previous call and returns immediately.
func WithCPUWindow(d time.Duration) HostOption {
	return func(h *Host) { h.cpuWindow = d }
}

// WithProcessTable replaces the OS process boundary.
func WithProcessTable(t ProcessTable) HostOption {
	return func(h *Host) { h.procs = t }
}

// WithShell sets the terminal executor; the default runs commands locally.
func WithShell(ex terminal.Executor) HostOption {
	return func(h *Host) { h.shell = ex }
}

// WithRecorded sets where History reads stored samples from. Without it
// History is empty.
func WithRecorded(r Recorded) HostOption {
	return func(h *Host) { h.recorded = r }
}

// NewHost creates a provider over the local OS.
func NewHost(opts ...HostOption) *Host {
	h := &Host{
		procs:    OSProcesses{},
		shell:    terminal.NewEmulator(terminal.LocalRunner{}, 0),
		selfPID:  int32(os.Getpid()),
		diskPath: rootDisk(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// rootDisk is the filesystem the disk reading describes.
func rootDisk() string {
	if runtime.GOOS == "windows" {
		return `C:\`
	}
	return "/"
}

// Simulated implements Provider.
func (h *Host) Simulated() bool { return false }

// Shell implements Provider.
func (h *Host) Shell() terminal.Executor { return h.shell }

// History implements Provider. The readings come from the recorder; step is
// ignored because stored samples carry their own timestamps.
func (h *Host) History(ctx context.Context, n int, _ time.Duration) ([]Reading, error) {
	if h.recorded == nil || n <= 0 {
		return []Reading{}, nil
	}
	return h.recorded.Recent(ctx, n)
}

// Sample implements Provider.
func (h *Host) Sample(ctx context.Context) (Reading, error) {
	r := Reading{At: time.Now()}

	pcts, err := cpu.PercentWithContext(ctx, h.cpuWindow, false)
	if err != nil {
		return r, fmt.Errorf("cpu: %w", err)
	}
	if len(pcts) > 0 {
		r.CPU = pcts[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return r, fmt.Errorf("memory: %w", err)
	}
	r.RAM = vm.UsedPercent

	du, err := disk.UsageWithContext(ctx, h.diskPath)
	if err != nil {
		return r, fmt.Errorf("disk %s: %w", h.diskPath, err)
	}
	r.Disk = du.UsedPercent

	// Hosts without swap report an error on some platforms; treat as 0%.
	if sw, err := mem.SwapMemoryWithContext(ctx); err == nil {
		r.Swap = sw.UsedPercent
	}
	return r, nil
}

// Processes implements Provider.
func (h *Host) Processes(ctx context.Context) ([]ProcessSnapshot, error) {
	return h.procs.List(ctx)
}

// Terminate implements Provider. The server's own PID is never signalled.
func (h *Host) Terminate(ctx context.Context, pid int32) KillResult {
	if pid == h.selfPID {
		return killResult(pid, KillSelf, "Cannot kill the server!")
	}
	err := h.procs.Terminate(ctx, pid)
	switch {
	case err == nil:
		return killResult(pid, KillTerminated, "Terminated.")
	case errors.Is(err, ErrNoSuchProcess):
		return killResult(pid, KillGone, "Already gone.")
	case errors.Is(err, ErrAccessDenied):
		return killResult(pid, KillDenied, "Access Denied.")
	default:
		return killResult(pid, KillFailed, "Error: "+err.Error())
	}
}

// Interfaces implements Provider. Only IPv4 addresses are listed.
func (h *Host) Interfaces(ctx context.Context) (map[string][]InterfaceAddr, error) {
	ifaces, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing interfaces: %w", err)
	}
	out := make(map[string][]InterfaceAddr, len(ifaces))
	for _, iface := range ifaces {
		addrs := []InterfaceAddr{}
		for _, a := range iface.Addrs {
			if ia, ok := ipv4Addr(a.Addr); ok {
				addrs = append(addrs, ia)
			}
		}
		out[iface.Name] = addrs
	}
	return out, nil
}

// ipv4Addr converts gopsutil's CIDR notation ("192.168.1.5/24") to address + netmask.
func ipv4Addr(cidr string) (InterfaceAddr, bool) {
	ip, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		ip = net.ParseIP(cidr)
		if ip == nil || ip.To4() == nil {
			return InterfaceAddr{}, false
		}
		return InterfaceAddr{Address: ip.String(), Family: "IPv4"}, true
	}
	if ip.To4() == nil {
		return InterfaceAddr{}, false
	}
	mask := net.IP(ipnet.Mask)
	return InterfaceAddr{Address: ip.String(), Netmask: mask.String(), Family: "IPv4"}, true
}

// Connections implements Provider.
func (h *Host) Connections(ctx context.Context) ([]ConnectionSnapshot, error) {
	conns, err := psnet.ConnectionsWithContext(ctx, "inet")
	if err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}
	out := make([]ConnectionSnapshot, 0, len(conns))
	for _, c := range conns {
		out = append(out, connectionSnapshot(c))
	}
	return out, nil
}

func connectionSnapshot(c psnet.ConnectionStat) ConnectionSnapshot {
	cs := ConnectionSnapshot{
		FD:     c.Fd,
		Family: "IPv6",
		Type:   "UDP",
		Local:  net.JoinHostPort(c.Laddr.IP, fmt.Sprint(c.Laddr.Port)),
		Remote: "-",
		Status: c.Status,
		Class:  Classify(c.Status),
		PID:    c.Pid,
	}
	if c.Family == afInet {
		cs.Family = "IPv4"
	}
	if c.Type == sockStream {
		cs.Type = "TCP"
	}
	if c.Raddr.IP != "" {
		cs.Remote = net.JoinHostPort(c.Raddr.IP, fmt.Sprint(c.Raddr.Port))
	}
	return cs
}

// Describe returns "platform version" for the host record, or runtime.GOOS.
func Describe(ctx context.Context) string {
	info, err := host.InfoWithContext(ctx)
	if err == nil && info.Platform != "" {
		if info.PlatformVersion != "" {
			return fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)
		}
		return info.Platform
	}
	return runtime.GOOS
}
