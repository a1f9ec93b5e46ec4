// Package sysmon reads operating-system telemetry for the dashboard.
// It uses gopsutil for cross-platform system telemetry, and offers a synthetic
// stand-in with the same shapes for public demo deployments.
package sysmon

import "time"

// Reading is one instantaneous utilisation snapshot, every field in percent.
type Reading struct {
	CPU  float64   `json:"cpu"`
	RAM  float64   `json:"ram"`
	Disk float64   `json:"disk"`
	Swap float64   `json:"swap"`
	At   time.Time `json:"at"`
}

// ProcessSnapshot describes one live process. CPU is nil when the OS
// would not report it.
type ProcessSnapshot struct {
	PID    int32    `json:"pid"`
	Name   string   `json:"name"`
	User   string   `json:"username"`
	Status string   `json:"status"`
	CPU    *float64 `json:"cpu_percent"`
	Memory float32  `json:"memory_percent"`
}

// InterfaceAddr is one IPv4 address bound to a network interface.
type InterfaceAddr struct {
	Address string `json:"ip"`
	Netmask string `json:"netmask"`
	Family  string `json:"type"`
}

// ConnectionSnapshot is one row of the netstat-style connection table.
type ConnectionSnapshot struct {
	FD     uint32 `json:"fd"`
	Family string `json:"family"`
	Type   string `json:"type"`
	Local  string `json:"laddr"`
	Remote string `json:"raddr"`
	Status string `json:"status"`
	Class  string `json:"class"`
	PID    int32  `json:"pid"`
}

// KillStatus is the outcome category of a terminate request.
type KillStatus string

const (
	KillTerminated KillStatus = "terminated"
	KillGone       KillStatus = "gone"
	KillDenied     KillStatus = "denied"
	KillSelf       KillStatus = "self"
	KillBlocked    KillStatus = "blocked"
	KillFailed     KillStatus = "error"
)

// KillResult is always well-formed; failures are described, never raised.
type KillResult struct {
	PID     int32      `json:"pid"`
	Status  KillStatus `json:"status"`
	Message string     `json:"message"`
}

func killResult(pid int32, status KillStatus, msg string) KillResult {
	return KillResult{PID: pid, Status: status, Message: msg}
}
