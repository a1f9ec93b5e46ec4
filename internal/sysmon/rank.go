package sysmon

import "sort"

// TopByCPU returns the n busiest processes, highest CPU first. A missing CPU
// value ranks as 0. Ties keep scan order. The input slice is not modified.
func TopByCPU(procs []ProcessSnapshot, n int) []ProcessSnapshot {
	out := make([]ProcessSnapshot, len(procs))
	copy(out, procs)
	sort.SliceStable(out, func(i, j int) bool {
		return cpuOf(out[i]) > cpuOf(out[j])
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func cpuOf(p ProcessSnapshot) float64 {
	if p.CPU == nil {
		return 0
	}
	return *p.CPU
}

// Connection classes used by the UI to colour rows.
const (
	ClassListening   = "listening"
	ClassEstablished = "established"
	ClassTimeWait    = "time-wait"
	ClassOther       = "other"
)

// Kernel connection states as reported by gopsutil.
const (
	StateListen      = "LISTEN"
	StateEstablished = "ESTABLISHED"
	StateTimeWait    = "TIME_WAIT"
)

// Classify maps a kernel connection state to its display class.
func Classify(status string) string {
	switch status {
	case StateListen:
		return ClassListening
	case StateEstablished:
		return ClassEstablished
	case StateTimeWait:
		return ClassTimeWait
	default:
		return ClassOther
	}
}

// LimitConnections sorts by state name and keeps the first n rows.
func LimitConnections(conns []ConnectionSnapshot, n int) []ConnectionSnapshot {
	out := make([]ConnectionSnapshot, len(conns))
	copy(out, conns)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Status < out[j].Status
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
