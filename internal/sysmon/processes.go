package sysmon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/shirou/gopsutil/v4/process"
)

var (
	// ErrNoSuchProcess means the target exited before it could be signalled.
	ErrNoSuchProcess = errors.New("no such process")
	// ErrAccessDenied means the server's OS user may not signal the target.
	ErrAccessDenied = errors.New("access denied")
)

// ProcessTable is the OS boundary for process work. Host never calls
// gopsutil's process API except through it.
type ProcessTable interface {
	List(ctx context.Context) ([]ProcessSnapshot, error)
	Terminate(ctx context.Context, pid int32) error
}

// OSProcesses is the gopsutil-backed ProcessTable.
type OSProcesses struct{}

// List scans every process. Processes that exit mid-scan are skipped; fields
// the OS refuses to report are left empty (CPU nil) rather than failing the scan.
func (OSProcesses) List(ctx context.Context) ([]ProcessSnapshot, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}

	out := make([]ProcessSnapshot, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue // exited or unreadable
		}
		snap := ProcessSnapshot{PID: p.Pid, Name: name}
		if u, err := p.UsernameWithContext(ctx); err == nil {
			snap.User = u
		}
		if st, err := p.StatusWithContext(ctx); err == nil && len(st) > 0 {
			snap.Status = st[0]
		}
		if c, err := p.CPUPercentWithContext(ctx); err == nil {
			snap.CPU = &c
		}
		if m, err := p.MemoryPercentWithContext(ctx); err == nil {
			snap.Memory = m
		}
		out = append(out, snap)
	}
	return out, nil
}

// Terminate sends the platform's polite termination signal to pid.
func (OSProcesses) Terminate(ctx context.Context, pid int32) error {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return ErrNoSuchProcess
		}
		return err
	}
	if err := p.TerminateWithContext(ctx); err != nil {
		return classifySignalError(err)
	}
	return nil
}

func classifySignalError(err error) error {
	switch {
	case errors.Is(err, os.ErrProcessDone), errors.Is(err, process.ErrorProcessNotRunning), errors.Is(err, syscall.ESRCH):
		return fmt.Errorf("%w: %v", ErrNoSuchProcess, err)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}
	return err
}
