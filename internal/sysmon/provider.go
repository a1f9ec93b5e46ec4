package sysmon

import (
	"context"
	"time"

	"github.com/vesaa/hostdash/internal/terminal"
)

// Provider is every OS capability the dashboard consumes. Host talks to the
// real machine; Demo fabricates deterministic data and refuses destructive work.
type Provider interface {
	Sample(ctx context.Context) (Reading, error)
	Processes(ctx context.Context) ([]ProcessSnapshot, error)
	Terminate(ctx context.Context, pid int32) KillResult
	Interfaces(ctx context.Context) (map[string][]InterfaceAddr, error)
	Connections(ctx context.Context) ([]ConnectionSnapshot, error)
	// History returns up to n readings for the usage chart, oldest first.
	// step is the nominal spacing between readings.
	History(ctx context.Context, n int, step time.Duration) ([]Reading, error)
	Shell() terminal.Executor
	Simulated() bool
}

// Recorded is a source of previously stored readings, newest n, oldest first.
type Recorded interface {
	Recent(ctx context.Context, n int) ([]Reading, error)
}

// Selector chooses a Provider per request. DemoMode is consulted on every
// call to Current so the flag can change while the process runs.
type Selector struct {
	Real     Provider
	Demo     Provider
	DemoMode func() bool
}

// Current returns the provider for the present configuration.
func (s *Selector) Current() Provider {
	if s.DemoMode != nil && s.DemoMode() {
		return s.Demo
	}
	return s.Real
}
