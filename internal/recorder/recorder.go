// Package recorder implements the background metrics collection loop.
// It periodically samples the local machine and appends the readings to the
// time-series store, independently of HTTP traffic.
package recorder

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/vesaa/hostdash/internal/models"
	"github.com/vesaa/hostdash/internal/sysmon"
)

// Store is the slice of the persistence layer the recorder writes through.
type Store interface {
	EnsureHost(ctx context.Context, name string, defaults models.Host) (*models.Host, error)
	HostByID(ctx context.Context, id uint) (*models.Host, error)
	Append(ctx context.Context, hostID uint, s *models.Sample) error
}

// Sampler takes one reading of the machine.
type Sampler interface {
	Sample(ctx context.Context) (sysmon.Reading, error)
}

// Config tunes the loop.
type Config struct {
	HostName string
	// Defaults seeds the host record when it has to be created.
	Defaults models.Host
	Interval time.Duration
	IdlePoll time.Duration
	// DemoMode pauses persistence while synthetic data is being served.
	DemoMode func() bool
}

// Recorder owns the collection loop for one host.
type Recorder struct {
	cfg     Config
	store   Store
	sampler Sampler
	metrics *Metrics
	hostID  uint
}

// New creates a recorder. metrics may be nil.
func New(cfg Config, store Store, sampler Sampler, metrics *Metrics) *Recorder {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.IdlePoll <= 0 {
		cfg.IdlePoll = 5 * time.Second
	}
	return &Recorder{cfg: cfg, store: store, sampler: sampler, metrics: metrics}
}

// Run ensures the host exists, then samples until ctx is cancelled.
// Individual failures are logged and retried; Run returns only on shutdown.
func (r *Recorder) Run(ctx context.Context) error {
	log.Printf("[recorder] starting metrics collection for %q every %s", r.cfg.HostName, r.cfg.Interval)

	for {
		if err := r.ensureHost(ctx); err == nil {
			break
		} else {
			log.Printf("[recorder] ensure host %q: %v", r.cfg.HostName, err)
		}
		if !sleep(ctx, r.cfg.IdlePoll) {
			return ctx.Err()
		}
	}

	for {
		wait := r.Cycle(ctx)
		if !sleep(ctx, wait) {
			log.Printf("[recorder] stopped")
			return ctx.Err()
		}
	}
}

func (r *Recorder) ensureHost(ctx context.Context) error {
	h, err := r.store.EnsureHost(ctx, r.cfg.HostName, r.cfg.Defaults)
	if err != nil {
		return err
	}
	r.hostID = h.ID
	return nil
}

// Cycle runs one check/sample/persist pass and returns how long to sleep
// before the next one. It never fails; problems are logged and counted.
func (r *Recorder) Cycle(ctx context.Context) time.Duration {
	if r.hostID == 0 {
		if err := r.ensureHost(ctx); err != nil {
			r.fail("ensure host", err)
			return r.cfg.IdlePoll
		}
	}

	h, err := r.store.HostByID(ctx, r.hostID)
	if err != nil {
		r.fail("load host", err)
		r.hostID = 0 // host may have been deleted; recreate next cycle
		return r.cfg.IdlePoll
	}
	if !h.IsActive {
		log.Printf("[recorder] host %s is inactive, skipping cycle", h.Name)
		r.metrics.observe(resultSkipped)
		return r.cfg.IdlePoll
	}
	if r.cfg.DemoMode != nil && r.cfg.DemoMode() {
		r.metrics.observe(resultSkipped)
		return r.cfg.IdlePoll
	}

	reading, err := r.sample(ctx)
	if err != nil {
		r.fail("sample", err)
		return r.cfg.Interval
	}

	s := &models.Sample{
		CPUUsage:  reading.CPU,
		RAMUsage:  reading.RAM,
		DiskUsage: reading.Disk,
	}
	if err := r.store.Append(ctx, r.hostID, s); err != nil {
		r.fail("persist", err)
		return r.cfg.Interval
	}

	r.metrics.record(h.Name, reading)
	r.metrics.observe(resultOK)
	return r.cfg.Interval
}

// sample shields the loop from a panicking sampler.
func (r *Recorder) sample(ctx context.Context) (rd sysmon.Reading, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("sampler panic: %v", p)
		}
	}()
	return r.sampler.Sample(ctx)
}

func (r *Recorder) fail(stage string, err error) {
	log.Printf("[recorder] error collecting metrics (%s): %v", stage, err)
	r.metrics.observe(resultError)
}

// sleep waits for d or until ctx ends, reporting whether to keep going.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
