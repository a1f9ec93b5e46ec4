// Package server provides the hostdash Gin-based HTTP surface.
// Routes are split across two engines:
//   - Web (http_port): embedded UI plus the JWT-protected JSON API.
//   - Ops (metrics_port): Prometheus exporter and health check, no auth.
package server

import (
	"time"

	"github.com/vesaa/hostdash/internal/store"
	"github.com/vesaa/hostdash/internal/sysmon"
	"github.com/vesaa/hostdash/internal/terminal"
)

// Options are the tunables the handlers read on every request.
type Options struct {
	JWTSecret string
	TokenTTL  time.Duration

	// HostName is the host whose stored samples feed the chart.
	HostName        string
	ChartPoints     int
	ChartStep       time.Duration
	ProcessLimit    int
	ConnectionLimit int
	StreamInterval  time.Duration
}

// Server holds the collaborators shared by all handlers.
type Server struct {
	opts      Options
	store     *store.Store
	providers *sysmon.Selector
	term      *terminal.Terminal
}

// New creates a Server. Zero-valued options fall back to the dashboard defaults.
func New(opts Options, st *store.Store, providers *sysmon.Selector, term *terminal.Terminal) *Server {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.HostName == "" {
		opts.HostName = "Localhost"
	}
	if opts.ChartPoints <= 0 {
		opts.ChartPoints = 20
	}
	if opts.ChartStep <= 0 {
		opts.ChartStep = 5 * time.Second
	}
	if opts.ProcessLimit <= 0 {
		opts.ProcessLimit = 10
	}
	if opts.ConnectionLimit <= 0 {
		opts.ConnectionLimit = 50
	}
	if opts.StreamInterval <= 0 {
		opts.StreamInterval = 2 * time.Second
	}
	return &Server{opts: opts, store: st, providers: providers, term: term}
}
