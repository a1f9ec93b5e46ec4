// hostdash: single-host monitoring dashboard with a web terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/vesaa/hostdash/internal/config"
	"github.com/vesaa/hostdash/internal/models"
	"github.com/vesaa/hostdash/internal/recorder"
	"github.com/vesaa/hostdash/internal/server"
	"github.com/vesaa/hostdash/internal/store"
	"github.com/vesaa/hostdash/internal/sysmon"
	"github.com/vesaa/hostdash/internal/terminal"
)

const asciiLogo = `
 ██╗  ██╗ ██████╗ ███████╗████████╗██████╗  █████╗ ███████╗██╗  ██╗
 ██║  ██║██╔═══██╗██╔════╝╚══██╔══╝██╔══██╗██╔══██╗██╔════╝██║  ██║
 ███████║██║   ██║███████╗   ██║   ██║  ██║███████║███████╗███████║
 ██╔══██║██║   ██║╚════██║   ██║   ██║  ██║██╔══██║╚════██║██╔══██║
 ██║  ██║╚██████╔╝███████║   ██║   ██████╔╝██║  ██║███████║██║  ██║
 ╚═╝  ╚═╝ ╚═════╝ ╚══════╝   ╚═╝   ╚═════╝ ╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝
`

const version = "v0.1.0"

func printBanner(mode string) {
	fmt.Print(asciiLogo + "\n")
	fmt.Printf("  ► hostdash %s  |  Mode: %s\n\n", version, mode)
}

func main() {
	root := &cobra.Command{
		Use:   "hostdash",
		Short: "hostdash — host monitoring dashboard with a web terminal",
		Long: `hostdash samples CPU, RAM, disk and swap usage, records a time series,
and serves a web dashboard with process, network and terminal views.`,
		SilenceUsage: true,
	}

	// ── serve subcommand ──────────────────────────────────────────────────────
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web dashboard (and the metrics recorder)",
		RunE: func(cmd *cobra.Command, args []string) error {
			printBanner("SERVE")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if demo, _ := cmd.Flags().GetBool("demo"); demo {
				cfg.SetDemoMode(true)
			}
			noRecorder, _ := cmd.Flags().GetBool("no-recorder")
			return serve(cfg, !noRecorder)
		},
	}
	serveCmd.Flags().Bool("no-recorder", false, "Do not start the background metrics recorder")
	serveCmd.Flags().Bool("demo", false, "Serve synthetic data and refuse destructive actions")

	// ── collect subcommand ────────────────────────────────────────────────────
	collectCmd := &cobra.Command{
		Use:   "collect",
		Short: "Run only the metrics recorder",
		RunE: func(cmd *cobra.Command, args []string) error {
			printBanner("COLLECT")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			st, err := store.Open(cfg.DBDriver, cfg.DBPath)
			if err != nil {
				return fmt.Errorf("initializing database: %w", err)
			}
			defer st.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rec := newRecorder(ctx, cfg, st, nil)
			fmt.Printf("  ✓ Recording %q every %ds (Ctrl+C to stop)\n\n", cfg.HostName, cfg.CollectInterval)
			if err := rec.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	// ── createuser subcommand ─────────────────────────────────────────────────
	createUserCmd := &cobra.Command{
		Use:   "createuser",
		Short: "Create a dashboard account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			superuser, _ := cmd.Flags().GetBool("superuser")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			st, err := store.Open(cfg.DBDriver, cfg.DBPath)
			if err != nil {
				return fmt.Errorf("initializing database: %w", err)
			}
			defer st.Close()

			u, err := st.CreateUser(cmd.Context(), username, password, superuser)
			if err != nil {
				return err
			}
			fmt.Printf("  ✓ Created user %s (superuser=%v)\n", u.Username, u.IsSuperuser)
			return nil
		},
	}
	createUserCmd.Flags().String("username", "", "Account name")
	createUserCmd.Flags().String("password", "", "Account password")
	createUserCmd.Flags().Bool("superuser", false, "Allow process termination and terminal access")
	_ = createUserCmd.MarkFlagRequired("username")
	_ = createUserCmd.MarkFlagRequired("password")

	// ── version subcommand ────────────────────────────────────────────────────
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print hostdash version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hostdash %s\n", version)
		},
	}

	root.AddCommand(serveCmd, collectCmd, createUserCmd, versionCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(cfg *config.Config, withRecorder bool) error {
	st, err := store.Open(cfg.DBDriver, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, created, err := st.EnsureUser(ctx, cfg.AdminUser, cfg.AdminPass, true); err != nil {
		return fmt.Errorf("ensuring admin user: %w", err)
	} else if created {
		log.Printf("[db] created superuser %q", cfg.AdminUser)
	}

	shell, closeShell, err := terminalExecutor(cfg)
	if err != nil {
		return err
	}
	defer closeShell()

	providers := &sysmon.Selector{
		Real: sysmon.NewHost(
			sysmon.WithShell(shell),
			sysmon.WithRecorded(recorder.History{Store: st, HostName: cfg.HostName}),
		),
		Demo:     sysmon.NewDemo(),
		DemoMode: cfg.DemoMode,
	}
	sessions := terminal.NewSessions(time.Duration(cfg.SessionTTLHours) * time.Hour)
	srv := server.New(server.Options{
		JWTSecret:       cfg.JWTSecret,
		TokenTTL:        time.Duration(cfg.SessionTTLHours) * time.Hour,
		HostName:        cfg.HostName,
		ChartPoints:     cfg.ChartPoints,
		ChartStep:       config.Seconds(cfg.CollectInterval, 5*time.Second),
		ProcessLimit:    cfg.ProcessLimit,
		ConnectionLimit: cfg.ConnectionLimit,
		StreamInterval:  config.Seconds(cfg.StreamInterval, 2*time.Second),
	}, st, providers, terminal.New(sessions))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	gin.SetMode(gin.ReleaseMode)

	// ── Web engine (UI + JSON API) ────────────────────────────────────────────
	webEngine := gin.New()
	webEngine.Use(gin.Recovery(), server.CORS(), server.RequestMetrics(reg))
	srv.RegisterRoutes(webEngine)
	server.RegisterStaticFiles(webEngine)

	webAddr := fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.HTTPPort)
	fmt.Printf("  ✓ Dashboard (Web UI + JWT API) → http://%s\n", webAddr)

	servers := []*http.Server{{Addr: webAddr, Handler: webEngine}}

	// ── Ops engine (Prometheus + health) ──────────────────────────────────────
	if cfg.MetricsPort > 0 {
		opsEngine := gin.New()
		opsEngine.Use(gin.Recovery())
		server.RegisterOpsRoutes(opsEngine, reg)
		opsAddr := fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.MetricsPort)
		fmt.Printf("  ✓ Ops (Prometheus /metrics)    → http://%s\n", opsAddr)
		servers = append(servers, &http.Server{Addr: opsAddr, Handler: opsEngine})
	}
	fmt.Printf("  ✓ Default login: %s / %s\n", cfg.AdminUser, cfg.AdminPass)
	if cfg.DemoMode() {
		fmt.Println("  ✓ Demo mode: synthetic data, terminal and kill disabled")
	}
	fmt.Println()

	if withRecorder {
		rec := newRecorder(ctx, cfg, st, recorder.NewMetrics(reg))
		go func() { _ = rec.Run(ctx) }()
	}

	// Run all servers concurrently; shut down gracefully on SIGINT/SIGTERM.
	errCh := make(chan error, len(servers))
	for _, s := range servers {
		go func(s *http.Server) { errCh <- s.ListenAndServe() }(s)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		fmt.Println("\n  → Shutting down gracefully…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, s := range servers {
			_ = s.Shutdown(shutdownCtx)
		}
		return nil
	}
}

func newRecorder(ctx context.Context, cfg *config.Config, st *store.Store, m *recorder.Metrics) *recorder.Recorder {
	window := time.Duration(cfg.CPUWindowMillis) * time.Millisecond
	return recorder.New(recorder.Config{
		HostName: cfg.HostName,
		Defaults: models.Host{
			IPAddress: "127.0.0.1",
			OSInfo:    sysmon.Describe(ctx),
			IsActive:  true,
		},
		Interval: config.Seconds(cfg.CollectInterval, 5*time.Second),
		IdlePoll: config.Seconds(cfg.IdlePoll, 5*time.Second),
		DemoMode: cfg.DemoMode,
	}, st, sysmon.NewHost(sysmon.WithCPUWindow(window)), m)
}

// terminalExecutor picks the shell behind the web terminal: a remote host
// over SSH when one is configured, otherwise the local machine.
func terminalExecutor(cfg *config.Config) (terminal.Executor, func(), error) {
	timeout := config.Seconds(cfg.TerminalTimeout, 0)
	if cfg.SSHHost == "" {
		return terminal.NewEmulator(terminal.LocalRunner{}, timeout), func() {}, nil
	}

	var keyPEM string
	if cfg.SSHKeyPath != "" {
		b, err := os.ReadFile(cfg.SSHKeyPath)
		if err != nil {
			return nil, nil, fmt.Errorf("reading SSH key: %w", err)
		}
		keyPEM = string(b)
	}
	runner, err := terminal.DialSSH(cfg.SSHHost, cfg.SSHUser, cfg.SSHPassword, keyPEM)
	if err != nil {
		return nil, nil, err
	}
	fmt.Printf("  ✓ Terminal target: %s@%s\n", cfg.SSHUser, cfg.SSHHost)
	return terminal.NewEmulator(runner, timeout), func() { _ = runner.Close() }, nil
}
