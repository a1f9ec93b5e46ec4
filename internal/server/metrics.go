package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/vesaa/hostdash/internal/sysmon"
)

// chartSeries is the Chart.js payload: parallel arrays, oldest point first.
type chartSeries struct {
	Labels []string  `json:"labels"`
	CPU    []float64 `json:"cpu"`
	RAM    []float64 `json:"ram"`
}

func newChartSeries(n int) chartSeries {
	return chartSeries{
		Labels: make([]string, 0, n),
		CPU:    make([]float64, 0, n),
		RAM:    make([]float64, 0, n),
	}
}

// chartData asks the active provider for the chart window: stored samples on
// a real host, the synthetic waveform in demo mode.
func (s *Server) chartData(ctx context.Context, p sysmon.Provider) (chartSeries, error) {
	readings, err := p.History(ctx, s.opts.ChartPoints, s.opts.ChartStep)
	if err != nil {
		return chartSeries{}, err
	}
	out := newChartSeries(len(readings))
	for _, r := range readings {
		out.Labels = append(out.Labels, r.At.Local().Format("15:04:05"))
		out.CPU = append(out.CPU, r.CPU)
		out.RAM = append(out.RAM, r.RAM)
	}
	return out, nil
}

// handleChartData returns {labels, cpu, ram} for the default host, oldest first.
func (s *Server) handleChartData(c *gin.Context) {
	series, err := s.chartData(c.Request.Context(), s.providers.Current())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, series)
}

// handleDashboard is the initial page load: title, chart history and the
// caller's capabilities, so the UI can hide the terminal for normal users.
func (s *Server) handleDashboard(c *gin.Context) {
	p := s.providers.Current()
	series, err := s.chartData(c.Request.Context(), p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	cl := claimsFrom(c)
	c.JSON(http.StatusOK, gin.H{
		"page_title": "General Dashboard",
		"host":       s.opts.HostName,
		"chart":      series,
		"demo":       p.Simulated(),
		"username":   cl.Username,
		"superuser":  cl.Superuser,
	})
}

// handleCurrentMetrics returns an instantaneous reading; nothing is read from the store.
func (s *Server) handleCurrentMetrics(c *gin.Context) {
	p := s.providers.Current()
	r, err := p.Sample(c.Request.Context())
	if err != nil {
		log.Printf("[http] sampling metrics: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metrics unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cpu":  r.CPU,
		"ram":  r.RAM,
		"disk": r.Disk,
		"swap": r.Swap,
		"demo": p.Simulated(),
	})
}

// ── Live stream ───────────────────────────────────────────────────────────────

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The token check in JWTMiddleware already ran; origin is not a credential here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleMetricsStream pushes a reading every StreamInterval until the client
// goes away. The provider is re-selected per frame so demo toggles apply live.
func (s *Server) handleMetricsStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[ws] upgrade: %v", err)
		return
	}
	defer conn.Close()

	// Drain client frames so close messages are processed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx := c.Request.Context()
	ticker := time.NewTicker(s.opts.StreamInterval)
	defer ticker.Stop()

	for {
		if err := s.pushReading(ctx, conn); err != nil {
			return
		}
		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) pushReading(ctx context.Context, conn *websocket.Conn) error {
	p := s.providers.Current()
	frame := gin.H{"demo": p.Simulated()}
	if r, err := p.Sample(ctx); err != nil {
		frame["error"] = "metrics unavailable"
	} else {
		frame["cpu"] = r.CPU
		frame["ram"] = r.RAM
		frame["disk"] = r.Disk
		frame["swap"] = r.Swap
		frame["time"] = r.At.Format("15:04:05")
	}
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(frame)
}
