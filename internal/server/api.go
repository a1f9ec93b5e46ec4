package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vesaa/hostdash/internal/store"
)

// RegisterRoutes wires up the JSON API on the web engine.
//
//	Public:          POST /api/login, GET /api/health
//	Protected (JWT): dashboard, metrics, processes, network, servers, samples
//	Superuser:       process kill, terminal
func (s *Server) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")

	// ── Public endpoints ──────────────────────────────────────────────────────
	api.POST("/login", s.handleLogin)

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC(),
			"demo":   s.providers.Current().Simulated(),
		})
	})

	// ── JWT-protected endpoints ───────────────────────────────────────────────
	auth := api.Group("/", s.JWTMiddleware())
	{
		// Metrics
		auth.GET("/dashboard", s.handleDashboard)
		auth.GET("/metrics/current", s.handleCurrentMetrics)
		auth.GET("/chart-data", s.handleChartData)
		auth.GET("/ws/metrics", s.handleMetricsStream)

		// Inspectors
		auth.GET("/processes", s.handleProcesses)
		auth.GET("/network", s.handleNetwork)

		// Monitored hosts + stored samples
		auth.GET("/servers", s.handleHostList)
		auth.GET("/servers/:id", s.handleHostGet)
		auth.POST("/servers", s.handleHostCreate)
		auth.PUT("/servers/:id", s.handleHostUpdate)
		auth.DELETE("/servers/:id", s.handleHostDelete)
		auth.GET("/samples", s.handleSamples)
	}

	// ── Superuser-only endpoints ──────────────────────────────────────────────
	admin := api.Group("/", s.JWTMiddleware(), SuperuserOnly())
	{
		admin.POST("/processes/:pid/kill", s.handleKill)
		admin.GET("/terminal", s.handleTerminal)
		admin.POST("/terminal/execute", s.handleTerminalExecute)
	}
}

// handleLogin accepts username + password and returns a signed JWT.
//
//	POST /api/login
//	Body: { "username": "admin", "password": "admin" }
func (s *Server) handleLogin(c *gin.Context) {
	var body struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}

	u, err := s.store.Authenticate(c.Request.Context(), body.Username, body.Password)
	if errors.Is(err, store.ErrBadCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err != nil {
		log.Printf("[http] login %q: %v", body.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	token, err := s.GenerateJWT(u.Username, u.IsSuperuser)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int(s.opts.TokenTTL.Seconds()),
		"type":       "Bearer",
		"username":   u.Username,
		"superuser":  u.IsSuperuser,
	})
}
