package server

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vesaa/hostdash/internal/sysmon"
)

// handleProcesses returns the top processes by CPU.
func (s *Server) handleProcesses(c *gin.Context) {
	p := s.providers.Current()
	procs, err := p.Processes(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": sysmon.TopByCPU(procs, s.opts.ProcessLimit),
		"demo": p.Simulated(),
	})
}

// handleKill sends SIGTERM to a process. Every outcome, failure included, is a
// 200 with a KillResult; only a malformed PID is a client error.
//
//	POST /api/processes/:pid/kill
func (s *Server) handleKill(c *gin.Context) {
	pid, err := strconv.ParseInt(c.Param("pid"), 10, 32)
	if err != nil || pid <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pid"})
		return
	}
	res := s.providers.Current().Terminate(c.Request.Context(), int32(pid))
	if cl := claimsFrom(c); cl != nil {
		log.Printf("[http] %s terminate pid=%d: %s", cl.Username, pid, res.Status)
	}
	c.JSON(http.StatusOK, res)
}

// handleNetwork returns IPv4 interfaces and the classified, capped connection table.
func (s *Server) handleNetwork(c *gin.Context) {
	p := s.providers.Current()
	ctx := c.Request.Context()

	ifaces, err := p.Interfaces(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	conns, err := p.Connections(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"interfaces":  ifaces,
		"connections": sysmon.LimitConnections(conns, s.opts.ConnectionLimit),
		"demo":        p.Simulated(),
	})
}
