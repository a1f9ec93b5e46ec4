package server

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vesaa/hostdash/internal/terminal"
)

// grant converts the token's superuser flag into a terminal.Grant.
func grant(c *gin.Context) (terminal.Grant, bool) {
	cl := claimsFrom(c)
	if cl == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return terminal.Grant{}, false
	}
	g, err := terminal.Authorize(cl.Username, cl.Superuser)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "superuser required"})
		return terminal.Grant{}, false
	}
	return g, true
}

// handleTerminal returns the session's working directory, starting it at home.
func (s *Server) handleTerminal(c *gin.Context) {
	g, ok := grant(c)
	if !ok {
		return
	}
	p := s.providers.Current()
	cwd, err := s.term.Cwd(g, claimsFrom(c).SessionID, p.Shell())
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"page_title": "Terminal",
		"cwd":        cwd,
		"demo":       p.Simulated(),
	})
}

// handleTerminalExecute runs one command for the caller's session.
//
//	POST /api/terminal/execute
//	Body: { "command": "ls -la" }
func (s *Server) handleTerminalExecute(c *gin.Context) {
	g, ok := grant(c)
	if !ok {
		return
	}
	var body struct {
		Command string `json:"command"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "command required"})
		return
	}

	// A client disconnect does not abort the command; only the configured
	// terminal timeout bounds it.
	ctx := context.WithoutCancel(c.Request.Context())
	res, err := s.term.Execute(ctx, g, claimsFrom(c).SessionID, body.Command, s.providers.Current().Shell())
	if errors.Is(err, terminal.ErrNotPrivileged) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if res.Command != "" {
		log.Printf("[terminal] %s@%s $ %s", g.User(), res.Cwd, res.Command)
	}
	c.JSON(http.StatusOK, res)
}
