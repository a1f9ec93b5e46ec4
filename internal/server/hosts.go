package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vesaa/hostdash/internal/models"
	"github.com/vesaa/hostdash/internal/store"
)

const (
	defaultSampleLimit = 100
	maxSampleLimit     = 1000
)

// hostPayload is the create/update body. Pointer fields distinguish "absent"
// from an explicit zero on update.
type hostPayload struct {
	Name      *string `json:"name"`
	IPAddress *string `json:"ip_address"`
	OSInfo    *string `json:"os_info"`
	IsActive  *bool   `json:"is_active"`
}

func (p hostPayload) apply(h *models.Host) {
	if p.Name != nil {
		h.Name = *p.Name
	}
	if p.IPAddress != nil {
		h.IPAddress = *p.IPAddress
	}
	if p.OSInfo != nil {
		h.OSInfo = *p.OSInfo
	}
	if p.IsActive != nil {
		h.IsActive = *p.IsActive
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func (s *Server) handleHostList(c *gin.Context) {
	hosts, err := s.store.Hosts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": hosts})
}

func (s *Server) handleHostGet(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	h, err := s.store.HostByID(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "server not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": h})
}

// handleHostCreate registers a host. New hosts are active unless told otherwise.
func (s *Server) handleHostCreate(c *gin.Context) {
	var body hostPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if body.Name == nil || *body.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
		return
	}

	ctx := c.Request.Context()
	if _, err := s.store.HostByName(ctx, *body.Name); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "server name already exists"})
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h := models.Host{IsActive: true}
	body.apply(&h)
	if err := s.store.CreateHost(ctx, &h); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": h})
}

func (s *Server) handleHostUpdate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body hostPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if body.Name != nil && *body.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
		return
	}

	ctx := c.Request.Context()
	h, err := s.store.HostByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "server not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if body.Name != nil && *body.Name != h.Name {
		if _, err := s.store.HostByName(ctx, *body.Name); err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "server name already exists"})
			return
		} else if !errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	body.apply(h)
	if err := s.store.UpdateHost(ctx, h); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": h})
}

// handleHostDelete removes a host and its samples.
func (s *Server) handleHostDelete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	err := s.store.DeleteHost(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "server not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// sampleView is a stored sample as the REST listing renders it.
type sampleView struct {
	ID                 uint      `json:"id"`
	ServerName         string    `json:"server_name"`
	CPUUsage           float64   `json:"cpu_usage"`
	RAMUsage           float64   `json:"ram_usage"`
	DiskUsage          float64   `json:"disk_usage"`
	GPUUsage           *float64  `json:"gpu_usage,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
	TimestampFormatted string    `json:"timestamp_formatted"`
}

// handleSamples lists stored samples newest first.
//
//	GET /api/samples?server=Localhost&limit=100
func (s *Server) handleSamples(c *gin.Context) {
	limit := defaultSampleLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxSampleLimit)
	}

	samples, err := s.store.Samples(c.Request.Context(), c.Query("server"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]sampleView, 0, len(samples))
	for _, m := range samples {
		out = append(out, sampleView{
			ID:                 m.ID,
			ServerName:         m.Host.Name,
			CPUUsage:           m.CPUUsage,
			RAMUsage:           m.RAMUsage,
			DiskUsage:          m.DiskUsage,
			GPUUsage:           m.GPUUsage,
			Timestamp:          m.Timestamp,
			TimestampFormatted: m.Timestamp.Local().Format("02/01/2006 15:04:05"),
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}
