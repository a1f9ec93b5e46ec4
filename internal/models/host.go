// Package models defines GORM data models for hostdash.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Host is a monitored machine, identified by its unique Name.
// Hosts are created from the API or lazily by the recorder on first collection.
type Host struct {
	gorm.Model

	// Identity
	Name      string `gorm:"uniqueIndex;not null" json:"name"`
	IPAddress string `json:"ip_address"`
	OSInfo    string `json:"os_info"`

	// IsActive gates background collection. No GORM default: a default would
	// silently turn an explicit false into true on insert.
	IsActive bool `gorm:"not null" json:"is_active"`

	Samples []Sample `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Sample is one immutable utilisation reading for a Host.
// Percentages are 0-100; GPU is nil on hosts without one.
type Sample struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	HostID uint `gorm:"index:idx_host_ts;not null" json:"server_id"`
	Host   Host `gorm:"foreignKey:HostID" json:"-"`

	CPUUsage  float64  `json:"cpu_usage"`
	RAMUsage  float64  `json:"ram_usage"`
	DiskUsage float64  `json:"disk_usage"`
	GPUUsage  *float64 `json:"gpu_usage,omitempty"`

	Timestamp time.Time `gorm:"index:idx_host_ts;not null" json:"timestamp"`
}
