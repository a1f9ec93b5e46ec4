package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/vesaa/hostdash/internal/models"
	"gorm.io/gorm"
)

// EnsureHost returns the host called name, creating it from defaults when missing.
func (s *Store) EnsureHost(ctx context.Context, name string, defaults models.Host) (*models.Host, error) {
	var h models.Host
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&h).Error
	if err == nil {
		return &h, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	h = defaults
	h.Name = name
	if err := s.db.WithContext(ctx).Create(&h).Error; err != nil {
		return nil, fmt.Errorf("creating host %q: %w", name, err)
	}
	return &h, nil
}

// Hosts lists every monitored host ordered by name.
func (s *Store) Hosts(ctx context.Context) ([]models.Host, error) {
	var hosts []models.Host
	err := s.db.WithContext(ctx).Order("name").Find(&hosts).Error
	return hosts, err
}

// HostByID fetches a single host.
func (s *Store) HostByID(ctx context.Context, id uint) (*models.Host, error) {
	var h models.Host
	if err := s.db.WithContext(ctx).First(&h, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &h, nil
}

// HostByName fetches a single host by its unique name.
func (s *Store) HostByName(ctx context.Context, name string) (*models.Host, error) {
	var h models.Host
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&h).Error; err != nil {
		return nil, notFound(err)
	}
	return &h, nil
}

// CreateHost inserts h.
func (s *Store) CreateHost(ctx context.Context, h *models.Host) error {
	return s.db.WithContext(ctx).Create(h).Error
}

// UpdateHost writes the mutable fields of h.
func (s *Store) UpdateHost(ctx context.Context, h *models.Host) error {
	res := s.db.WithContext(ctx).Model(&models.Host{}).Where("id = ?", h.ID).Updates(map[string]any{
		"name":       h.Name,
		"ip_address": h.IPAddress,
		"os_info":    h.OSInfo,
		"is_active":  h.IsActive,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteHost removes a host and its samples.
func (s *Store) DeleteHost(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("host_id = ?", id).Delete(&models.Sample{}).Error; err != nil {
			return err
		}
		res := tx.Unscoped().Delete(&models.Host{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
