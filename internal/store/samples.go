package store

import (
	"context"

	"github.com/vesaa/hostdash/internal/models"
)

// Append stamps and persists a sample for hostID. The timestamp is assigned
// here in UTC and never changed afterwards; timestamps are compared as stored
// text, so a local zone would misorder samples across an offset change.
func (s *Store) Append(ctx context.Context, hostID uint, m *models.Sample) error {
	m.ID = 0
	m.HostID = hostID
	m.Timestamp = s.now().UTC()
	return s.db.WithContext(ctx).Create(m).Error
}

// Latest returns up to limit samples for the named host, newest first.
func (s *Store) Latest(ctx context.Context, hostName string, limit int) ([]models.Sample, error) {
	var out []models.Sample
	err := s.db.WithContext(ctx).
		Joins("JOIN hosts ON hosts.id = samples.host_id AND hosts.deleted_at IS NULL").
		Where("hosts.name = ?", hostName).
		Order("samples.timestamp desc, samples.id desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// Chronological is Latest reversed: the same window, oldest first.
func (s *Store) Chronological(ctx context.Context, hostName string, limit int) ([]models.Sample, error) {
	out, err := s.Latest(ctx, hostName, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Samples lists recent samples across hosts, newest first, with Host preloaded.
// An empty hostName matches every host.
func (s *Store) Samples(ctx context.Context, hostName string, limit int) ([]models.Sample, error) {
	q := s.db.WithContext(ctx).Preload("Host").Order("samples.timestamp desc, samples.id desc")
	if hostName != "" {
		q = q.Joins("JOIN hosts ON hosts.id = samples.host_id").Where("hosts.name = ?", hostName)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []models.Sample
	err := q.Find(&out).Error
	return out, err
}
