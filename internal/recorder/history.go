package recorder

import (
	"context"

	"github.com/vesaa/hostdash/internal/models"
	"github.com/vesaa/hostdash/internal/sysmon"
)

// HistoryStore reads back what the recorder appended.
type HistoryStore interface {
	Chronological(ctx context.Context, hostName string, limit int) ([]models.Sample, error)
}

// History exposes one host's recorded samples as sysmon readings. Swap is
// not persisted and reads as 0.
type History struct {
	Store    HistoryStore
	HostName string
}

// Recent implements sysmon.Recorded.
func (h History) Recent(ctx context.Context, n int) ([]sysmon.Reading, error) {
	samples, err := h.Store.Chronological(ctx, h.HostName, n)
	if err != nil {
		return nil, err
	}
	out := make([]sysmon.Reading, 0, len(samples))
	for _, m := range samples {
		out = append(out, sysmon.Reading{
			CPU:  m.CPUUsage,
			RAM:  m.RAMUsage,
			Disk: m.DiskUsage,
			At:   m.Timestamp,
		})
	}
	return out, nil
}
