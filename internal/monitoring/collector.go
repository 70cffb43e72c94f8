// Package monitoring summarizes run outcomes and alerts on unhealthy trends.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/competitor-intel/internal/model"
)

// MetricsSnapshot holds a point-in-time view of run health.
type MetricsSnapshot struct {
	Total     int                     `json:"total"`
	ByStatus  map[model.RunStatus]int `json:"by_status"`
	Pending   int                     `json:"pending"`
	Running   int                     `json:"running"`
	Succeeded int                     `json:"succeeded"`
	Failed    int                     `json:"failed"`
	// FailureRate is failed over finished runs; 0 when nothing finished.
	FailureRate float64 `json:"failure_rate"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Finished returns the number of runs in a terminal status.
func (s *MetricsSnapshot) Finished() int { return s.Succeeded + s.Failed }

// RunCounter is the store method the collector needs.
type RunCounter interface {
	CountByStatus(ctx context.Context, since time.Time) (map[model.RunStatus]int, error)
}

// Collector gathers metrics from the run store.
type Collector struct {
	store RunCounter
	now   func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(st RunCounter) *Collector {
	return &Collector{store: st, now: time.Now}
}

// Collect gathers a snapshot over the given lookback window. A window of 0
// or less covers all runs.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: max(lookbackHours, 0),
		CollectedAt:   now,
	}

	var since time.Time
	if lookbackHours > 0 {
		since = now.Add(-time.Duration(lookbackHours) * time.Hour)
	}

	counts, err := c.store.CountByStatus(ctx, since)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count runs")
	}

	snap.ByStatus = make(map[model.RunStatus]int, len(counts))
	for status, n := range counts {
		snap.ByStatus[status] = n
		snap.Total += n
		switch status {
		case model.RunStatusPending:
			snap.Pending = n
		case model.RunStatusRunning:
			snap.Running = n
		case model.RunStatusSucceeded:
			snap.Succeeded = n
		case model.RunStatusFailed:
			snap.Failed = n
		}
	}

	if finished := snap.Finished(); finished > 0 {
		snap.FailureRate = float64(snap.Failed) / float64(finished)
	}
	return snap, nil
}
