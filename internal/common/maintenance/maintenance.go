package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/ridership3d/internal/common/logger"
)

// HistoryPruner deletes load history older than a cutoff.
type HistoryPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PruneResult represents the result of a prune operation
type PruneResult struct {
	Cutoff         time.Time     `json:"cutoff"`
	RecordsDeleted int64         `json:"records_deleted"`
	Duration       time.Duration `json:"duration"`
}

// Maintenance handles history cleanup
type Maintenance struct {
	history HistoryPruner
	logger  logger.Logger
	now     func() time.Time
}

// New creates a new Maintenance instance
func New(history HistoryPruner, logger logger.Logger) *Maintenance {
	return &Maintenance{
		history: history,
		logger:  logger,
		now:     time.Now,
	}
}

// PruneLoadHistory removes load runs older than retention.
func (m *Maintenance) PruneLoadHistory(ctx context.Context, retention time.Duration) (PruneResult, error) {
	if retention <= 0 {
		return PruneResult{}, fmt.Errorf("retention must be positive, got %s", retention)
	}

	start := m.now()
	result := PruneResult{Cutoff: start.Add(-retention).UTC()}

	m.logger.Info("Starting load history cleanup", "retention", retention, "cutoff", result.Cutoff)

	deleted, err := m.history.DeleteOlderThan(ctx, result.Cutoff)
	if err != nil {
		return result, fmt.Errorf("pruning load history: %w", err)
	}
	result.RecordsDeleted = deleted
	result.Duration = m.now().Sub(start)

	m.logger.Info("Load history cleanup completed",
		"records_deleted", deleted,
		"duration", result.Duration)
	return result, nil
}
