package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ridership3d/internal/common/logger"
)

// PruneScheduler prunes load history periodically
type PruneScheduler struct {
	maintenance *Maintenance
	logger      logger.Logger
	config      SchedulerConfig
	isRunning   bool
	lastResult  *PruneResult
	mu          sync.RWMutex
	cancelFn    context.CancelFunc
	done        chan struct{}
}

// SchedulerConfig contains configuration for the prune scheduler
type SchedulerConfig struct {
	Interval     time.Duration // How often to prune
	Retention    time.Duration // Age after which runs are deleted
	InitialDelay time.Duration // Wait before the first prune
}

// DefaultSchedulerConfig prunes daily, keeping thirty days
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:     24 * time.Hour,
		Retention:    30 * 24 * time.Hour,
		InitialDelay: time.Minute,
	}
}

// NewPruneScheduler creates a new prune scheduler
func NewPruneScheduler(history HistoryPruner, logger logger.Logger, config SchedulerConfig) *PruneScheduler {
	return &PruneScheduler{
		maintenance: New(history, logger),
		logger:      logger,
		config:      config,
	}
}

// Start begins the prune loop
func (s *PruneScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("prune scheduler is already running")
	}
	if s.config.Interval <= 0 {
		return fmt.Errorf("prune interval must be positive, got %s", s.config.Interval)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancelFn = cancel
	s.isRunning = true
	s.done = make(chan struct{})

	s.logger.Info("Starting prune scheduler",
		"interval", s.config.Interval,
		"retention", s.config.Retention)

	go s.pruneLoop(ctx, s.done)
	return nil
}

// Stop stops the prune loop and waits for it to exit
func (s *PruneScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.logger.Info("Stopping prune scheduler")
	s.cancelFn()
	s.isRunning = false
	done := s.done
	s.mu.Unlock()

	<-done
	s.logger.Info("Prune scheduler stopped")
}

// IsRunning returns whether the scheduler is active
func (s *PruneScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *PruneScheduler) pruneLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	initialDelay := time.NewTimer(s.config.InitialDelay)
	defer initialDelay.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Prune loop stopping")
			return

		case <-initialDelay.C:
			s.performPrune(ctx)

		case <-ticker.C:
			s.performPrune(ctx)
		}
	}
}

func (s *PruneScheduler) performPrune(ctx context.Context) {
	result, err := s.maintenance.PruneLoadHistory(ctx, s.config.Retention)
	if err != nil {
		s.logger.Error("Load history prune failed", "error", err)
		return
	}

	s.mu.Lock()
	s.lastResult = &result
	s.mu.Unlock()
}

// TriggerPrune runs one prune immediately
func (s *PruneScheduler) TriggerPrune(ctx context.Context) (PruneResult, error) {
	s.logger.Info("Manual load history prune triggered", "retention", s.config.Retention)
	result, err := s.maintenance.PruneLoadHistory(ctx, s.config.Retention)
	if err == nil {
		s.mu.Lock()
		s.lastResult = &result
		s.mu.Unlock()
	}
	return result, err
}

// GetStatus returns the current status of the prune scheduler
func (s *PruneScheduler) GetStatus() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := map[string]interface{}{
		"is_running": s.isRunning,
		"interval":   s.config.Interval.String(),
		"retention":  s.config.Retention.String(),
	}
	if s.lastResult != nil {
		status["last_cutoff"] = s.lastResult.Cutoff
		status["last_records_deleted"] = s.lastResult.RecordsDeleted
	}
	return status
}
