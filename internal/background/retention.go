package background

import (
	"context"
	"log/slog"
	"time"
)

// RetentionStore is the slice of the attempt store the retention manager uses.
type RetentionStore interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionManager periodically removes attempts older than the retention
// window. A failed sweep is logged and retried on the next tick, never fatal.
type RetentionManager struct {
	store    RetentionStore
	logger   *slog.Logger
	window   time.Duration
	interval time.Duration
	stopCh   chan struct{}
}

// NewRetentionManager creates a new retention manager
func NewRetentionManager(store RetentionStore, logger *slog.Logger, window, interval time.Duration) *RetentionManager {
	return &RetentionManager{
		store:    store,
		logger:   logger,
		window:   window,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic retention sweep
func (rm *RetentionManager) Start(ctx context.Context) {
	ticker := time.NewTicker(rm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	rm.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			rm.runSweep(ctx)
		case <-rm.stopCh:
			rm.logger.Info("retention manager stopped")
			return
		case <-ctx.Done():
			rm.logger.Info("retention manager context cancelled")
			return
		}
	}
}

// runSweep deletes attempts past the retention window
func (rm *RetentionManager) runSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-rm.window)

	rowsDeleted, err := rm.store.DeleteOlderThan(sweepCtx, cutoff)
	if err != nil {
		rm.logger.Error("retention sweep failed, will retry next cycle", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		rm.logger.Info("retention sweep completed",
			slog.Int64("rows_deleted", rowsDeleted),
			slog.Time("cutoff", cutoff))
	}
}

// Stop signals the retention manager to stop
func (rm *RetentionManager) Stop() {
	close(rm.stopCh)
}
