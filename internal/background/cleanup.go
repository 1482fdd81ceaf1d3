package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RetentionStore deletes history rows older than a cutoff
type RetentionStore interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupManager periodically removes logins and audit entries past their retention
type CleanupManager struct {
	logins    RetentionStore
	auditLogs RetentionStore
	retention time.Duration
	logger    *slog.Logger
	interval  time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewCleanupManager creates a new cleanup manager. auditLogs may be nil.
func NewCleanupManager(
	logins RetentionStore,
	auditLogs RetentionStore,
	retention time.Duration,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupManager{
		logins:    logins,
		auditLogs: auditLogs,
		retention: retention,
		logger:    logger,
		interval:  interval,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Enabled reports whether a retention period is configured
func (cm *CleanupManager) Enabled() bool {
	return cm.retention > 0
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	if !cm.Enabled() {
		cm.logger.Info("login retention disabled, cleanup manager not started")
		return
	}

	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// runCleanup removes rows older than the retention period
func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := cm.now().UTC().Add(-cm.retention)
	cm.sweep(cleanupCtx, "logins", cm.logins, cutoff)
	cm.sweep(cleanupCtx, "audit_logs", cm.auditLogs, cutoff)
}

func (cm *CleanupManager) sweep(ctx context.Context, table string, store RetentionStore, cutoff time.Time) {
	if store == nil {
		return
	}

	rowsDeleted, err := store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		cm.logger.Error("failed to cleanup expired rows", slog.String("table", table), slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		cm.logger.Info("retention cleanup completed",
			slog.String("table", table),
			slog.Int64("rows_deleted", rowsDeleted),
		)
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
