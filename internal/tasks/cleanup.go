package tasks

import (
	"context"
	"time"

	"github.com/neiii/stargate-better-auth/internal/cache"
	"github.com/neiii/stargate-better-auth/internal/logging"
)

const (
	// CleanupExpiredTaskName is the sweep that removes verification records
	// whose cache window has passed.
	CleanupExpiredTaskName = "cleanup-expired"

	// DefaultCleanupInterval keeps stale records from piling up between
	// opportunistic sweeps. Expired records are already invisible to readers,
	// so this is housekeeping, not correctness.
	DefaultCleanupInterval = 10 * time.Minute
)

// RegisterCleanupExpired wires the expired-record sweep into the manager.
func RegisterCleanupExpired(m *Manager, c *cache.Cache, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	m.Register(CleanupExpiredTaskName, interval, CleanupExpiredTask(c))
}

// CleanupExpiredTask builds the sweep's task func.
func CleanupExpiredTask(c *cache.Cache) Func {
	return func(ctx context.Context, logger logging.InternalLogger) error {
		deleted, err := c.CleanupExpired(ctx)
		if err != nil {
			return err
		}
		logger.Info("removed %d expired verification record(s)", deleted)
		return nil
	}
}
