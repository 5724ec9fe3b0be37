package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DLQPurger removes dead letter queue messages older than a retention period
// and reports how many were removed.
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}

// GarbageCollector trims the dead letter queue on a schedule so failed jobs
// do not pile up forever. Dead letters older than the retention period are
// dropped; newer ones stay for inspection.
type GarbageCollector struct {
	purger    DLQPurger
	interval  time.Duration
	retention time.Duration
	log       *zap.Logger
}

// NewGarbageCollector creates a garbage collector that purges through purger
// every interval, removing dead letters older than retention.
func NewGarbageCollector(purger DLQPurger, interval, retention time.Duration, log *zap.Logger) *GarbageCollector {
	return &GarbageCollector{
		purger:    purger,
		interval:  interval,
		retention: retention,
		log:       log,
	}
}

// Start runs purge rounds until ctx is cancelled.
func (gc *GarbageCollector) Start(ctx context.Context) error {
	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := gc.collect(ctx); err != nil {
				gc.log.Warn("DLQ purge failed", zap.Error(err))
			}
		}
	}
}

func (gc *GarbageCollector) collect(ctx context.Context) error {
	if gc.purger == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	purged, err := gc.purger.PurgeOlderThan(ctx, gc.retention)
	if err != nil {
		return fmt.Errorf("purge dead letters: %w", err)
	}
	if purged > 0 {
		gc.log.Info("Purged dead letters",
			zap.Int("purged", purged),
			zap.Duration("retention", gc.retention))
	}
	return nil
}
