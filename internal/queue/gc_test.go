package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type mockDLQPurger struct {
	purgeFunc func(ctx context.Context, retention time.Duration) (int, error)
}

var _ DLQPurger = (*mockDLQPurger)(nil)

func (m *mockDLQPurger) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	if m.purgeFunc != nil {
		return m.purgeFunc(ctx, retention)
	}
	return 0, nil
}

func TestGarbageCollector_Collect(t *testing.T) {
	t.Parallel()

	t.Run("nil purger is a no-op", func(t *testing.T) {
		t.Parallel()
		gc := NewGarbageCollector(nil, time.Minute, 24*time.Hour, zap.NewNop())
		if err := gc.collect(context.Background()); err != nil {
			t.Errorf("collect with nil purger: %v", err)
		}
	})

	t.Run("forwards the retention period", func(t *testing.T) {
		t.Parallel()
		var got time.Duration
		purger := &mockDLQPurger{
			purgeFunc: func(ctx context.Context, retention time.Duration) (int, error) {
				got = retention
				return 3, nil
			},
		}
		gc := NewGarbageCollector(purger, time.Minute, 24*time.Hour, zap.NewNop())
		if err := gc.collect(context.Background()); err != nil {
			t.Errorf("collect: %v", err)
		}
		if got != 24*time.Hour {
			t.Errorf("Expected retention 24h, got %v", got)
		}
	})

	t.Run("reports purge failures", func(t *testing.T) {
		t.Parallel()
		purger := &mockDLQPurger{
			purgeFunc: func(context.Context, time.Duration) (int, error) {
				return 0, errors.New("broker gone")
			},
		}
		gc := NewGarbageCollector(purger, time.Minute, time.Hour, zap.NewNop())
		if err := gc.collect(context.Background()); err == nil {
			t.Error("Expected error from collect")
		}
	})
}

func TestGarbageCollector_Start(t *testing.T) {
	t.Parallel()

	t.Run("purges on each tick", func(t *testing.T) {
		t.Parallel()
		ticked := make(chan struct{}, 1)
		purger := &mockDLQPurger{
			purgeFunc: func(context.Context, time.Duration) (int, error) {
				select {
				case ticked <- struct{}{}:
				default:
				}
				return 0, nil
			},
		}
		gc := NewGarbageCollector(purger, 5*time.Millisecond, time.Hour, zap.NewNop())
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			_ = gc.Start(ctx)
		}()

		select {
		case <-ticked:
		case <-time.After(2 * time.Second):
			t.Fatal("GC never ran a purge round")
		}
	})

	t.Run("stops on context cancel", func(t *testing.T) {
		t.Parallel()
		gc := NewGarbageCollector(&mockDLQPurger{}, 24*time.Hour, time.Hour, zap.NewNop())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := gc.Start(ctx); err == nil {
			t.Error("Expected context cancelled error")
		}
	})
}
