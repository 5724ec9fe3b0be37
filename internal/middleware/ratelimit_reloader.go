package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"authlink/internal/database"
	"authlink/internal/models"
	"authlink/internal/request"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

// defaultRatelimitRate applies until an operator stores a rate. The notation
// is ulule/limiter's "<count>-<period>" with period S, M or H.
const defaultRatelimitRate = "5-S"

// RateLimitReloader applies the stored request rate limit and refreshes it
// on an interval, so limits tuned through the configure CLI take effect
// without a restart. Counters live in Redis, keyed by client IP.
type RateLimitReloader struct {
	store       limiter.Store
	repo        *database.RatelimitConfigRepository
	defaultRate string
	log         *zap.Logger
	interval    time.Duration

	next http.Handler

	mu      sync.RWMutex
	current http.Handler
}

// NewRateLimitReloader creates a rate limiting middleware backed by the
// stored configuration. Returns nil when the Redis store cannot be created.
func NewRateLimitReloader(redisClient *redis.Client, repo *database.RatelimitConfigRepository, defaultRate string, log *zap.Logger, reloadInterval time.Duration) *RateLimitReloader {
	if defaultRate == "" {
		defaultRate = defaultRatelimitRate
	}
	store, err := redisstore.NewStore(redisClient)
	if err != nil {
		log.Error("ratelimit_store_create_failed", zap.Error(err))
		return nil
	}
	return &RateLimitReloader{
		store:       store,
		repo:        repo,
		defaultRate: defaultRate,
		log:         log,
		interval:    reloadInterval,
	}
}

// Middleware wraps next with the reloading rate limit handler.
func (rl *RateLimitReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		rl.next = next
		rl.reload(context.Background())
		return rl
	}
}

// Start refreshes the limit until ctx is cancelled. Call after Middleware()
// has been applied.
func (rl *RateLimitReloader) Start(ctx context.Context) {
	if rl.interval <= 0 {
		return
	}
	ticker := time.NewTicker(rl.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.reload(ctx)
		}
	}
}

func (rl *RateLimitReloader) reload(ctx context.Context) {
	if rl.next == nil {
		return
	}
	rate, ok := rl.resolveRate(ctx)
	if !ok {
		return
	}

	// The Redis store is reused; only the limiter instance is rebuilt.
	instance := limiter.New(rl.store, rate)
	mw := stdlibmw.NewMiddleware(instance, stdlibmw.WithKeyGetter(request.ClientIP))
	handler := mw.Handler(rl.next)

	rl.mu.Lock()
	rl.current = handler
	rl.mu.Unlock()
}

// resolveRate picks the rate to apply: the stored rate when present, the
// default otherwise. A missing row is seeded with the default so the
// configure CLI has a record to show. Returns false when no usable rate
// could be parsed and the current handler should stay in place.
func (rl *RateLimitReloader) resolveRate(ctx context.Context) (limiter.Rate, bool) {
	rateStr := rl.defaultRate
	cfg, err := rl.repo.Get(ctx)
	switch {
	case err != nil:
		rl.log.Warn("ratelimit_config_load_failed",
			zap.Error(err),
			zap.String("fallback_rate", rl.defaultRate),
		)
	case cfg != nil && cfg.Rate != "":
		rateStr = cfg.Rate
	default:
		if err := rl.repo.Set(ctx, &models.RatelimitConfig{Rate: rl.defaultRate}); err != nil {
			rl.log.Error("ratelimit_config_seed_failed", zap.Error(err))
		}
	}

	rate, err := limiter.NewRateFromFormatted(rateStr)
	if err == nil {
		return rate, true
	}
	rl.log.Error("ratelimit_rate_invalid", zap.Error(err), zap.String("rate", rateStr))

	rate, err = limiter.NewRateFromFormatted(rl.defaultRate)
	if err != nil {
		rl.log.Error("ratelimit_default_rate_invalid", zap.Error(err), zap.String("rate", rl.defaultRate))
		return limiter.Rate{}, false
	}
	return rate, true
}

// ServeHTTP implements http.Handler.
func (rl *RateLimitReloader) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rl.mu.RLock()
	handler := rl.current
	rl.mu.RUnlock()
	if handler == nil {
		handler = rl.next
	}
	if handler != nil {
		handler.ServeHTTP(w, r)
	}
}
