package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"authlink/internal/database"
	"authlink/internal/models"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// CORSReloader applies the stored CORS policy and refreshes it on an
// interval, so origin changes made through the configure CLI take effect
// without a restart.
type CORSReloader struct {
	repo     *database.CorsConfigRepository
	fallback string
	log      *zap.Logger
	interval time.Duration

	next http.Handler

	mu      sync.RWMutex
	current http.Handler
}

// NewCORSReloader creates a CORS middleware backed by the stored policy.
// Until a policy row exists, frontendURLFallback is the sole allowed origin.
func NewCORSReloader(repo *database.CorsConfigRepository, frontendURLFallback string, log *zap.Logger, reloadInterval time.Duration) *CORSReloader {
	return &CORSReloader{
		repo:     repo,
		fallback: strings.TrimSpace(frontendURLFallback),
		log:      log,
		interval: reloadInterval,
	}
}

// Middleware wraps next with the reloading CORS handler.
func (c *CORSReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		c.next = next
		c.reload(context.Background())
		return c
	}
}

// Start refreshes the policy until ctx is cancelled. Call after Middleware()
// has been applied.
func (c *CORSReloader) Start(ctx context.Context) {
	if c.interval <= 0 {
		return
	}
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.reload(ctx)
		}
	}
}

func (c *CORSReloader) reload(ctx context.Context) {
	if c.next == nil {
		return
	}
	cfg, err := c.repo.Get(ctx)
	if err != nil {
		c.log.Warn("cors_config_load_failed", zap.Error(err))
		c.mu.RLock()
		loaded := c.current != nil
		c.mu.RUnlock()
		if loaded {
			// Keep serving the last good policy through a database blip.
			return
		}
	}
	if cfg == nil {
		cfg = &models.CorsConfig{
			AllowedOrigins:   c.fallback,
			AllowCredentials: true,
			MaxAge:           86400,
		}
	}
	origins := cfg.OriginsList()
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	handler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
	}).Handler(c.next)

	c.mu.Lock()
	c.current = handler
	c.mu.Unlock()
}

// ServeHTTP implements http.Handler.
func (c *CORSReloader) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	handler := c.current
	c.mu.RUnlock()
	if handler == nil {
		handler = c.next
	}
	if handler != nil {
		handler.ServeHTTP(w, r)
	}
}
