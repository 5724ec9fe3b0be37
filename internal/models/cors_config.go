package models

import (
	"strings"
	"time"
)

// CorsConfig is the browser cross-origin policy applied by the HTTP server.
// AllowedOrigins stores the origin list as a single comma-separated value so
// operators can edit it as one field.
type CorsConfig struct {
	ConfigKey        string    `json:"config_key"`
	AllowedOrigins   string    `json:"allowed_origins"`
	AllowCredentials bool      `json:"allow_credentials"`
	MaxAge           int       `json:"max_age"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// OriginsList splits AllowedOrigins on commas, trimming whitespace and
// dropping blanks and duplicates. Order is preserved.
func (c *CorsConfig) OriginsList() []string {
	var origins []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(c.AllowedOrigins, ",") {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, dup := seen[origin]; dup {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
