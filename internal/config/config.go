// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds everything the server needs to start. DatabaseURL and
// RedisURL are optional: without them the service runs on the in-memory
// store (development only).
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string
	CacheTTL    time.Duration
	JWTIssuer   string
	JWTSecret   string
}

// Load reads configuration from environment variables, collecting all
// missing required variables into a single error.
func Load() (Config, error) {
	c := Config{
		Port:        os.Getenv("PORT"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		CacheTTL:    30 * time.Second,
		JWTIssuer:   os.Getenv("JWT_ISSUER"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
	}
	if c.Port == "" {
		c.Port = "8080"
	}

	var missing []string
	if c.JWTIssuer == "" {
		missing = append(missing, "JWT_ISSUER")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return c, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if ttl := os.Getenv("CACHE_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return c, fmt.Errorf("invalid CACHE_TTL: %w", err)
		}
		c.CacheTTL = d
	}

	return c, nil
}
