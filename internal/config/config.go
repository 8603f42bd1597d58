package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Env       string          `yaml:"env" env:"APP_ENV" env-default:"production"`
	Server    ServerConfig    `yaml:"server"`
	Cache     CacheConfig     `yaml:"cache"`
	Redis     RedisConfig     `yaml:"redis"`
	Places    PlacesConfig    `yaml:"places"`
	LLM       LLMConfig       `yaml:"llm"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `yaml:"port"             env:"PORT"                    env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"120s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	RequestTimeout  time.Duration `yaml:"request_timeout"  env:"SERVER_REQUEST_TIMEOUT"  env-default:"60s"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"   env:"SERVER_MAX_BODY_BYTES"   env-default:"65536"`
}

// CacheConfig holds cache backend selection and expiration policy.
// Restaurant details and analysis results expire independently; the
// recent list reuses the restaurant TTL.
type CacheConfig struct {
	Backend       string        `yaml:"backend"        env:"CACHE_BACKEND"        env-default:"memory"`
	Prefix        string        `yaml:"prefix"         env:"CACHE_PREFIX"         env-default:"platepick"`
	RestaurantTTL time.Duration `yaml:"restaurant_ttl" env:"CACHE_RESTAURANT_TTL" env-default:"168h"`
	AnalysisTTL   time.Duration `yaml:"analysis_ttl"   env:"CACHE_ANALYSIS_TTL"   env-default:"504h"`
	RecentCap     int           `yaml:"recent_cap"     env:"CACHE_RECENT_CAP"     env-default:"5"`
}

// RedisConfig holds connection settings for the redis cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"     env:"REDIS_ADDR"     env-default:"127.0.0.1:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db"       env:"REDIS_DB"       env-default:"0"`
}

// PlacesConfig holds settings for the places provider.
type PlacesConfig struct {
	BaseURL     string        `yaml:"base_url"     env:"PLACES_BASE_URL"     env-default:"https://places.googleapis.com"`
	APIKey      string        `yaml:"api_key"      env:"PLACES_API_KEY"`
	Timeout     time.Duration `yaml:"timeout"      env:"PLACES_TIMEOUT"      env-default:"10s"`
	MaxRetries  int           `yaml:"max_retries"  env:"PLACES_MAX_RETRIES"  env-default:"2"`
	BaseBackoff time.Duration `yaml:"base_backoff" env:"PLACES_BASE_BACKOFF" env-default:"100ms"`
}

// LLMConfig holds settings for the language-model provider.
type LLMConfig struct {
	BaseURL     string        `yaml:"base_url"     env:"LLM_BASE_URL"     env-default:"https://api.openai.com"`
	APIKey      string        `yaml:"api_key"      env:"LLM_API_KEY"`
	Model       string        `yaml:"model"        env:"LLM_MODEL"        env-default:"gpt-4-turbo-preview"`
	Timeout     time.Duration `yaml:"timeout"      env:"LLM_TIMEOUT"      env-default:"45s"`
	MaxRetries  int           `yaml:"max_retries"  env:"LLM_MAX_RETRIES"  env-default:"2"`
	BaseBackoff time.Duration `yaml:"base_backoff" env:"LLM_BASE_BACKOFF" env-default:"100ms"`
}

// RateLimitConfig holds the fixed-window per-IP limiter settings.
type RateLimitConfig struct {
	Enabled     bool          `yaml:"enabled"      env:"RATE_LIMIT_ENABLED"      env-default:"true"`
	Window      time.Duration `yaml:"window"       env:"RATE_LIMIT_WINDOW"       env-default:"10s"`
	MaxRequests int           `yaml:"max_requests" env:"RATE_LIMIT_MAX_REQUESTS" env-default:"50"`
}

// IsDevelopment reports whether error details may be exposed to clients.
func (c *Config) IsDevelopment() bool {
	return c.Env == "dev" || c.Env == "development"
}

// Validate checks cross-field constraints after loading.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Redis.Addr == "" {
		return errors.New("redis backend requires REDIS_ADDR")
	}
	if c.Cache.RestaurantTTL <= 0 || c.Cache.AnalysisTTL <= 0 {
		return errors.New("cache TTLs must be positive")
	}
	if c.Cache.RecentCap <= 0 {
		return errors.New("recent list cap must be positive")
	}
	if c.Places.APIKey == "" {
		return errors.New("PLACES_API_KEY is required")
	}
	if c.LLM.APIKey == "" {
		return errors.New("LLM_API_KEY is required")
	}
	if c.RateLimit.Enabled && (c.RateLimit.Window <= 0 || c.RateLimit.MaxRequests <= 0) {
		return errors.New("rate limit window and max requests must be positive")
	}
	return nil
}
