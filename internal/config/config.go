// Package config loads service settings from the environment (prefix
// SOPLINE_) and an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "SOPLINE"

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

// RateLimit is a token bucket rule: Events per Interval.
type RateLimit struct {
	Events   int
	Interval time.Duration
}

type Config struct {
	HTTPAddr   string
	GRPCAddr   string
	Store      string
	PGDSN      string
	AuthSecret string
	AppURL     string
	LogLevel   string

	SessionTTL    time.Duration
	ShareGrantTTL time.Duration
	ResetTTL      time.Duration

	SignupLimit RateLimit
	LoginLimit  RateLimit
	ResetLimit  RateLimit
	UnlockLimit RateLimit
	APILimit    RateLimit

	// TrustedProxies are CIDRs or addresses allowed to set X-Forwarded-For.
	TrustedProxies []string

	MaxBodyBytes int64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("grpc_addr", ":9090")
	v.SetDefault("store", StorePostgres)
	v.SetDefault("app_url", "http://localhost:3000")
	v.SetDefault("log_level", "info")
	v.SetDefault("session_ttl", 12*time.Hour)
	v.SetDefault("share_grant_ttl", 30*24*time.Hour)
	v.SetDefault("reset_ttl", time.Hour)
	v.SetDefault("rate_signup_events", 5)
	v.SetDefault("rate_signup_interval", time.Minute)
	v.SetDefault("rate_login_events", 10)
	v.SetDefault("rate_login_interval", time.Minute)
	v.SetDefault("rate_reset_events", 5)
	v.SetDefault("rate_reset_interval", time.Minute)
	v.SetDefault("rate_unlock_events", 10)
	v.SetDefault("rate_unlock_interval", time.Minute)
	v.SetDefault("rate_api_events", 100)
	v.SetDefault("rate_api_interval", time.Second)
	v.SetDefault("trusted_proxies", []string{})
	v.SetDefault("max_body_bytes", 1<<20)
}

// Load reads the configuration. When file is not empty it is read first and
// environment variables override it.
func Load(file string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"pg_dsn", "auth_secret"} {
		if err := v.BindEnv(key); err != nil {
			return Config{}, err
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		HTTPAddr:      v.GetString("http_addr"),
		GRPCAddr:      v.GetString("grpc_addr"),
		Store:         strings.ToLower(strings.TrimSpace(v.GetString("store"))),
		PGDSN:         strings.TrimSpace(v.GetString("pg_dsn")),
		AuthSecret:    strings.TrimSpace(v.GetString("auth_secret")),
		AppURL:        strings.TrimRight(v.GetString("app_url"), "/"),
		LogLevel:      v.GetString("log_level"),
		SessionTTL:    v.GetDuration("session_ttl"),
		ShareGrantTTL: v.GetDuration("share_grant_ttl"),
		ResetTTL:      v.GetDuration("reset_ttl"),
		SignupLimit:   RateLimit{Events: v.GetInt("rate_signup_events"), Interval: v.GetDuration("rate_signup_interval")},
		LoginLimit:    RateLimit{Events: v.GetInt("rate_login_events"), Interval: v.GetDuration("rate_login_interval")},
		ResetLimit:    RateLimit{Events: v.GetInt("rate_reset_events"), Interval: v.GetDuration("rate_reset_interval")},
		UnlockLimit:   RateLimit{Events: v.GetInt("rate_unlock_events"), Interval: v.GetDuration("rate_unlock_interval")},
		APILimit:      RateLimit{Events: v.GetInt("rate_api_events"), Interval: v.GetDuration("rate_api_interval")},
		MaxBodyBytes:  v.GetInt64("max_body_bytes"),
	}
	for _, p := range v.GetStringSlice("trusted_proxies") {
		for _, part := range strings.Split(p, ",") {
			if part = strings.TrimSpace(part); part != "" {
				cfg.TrustedProxies = append(cfg.TrustedProxies, part)
			}
		}
	}
	return cfg, cfg.Validate()
}

// Validate fails fast on settings the service cannot start without.
func (c Config) Validate() error {
	if c.AuthSecret == "" {
		return fmt.Errorf("%w: %s_AUTH_SECRET is required", ErrInvalidConfig, envPrefix)
	}
	switch c.Store {
	case StorePostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("%w: %s_PG_DSN is required for the postgres store", ErrInvalidConfig, envPrefix)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}
	if c.SessionTTL <= 0 || c.ShareGrantTTL <= 0 || c.ResetTTL <= 0 {
		return fmt.Errorf("%w: ttl values must be positive", ErrInvalidConfig)
	}
	for name, rl := range map[string]RateLimit{"signup": c.SignupLimit, "login": c.LoginLimit, "reset": c.ResetLimit, "unlock": c.UnlockLimit, "api": c.APILimit} {
		if rl.Events <= 0 || rl.Interval <= 0 {
			return fmt.Errorf("%w: rate limit %s must be positive", ErrInvalidConfig, name)
		}
	}
	return nil
}
