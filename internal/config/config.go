package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	LayoutKeyed  = "keyed"
	LayoutLegacy = "legacy"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	WebPort        string        `mapstructure:"WEB_PORT"`
	Env            string        `mapstructure:"ENV"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	SessionTTL     time.Duration `mapstructure:"SESSION_TTL"`
	IdentityLayout string        `mapstructure:"IDENTITY_LAYOUT"`
	StoreDriver    string        `mapstructure:"STORE_DRIVER"`
	StoreDSN       string        `mapstructure:"STORE_DSN"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	RedisAddr      string        `mapstructure:"REDIS_ADDR"`
	RedisPassword  string        `mapstructure:"REDIS_PASSWORD"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	PhotoBucket    string        `mapstructure:"PHOTO_BUCKET"`
	PhotoMaxBytes  int64         `mapstructure:"PHOTO_MAX_BYTES"`
	AWSRegion      string        `mapstructure:"AWS_REGION"`
	AWSEndpoint    string        `mapstructure:"AWS_ENDPOINT_OVERRIDE"`
}

var defaults = map[string]any{
	"PORT":                  "50051",
	"WEB_PORT":              "8080",
	"ENV":                   "development",
	"LOG_LEVEL":             "info",
	"JWT_SECRET":            "",
	"SESSION_TTL":           "12h",
	"IDENTITY_LAYOUT":       LayoutKeyed,
	"STORE_DRIVER":          "sqlite",
	"STORE_DSN":             "booking.db",
	"DATABASE_URL":          "",
	"REDIS_ADDR":            "localhost:6379",
	"REDIS_PASSWORD":        "",
	"RATE_LIMIT_RPS":        5,
	"RATE_LIMIT_BURST":      10,
	"PHOTO_BUCKET":          "",
	"PHOTO_MAX_BYTES":       5 << 20,
	"AWS_REGION":            "us-east-1",
	"AWS_ENDPOINT_OVERRIDE": "",
}

// Load reads .env files (if any) into the environment, then the environment
// into a Config. The result is validated.
func Load(files ...string) (*Config, error) {
	_ = godotenv.Load(files...)

	v := viper.New()
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
		// bind explicitly so Unmarshal sees env-only keys
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.IdentityLayout = strings.ToLower(strings.TrimSpace(cfg.IdentityLayout))
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	switch c.IdentityLayout {
	case LayoutKeyed, LayoutLegacy:
	default:
		return fmt.Errorf("IDENTITY_LAYOUT must be %q or %q, got %q", LayoutKeyed, LayoutLegacy, c.IdentityLayout)
	}
	switch c.StoreDriver {
	case "memory", "sqlite", "redis":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.PhotoMaxBytes <= 0 {
		return fmt.Errorf("PHOTO_MAX_BYTES must be positive")
	}
	return nil
}
