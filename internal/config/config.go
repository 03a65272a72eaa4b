package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultWebhookURL is the analysis endpoint used when WEBHOOK_URL is unset.
const DefaultWebhookURL = "https://magesh-srinivasan.app.n8n.cloud/webhook-test/meal-ai"

type Config struct {
	// Server config
	Server ServerConfig

	// session and CSRF config
	Security SecurityConfig

	// analysis webhook config
	Webhook WebhookConfig

	// upload limits
	Limits LimitsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	Environment  string // development, staging, production
	BaseURL      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	CSRFSecret        string
	SessionHashKey    string
	SessionCookieName string
	SessionTTL        time.Duration
	SecureCookies     bool // true in production
}

// WebhookConfig holds the remote analysis endpoint settings.
type WebhookConfig struct {
	URL     string
	Timeout time.Duration
}

// LimitsConfig holds upload size limits.
type LimitsConfig struct {
	MaxUploadBytes int64
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Server.Port
}

func Load() (*Config, error) {
	// .env is optional; in production the variables come from the environment
	_ = godotenv.Load()

	cfg := &Config{}
	var errs []error

	cfg.Server = ServerConfig{
		Port:         getEnvOrDefault("SERVER_PORT", "8080"),
		Environment:  getEnvOrDefault("APP_ENV", "development"),
		BaseURL:      getEnvOrDefault("BASE_URL", "http://localhost:8080"),
		ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 15*time.Second, &errs),
		WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 15*time.Second, &errs),
		IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 60*time.Second, &errs),
	}

	cfg.Security = SecurityConfig{
		CSRFSecret:        os.Getenv("CSRF_SECRET"),
		SessionHashKey:    os.Getenv("SESSION_HASH_KEY"),
		SessionCookieName: getEnvOrDefault("SESSION_COOKIE_NAME", "meal_analyzer_session"),
		SessionTTL:        getDuration("SESSION_TTL", 2*time.Hour, &errs),
		SecureCookies:     cfg.Server.Environment == "production",
	}

	cfg.Webhook = WebhookConfig{
		URL:     getEnvOrDefault("WEBHOOK_URL", DefaultWebhookURL),
		Timeout: getDuration("WEBHOOK_TIMEOUT", 60*time.Second, &errs),
	}

	maxUpload, err := strconv.ParseInt(getEnvOrDefault("MAX_UPLOAD_BYTES", "10485760"), 10, 64)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid MAX_UPLOAD_BYTES: %w", err))
	}
	cfg.Limits = LimitsConfig{
		MaxUploadBytes: maxUpload,
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration parsing failed:\n%w", errors.Join(errs...))
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that all required configuration is present and valid.
func (c *Config) validate() error {
	var errs []error

	if c.Security.CSRFSecret == "" {
		errs = append(errs, errors.New("CSRF_SECRET is required"))
	} else if len(c.Security.CSRFSecret) < 32 {
		errs = append(errs, errors.New("CSRF_SECRET must be at least 32 characters"))
	}

	if c.Security.SessionHashKey == "" {
		errs = append(errs, errors.New("SESSION_HASH_KEY is required"))
	} else if len(c.Security.SessionHashKey) < 32 {
		errs = append(errs, errors.New("SESSION_HASH_KEY must be at least 32 characters"))
	}

	if c.Security.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}

	if c.Webhook.URL == "" {
		errs = append(errs, errors.New("WEBHOOK_URL must not be empty"))
	}

	if c.Limits.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.Server.Environment] {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of: development, staging, production (got: %s)", c.Server.Environment))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%w", errors.Join(errs...))
	}

	return nil
}

// getEnvOrDefault returns the .env value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return d
}

// MustLoad is like Load but panics on error.
// Used in main() where its required to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
