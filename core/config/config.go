package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	OTel        OTelConfig
	AzureDevOps AzureDevOpsConfig
	Webhook     WebhookConfig
	Dedup       DedupConfig
	Env         string
	Port        string
	NodeID      int64
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type AzureDevOpsConfig struct {
	OrganizationURL string
	Project         string
	PAT             string
	Timeout         time.Duration
}

// WebhookConfig holds the optional basic auth credentials configured on the
// Azure DevOps service hook subscription.
type WebhookConfig struct {
	Username string
	Password string
}

type DedupBackend string

const (
	DedupBackendMemory DedupBackend = "memory"
	DedupBackendRedis  DedupBackend = "redis"
)

type DedupConfig struct {
	Backend    DedupBackend
	Window     time.Duration // completed events inside this window after first sight are ignored
	TTL        time.Duration // how long a first-seen entry is remembered
	MaxEntries int
	RedisURL   string
	KeyPrefix  string
}

// Load loads configuration from environment variables.
// In development, it loads from a .env file first.
func Load() (Config, error) {
	if getEnv("PRSYNC_ENV", "development") == "development" {
		_ = godotenv.Load(".env")
	}

	cfg := Config{
		Env:    getEnv("PRSYNC_ENV", "development"),
		Port:   getEnv("PORT", "3000"),
		NodeID: int64(getEnvInt("SNOWFLAKE_NODE_ID", 1)),
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "prsync"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		AzureDevOps: AzureDevOpsConfig{
			OrganizationURL: organizationURL(getEnv("AZDO_ORG_URL", ""), getEnv("AZDO_ORG", "")),
			Project:         getEnv("AZDO_PROJECT", ""),
			PAT:             getEnv("AZDO_PAT", ""),
			Timeout:         getEnvDuration("AZDO_TIMEOUT", 15*time.Second),
		},
		Webhook: WebhookConfig{
			Username: getEnv("WEBHOOK_USERNAME", ""),
			Password: getEnv("WEBHOOK_PASSWORD", ""),
		},
		Dedup: DedupConfig{
			Backend:    DedupBackend(getEnv("DEDUP_BACKEND", string(DedupBackendMemory))),
			Window:     getEnvDuration("DEDUP_WINDOW", 5*time.Second),
			TTL:        getEnvDuration("DEDUP_TTL", 30*time.Minute),
			MaxEntries: getEnvInt("DEDUP_MAX_ENTRIES", 10000),
			RedisURL:   getEnv("REDIS_URL", "redis://localhost:6379/0"),
			KeyPrefix:  getEnv("REDIS_KEY_PREFIX", "prsync:pr_first_seen:"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.AzureDevOps.OrganizationURL == "" || c.AzureDevOps.Project == "" {
		return fmt.Errorf("AZDO_ORG (or AZDO_ORG_URL) and AZDO_PROJECT are required")
	}
	if c.AzureDevOps.PAT == "" {
		return fmt.Errorf("AZDO_PAT is required")
	}
	switch c.Dedup.Backend {
	case DedupBackendMemory, DedupBackendRedis:
	default:
		return fmt.Errorf("DEDUP_BACKEND must be %q or %q, got %q", DedupBackendMemory, DedupBackendRedis, c.Dedup.Backend)
	}
	if c.Dedup.Window < 0 {
		return fmt.Errorf("DEDUP_WINDOW must not be negative")
	}
	if c.Dedup.TTL > 0 && c.Dedup.TTL < c.Dedup.Window {
		return fmt.Errorf("DEDUP_TTL (%s) must be at least DEDUP_WINDOW (%s)", c.Dedup.TTL, c.Dedup.Window)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c WebhookConfig) Enabled() bool {
	return c.Username != "" || c.Password != ""
}

// organizationURL prefers an explicit URL (on-prem collections, custom hosts)
// and otherwise builds the dev.azure.com URL from the organization name.
func organizationURL(explicit, org string) string {
	if explicit != "" {
		return strings.TrimSuffix(explicit, "/")
	}
	if org == "" {
		return ""
	}
	return "https://dev.azure.com/" + org
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("5s") or a bare number of milliseconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
