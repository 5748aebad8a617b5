package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brojonat/txplain/service/enrich"
	"github.com/brojonat/txplain/service/sui"
)

// maxEnrichedObjects is the largest enrichment selection for one transaction.
const maxEnrichedObjects = enrich.MaxCoinTransfers + enrich.MaxCreated + enrich.MaxOtherTransfers

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Database configuration (optional; archive disabled when empty)
	DatabaseURL string

	// NATS configuration (optional; publishing disabled when empty)
	NATSURL string

	// Sui RPC configuration
	SuiRPCURL          string
	SuiFallbackRPCURLs []string

	// Fetch configuration
	FetchMaxRetries     int
	FetchBaseDelay      time.Duration
	FetchAttemptTimeout time.Duration
	HealthProbeTimeout  time.Duration

	// Enrichment configuration
	EnrichObjectTimeout time.Duration
	EnrichBatchTimeout  time.Duration

	// Temporal configuration
	TemporalHost      string
	TemporalNamespace string
	TemporalTaskQueue string

	// Archive retention; zero disables pruning
	ArchiveRetention time.Duration
	PruneInterval    time.Duration
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Optional sinks
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.NATSURL = os.Getenv("NATS_URL")

	// Sui RPC configuration
	cfg.SuiRPCURL = os.Getenv("SUI_RPC_URL")
	if cfg.SuiRPCURL == "" {
		errs = append(errs, fmt.Errorf("SUI_RPC_URL is required"))
	}
	cfg.SuiFallbackRPCURLs = splitList(os.Getenv("SUI_FALLBACK_RPC_URLS"))

	// Fetch configuration
	retries, err := parseInt("FETCH_MAX_RETRIES", 3)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.FetchMaxRetries = retries
	}

	durations := []struct {
		key  string
		def  string
		dest *time.Duration
	}{
		{"FETCH_BASE_DELAY", "500ms", &cfg.FetchBaseDelay},
		{"FETCH_ATTEMPT_TIMEOUT", "10s", &cfg.FetchAttemptTimeout},
		{"HEALTH_PROBE_TIMEOUT", "3s", &cfg.HealthProbeTimeout},
		{"ENRICH_OBJECT_TIMEOUT", "3s", &cfg.EnrichObjectTimeout},
		{"ENRICH_BATCH_TIMEOUT", "5s", &cfg.EnrichBatchTimeout},
		{"ARCHIVE_RETENTION", "0s", &cfg.ArchiveRetention},
		{"PRUNE_INTERVAL", "24h", &cfg.PruneInterval},
	}
	for _, d := range durations {
		v, err := parseDuration(d.key, d.def)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*d.dest = v
	}

	// Temporal configuration
	cfg.TemporalHost = getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")
	cfg.TemporalNamespace = getEnvOrDefault("TEMPORAL_NAMESPACE", "default")
	cfg.TemporalTaskQueue = getEnvOrDefault("TEMPORAL_TASK_QUEUE", "txplain-interpret")

	// Return all parse errors before cross-field validation
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.SuiRPCURL == "" {
		errs = append(errs, fmt.Errorf("SuiRPCURL is required"))
	} else if _, err := sui.NewSource(c.SuiRPCURL); err != nil {
		errs = append(errs, fmt.Errorf("SuiRPCURL: %w", err))
	}

	seen := map[string]bool{c.SuiRPCURL: true}
	for _, u := range c.SuiFallbackRPCURLs {
		if seen[u] {
			errs = append(errs, fmt.Errorf("fallback RPC URL %q is duplicated or equals the primary", u))
		}
		seen[u] = true
		if _, err := sui.NewSource(u); err != nil {
			errs = append(errs, fmt.Errorf("fallback RPC URL: %w", err))
		}
	}

	if c.FetchMaxRetries < 1 {
		errs = append(errs, fmt.Errorf("FetchMaxRetries must be at least 1"))
	}

	positive := []struct {
		name string
		d    time.Duration
	}{
		{"FetchBaseDelay", c.FetchBaseDelay},
		{"FetchAttemptTimeout", c.FetchAttemptTimeout},
		{"HealthProbeTimeout", c.HealthProbeTimeout},
		{"EnrichObjectTimeout", c.EnrichObjectTimeout},
		{"EnrichBatchTimeout", c.EnrichBatchTimeout},
	}
	for _, p := range positive {
		if p.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", p.name))
		}
	}

	if ceiling := c.EnrichObjectTimeout * maxEnrichedObjects; c.EnrichBatchTimeout >= ceiling {
		errs = append(errs, fmt.Errorf("EnrichBatchTimeout (%v) must be less than %d x EnrichObjectTimeout (%v)",
			c.EnrichBatchTimeout, maxEnrichedObjects, c.EnrichObjectTimeout))
	}

	if c.ArchiveRetention < 0 {
		errs = append(errs, fmt.Errorf("ArchiveRetention cannot be negative"))
	}
	if c.ArchiveRetention > 0 && c.PruneInterval <= 0 {
		errs = append(errs, fmt.Errorf("PruneInterval must be positive when ArchiveRetention is set"))
	}

	if c.TemporalHost == "" {
		errs = append(errs, fmt.Errorf("TemporalHost is required"))
	}

	if c.TemporalNamespace == "" {
		errs = append(errs, fmt.Errorf("TemporalNamespace is required"))
	}

	if c.TemporalTaskQueue == "" {
		errs = append(errs, fmt.Errorf("TemporalTaskQueue is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// FetchConfig returns the fetch orchestrator settings.
func (c *Config) FetchConfig() sui.FetchConfig {
	return sui.FetchConfig{
		MaxRetries:     c.FetchMaxRetries,
		BaseDelay:      c.FetchBaseDelay,
		AttemptTimeout: c.FetchAttemptTimeout,
		ProbeTimeout:   c.HealthProbeTimeout,
	}
}

// EnrichConfig returns the enrichment time limits.
func (c *Config) EnrichConfig() enrich.Config {
	return enrich.Config{
		ObjectTimeout: c.EnrichObjectTimeout,
		BatchTimeout:  c.EnrichBatchTimeout,
	}
}

// Sources parses the primary and fallback RPC URLs.
func (c *Config) Sources() (sui.Source, []sui.Source, error) {
	primary, err := sui.NewSource(c.SuiRPCURL)
	if err != nil {
		return sui.Source{}, nil, err
	}
	alternates, err := sui.ParseSources(c.SuiFallbackRPCURLs)
	if err != nil {
		return sui.Source{}, nil, err
	}
	return primary, alternates, nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
