// Package config provides configuration loading and validation for the service.
// Configuration is loaded from YAML files with environment variable overrides
// using a layered system: defaults -> base.yaml -> {profile}.yaml -> env vars.
package config

import "time"

// Config holds all configuration for the service.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Client    ClientConfig    `koanf:"client"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Store     StoreConfig     `koanf:"store"`
	Workflow  WorkflowConfig  `koanf:"workflow"`
	Audit     AuditConfig     `koanf:"audit"`
	Notify    NotifyConfig    `koanf:"notify"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
	// RequestTimeout bounds each API request's handler; 0 disables it.
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ClientConfig holds the policy shared by every outbound HTTP client (audit
// sink, notification webhook). Each client supplies its own base URL.
type ClientConfig struct {
	Timeout        time.Duration        `koanf:"timeout"`
	Retry          RetryConfig          `koanf:"retry"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker"`
	RateLimit      RateLimitConfig      `koanf:"rate_limit"`
}

// RetryConfig holds retry policy settings with exponential backoff.
type RetryConfig struct {
	MaxAttempts     int           `koanf:"max_attempts"`
	InitialInterval time.Duration `koanf:"initial_interval"`
	MaxInterval     time.Duration `koanf:"max_interval"`
	Multiplier      float64       `koanf:"multiplier"`
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	MaxFailures   int           `koanf:"max_failures"`
	Timeout       time.Duration `koanf:"timeout"`
	HalfOpenLimit int           `koanf:"half_open_limit"`
}

// RateLimitConfig holds outbound rate limiting. A zero rate disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	BurstSize         int     `koanf:"burst_size"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Exporter    string `koanf:"exporter"`
	Endpoint    string `koanf:"endpoint"`
	ServiceName string `koanf:"service_name"`
}

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Driver       string `koanf:"driver"`
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
}

// WorkflowConfig tunes the synchronization engine.
type WorkflowConfig struct {
	// MaxConflictRetries caps read-modify-write attempts on version conflicts.
	MaxConflictRetries int           `koanf:"max_conflict_retries"`
	RetryBackoff       time.Duration `koanf:"retry_backoff"`
	RecentActivityCap  int           `koanf:"recent_activity_cap"`
	ReconcileWorkers   int           `koanf:"reconcile_workers"`
	// BugResolvedStatus is the ticket status forced when a linked bug is
	// resolved.
	BugResolvedStatus string `koanf:"bug_resolved_status"`
}

// Audit sinks.
const (
	AuditSinkLog    = "log"
	AuditSinkMemory = "memory"
	AuditSinkHTTP   = "http"
)

// AuditConfig selects where activity records go.
type AuditConfig struct {
	Sink    string `koanf:"sink"`
	BaseURL string `koanf:"base_url"`
	Path    string `koanf:"path"`
}

// Notification sinks.
const (
	NotifySinkLog     = "log"
	NotifySinkWebhook = "webhook"
	NotifySinkNone    = "none"
)

// NotifyConfig configures the notification dispatcher and its sink.
type NotifyConfig struct {
	Sink      string `koanf:"sink"`
	BaseURL   string `koanf:"base_url"`
	Path      string `koanf:"path"`
	QueueSize int    `koanf:"queue_size"`
	Workers   int    `koanf:"workers"`
}
