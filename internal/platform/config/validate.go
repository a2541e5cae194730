package config

import (
	"errors"
	"fmt"
)

// Validate checks all configuration values and returns aggregated errors.
func (c *Config) Validate() error {
	return errors.Join(
		c.Server.validate(),
		c.Log.validate(),
		c.Client.validate(),
		c.Telemetry.validate(),
		c.Store.validate(),
		c.Workflow.validate(),
		c.Audit.validate(),
		c.Notify.validate(),
	)
}

func (s *ServerConfig) validate() error {
	var errs []error

	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", s.Port))
	}
	if s.ReadTimeout <= 0 {
		errs = append(errs, errors.New("server.read_timeout must be positive"))
	}
	if s.WriteTimeout <= 0 {
		errs = append(errs, errors.New("server.write_timeout must be positive"))
	}
	if s.RequestTimeout < 0 {
		errs = append(errs, errors.New("server.request_timeout must not be negative"))
	}

	return errors.Join(errs...)
}

func (l *LogConfig) validate() error {
	var errs []error

	switch l.Level {
	case "debug", "info", "warn", "error":
		// Valid levels.
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", l.Level))
	}

	switch l.Format {
	case "json", "text":
		// Valid formats.
	default:
		errs = append(errs, fmt.Errorf("log.format must be one of: json, text; got %q", l.Format))
	}

	return errors.Join(errs...)
}

func (cl *ClientConfig) validate() error {
	var errs []error

	if cl.Timeout <= 0 {
		errs = append(errs, errors.New("client.timeout must be positive"))
	}
	if cl.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("client.retry.max_attempts must be >= 1, got %d", cl.Retry.MaxAttempts))
	}
	if cl.Retry.Multiplier <= 0 {
		errs = append(errs, fmt.Errorf("client.retry.multiplier must be positive, got %f", cl.Retry.Multiplier))
	}
	if cl.CircuitBreaker.MaxFailures < 1 {
		errs = append(errs, fmt.Errorf("client.circuit_breaker.max_failures must be >= 1, got %d",
			cl.CircuitBreaker.MaxFailures))
	}
	if cl.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("client.rate_limit.requests_per_second must not be negative, got %f",
			cl.RateLimit.RequestsPerSecond))
	}
	if cl.RateLimit.RequestsPerSecond > 0 && cl.RateLimit.BurstSize < 1 {
		errs = append(errs, errors.New("client.rate_limit.burst_size must be >= 1 when rate limiting is enabled"))
	}

	return errors.Join(errs...)
}

func (t *TelemetryConfig) validate() error {
	if !t.Enabled {
		return nil
	}

	var errs []error

	switch t.Exporter {
	case "stdout", "otlp":
		// Valid exporters.
	default:
		errs = append(errs, fmt.Errorf("telemetry.exporter must be one of: stdout, otlp; got %q", t.Exporter))
	}

	if t.Exporter == "otlp" && t.Endpoint == "" {
		errs = append(errs, errors.New("telemetry.endpoint must not be empty when exporter is otlp"))
	}

	return errors.Join(errs...)
}

func (s *StoreConfig) validate() error {
	switch s.Driver {
	case DriverMemory:
		return nil
	case DriverSQLite, DriverPostgres:
		if s.DSN == "" {
			return fmt.Errorf("store.dsn must not be empty for driver %q", s.Driver)
		}
		return nil
	default:
		return fmt.Errorf("store.driver must be one of: memory, sqlite, postgres; got %q", s.Driver)
	}
}

func (w *WorkflowConfig) validate() error {
	var errs []error

	if w.MaxConflictRetries < 1 {
		errs = append(errs, fmt.Errorf("workflow.max_conflict_retries must be >= 1, got %d", w.MaxConflictRetries))
	}
	if w.RetryBackoff < 0 {
		errs = append(errs, errors.New("workflow.retry_backoff must not be negative"))
	}
	if w.RecentActivityCap < 1 {
		errs = append(errs, fmt.Errorf("workflow.recent_activity_cap must be >= 1, got %d", w.RecentActivityCap))
	}
	if w.ReconcileWorkers < 1 {
		errs = append(errs, fmt.Errorf("workflow.reconcile_workers must be >= 1, got %d", w.ReconcileWorkers))
	}
	switch w.BugResolvedStatus {
	case "open", "in_progress", "code_review", "testing", "done":
		// Valid work item statuses.
	default:
		errs = append(errs, fmt.Errorf("workflow.bug_resolved_status must be a work item status, got %q",
			w.BugResolvedStatus))
	}

	return errors.Join(errs...)
}

func (a *AuditConfig) validate() error {
	switch a.Sink {
	case AuditSinkLog, AuditSinkMemory:
		return nil
	case AuditSinkHTTP:
		if a.BaseURL == "" {
			return errors.New("audit.base_url must not be empty when sink is http")
		}
		return nil
	default:
		return fmt.Errorf("audit.sink must be one of: log, memory, http; got %q", a.Sink)
	}
}

func (n *NotifyConfig) validate() error {
	var errs []error

	switch n.Sink {
	case NotifySinkLog, NotifySinkNone:
		// No endpoint needed.
	case NotifySinkWebhook:
		if n.BaseURL == "" {
			errs = append(errs, errors.New("notify.base_url must not be empty when sink is webhook"))
		}
	default:
		errs = append(errs, fmt.Errorf("notify.sink must be one of: log, webhook, none; got %q", n.Sink))
	}
	if n.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("notify.queue_size must be >= 1, got %d", n.QueueSize))
	}
	if n.Workers < 1 {
		errs = append(errs, fmt.Errorf("notify.workers must be >= 1, got %d", n.Workers))
	}

	return errors.Join(errs...)
}
