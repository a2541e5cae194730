package config

const (
	defaultServerPort = 8080

	defaultRetryMaxAttempts = 3
	defaultRetryMultiplier  = 2.0

	defaultCircuitBreakerMaxFailures = 5
	defaultCircuitBreakerHalfOpen    = 1

	defaultMaxConflictRetries = 3
	defaultRecentActivityCap  = 50
	defaultReconcileWorkers   = 4

	defaultNotifyQueueSize = 256
	defaultNotifyWorkers   = 2
)

// defaults returns the default configuration values.
// These are loaded first and can be overridden by base.yaml, profile YAML, and env vars.
func defaults() map[string]any {
	return map[string]any{
		"server.host":            "0.0.0.0",
		"server.port":            defaultServerPort,
		"server.read_timeout":    "5s",
		"server.write_timeout":   "10s",
		"server.idle_timeout":    "120s",
		"server.request_timeout": "8s",

		"log.level":  "info",
		"log.format": "json",

		"client.timeout":                         "10s",
		"client.retry.max_attempts":              defaultRetryMaxAttempts,
		"client.retry.initial_interval":          "100ms",
		"client.retry.max_interval":              "5s",
		"client.retry.multiplier":                defaultRetryMultiplier,
		"client.circuit_breaker.max_failures":    defaultCircuitBreakerMaxFailures,
		"client.circuit_breaker.timeout":         "30s",
		"client.circuit_breaker.half_open_limit": defaultCircuitBreakerHalfOpen,
		"client.rate_limit.requests_per_second":  0,
		"client.rate_limit.burst_size":           0,

		"telemetry.enabled":      false,
		"telemetry.exporter":     "stdout",
		"telemetry.endpoint":     "",
		"telemetry.service_name": "trackflow",

		"store.driver":         DriverMemory,
		"store.dsn":            "",
		"store.max_open_conns": 0,

		"workflow.max_conflict_retries": defaultMaxConflictRetries,
		"workflow.retry_backoff":        "10ms",
		"workflow.recent_activity_cap":  defaultRecentActivityCap,
		"workflow.reconcile_workers":    defaultReconcileWorkers,
		"workflow.bug_resolved_status":  "testing",

		"audit.sink":     AuditSinkLog,
		"audit.base_url": "",
		"audit.path":     "/v1/activity",

		"notify.sink":       NotifySinkLog,
		"notify.base_url":   "",
		"notify.path":       "/v1/events",
		"notify.queue_size": defaultNotifyQueueSize,
		"notify.workers":    defaultNotifyWorkers,
	}
}
