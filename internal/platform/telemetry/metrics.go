package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Attribute keys for metric labels.
var (
	AttrHTTPMethod  = attribute.Key("http.method")
	AttrHTTPStatus  = attribute.Key("http.status_code")
	AttrPeerService = attribute.Key("peer.service")
	AttrResult      = attribute.Key("result")
	AttrEntity      = attribute.Key("entity")
	AttrEffect      = attribute.Key("effect")
	AttrReason      = attribute.Key("reason")
)

// Metrics holds pre-registered OpenTelemetry metric instruments. The Record
// helpers are safe to call on a nil *Metrics.
type Metrics struct {
	ServerRequestDuration metric.Float64Histogram
	ServerRequestTotal    metric.Int64Counter
	ClientRequestDuration metric.Float64Histogram
	ClientRequestTotal    metric.Int64Counter

	// TransitionTotal counts status transitions by entity and result
	// (applied, denied).
	TransitionTotal metric.Int64Counter
	// ConflictTotal counts optimistic-concurrency conflicts by entity.
	ConflictTotal metric.Int64Counter
	// ReconcileTotal counts per-board reconciliation outcomes (moved,
	// unchanged, flagged).
	ReconcileTotal metric.Int64Counter
	// SideEffectFailureTotal counts best-effort writes that failed, by
	// effect (audit, bug_bridge, sprint_ticket, reconcile).
	SideEffectFailureTotal metric.Int64Counter
	// NotificationDroppedTotal counts events the dispatcher discarded, by
	// reason (queue_full, closed, delivery).
	NotificationDroppedTotal metric.Int64Counter
}

// NewMetrics registers every instrument on a meter named after the service.
func NewMetrics(mp metric.MeterProvider, serviceName string) (*Metrics, error) {
	meter := mp.Meter(serviceName)
	m := &Metrics{}
	var err error

	histograms := []struct {
		dst              *metric.Float64Histogram
		name, desc, unit string
	}{
		{&m.ServerRequestDuration, "http.server.request.duration", "Duration of incoming HTTP requests", "s"},
		{&m.ClientRequestDuration, "http.client.request.duration", "Duration of outgoing HTTP requests", "s"},
	}
	for _, h := range histograms {
		*h.dst, err = meter.Float64Histogram(h.name, metric.WithDescription(h.desc), metric.WithUnit(h.unit))
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", h.name, err)
		}
	}

	counters := []struct {
		dst              *metric.Int64Counter
		name, desc, unit string
	}{
		{&m.ServerRequestTotal, "http.server.request.total", "Total number of incoming HTTP requests", "{request}"},
		{&m.ClientRequestTotal, "http.client.request.total", "Total number of outgoing HTTP requests", "{request}"},
		{&m.TransitionTotal, "workflow.transition.total", "Status transitions attempted", "{transition}"},
		{&m.ConflictTotal, "store.version_conflict.total", "Optimistic concurrency conflicts", "{conflict}"},
		{&m.ReconcileTotal, "workflow.reconcile.total", "Board reconciliation outcomes", "{board}"},
		{&m.SideEffectFailureTotal, "workflow.side_effect.failure.total", "Best-effort writes that failed", "{failure}"},
		{&m.NotificationDroppedTotal, "notify.dropped.total", "Notifications discarded before delivery", "{event}"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", c.name, err)
		}
	}

	return m, nil
}

// NewNoopMetrics returns instruments that record nothing.
func NewNoopMetrics() *Metrics {
	m, err := NewMetrics(noop.NewMeterProvider(), "noop")
	if err != nil {
		panic(err)
	}
	return m
}

// RecordTransition counts one status transition attempt.
func (m *Metrics) RecordTransition(ctx context.Context, entity string, applied bool) {
	if m == nil {
		return
	}
	result := "denied"
	if applied {
		result = "applied"
	}
	m.TransitionTotal.Add(ctx, 1, metric.WithAttributes(AttrEntity.String(entity), AttrResult.String(result)))
}

// RecordConflict counts one version conflict.
func (m *Metrics) RecordConflict(ctx context.Context, entity string) {
	if m == nil {
		return
	}
	m.ConflictTotal.Add(ctx, 1, metric.WithAttributes(AttrEntity.String(entity)))
}

// RecordReconcile counts one per-board reconciliation outcome.
func (m *Metrics) RecordReconcile(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.ReconcileTotal.Add(ctx, 1, metric.WithAttributes(AttrResult.String(result)))
}

// RecordSideEffectFailure counts one failed best-effort write.
func (m *Metrics) RecordSideEffectFailure(ctx context.Context, effect string) {
	if m == nil {
		return
	}
	m.SideEffectFailureTotal.Add(ctx, 1, metric.WithAttributes(AttrEffect.String(effect)))
}

// RecordNotificationDropped counts one discarded notification.
func (m *Metrics) RecordNotificationDropped(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.NotificationDroppedTotal.Add(ctx, 1, metric.WithAttributes(AttrReason.String(reason)))
}
