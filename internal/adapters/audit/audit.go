// Package audit provides in-process activity sinks: a structured-log sink
// for deployments that ship logs to their audit store, and a queryable
// memory sink for local runs and tests. The HTTP sink lives in
// adapters/clients/acl.
package audit

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/ports"
)

var (
	_ ports.AuditSink      = (*LogSink)(nil)
	_ ports.AuditSink      = (*MemorySink)(nil)
	_ ports.ActivityReader = (*MemorySink)(nil)
)

// LogSink writes each record as one structured log line.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink writing to logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With(slog.String("component", "audit"))}
}

// Record implements ports.AuditSink.
func (s *LogSink) Record(ctx context.Context, rec domain.ActivityRecord) error {
	s.logger.InfoContext(ctx, "activity",
		slog.String("activity_id", rec.ID),
		slog.String("entity_type", rec.EntityType),
		slog.String("entity_id", rec.EntityID),
		slog.String("project_id", rec.ProjectID),
		slog.String("actor_id", rec.ActorID),
		slog.String("action", rec.Action),
		slog.String("old_value", rec.OldValue),
		slog.String("new_value", rec.NewValue),
		slog.Time("timestamp", rec.Timestamp),
	)
	return nil
}

type entityKey struct {
	entityType string
	entityID   string
}

// MemorySink keeps every record in memory, indexed by entity. Safe for
// concurrent use.
type MemorySink struct {
	mu       sync.RWMutex
	all      []domain.ActivityRecord
	byEntity map[entityKey][]int
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{byEntity: make(map[entityKey][]int)}
}

// Record implements ports.AuditSink.
func (s *MemorySink) Record(_ context.Context, rec domain.ActivityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := entityKey{entityType: rec.EntityType, entityID: rec.EntityID}
	s.byEntity[k] = append(s.byEntity[k], len(s.all))
	s.all = append(s.all, rec)
	return nil
}

// Activity implements ports.ActivityReader.
func (s *MemorySink) Activity(_ context.Context, entityType, entityID string) ([]domain.ActivityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.byEntity[entityKey{entityType: entityType, entityID: entityID}]
	out := make([]domain.ActivityRecord, len(idx))
	for i, n := range idx {
		out[i] = s.all[n]
	}
	return out, nil
}

// All returns every record in arrival order.
func (s *MemorySink) All() []domain.ActivityRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ActivityRecord, len(s.all))
	copy(out, s.all)
	return out
}
