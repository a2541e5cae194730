package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/platform/clock"
	"github.com/jsamuelsen11/trackflow/internal/platform/telemetry"
	"github.com/jsamuelsen11/trackflow/internal/ports"
)

// Recorder stamps activity records and writes them to the audit sink. It is
// called after the mutation has committed, synchronously, so records for one
// entity reach the sink in commit order.
type Recorder struct {
	sink    ports.AuditSink
	clock   clock.Clock
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// NewRecorder creates a Recorder. A nil sink discards records.
func NewRecorder(sink ports.AuditSink, clk clock.Clock, metrics *telemetry.Metrics, logger *slog.Logger) *Recorder {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{sink: sink, clock: clk, metrics: metrics, logger: logger}
}

// Record fills in ID and Timestamp when missing and writes rec. A sink
// failure is logged and counted; it never reaches the caller.
func (r *Recorder) Record(ctx context.Context, rec domain.ActivityRecord) {
	if r.sink == nil {
		return
	}
	if rec.ID == "" {
		rec.ID = newID()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = r.clock.Now()
	}

	if err := r.sink.Record(ctx, rec); err != nil {
		r.metrics.RecordSideEffectFailure(ctx, "audit")
		r.logger.WarnContext(ctx, "failed to record activity",
			slog.String("entity_type", rec.EntityType),
			slog.String("entity_id", rec.EntityID),
			slog.String("action", rec.Action),
			slog.Any("error", err),
		)
	}
}

// Activity reads back the records of one entity when the sink supports it.
func (r *Recorder) Activity(ctx context.Context, entityType, entityID string) ([]domain.ActivityRecord, error) {
	reader, ok := r.sink.(ports.ActivityReader)
	if !ok {
		return nil, fmt.Errorf("audit sink cannot be read back: %w", domain.ErrUnavailable)
	}
	return reader.Activity(ctx, entityType, entityID)
}
