package ports

import (
	"context"

	"github.com/jsamuelsen11/trackflow/internal/domain"
)

// AuditSink receives one ActivityRecord per committed mutation. Records for
// one entity arrive in commit order. A sink error never fails the mutation
// that produced the record.
type AuditSink interface {
	Record(ctx context.Context, rec domain.ActivityRecord) error
}

// ActivityReader is implemented by sinks that can return what they stored.
type ActivityReader interface {
	// Activity returns the records for one entity, in the order recorded.
	Activity(ctx context.Context, entityType, entityID string) ([]domain.ActivityRecord, error)
}

// Notifier delivers change notifications to users. Delivery is at-most-once
// and unordered.
type Notifier interface {
	Publish(ctx context.Context, ev domain.Event) error
}
