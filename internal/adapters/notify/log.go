// Package notify provides the in-process notification sink.
package notify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/ports"
)

var _ ports.Notifier = (*LogNotifier)(nil)

// LogNotifier logs each event instead of delivering it.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier writing to logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With(slog.String("component", "notify"))}
}

// Publish implements ports.Notifier.
func (n *LogNotifier) Publish(ctx context.Context, ev domain.Event) error {
	n.logger.InfoContext(ctx, "notification",
		slog.String("event_type", ev.Type),
		slog.String("project_id", ev.ProjectID),
		slog.String("targets", strings.Join(ev.TargetUserIDs, ",")),
		slog.Any("payload", ev.Payload),
	)
	return nil
}
