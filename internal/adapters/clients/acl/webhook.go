package acl

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jsamuelsen11/trackflow/internal/adapters/clients/acl/event"
	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/platform/httpclient"
	"github.com/jsamuelsen11/trackflow/internal/ports"
)

var (
	_ ports.Notifier      = (*WebhookNotifier)(nil)
	_ ports.HealthChecker = (*WebhookNotifier)(nil)
)

// WebhookNotifier posts change notifications to the downstream
// notification service (POST {path}, 202 Accepted).
type WebhookNotifier struct {
	req  *Requester
	path string
}

// NewWebhookNotifier creates a notifier posting to path on the client's
// base URL.
func NewWebhookNotifier(client *httpclient.Client, path string, logger *slog.Logger) *WebhookNotifier {
	return &WebhookNotifier{req: NewRequester(client, logger), path: path}
}

// Publish implements ports.Notifier.
func (n *WebhookNotifier) Publish(ctx context.Context, ev domain.Event) error {
	return n.req.Do(ctx, http.MethodPost, n.path, http.StatusAccepted, event.ToEventDTO(&ev), nil)
}

// Name implements ports.HealthChecker.
func (n *WebhookNotifier) Name() string {
	return n.req.Name()
}

// HealthCheck reports the notification service's breaker state.
func (n *WebhookNotifier) HealthCheck(ctx context.Context) error {
	return n.req.HealthCheck(ctx)
}
