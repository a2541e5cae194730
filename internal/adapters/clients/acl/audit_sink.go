package acl

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/jsamuelsen11/trackflow/internal/adapters/clients/acl/activity"
	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/platform/httpclient"
	"github.com/jsamuelsen11/trackflow/internal/ports"
)

var (
	_ ports.AuditSink      = (*AuditSink)(nil)
	_ ports.ActivityReader = (*AuditSink)(nil)
	_ ports.HealthChecker  = (*AuditSink)(nil)
)

// AuditSink ships activity records to the downstream audit service:
//
//	POST {path}                                       record one entry (202)
//	GET  {path}?entity_type={type}&entity_id={id}     read an entity's stream (200)
//
// The underlying httpclient.Client supplies retries, circuit breaking,
// tracing and the health signal.
type AuditSink struct {
	req  *Requester
	path string
}

// NewAuditSink creates a sink posting to path on the client's base URL.
func NewAuditSink(client *httpclient.Client, path string, logger *slog.Logger) *AuditSink {
	return &AuditSink{req: NewRequester(client, logger), path: path}
}

// Record implements ports.AuditSink.
func (s *AuditSink) Record(ctx context.Context, rec domain.ActivityRecord) error {
	return s.req.Do(ctx, http.MethodPost, s.path, http.StatusAccepted, activity.ToRecordDTO(&rec), nil)
}

// Activity implements ports.ActivityReader.
func (s *AuditSink) Activity(ctx context.Context, entityType, entityID string) ([]domain.ActivityRecord, error) {
	q := url.Values{}
	q.Set("entity_type", entityType)
	q.Set("entity_id", entityID)

	var dto activity.ListResponseDTO
	if err := s.req.Do(ctx, http.MethodGet, s.path+"?"+q.Encode(), http.StatusOK, nil, &dto); err != nil {
		return nil, err
	}
	return activity.ToDomainRecordList(dto), nil
}

// Name implements ports.HealthChecker.
func (s *AuditSink) Name() string {
	return s.req.Name()
}

// HealthCheck reports the audit service's availability from the circuit
// breaker state. It reports downstream status, not service readiness: the
// recorder degrades to warnings when the sink fails.
func (s *AuditSink) HealthCheck(ctx context.Context) error {
	return s.req.HealthCheck(ctx)
}
