// Package app implements the service ports. Every service runs its
// read-modify-write cycles through retryOnConflict, records one
// ActivityRecord per committed mutation and hands change notifications to
// the notifier. Side effects on other aggregates (board reconciliation, the
// bug bridge, sprint ticket updates) are best-effort and never fail the
// primary write.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/kanban"
	"github.com/jsamuelsen11/trackflow/internal/domain/project"
	"github.com/jsamuelsen11/trackflow/internal/domain/workflow"
	"github.com/jsamuelsen11/trackflow/internal/domain/workitem"
	"github.com/jsamuelsen11/trackflow/internal/platform/backoff"
	"github.com/jsamuelsen11/trackflow/internal/platform/clock"
	"github.com/jsamuelsen11/trackflow/internal/platform/config"
	"github.com/jsamuelsen11/trackflow/internal/platform/telemetry"
	"github.com/jsamuelsen11/trackflow/internal/ports"
)

const (
	defaultConflictRetries  = 3
	defaultRetryBackoff     = 10 * time.Millisecond
	defaultReconcileWorkers = 4
)

// Deps are the collaborators shared by every service. Store is required;
// the rest fall back to working defaults when left zero.
type Deps struct {
	Store    ports.Store
	Audit    ports.AuditSink
	Notifier ports.Notifier
	Engine   *workflow.Engine
	Clock    clock.Clock
	Metrics  *telemetry.Metrics
	Logger   *slog.Logger
	Workflow config.WorkflowConfig
}

// core carries the normalized dependencies and the helpers every service
// shares.
type core struct {
	store    ports.Store
	engine   *workflow.Engine
	clock    clock.Clock
	metrics  *telemetry.Metrics
	logger   *slog.Logger
	notifier ports.Notifier
	recorder *Recorder

	attempts     int
	policy       backoff.Policy
	activityCap  int
	workers      int
	resolvedInto workitem.Status
}

func newCore(d Deps) *core {
	c := &core{
		store:    d.Store,
		engine:   d.Engine,
		clock:    d.Clock,
		metrics:  d.Metrics,
		logger:   d.Logger,
		notifier: d.Notifier,
	}
	if c.engine == nil {
		c.engine = workflow.NewEngine()
	}
	if c.clock == nil {
		c.clock = clock.Real()
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}

	wf := d.Workflow
	c.attempts = cmpOr(wf.MaxConflictRetries, defaultConflictRetries)
	c.policy = backoff.Policy{Initial: defaultRetryBackoff, Max: 10 * defaultRetryBackoff, Multiplier: 2}
	if wf.RetryBackoff > 0 {
		c.policy = backoff.Policy{Initial: wf.RetryBackoff, Max: 10 * wf.RetryBackoff, Multiplier: 2}
	}
	c.activityCap = cmpOr(wf.RecentActivityCap, kanban.DefaultActivityCap)
	c.workers = cmpOr(wf.ReconcileWorkers, defaultReconcileWorkers)
	c.resolvedInto = workitem.Status(wf.BugResolvedStatus)
	if !c.resolvedInto.IsValid() {
		c.resolvedInto = workitem.StatusTesting
	}

	c.recorder = NewRecorder(d.Audit, c.clock, c.metrics, c.logger)
	return c
}

func cmpOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func (c *core) now() time.Time {
	return c.clock.Now()
}

func newID() string {
	return uuid.NewString()
}

// retryOnConflict runs fn until it returns something other than
// domain.ErrConflict or the attempt budget is spent. fn must re-read
// everything it writes.
func (c *core) retryOnConflict(ctx context.Context, entity string, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !errors.Is(err, domain.ErrConflict) {
			return err
		}
		c.metrics.RecordConflict(ctx, entity)
		if attempt >= c.attempts {
			return fmt.Errorf("%s still stale after %d attempts: %w", entity, attempt, err)
		}

		c.logger.DebugContext(ctx, "version conflict, retrying",
			slog.String("entity", entity),
			slog.Int("attempt", attempt),
		)
		if werr := backoff.Wait(ctx, c.policy.Delay(attempt)); werr != nil {
			return werr
		}
	}
}

// fail logs err under operation and returns it. Rule denials and bad input
// are logged at warn, everything else at error.
func (c *core) fail(ctx context.Context, operation string, err error) error {
	level := slog.LevelError
	if !domain.IsRetryable(err) || errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrAlreadyExists) {
		level = slog.LevelWarn
	}
	c.logger.Log(ctx, level, "operation failed",
		slog.String("operation", operation),
		slog.Any("error", err),
	)
	return err
}

// publish hands ev to the notifier with the acting user removed from the
// audience. Nothing is sent when no one is left to tell.
func (c *core) publish(ctx context.Context, actor domain.Actor, ev domain.Event) {
	if c.notifier == nil {
		return
	}
	ev.TargetUserIDs = slices.DeleteFunc(slices.Clone(ev.TargetUserIDs), func(id string) bool {
		return id == "" || id == actor.ID
	})
	if len(ev.TargetUserIDs) == 0 {
		return
	}
	if err := c.notifier.Publish(ctx, ev); err != nil {
		c.logger.DebugContext(ctx, "notification not queued",
			slog.String("event_type", ev.Type),
			slog.Any("error", err),
		)
	}
}

// sideEffectFailed logs and counts a best-effort write that did not land.
func (c *core) sideEffectFailed(ctx context.Context, effect string, err error, attrs ...slog.Attr) {
	c.metrics.RecordSideEffectFailure(ctx, effect)
	args := make([]any, 0, len(attrs)+2)
	args = append(args, slog.String("effect", effect), slog.Any("error", err))
	for _, a := range attrs {
		args = append(args, a)
	}
	c.logger.WarnContext(ctx, "side effect failed", args...)
}

func forbidden(actor domain.Actor, action string) error {
	return fmt.Errorf("role %q may not %s: %w", actor.Role, action, domain.ErrForbidden)
}

func requirePrivileged(actor domain.Actor, action string) error {
	if actor.Role.IsPrivileged() {
		return nil
	}
	return forbidden(actor, action)
}

func requireContributor(actor domain.Actor, action string) error {
	if actor.Role.CanContribute() || actor.IsSystem() {
		return nil
	}
	return forbidden(actor, action)
}

// liveItem loads a work item, treating a removed item as missing.
func (c *core) liveItem(ctx context.Context, id string) (*workitem.WorkItem, error) {
	item, err := c.store.GetWorkItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Removed {
		return nil, domain.NotFoundf("work item %q", id)
	}
	return item, nil
}

// itemForWrite loads a live item together with the project version its save
// must be checked against. The project is read before the item snapshot that
// gets modified, so any item write committed after that snapshot bumps the
// project past the returned version and the save conflicts.
func (c *core) itemForWrite(ctx context.Context, id string) (*project.Project, *workitem.WorkItem, error) {
	ref, err := c.liveItem(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	p, err := c.store.GetProject(ctx, ref.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	item, err := c.liveItem(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return p, item, nil
}

// updateItem runs fn on a fresh copy of a live item and saves it together
// with its project, retrying on conflict.
func (c *core) updateItem(ctx context.Context, id string, fn func(*workitem.WorkItem) error) (*workitem.WorkItem, error) {
	var item *workitem.WorkItem
	err := c.retryOnConflict(ctx, domain.EntityWorkItem, func() error {
		p, fresh, err := c.itemForWrite(ctx, id)
		if err != nil {
			return err
		}
		item = fresh
		if err := fn(item); err != nil {
			return err
		}
		return c.store.SaveWorkItem(ctx, p, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}
