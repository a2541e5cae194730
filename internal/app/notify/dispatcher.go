// Package notify delivers change notifications off the request path. The
// Dispatcher queues events in a bounded buffer drained by a fixed set of
// workers. Delivery is at-most-once and unordered: a full queue or a closed
// dispatcher drops the event, and a failed delivery is not retried.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/platform/telemetry"
	"github.com/jsamuelsen11/trackflow/internal/ports"
)

const (
	defaultQueueSize       = 256
	defaultWorkers         = 2
	defaultDeliveryTimeout = 5 * time.Second
)

// Drop reasons, also used as metric labels.
const (
	dropQueueFull = "queue_full"
	dropClosed    = "closed"
	dropDelivery  = "delivery"
)

// Dispatcher implements ports.Notifier on top of another Notifier.
type Dispatcher struct {
	sink    ports.Notifier
	queue   chan domain.Event
	timeout time.Duration
	metrics *telemetry.Metrics
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ ports.Notifier = (*Dispatcher)(nil)

// NewDispatcher starts workers goroutines delivering to sink. Non-positive
// sizes fall back to defaults.
func NewDispatcher(sink ports.Notifier, queueSize, workers int, metrics *telemetry.Metrics, logger *slog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	d := &Dispatcher{
		sink:    sink,
		queue:   make(chan domain.Event, queueSize),
		timeout: defaultDeliveryTimeout,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "dispatcher")),
	}
	for range workers {
		d.wg.Go(d.work)
	}
	return d
}

// Publish enqueues ev without blocking. It returns an error wrapping
// domain.ErrUnavailable when the event was dropped.
func (d *Dispatcher) Publish(ctx context.Context, ev domain.Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(ctx, ev, dropClosed, nil)
		return fmt.Errorf("dispatcher closed: %w", domain.ErrUnavailable)
	}

	select {
	case d.queue <- ev:
		return nil
	default:
		d.drop(ctx, ev, dropQueueFull, nil)
		return fmt.Errorf("notification queue full: %w", domain.ErrUnavailable)
	}
}

// Close stops accepting events and waits for queued ones to be delivered
// or for ctx to end, whichever comes first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("draining notification queue: %w", ctx.Err())
	}
}

func (d *Dispatcher) work() {
	for ev := range d.queue {
		d.deliver(ev)
	}
}

func (d *Dispatcher) deliver(ev domain.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sink.Publish(ctx, ev); err != nil {
		d.drop(ctx, ev, dropDelivery, err)
	}
}

func (d *Dispatcher) drop(ctx context.Context, ev domain.Event, reason string, err error) {
	d.metrics.RecordNotificationDropped(ctx, reason)
	attrs := []any{
		slog.String("reason", reason),
		slog.String("event_type", ev.Type),
		slog.String("targets", strings.Join(ev.TargetUserIDs, ",")),
	}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
	}
	d.logger.WarnContext(ctx, "notification dropped", attrs...)
}
