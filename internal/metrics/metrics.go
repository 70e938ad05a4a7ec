// Package metrics records server counters through the global OpenTelemetry meter provider.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Recorder interface {
	EventsCreated(ctx context.Context, n int)
	MessagesDelivered(ctx context.Context, kind string, n int)
	MessagesDropped(ctx context.Context, kind string, n int)
	RemindersEmitted(ctx context.Context, n int)
	AuthRejected(ctx context.Context)
}

type otelRecorder struct {
	eventsCreated     metric.Int64Counter
	messagesDelivered metric.Int64Counter
	messagesDropped   metric.Int64Counter
	remindersEmitted  metric.Int64Counter
	authRejected      metric.Int64Counter
}

// New builds a Recorder on the global meter provider. Configure the provider with
// otel.SetMeterProvider before calling it; failures fall back to Noop.
func New() (Recorder, error) {
	meter := otel.Meter("eventserver")

	eventsCreated, err := meter.Int64Counter("eventserver.events.created",
		metric.WithDescription("Number of events scheduled"),
	)
	if err != nil {
		return Noop{}, err
	}
	messagesDelivered, err := meter.Int64Counter("eventserver.messages.delivered",
		metric.WithDescription("Number of real-time messages queued for listeners"),
	)
	if err != nil {
		return Noop{}, err
	}
	messagesDropped, err := meter.Int64Counter("eventserver.messages.dropped",
		metric.WithDescription("Number of real-time messages dropped on full outboxes"),
	)
	if err != nil {
		return Noop{}, err
	}
	remindersEmitted, err := meter.Int64Counter("eventserver.reminders.emitted",
		metric.WithDescription("Number of reminders emitted by the scanner"),
	)
	if err != nil {
		return Noop{}, err
	}
	authRejected, err := meter.Int64Counter("eventserver.auth.rejected",
		metric.WithDescription("Number of rejected credentials"),
	)
	if err != nil {
		return Noop{}, err
	}

	return &otelRecorder{
		eventsCreated:     eventsCreated,
		messagesDelivered: messagesDelivered,
		messagesDropped:   messagesDropped,
		remindersEmitted:  remindersEmitted,
		authRejected:      authRejected,
	}, nil
}

func (r *otelRecorder) EventsCreated(ctx context.Context, n int) {
	r.eventsCreated.Add(ctx, int64(n))
}

func (r *otelRecorder) MessagesDelivered(ctx context.Context, kind string, n int) {
	r.messagesDelivered.Add(ctx, int64(n), metric.WithAttributes(attribute.String("type", kind)))
}

func (r *otelRecorder) MessagesDropped(ctx context.Context, kind string, n int) {
	r.messagesDropped.Add(ctx, int64(n), metric.WithAttributes(attribute.String("type", kind)))
}

func (r *otelRecorder) RemindersEmitted(ctx context.Context, n int) {
	r.remindersEmitted.Add(ctx, int64(n))
}

func (r *otelRecorder) AuthRejected(ctx context.Context) {
	r.authRejected.Add(ctx, 1)
}

// Noop discards everything.
type Noop struct{}

func (Noop) EventsCreated(context.Context, int)             {}
func (Noop) MessagesDelivered(context.Context, string, int) {}
func (Noop) MessagesDropped(context.Context, string, int)   {}
func (Noop) RemindersEmitted(context.Context, int)          {}
func (Noop) AuthRejected(context.Context)                   {}
