package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metric instruments for the real-time event layer.
type Metrics struct {
	streamsActive    metric.Int64UpDownCounter
	eventsPublished  metric.Int64Counter
	eventsDropped    metric.Int64Counter
	webhooksReceived metric.Int64Counter
}

// NewMetrics creates the service metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(tracerName)

	streamsActive, err := meter.Int64UpDownCounter("stream.active",
		metric.WithDescription("Number of open event stream connections"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.active gauge: %w", err)
	}

	eventsPublished, err := meter.Int64Counter("events.published",
		metric.WithDescription("Events published to hub channels"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events.published counter: %w", err)
	}

	eventsDropped, err := meter.Int64Counter("events.dropped",
		metric.WithDescription("Events dropped due to slow stream consumers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events.dropped counter: %w", err)
	}

	webhooksReceived, err := meter.Int64Counter("webhooks.received",
		metric.WithDescription("Webhook notifications received by type"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating webhooks.received counter: %w", err)
	}

	return &Metrics{
		streamsActive:    streamsActive,
		eventsPublished:  eventsPublished,
		eventsDropped:    eventsDropped,
		webhooksReceived: webhooksReceived,
	}, nil
}

// RecordStreamOpen increments the active stream count.
func (m *Metrics) RecordStreamOpen(ctx context.Context) {
	if m == nil {
		return
	}
	m.streamsActive.Add(ctx, 1)
}

// RecordStreamClose decrements the active stream count.
func (m *Metrics) RecordStreamClose(ctx context.Context) {
	if m == nil {
		return
	}
	m.streamsActive.Add(ctx, -1)
}

// RecordEventPublished counts an event published to a channel.
func (m *Metrics) RecordEventPublished(ctx context.Context, channel string) {
	if m == nil {
		return
	}
	m.eventsPublished.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", channel)))
}

// RecordEventDropped counts an event dropped by a slow consumer.
func (m *Metrics) RecordEventDropped(ctx context.Context) {
	if m == nil {
		return
	}
	m.eventsDropped.Add(ctx, 1)
}

// RecordWebhook counts a webhook notification by type.
func (m *Metrics) RecordWebhook(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	m.webhooksReceived.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", eventType)))
}
