package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/prperemyshlev/media-favourites"

// Outcome labels shared by the counters
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultRetry   = "retry"
	ResultDead    = "dead"
)

// Metrics holds the application counters
type Metrics struct {
	authEvents metric.Int64Counter
	mailJobs   metric.Int64Counter
}

// NewMetrics registers the application counters on provider
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(meterName)

	authEvents, err := meter.Int64Counter("auth_events_total",
		metric.WithDescription("Authentication events by type and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth events counter: %w", err)
	}

	mailJobs, err := meter.Int64Counter("mail_jobs_total",
		metric.WithDescription("Mail deliveries by kind and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail jobs counter: %w", err)
	}

	return &Metrics{
		authEvents: authEvents,
		mailJobs:   mailJobs,
	}, nil
}

// AuthEvent records one authentication event such as login or signup
func (m *Metrics) AuthEvent(ctx context.Context, event, result string) {
	if m == nil {
		return
	}
	m.authEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("result", result),
	))
}

// MailJob records one mail delivery attempt
func (m *Metrics) MailJob(ctx context.Context, kind, result string) {
	if m == nil {
		return
	}
	m.mailJobs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("result", result),
	))
}
