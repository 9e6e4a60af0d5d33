package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/matshaug/flagline"

// Instruments holds the counters emitted by the annotation pipeline. All
// methods are safe on a nil receiver so tests can pass nil.
type Instruments struct {
	cacheLookups      metric.Int64Counter
	bridgeDispatches  metric.Int64Counter
	rateLimitWaits    metric.Int64Counter
	annotationsDone   metric.Int64Counter
	annotationsFailed metric.Int64Counter
}

func NewInstruments() (*Instruments, error) {
	meter := otel.Meter(meterName)

	cacheLookups, err := meter.Int64Counter(
		"flagline.cache.lookups",
		metric.WithDescription("Location cache lookups, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache lookup counter: %w", err)
	}

	bridgeDispatches, err := meter.Int64Counter(
		"flagline.bridge.dispatches",
		metric.WithDescription("Location requests dispatched through the page bridge"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatch counter: %w", err)
	}

	rateLimitWaits, err := meter.Int64Counter(
		"flagline.ratelimit.deferrals",
		metric.WithDescription("Dispatches deferred by an active cool-down window"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit counter: %w", err)
	}

	annotationsDone, err := meter.Int64Counter(
		"flagline.annotations.applied",
		metric.WithDescription("Flag glyphs inserted into the document"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create annotation counter: %w", err)
	}

	annotationsFailed, err := meter.Int64Counter(
		"flagline.annotations.failed",
		metric.WithDescription("Elements that ended a pass in the failed state"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create annotation failure counter: %w", err)
	}

	return &Instruments{
		cacheLookups:      cacheLookups,
		bridgeDispatches:  bridgeDispatches,
		rateLimitWaits:    rateLimitWaits,
		annotationsDone:   annotationsDone,
		annotationsFailed: annotationsFailed,
	}, nil
}

func (i *Instruments) RecordCacheLookup(ctx context.Context, outcome string) {
	if i == nil {
		return
	}
	i.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (i *Instruments) RecordBridgeDispatch(ctx context.Context) {
	if i == nil {
		return
	}
	i.bridgeDispatches.Add(ctx, 1)
}

func (i *Instruments) RecordRateLimitDeferral(ctx context.Context) {
	if i == nil {
		return
	}
	i.rateLimitWaits.Add(ctx, 1)
}

func (i *Instruments) RecordAnnotation(ctx context.Context) {
	if i == nil {
		return
	}
	i.annotationsDone.Add(ctx, 1)
}

func (i *Instruments) RecordAnnotationFailure(ctx context.Context) {
	if i == nil {
		return
	}
	i.annotationsFailed.Add(ctx, 1)
}
