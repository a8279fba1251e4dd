package validation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "hcm/pkg/validation"

// Validator is a single business rule run against a whole batch. It returns
// the errors it found; a non-nil error means the batch's validity could not
// be determined and aborts the request.
type Validator[E Entity] interface {
	Validate(ctx context.Context, batch *Batch[E]) (ErrorMap, error)
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc[E Entity] func(ctx context.Context, batch *Batch[E]) (ErrorMap, error)

func (f ValidatorFunc[E]) Validate(ctx context.Context, batch *Batch[E]) (ErrorMap, error) {
	return f(ctx, batch)
}

// ChainError reports the unit that failed the request.
type ChainError struct {
	Chain     string
	Validator string
	Order     int
	Err       error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("validation chain %s: validator %s (order %d): %v", e.Chain, e.Validator, e.Order, e.Err)
}

func (e *ChainError) Unwrap() error {
	return e.Err
}

type unit[E Entity] struct {
	order     int
	name      string
	validator Validator[E]
}

// Chain runs registered validators in ascending order. Units sharing an
// order run in registration order.
type Chain[E Entity] struct {
	name    string
	units   []unit[E]
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

type chainOptions struct {
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// Option configures a Chain.
type Option func(*chainOptions)

func WithLogger(logger *slog.Logger) Option {
	return func(o *chainOptions) {
		o.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(o *chainOptions) {
		o.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(o *chainOptions) {
		o.tracer = t
	}
}

// NewChain creates an empty chain. name labels logs, spans and metrics.
func NewChain[E Entity](name string, opts ...Option) *Chain[E] {
	o := chainOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	return &Chain[E]{
		name:    name,
		logger:  o.logger,
		metrics: o.metrics,
		tracer:  o.tracer,
	}
}

// Register adds a validator with its static execution order. Registration
// happens at startup; Run never reorders units.
func (c *Chain[E]) Register(order int, name string, v Validator[E]) *Chain[E] {
	c.units = append(c.units, unit[E]{order: order, name: name, validator: v})
	sort.SliceStable(c.units, func(i, j int) bool {
		return c.units[i].order < c.units[j].order
	})
	return c
}

// Names returns the validator names in execution order.
func (c *Chain[E]) Names() []string {
	names := make([]string, len(c.units))
	for i, u := range c.units {
		names[i] = u.name
	}
	return names
}

// Run executes every unit against batch, merging their error maps. After each
// unit the batch marks failing entities so later units skip them. A unit
// error aborts the chain: no partial map is returned because no entity in the
// request counts as processed.
func (c *Chain[E]) Run(ctx context.Context, batch *Batch[E]) (ErrorMap, error) {
	aggregate := make(ErrorMap)
	for _, u := range c.units {
		if err := ctx.Err(); err != nil {
			return nil, &ChainError{Chain: c.name, Validator: u.name, Order: u.order, Err: err}
		}
		found, err := c.runUnit(ctx, u, batch)
		if err != nil {
			c.logger.ErrorContext(ctx, "validator failed request",
				"chain", c.name,
				"validator", u.name,
				"order", u.order,
				"error", err,
			)
			if c.metrics != nil {
				c.metrics.IncRequestFailure(c.name, u.name)
			}
			return nil, &ChainError{Chain: c.name, Validator: u.name, Order: u.order, Err: err}
		}
		if len(found) == 0 {
			continue
		}
		aggregate.Merge(found)
		batch.Mark(found)
		if c.metrics != nil {
			c.metrics.CountErrors(c.name, found)
		}
	}
	c.logger.DebugContext(ctx, "validation chain completed",
		"chain", c.name,
		"entities", batch.Len(),
		"invalid", len(aggregate.Indexes()),
	)
	return aggregate, nil
}

func (c *Chain[E]) runUnit(ctx context.Context, u unit[E], batch *Batch[E]) (ErrorMap, error) {
	ctx, span := c.tracer.Start(ctx, "validator."+u.name,
		trace.WithAttributes(
			attribute.String("validation.chain", c.name),
			attribute.Int("validation.order", u.order),
		))
	defer span.End()

	start := time.Now()
	found, err := u.validator.Validate(ctx, batch)
	if c.metrics != nil {
		c.metrics.ObserveValidator(c.name, u.name, start)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validator failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("validation.invalid", len(found)))
	return found, nil
}
