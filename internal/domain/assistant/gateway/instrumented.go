package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Instrumented wraps a Gateway with a per-call timeout, metrics and a span
type Instrumented struct {
	next     Gateway
	timeout  time.Duration
	tracer   trace.Tracer
	calls    *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewInstrumented registers the gateway collectors on reg
func NewInstrumented(next Gateway, timeout time.Duration, reg prometheus.Registerer) *Instrumented {
	g := &Instrumented{
		next:    next,
		timeout: timeout,
		tracer:  otel.Tracer("assistant/gateway"),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ai_gateway_requests_total",
			Help: "AI gateway calls by outcome.",
		}, []string{"model", "outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ai_gateway_request_duration_seconds",
			Help:    "AI gateway call latency.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
	}
	if reg != nil {
		reg.MustRegister(g.calls, g.duration)
	}
	return g
}

func (g *Instrumented) Model() string {
	return g.next.Model()
}

// Complete calls the wrapped gateway. Expiry of the timeout surfaces as context.DeadlineExceeded.
func (g *Instrumented) Complete(ctx context.Context, p Prompt) (string, error) {
	ctx, span := g.tracer.Start(ctx, "gateway.Complete", trace.WithAttributes(
		attribute.String("model", g.next.Model()),
		attribute.Int("prompt_bytes", p.Size()),
	))
	defer span.End()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := g.next.Complete(ctx, p)
	g.duration.Observe(time.Since(start).Seconds())

	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			outcome = "timeout"
			err = errors.Join(err, context.DeadlineExceeded)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	g.calls.WithLabelValues(g.next.Model(), outcome).Inc()
	return text, err
}

var _ Gateway = (*Instrumented)(nil)
