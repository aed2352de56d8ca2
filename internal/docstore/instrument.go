package docstore

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

var (
	opsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docstore_operations_total",
			Help: "Total number of document store operations",
		},
		[]string{"op", "result"},
	)

	opDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docstore_operation_duration_seconds",
			Help:    "Histogram of document store operation durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(opsTotal, opDuration)
}

type instrumented struct {
	next   Store
	tracer trace.Tracer
}

// Instrument wraps s so every call gets a span and Prometheus samples.
func Instrument(s Store) Store {
	return &instrumented{next: s, tracer: otel.Tracer("docstore")}
}

func (i *instrumented) Add(ctx context.Context, collection string, fields Fields) (id string, err error) {
	ctx, done := i.start(ctx, "add", collection)
	defer func() { done(err) }()
	return i.next.Add(ctx, collection, fields)
}

func (i *instrumented) Create(ctx context.Context, docPath string, fields Fields) (err error) {
	ctx, done := i.start(ctx, "create", docPath)
	defer func() { done(err) }()
	return i.next.Create(ctx, docPath, fields)
}

func (i *instrumented) Get(ctx context.Context, docPath string) (doc Document, err error) {
	ctx, done := i.start(ctx, "get", docPath)
	defer func() { done(err) }()
	return i.next.Get(ctx, docPath)
}

func (i *instrumented) List(ctx context.Context, collection string) (docs []Document, err error) {
	ctx, done := i.start(ctx, "list", collection)
	defer func() { done(err) }()
	return i.next.List(ctx, collection)
}

func (i *instrumented) Update(ctx context.Context, docPath string, fields Fields) (err error) {
	ctx, done := i.start(ctx, "update", docPath)
	defer func() { done(err) }()
	return i.next.Update(ctx, docPath, fields)
}

func (i *instrumented) Delete(ctx context.Context, docPath string) (err error) {
	ctx, done := i.start(ctx, "delete", docPath)
	defer func() { done(err) }()
	return i.next.Delete(ctx, docPath)
}

func (i *instrumented) start(ctx context.Context, op, path string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := i.tracer.Start(ctx, "docstore."+op,
		trace.WithAttributes(attribute.String("docstore.path", path)))

	return ctx, func(err error) {
		result := "ok"
		switch {
		case err == nil:
		case errors.Is(err, ErrNotFound):
			result = "not_found"
		case errors.Is(err, ErrAlreadyExists):
			result = "already_exists"
		default:
			result = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		opsTotal.WithLabelValues(op, result).Inc()
		opDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		span.End()
	}
}
