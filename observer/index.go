package observer

import (
	"context"
	"time"

	ragged "github.com/raggedlab/ragged"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ObservedIndex wraps a ragged.VectorIndex with OTEL instrumentation.
type ObservedIndex struct {
	inner ragged.VectorIndex
	inst  *Instruments
}

var _ ragged.VectorIndex = (*ObservedIndex)(nil)

// WrapIndex returns an instrumented vector index.
func WrapIndex(inner ragged.VectorIndex, inst *Instruments) *ObservedIndex {
	return &ObservedIndex{inner: inner, inst: inst}
}

func (o *ObservedIndex) EnsureCollection(ctx context.Context, collection string, dimensions int) error {
	ctx, span := o.inst.Tracer.Start(ctx, "vector.ensure_collection", trace.WithAttributes(
		AttrCollection.String(collection),
	))
	defer span.End()

	err := o.inner.EnsureCollection(ctx, collection, dimensions)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (o *ObservedIndex) Upsert(ctx context.Context, collection, id string, vector []float32, payload map[string]any) error {
	ctx, span := o.inst.Tracer.Start(ctx, "vector.upsert", trace.WithAttributes(
		AttrCollection.String(collection),
	))
	defer span.End()

	err := o.inner.Upsert(ctx, collection, id, vector, payload)

	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	o.inst.UpsertRequests.Add(ctx, 1, metric.WithAttributes(
		AttrCollection.String(collection),
		attribute.String("status", status),
	))
	return err
}

func (o *ObservedIndex) Search(ctx context.Context, collection string, vector []float32, topK int) ([]ragged.SearchHit, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "vector.search", trace.WithAttributes(
		AttrCollection.String(collection),
		AttrTopK.Int(topK),
	))
	defer span.End()
	start := time.Now()

	hits, err := o.inner.Search(ctx, collection, vector, topK)

	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(AttrHitCount.Int(len(hits)))
	}

	o.inst.SearchRequests.Add(ctx, 1, metric.WithAttributes(
		AttrCollection.String(collection),
		attribute.String("status", status),
	))
	o.inst.SearchDuration.Record(ctx, durationMs, metric.WithAttributes(
		AttrCollection.String(collection),
	))
	return hits, err
}

func (o *ObservedIndex) Close() error { return o.inner.Close() }
