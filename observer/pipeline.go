package observer

import (
	"context"
	"time"

	ada "github.com/adalabs/ada"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ObservedPipeline wraps a search pipeline with OTEL instrumentation.
type ObservedPipeline struct {
	inner ada.SearchPipeline
	inst  *Instruments
}

// WrapPipeline returns an instrumented pipeline.
func WrapPipeline(inner ada.SearchPipeline, inst *Instruments) *ObservedPipeline {
	return &ObservedPipeline{inner: inner, inst: inst}
}

var _ ada.SearchPipeline = (*ObservedPipeline)(nil)

func (o *ObservedPipeline) SearchAndScrape(ctx context.Context, query string, depth int) ada.SearchBundle {
	ctx, span := o.inst.Tracer.Start(ctx, "search.pipeline", trace.WithAttributes(
		AttrSearchQuery.String(query),
		AttrSearchDepth.Int(depth),
	))
	defer span.End()
	start := time.Now()

	bundle := o.inner.SearchAndScrape(ctx, query, depth)

	status := "ok"
	if !bundle.ServiceAvailable {
		status = "unavailable"
	}
	span.SetAttributes(AttrSearchSources.Int(bundle.Count))

	o.inst.SearchRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
	))
	o.inst.PagesScraped.Add(ctx, int64(bundle.Count))
	o.inst.SearchDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
	return bundle
}
