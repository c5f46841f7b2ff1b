package bootstrap

import (
	"context"

	"secanalytics/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// ServiceName identifies spans emitted by this process
const ServiceName = "secanalytics"

// loggingSpanProcessor writes every finished span to the debug log. It
// gives refresh timings without requiring a collector.
type loggingSpanProcessor struct {
	logger *zap.SugaredLogger
}

func (p *loggingSpanProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p *loggingSpanProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	fields := []interface{}{
		"span", s.Name(),
		"trace_id", s.SpanContext().TraceID().String(),
		"duration", s.EndTime().Sub(s.StartTime()).String(),
		"status", s.Status().Code.String(),
	}
	for _, kv := range s.Attributes() {
		fields = append(fields, string(kv.Key), kv.Value.Emit())
	}
	p.logger.Debugw("span_finished", fields...)
}

func (p *loggingSpanProcessor) Shutdown(context.Context) error   { return nil }
func (p *loggingSpanProcessor) ForceFlush(context.Context) error { return nil }

// InitTracing builds the tracer provider used by the refresh actor and the
// API and installs it globally. The returned function flushes and stops it.
func InitTracing(cfg *config.Config, sugar *zap.SugaredLogger) (trace.TracerProvider, func(context.Context) error) {
	if !cfg.Tracing.Enabled {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return tp, func(context.Context) error { return nil }
	}

	ratio := cfg.Tracing.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithSpanProcessor(&loggingSpanProcessor{logger: sugar.Named("trace")}),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", ServiceName))),
	)
	otel.SetTracerProvider(tp)
	sugar.Infow("Tracing enabled", "sample_ratio", ratio)
	return tp, tp.Shutdown
}
