package main

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// spanLogger writes every finished span to the debug log.
type spanLogger struct {
	logger *zap.Logger
}

func (spanLogger) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (l spanLogger) OnEnd(s sdktrace.ReadOnlySpan) {
	l.logger.Debug("span finished",
		zap.String("name", s.Name()),
		zap.String("trace_id", s.SpanContext().TraceID().String()),
		zap.Duration("duration", s.EndTime().Sub(s.StartTime())),
		zap.String("status", s.Status().Code.String()))
}

func (spanLogger) Shutdown(context.Context) error   { return nil }
func (spanLogger) ForceFlush(context.Context) error { return nil }

func newTracerProvider(logger *zap.Logger) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanLogger{logger: logger}))
}
