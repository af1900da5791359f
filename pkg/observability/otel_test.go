package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"lecture-notes/pkg/config"
	"lecture-notes/pkg/logger"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracingDisabled(t *testing.T) {
	before := otel.GetTracerProvider()

	shutdown, err := InitTracing(context.Background(), logger.NewNop(), config.TracingConfig{})
	if err != nil {
		t.Fatalf("InitTracing() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
	if otel.GetTracerProvider() != before {
		t.Error("disabled tracing should leave the global provider alone")
	}
}

func TestInitTracingEnabled(t *testing.T) {
	before := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(before) })

	shutdown, err := InitTracing(context.Background(), logger.NewNop(), config.TracingConfig{
		Enabled:     true,
		Exporter:    "otlp",
		Endpoint:    "localhost:4318",
		SampleRatio: 0,
		ServiceName: "lecture-notes-test",
	})
	if err != nil {
		t.Fatalf("InitTracing() error = %v", err)
	}
	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Errorf("global provider = %T, want *sdktrace.TracerProvider", otel.GetTracerProvider())
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

func TestStdoutExporterWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	exporter, err := newExporter(context.Background(), config.TracingConfig{Exporter: "stdout"}, &buf)
	if err != nil {
		t.Fatalf("newExporter() error = %v", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	_, span := tp.Tracer("test").Start(context.Background(), "pipeline.transcribe")
	span.End()
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if !strings.Contains(buf.String(), "pipeline.transcribe") {
		t.Errorf("exporter output does not contain the span name: %s", buf.String())
	}
}

func TestNewExporterUnknown(t *testing.T) {
	if _, err := newExporter(context.Background(), config.TracingConfig{Exporter: "jaeger"}, nil); err == nil {
		t.Error("newExporter() should reject an unknown exporter")
	}
}
