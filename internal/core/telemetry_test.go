// AngelaMos | 2026
// telemetry_test.go

package core

import (
	"context"
	"errors"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/edig/bibliotheque/internal/config"
)

func TestNewTelemetryDisabled(t *testing.T) {
	tel, err := NewTelemetry(context.Background(), config.OtelConfig{Enabled: false}, config.AppConfig{})
	if err != nil {
		t.Fatalf("NewTelemetry() error = %v", err)
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	var none *Telemetry
	if err := none.Shutdown(context.Background()); err != nil {
		t.Errorf("nil Shutdown() error = %v", err)
	}
}

func TestSampler(t *testing.T) {
	for _, rate := range []float64{-1, 0, 1.5} {
		if got := sampler(rate).Description(); got != sampler(defaultSampleRate).Description() {
			t.Errorf("sampler(%v) = %s", rate, got)
		}
	}
	if sampler(0.5).Description() == sampler(defaultSampleRate).Description() {
		t.Error("valid rate ignored")
	}
}

func TestSpanHelpers(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	if TraceIDFromContext(context.Background()) != "" {
		t.Error("trace id outside a span")
	}

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	if TraceIDFromContext(ctx) == "" {
		t.Error("missing trace id inside a span")
	}
	AddSpanEvent(ctx, "manual.created")
	SetSpanError(ctx, errors.New("boom"))
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d", len(ended))
	}
	got := ended[0]
	if got.Status().Description != "boom" || len(got.Events()) != 2 {
		t.Errorf("status = %+v events = %d", got.Status(), len(got.Events()))
	}
}
