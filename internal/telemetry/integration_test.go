package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// installRecorder swaps the global provider for one that keeps spans in memory.
// Tests using it must not run in parallel.
func installRecorder(t *testing.T) (*tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
	return exporter, tp
}

func TestRouterMiddleware_PropagatesTraceParent(t *testing.T) {
	exporter, tp := installRecorder(t)

	r := mux.NewRouter()
	r.Use(RouterMiddleware("resale-hub-api"))
	r.HandleFunc("/api/v1/shop/products", func(w http.ResponseWriter, r *http.Request) {
		_, span := StartSpan(r.Context(), "catalog_lookup")
		span.End()
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name        string
		traceParent string
		wantTraceID string
	}{
		{name: "new trace"},
		{
			name:        "inbound trace continued",
			traceParent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
			wantTraceID: "4bf92f3577b34da6a3ce929d0e0e4736",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter.Reset()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/shop/products", nil)
			if tt.traceParent != "" {
				req.Header.Set("traceparent", tt.traceParent)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)
			require.NoError(t, tp.ForceFlush(context.Background()))

			spans := exporter.GetSpans()
			require.Len(t, spans, 2)
			names := []string{spans[0].Name, spans[1].Name}
			assert.Contains(t, names, "catalog_lookup")
			assert.Equal(t, spans[0].SpanContext.TraceID(), spans[1].SpanContext.TraceID())
			if tt.wantTraceID != "" {
				assert.Equal(t, tt.wantTraceID, spans[0].SpanContext.TraceID().String())
			}
		})
	}
}

func TestStartSpan_NestsUnderParent(t *testing.T) {
	exporter, tp := installRecorder(t)

	ctx, job := StartSpan(context.Background(), "job.shopify_sync")
	_, call := StartSpan(ctx, "shopify.upsert_product")
	call.End()
	job.End()
	require.NoError(t, tp.ForceFlush(context.Background()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "shopify.upsert_product", spans[0].Name)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
}
