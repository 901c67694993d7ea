package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/propagation"

	"github.com/irdash/backend/internal/infrastructure/telemetry"
)

// Tracing starts a server span for every request and stores it in the
// request context, continuing any incoming W3C trace context. It must run
// before the request logger so access log lines carry trace_id and span_id.
// Paths in skip are not traced. With tracing disabled it does nothing.
func Tracing(tp *telemetry.TracerProvider, service string, skip ...string) gin.HandlerFunc {
	if !tp.IsEnabled() {
		return func(c *gin.Context) { c.Next() }
	}

	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}
	return otelgin.Middleware(service,
		otelgin.WithTracerProvider(tp.Provider()),
		otelgin.WithPropagators(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		)),
		otelgin.WithFilter(func(r *http.Request) bool {
			_, ok := skipped[r.URL.Path]
			return !ok
		}),
	)
}
