package otel

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPMiddleware instruments every request with a server span. When the
// chi route pattern is known the span is named "METHOD /route/pattern"
// so spans for one endpoint aggregate instead of splitting per
// organization ID; otherwise the raw path is used.
func HTTPMiddleware(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName,
			otelhttp.WithSpanNameFormatter(spanName))
	}
}

func spanName(operation string, r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return r.Method + " " + pattern
		}
	}
	return r.Method + " " + r.URL.Path
}
