package otel

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPMiddleware returns a chi-compatible middleware that traces control-API
// requests. The websocket feed and the health check are excluded: /ws is a
// hijacked long-lived connection where a per-request span is meaningless,
// and /health would drown real traffic in poll noise.
func HTTPMiddleware(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName,
			otelhttp.WithFilter(traceable),
			otelhttp.WithSpanNameFormatter(spanName),
		)
	}
}

func traceable(r *http.Request) bool {
	return r.URL.Path != "/health" && !strings.HasPrefix(r.URL.Path, "/ws")
}

func spanName(_ string, r *http.Request) string {
	return r.Method + " " + r.URL.Path
}
