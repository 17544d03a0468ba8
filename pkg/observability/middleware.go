package observability

import (
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// recordingWriter remembers the status and body size of a response.
type recordingWriter struct {
	http.ResponseWriter

	status      int
	bytes       int
	wroteHeader bool
}

func (rw *recordingWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}

	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(buf []byte) (int, error) {
	rw.wroteHeader = true

	n, err := rw.ResponseWriter.Write(buf)
	rw.bytes += n

	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}

	return n, nil
}

// HTTPMiddleware starts a server span per request, continuing any W3C
// trace context sent by the caller. Register it per route: the span is
// named after the matched mux pattern, e.g. "POST /api/translate", so
// path values such as a language name never reach the span name.
func HTTPMiddleware(tracer trace.Tracer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		route := routeOf(req)
		parent := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))

		ctx, span := tracer.Start(parent, req.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(req.Method),
				semconv.HTTPRoute(route),
			),
		)
		defer span.End()

		rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req.WithContext(ctx))

		span.SetAttributes(
			semconv.HTTPResponseStatusCode(rec.status),
			semconv.HTTPResponseBodySize(rec.bytes),
		)

		if rec.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}
	})
}

// routeOf returns the path part of the matched pattern, or the request
// path when the handler is not mounted on a ServeMux.
func routeOf(req *http.Request) string {
	if req.Pattern == "" {
		return req.URL.Path
	}

	if _, path, ok := strings.Cut(req.Pattern, " "); ok {
		return path
	}

	return req.Pattern
}
