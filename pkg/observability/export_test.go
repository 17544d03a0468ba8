package observability

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var BuildResource = buildResource

// RootSampled reports whether a tracer provider configured from cfg samples
// a span without a parent.
func RootSampled(cfg Config) bool {
	var opts []sdktrace.TracerProviderOption
	if sampler := configuredSampler(cfg); sampler != nil {
		opts = append(opts, sdktrace.WithSampler(sampler))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := tp.Tracer("test").Start(context.Background(), "gumsitter.translate")
	defer span.End()

	return span.SpanContext().IsSampled()
}
