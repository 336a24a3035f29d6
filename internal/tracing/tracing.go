// Package tracing configures OpenTelemetry tracing for the forwarder running inside AWS Lambda.
package tracing

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/zakharovvi/lambda-logs-forwarder/internal/lambdaenv"
	"go.opentelemetry.io/contrib/propagators/aws/xray"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.opentelemetry.io/otel/trace"
)

// traceHeader is the header and Lambda context key carrying X-Ray tracing context.
const traceHeader = "X-Amzn-Trace-Id"

// lambdaTraceIDKey is the context key used by aws-lambda-go for the invocation trace header.
const lambdaTraceIDKey = "x-amzn-trace-id"

// NewProvider creates a TracerProvider exporting spans synchronously.
// Lambda freezes the execution environment after the handler returns, so spans are not batched.
// Trace and span IDs are X-Ray compatible.
func NewProvider(ctx context.Context, exporter sdktrace.SpanExporter) *sdktrace.TracerProvider {
	otel.SetLogger(logr.FromContextOrDiscard(ctx))

	return sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithIDGenerator(xray.NewIDGenerator()),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.CloudProviderAWS,
			semconv.CloudPlatformAWSLambda,
			semconv.CloudRegionKey.String(lambdaenv.AWSRegion()),
			semconv.FaaSNameKey.String(lambdaenv.FunctionName()),
			semconv.FaaSVersionKey.String(lambdaenv.FunctionVersion()),
			semconv.FaaSMaxMemoryKey.Int(lambdaenv.FunctionMemorySizeMB()),
		)),
	)
}

// ContextWithParent returns ctx carrying the X-Ray parent of the current invocation, if any.
// The trace header is taken from the invocation context and falls back to _X_AMZN_TRACE_ID.
func ContextWithParent(ctx context.Context) context.Context {
	header, _ := ctx.Value(lambdaTraceIDKey).(string)
	if header == "" {
		header = lambdaenv.XAmznTraceID()
	}

	return ParentFromTraceHeader(ctx, header)
}

// ParentFromTraceHeader extracts X-Ray tracing context from a trace header value.
// ctx is returned unchanged when the header is empty or invalid.
func ParentFromTraceHeader(ctx context.Context, header string) context.Context {
	if header == "" {
		return ctx
	}
	carrier := propagation.MapCarrier{traceHeader: header}
	parentCtx := xray.Propagator{}.Extract(ctx, carrier)
	if !trace.SpanContextFromContext(parentCtx).IsValid() {
		return ctx
	}

	return parentCtx
}
