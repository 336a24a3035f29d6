// Lambda function forwarding CloudWatch Logs subscription events to Datadog.
package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/zakharovvi/lambda-logs-forwarder/handler"
	"github.com/zakharovvi/lambda-logs-forwarder/internal/lambdaenv"
	"github.com/zakharovvi/lambda-logs-forwarder/internal/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/trace"
)

func main() {
	stdr.SetVerbosity(lambdaenv.LogVerbosity())
	logger := stdr.New(log.New(os.Stderr, "", log.Lshortfile))
	ctx := logr.NewContext(context.Background(), logger)

	tp, err := tracerProvider(ctx)
	if err != nil {
		logger.Error(err, "could not create span exporter")
		os.Exit(1)
	}
	otel.SetTracerProvider(tp)

	h := handler.New(ctx, handler.WithLogger(logger), handler.WithTracerProvider(tp))
	lambda.Start(h.Handle)
}

func tracerProvider(ctx context.Context) (trace.TracerProvider, error) {
	if !lambdaenv.TracesToStdout() {
		return trace.NewNoopTracerProvider(), nil
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stdout))
	if err != nil {
		return nil, err
	}

	return tracing.NewProvider(ctx, exporter), nil
}
