package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-logr/logr"
	logforwarder "github.com/zakharovvi/lambda-logs-forwarder"
	"github.com/zakharovvi/lambda-logs-forwarder/config"
	"github.com/zakharovvi/lambda-logs-forwarder/cwlogs"
	"github.com/zakharovvi/lambda-logs-forwarder/datadog"
	"github.com/zakharovvi/lambda-logs-forwarder/internal/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	successMessage      = "Logs forwarded successfully"
	instrumentationName = "github.com/zakharovvi/lambda-logs-forwarder/handler"
)

// Response is returned to the Lambda runtime after the batch was accepted by Datadog.
type Response struct {
	StatusCode int `json:"statusCode"`
	// Body is a JSON encoded ResponseBody.
	Body string `json:"body"`
}

type ResponseBody struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// ConfigLoader resolves configuration at the start of every invocation.
type ConfigLoader func(ctx context.Context) (logforwarder.Config, error)

type options struct {
	log            logr.Logger
	tracerProvider trace.TracerProvider
	loadConfig     ConfigLoader
	clientOptions  []datadog.Option
}

type Option interface {
	apply(*options)
}

type loggerOption struct {
	log logr.Logger
}

func (o loggerOption) apply(opts *options) {
	opts.log = o.log
}

func WithLogger(log logr.Logger) Option {
	return loggerOption{log}
}

type tracerProviderOption struct {
	tp trace.TracerProvider
}

func (o tracerProviderOption) apply(opts *options) {
	opts.tracerProvider = o.tp
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return tracerProviderOption{tp}
}

type configLoaderOption ConfigLoader

func (o configLoaderOption) apply(opts *options) {
	opts.loadConfig = ConfigLoader(o)
}

// WithConfigLoader replaces config.Load.
func WithConfigLoader(loader ConfigLoader) Option {
	return configLoaderOption(loader)
}

type clientOptionsOption struct {
	clientOptions []datadog.Option
}

func (o clientOptionsOption) apply(opts *options) {
	opts.clientOptions = o.clientOptions
}

// WithClientOptions passes additional options to the Datadog client created for every invocation.
func WithClientOptions(clientOptions ...datadog.Option) Option {
	return clientOptionsOption{clientOptions}
}

// Handler forwards CloudWatch Logs subscription events to Datadog.
// Invocations share no mutable state: configuration, decoded records and the Datadog client
// are created per call, so Handle is safe for concurrent use.
type Handler struct {
	log            logr.Logger
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer
	loadConfig     ConfigLoader
	clientOptions  []datadog.Option
}

// New creates Handler.
func New(ctx context.Context, opts ...Option) *Handler {
	options := options{
		log:            logr.FromContextOrDiscard(ctx),
		tracerProvider: otel.GetTracerProvider(),
		loadConfig:     config.Load,
	}
	for _, o := range opts {
		o.apply(&options)
	}

	return &Handler{
		log:            options.log,
		tracerProvider: options.tracerProvider,
		tracer:         options.tracerProvider.Tracer(instrumentationName),
		loadConfig:     options.loadConfig,
		clientOptions:  options.clientOptions,
	}
}

// Handle decodes the event and forwards its log events to Datadog as a single batch.
// Errors are logged and returned to the runtime; a partially forwarded batch is never reported as success.
func (h *Handler) Handle(ctx context.Context, event events.CloudwatchLogsEvent) (Response, error) {
	ctx, span := h.tracer.Start(
		tracing.ContextWithParent(ctx),
		"cloudwatch-forwarder/handle",
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	defer span.End()

	resp, err := h.handle(logr.NewContext(ctx, h.log), span, event)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.kind", string(logforwarder.KindOf(err))))
		span.SetStatus(codes.Error, err.Error())

		return Response{}, err
	}

	return resp, nil
}

func (h *Handler) handle(ctx context.Context, span trace.Span, event events.CloudwatchLogsEvent) (Response, error) {
	cfg, err := h.loadConfig(ctx)
	if err != nil {
		h.log.Error(err, "could not load configuration", "kind", logforwarder.KindOf(err))

		return Response{}, fmt.Errorf("could not load configuration: %w", err)
	}

	payload, err := cwlogs.DecodePayload(ctx, event.AWSLogs.Data)
	if err != nil {
		h.log.Error(err, "could not decode CloudWatch Logs event", "kind", logforwarder.KindOf(err), "bytes", len(event.AWSLogs.Data))

		return Response{}, fmt.Errorf("could not decode CloudWatch Logs event: %w", err)
	}
	records := cwlogs.Normalize(payload, cfg.Tags)
	span.SetAttributes(
		attribute.String("aws.log.group.name", payload.LogGroup),
		attribute.String("aws.log.stream.name", payload.LogStream),
		attribute.Int("cloudwatch.log_events", len(records)),
	)
	log := h.log.WithValues("logGroup", payload.LogGroup)
	log.V(1).Info(
		"decoded CloudWatch Logs event",
		"messageType", payload.MessageType,
		"owner", payload.Owner,
		"logStream", payload.LogStream,
		"subscriptionFilters", payload.SubscriptionFilters,
		"count", len(records),
	)

	clientOptions := append([]datadog.Option{
		datadog.WithLogger(log),
		datadog.WithTimeout(cfg.Timeout),
		datadog.WithMaxBatchSize(cfg.MaxBatchSize),
		datadog.WithTracerProvider(h.tracerProvider),
	}, h.clientOptions...)
	client := datadog.NewClient(ctx, cfg.APIKey, clientOptions...)

	// the client logs its own failures
	if _, err := client.Send(ctx, records); err != nil {
		return Response{}, fmt.Errorf("could not forward logs from %s: %w", payload.LogGroup, err)
	}

	body, err := json.Marshal(ResponseBody{Message: successMessage, Count: len(records)})
	if err != nil {
		err = logforwarder.UnexpectedError{Err: fmt.Errorf("could not json encode response body: %w", err)}
		log.Error(err, "")

		return Response{}, err
	}
	log.Info("logs forwarded", "count", len(records))

	return Response{StatusCode: http.StatusOK, Body: string(body)}, nil
}
