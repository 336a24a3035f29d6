package datadog

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-logr/logr"
	logforwarder "github.com/zakharovvi/lambda-logs-forwarder"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultEndpoint is the Datadog Logs intake v2 endpoint.
	DefaultEndpoint = "https://http-intake.logs.datadoghq.com/api/v2/logs"

	apiKeyHeader = "DD-API-KEY"
	// maxErrorBody limits how much of a failed response is kept in logforwarder.RemoteAPIError.
	maxErrorBody = 512

	instrumentationName = "github.com/zakharovvi/lambda-logs-forwarder/datadog"
)

type options struct {
	endpoint       string
	httpClient     *http.Client
	timeout        time.Duration
	maxBatchSize   int
	log            logr.Logger
	tracerProvider trace.TracerProvider
}

type Option interface {
	apply(*options)
}

type httpClientOption struct {
	httpClient *http.Client
}

func (o httpClientOption) apply(opts *options) {
	opts.httpClient = o.httpClient
}

// WithHTTPClient replaces the default client, which never follows redirects.
// A custom client that follows redirects may post a batch more than once.
func WithHTTPClient(httpClient *http.Client) Option {
	return httpClientOption{httpClient}
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

type timeoutOption time.Duration

func (o timeoutOption) apply(opts *options) {
	opts.timeout = time.Duration(o)
}

// WithTimeout bounds a single Send call including reading the response body. Default is 10s.
func WithTimeout(timeout time.Duration) Option {
	return timeoutOption(timeout)
}

type maxBatchSizeOption int

func (o maxBatchSizeOption) apply(opts *options) {
	opts.maxBatchSize = int(o)
}

// WithMaxBatchSize lowers the batch limit. Values outside 1..logforwarder.MaxBatchSize are ignored.
func WithMaxBatchSize(n int) Option {
	return maxBatchSizeOption(n)
}

type endpointOption string

func (o endpointOption) apply(opts *options) {
	opts.endpoint = string(o)
}

// WithEndpoint overrides DefaultEndpoint. It exists to point the client to a local test server.
func WithEndpoint(endpoint string) Option {
	return endpointOption(endpoint)
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

// noRedirect makes every 3xx response reach doRequest, so a batch is posted exactly once.
func noRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

// Client sends log batches to the Datadog Logs intake.
// Client holds no mutable state and is safe for concurrent use.
type Client struct {
	endpoint     string
	apiKey       string
	httpClient   *http.Client
	timeout      time.Duration
	maxBatchSize int
	log          logr.Logger
	tracer       trace.Tracer
}

// NewClient creates Client authenticating with apiKey.
func NewClient(ctx context.Context, apiKey string, opts ...Option) *Client {
	options := options{
		endpoint:       DefaultEndpoint,
		httpClient:     &http.Client{CheckRedirect: noRedirect},
		timeout:        logforwarder.DefaultTimeout,
		maxBatchSize:   logforwarder.MaxBatchSize,
		log:            logr.FromContextOrDiscard(ctx),
		tracerProvider: otel.GetTracerProvider(),
	}
	for _, o := range opts {
		o.apply(&options)
	}
	if options.maxBatchSize <= 0 || options.maxBatchSize > logforwarder.MaxBatchSize {
		options.maxBatchSize = logforwarder.MaxBatchSize
	}

	return &Client{
		endpoint:     options.endpoint,
		apiKey:       apiKey,
		httpClient:   options.httpClient,
		timeout:      options.timeout,
		maxBatchSize: options.maxBatchSize,
		log:          options.log,
		tracer:       options.tracerProvider.Tracer(instrumentationName),
	}
}

// Send posts records as one JSON array and returns the raw response body.
// Failures are reported as logforwarder.BatchTooLargeError, logforwarder.NetworkError,
// logforwarder.RemoteAPIError or logforwarder.UnexpectedError.
// An empty batch is not sent and returns a nil body.
func (c *Client) Send(ctx context.Context, records []logforwarder.Record) ([]byte, error) {
	ctx, span := c.tracer.Start(
		ctx,
		"datadog.send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int("datadog.batch_size", len(records))),
	)
	defer span.End()

	body, err := c.send(ctx, records)
	if err != nil {
		c.log.Error(err, "could not send logs to Datadog", "kind", logforwarder.KindOf(err), "count", len(records))
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.kind", string(logforwarder.KindOf(err))))
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	return body, nil
}

func (c *Client) send(ctx context.Context, records []logforwarder.Record) ([]byte, error) {
	if len(records) > c.maxBatchSize {
		return nil, logforwarder.BatchTooLargeError{Size: len(records), Max: c.maxBatchSize}
	}
	if len(records) == 0 {
		c.log.V(1).Info("empty batch, skipping Datadog request")

		return nil, nil
	}

	payload, err := logforwarder.EncodeRecords(records)
	if err != nil {
		return nil, logforwarder.UnexpectedError{Err: fmt.Errorf("could not json encode logs: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, logforwarder.UnexpectedError{Err: fmt.Errorf("could not create http request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	c.log.V(1).Info("sending logs to Datadog", "count", len(records), "bytes", len(payload))

	return c.doRequest(req)
}

func (c *Client) doRequest(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(fmt.Errorf("http request failed: %w", err))
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Error(err, "could not close http response body")
		}
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(fmt.Errorf("could not read http response body: %w", err))
	}
	trace.SpanFromContext(req.Context()).SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}

		return nil, logforwarder.RemoteAPIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}
	c.log.V(1).Info("logs accepted by Datadog", "status", resp.Status)

	return body, nil
}

// classify maps a transport error to logforwarder.NetworkError or logforwarder.UnexpectedError.
func classify(err error) error {
	if isNetworkError(err) {
		return logforwarder.NetworkError{Err: err}
	}

	return logforwarder.UnexpectedError{Err: err}
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	// url.Error implements net.Error itself, so inspect what it wraps.
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var certErr *tls.CertificateVerificationError
	var recordErr tls.RecordHeaderError

	return errors.As(err, &certErr) || errors.As(err, &recordErr)
}
