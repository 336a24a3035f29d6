package cwlogs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	logforwarder "github.com/zakharovvi/lambda-logs-forwarder"
)

// Payload is the decompressed body of a CloudWatch Logs subscription event.
type Payload struct {
	MessageType         string
	Owner               string
	LogGroup            string
	LogStream           string
	SubscriptionFilters []string
	LogEvents           []LogEvent
}

// LogEvent is a single entry of Payload.LogEvents.
type LogEvent struct {
	ID        string
	Timestamp int64 // milliseconds since the epoch
	Message   string
}

// rawLogEvent detects a missing message field, which LogEvent can't distinguish from an empty one.
type rawLogEvent struct {
	ID        string  `json:"id"`
	Timestamp int64   `json:"timestamp"`
	Message   *string `json:"message"`
}

// Decode turns base64 encoded, gzip compressed subscription data into records, preserving event order.
func Decode(ctx context.Context, data string, tags string) ([]logforwarder.Record, error) {
	p, err := DecodePayload(ctx, data)
	if err != nil {
		return nil, err
	}

	return Normalize(p, tags), nil
}

// Normalize builds one record per log event in the same order.
func Normalize(p *Payload, tags string) []logforwarder.Record {
	records := make([]logforwarder.Record, 0, len(p.LogEvents))
	for _, e := range p.LogEvents {
		records = append(records, logforwarder.Record{
			Source:   logforwarder.SourceCloudWatch,
			Tags:     tags,
			Hostname: p.LogGroup,
			Message:  e.Message,
			Service:  logforwarder.ServiceFlaskEcho,
		})
	}

	return records
}

// DecodePayload decodes awslogs.data. Any failure is returned as logforwarder.MalformedInputError
// and the whole payload is rejected: a partially decoded batch is never returned.
func DecodePayload(ctx context.Context, data string) (*Payload, error) {
	compressed, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, malformed(logforwarder.StageBase64, fmt.Errorf("could not base64 decode payload: %w", err))
	}

	uncompressed, err := gunzip(compressed)
	if err != nil {
		return nil, malformed(logforwarder.StageGzip, err)
	}

	return decodeJSON(ctx, uncompressed)
}

func gunzip(b []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("could not read gzip header: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("could not decompress payload: %w", err)
	}

	return out, nil
}

func decodeJSON(ctx context.Context, b []byte) (*Payload, error) {
	d := json.NewDecoder(bytes.NewReader(b))
	if err := readDelim(d, '{'); err != nil {
		return nil, err
	}

	p := &Payload{}
	var logGroup *string
	var seenLogEvents bool
	for d.More() {
		t, err := d.Token()
		if err != nil {
			return nil, malformed(logforwarder.StageJSON, fmt.Errorf("could not read object key: %w", err))
		}
		key, _ := t.(string)

		switch key {
		case "logGroup":
			err = decodeField(d, key, &logGroup)
		case "logEvents":
			if p.LogEvents, err = decodeLogEvents(ctx, d); err != nil {
				return nil, err
			}
			seenLogEvents = true
		case "messageType":
			err = decodeField(d, key, &p.MessageType)
		case "owner":
			err = decodeField(d, key, &p.Owner)
		case "logStream":
			err = decodeField(d, key, &p.LogStream)
		case "subscriptionFilters":
			err = decodeField(d, key, &p.SubscriptionFilters)
		default:
			var skip json.RawMessage
			err = decodeField(d, key, &skip)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := readDelim(d, '}'); err != nil {
		return nil, err
	}
	if tok, err := d.Token(); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, malformed(logforwarder.StageJSON, fmt.Errorf("extra data after payload: %w", err))
		}

		return nil, malformed(logforwarder.StageJSON, fmt.Errorf("extra data after payload: unexpected token %v", tok))
	}

	if logGroup == nil {
		return nil, malformed(logforwarder.StageStructure, errors.New("payload has no logGroup field"))
	}
	p.LogGroup = *logGroup
	if !seenLogEvents {
		return nil, malformed(logforwarder.StageStructure, errors.New("payload has no logEvents field"))
	}

	return p, nil
}

func decodeLogEvents(ctx context.Context, d *json.Decoder) ([]LogEvent, error) {
	if err := readDelim(d, '['); err != nil {
		return nil, err
	}
	events := []LogEvent{}
	for i := 0; d.More(); i++ {
		select {
		case <-ctx.Done():
			return nil, logforwarder.UnexpectedError{
				Err: fmt.Errorf("decoding was interrupted with context error: %w", ctx.Err()),
			}
		default:
		}

		var raw rawLogEvent
		if err := d.Decode(&raw); err != nil {
			return nil, classify(fmt.Errorf("could not decode log event %d: %w", i, err))
		}
		if raw.Message == nil {
			return nil, malformed(logforwarder.StageStructure, fmt.Errorf("log event %d has no message field", i))
		}
		events = append(events, LogEvent{ID: raw.ID, Timestamp: raw.Timestamp, Message: *raw.Message})
	}
	if err := readDelim(d, ']'); err != nil {
		return nil, err
	}

	return events, nil
}

func decodeField(d *json.Decoder, key string, v any) error {
	if err := d.Decode(v); err != nil {
		return classify(fmt.Errorf("could not decode field %s: %w", key, err))
	}

	return nil
}

func readDelim(d *json.Decoder, want json.Delim) error {
	t, err := d.Token()
	if err != nil {
		return malformed(logforwarder.StageJSON, fmt.Errorf("malformed json: %w", err))
	}
	delim, ok := t.(json.Delim)
	if !ok || delim != want {
		return malformed(logforwarder.StageStructure, fmt.Errorf("malformed json, want %s, got %v", want, t))
	}

	return nil
}

// classify separates syntax errors from well-formed JSON of the wrong shape.
func classify(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return malformed(logforwarder.StageStructure, err)
	}

	return malformed(logforwarder.StageJSON, err)
}

func malformed(stage logforwarder.DecodeStage, err error) error {
	return logforwarder.MalformedInputError{Stage: stage, Err: err}
}
