package logforwarder

import (
	"errors"
	"fmt"
)

// ErrorKind identifies one of the failure classes surfaced to the caller.
type ErrorKind string

const (
	KindConfiguration  ErrorKind = "configuration"
	KindMalformedInput ErrorKind = "malformed_input"
	KindBatchTooLarge  ErrorKind = "batch_too_large"
	KindNetwork        ErrorKind = "network"
	KindRemoteAPI      ErrorKind = "remote_api"
	KindUnexpected     ErrorKind = "unexpected"
)

// DecodeStage names the decoding step that rejected the input.
type DecodeStage string

const (
	StageBase64    DecodeStage = "base64"
	StageGzip      DecodeStage = "gzip"
	StageJSON      DecodeStage = "json"
	StageStructure DecodeStage = "structure"
)

// ConfigurationError is returned when a required setting is missing or invalid.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Setting, e.Reason)
}

func (e ConfigurationError) Kind() ErrorKind { return KindConfiguration }

// MalformedInputError is returned when the event payload cannot be decoded, parsed or validated.
type MalformedInputError struct {
	Stage DecodeStage
	Err   error
}

func (e MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input at %s stage: %v", e.Stage, e.Err)
}

func (e MalformedInputError) Unwrap() error { return e.Err }

func (e MalformedInputError) Kind() ErrorKind { return KindMalformedInput }

// BatchTooLargeError is returned when a batch exceeds the intake limit. Callers must split the batch upstream.
type BatchTooLargeError struct {
	Size int
	Max  int
}

func (e BatchTooLargeError) Error() string {
	return fmt.Sprintf("log batch size %d exceeds maximum of %d", e.Size, e.Max)
}

func (e BatchTooLargeError) Kind() ErrorKind { return KindBatchTooLarge }

// NetworkError wraps transport level failures: timeouts, refused connections, DNS and TLS errors.
type NetworkError struct {
	Err error
}

func (e NetworkError) Error() string {
	return fmt.Sprintf("network error sending logs to Datadog: %v", e.Err)
}

func (e NetworkError) Unwrap() error { return e.Err }

func (e NetworkError) Kind() ErrorKind { return KindNetwork }

// RemoteAPIError is returned when the intake endpoint responds with a non-2xx status.
type RemoteAPIError struct {
	StatusCode int
	Status     string
	// Body holds at most the first 512 bytes of the response body.
	Body string
}

func (e RemoteAPIError) Error() string {
	return fmt.Sprintf("Datadog API http_status_code=%d status=%q body=%s", e.StatusCode, e.Status, e.Body)
}

func (e RemoteAPIError) Kind() ErrorKind { return KindRemoteAPI }

// UnexpectedError wraps any failure not covered by the other kinds.
type UnexpectedError struct {
	Err error
}

func (e UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected error: %v", e.Err)
}

func (e UnexpectedError) Unwrap() error { return e.Err }

func (e UnexpectedError) Kind() ErrorKind { return KindUnexpected }

// KindOf returns the kind of the first taxonomy error found in err's chain.
// Errors outside the taxonomy are reported as KindUnexpected. KindOf(nil) is empty.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var kinded interface{ Kind() ErrorKind }
	if errors.As(err, &kinded) {
		return kinded.Kind()
	}

	return KindUnexpected
}
