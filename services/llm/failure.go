package llm

import (
	"errors"
	"fmt"
	"net"
	"syscall"
)

// TransportKind tags failures that never produced an HTTP response.
type TransportKind int

const (
	// TransportNone means the service responded; StatusCode and Code carry
	// the error details.
	TransportNone TransportKind = iota

	// TransportConnRefused means the TCP connection was refused.
	TransportConnRefused

	// TransportDNS means the service hostname could not be resolved.
	TransportDNS

	// TransportOther covers every other transport-level error (timeouts,
	// resets, TLS failures).
	TransportOther
)

// Failure is the closed error type every backend adapter produces for a
// downstream error. Classification code matches on its fields instead of
// probing arbitrary error values.
type Failure struct {
	// StatusCode is the HTTP status returned by the service, 0 for
	// transport failures.
	StatusCode int

	// Code is the machine-readable error code from the response body, if
	// the service provided one.
	Code string

	// Message is the human-readable error message from the service.
	Message string

	// Transport tags failures that never reached the service.
	Transport TransportKind

	cause error
}

func (f *Failure) Error() string {
	switch f.Transport {
	case TransportConnRefused:
		return "completion service: connection refused"
	case TransportDNS:
		return "completion service: host not resolvable"
	case TransportOther:
		return fmt.Sprintf("completion service: transport error: %v", f.cause)
	}
	return fmt.Sprintf("completion service: status %d code %q: %s", f.StatusCode, f.Code, f.Message)
}

func (f *Failure) Unwrap() error { return f.cause }

// NewFailure builds a Failure for an HTTP-level error response.
func NewFailure(status int, code, message string) *Failure {
	return &Failure{StatusCode: status, Code: code, Message: message}
}

// TransportFailure inspects a request error and tags it as connection
// refusal, DNS resolution failure, or other transport error.
func TransportFailure(err error) *Failure {
	f := &Failure{Transport: TransportOther, cause: err}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		f.Transport = TransportDNS
		f.Message = dnsErr.Error()
		return f
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		f.Transport = TransportConnRefused
		f.Message = err.Error()
		return f
	}
	f.Message = err.Error()
	return f
}

// AsFailure extracts the *Failure from an error chain, wrapping unknown
// errors as transport failures so callers always get a classifiable value.
func AsFailure(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return TransportFailure(err)
}
