package client

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorClass represents a classification of transport failures.
type ErrorClass string

const (
	// ErrorClassNetwork represents connection failures (refused, reset, unreachable).
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDNS represents host name resolution failures.
	ErrorClassDNS ErrorClass = "dns"

	// ErrorClassTimeout represents a call that exceeded its deadline.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassCanceled represents a call aborted by context cancellation.
	ErrorClassCanceled ErrorClass = "canceled"
)

// TransportError is returned when a request could not complete a round trip.
// HTTP error statuses are never reported as TransportError.
type TransportError struct {
	Method string
	URL    string
	Class  ErrorClass
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s error: %s %s: %v", e.Class, e.Method, e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a deadline.
func (e *TransportError) Timeout() bool {
	return e.Class == ErrorClassTimeout
}

func newTransportError(method, url string, err error) *TransportError {
	return &TransportError{
		Method: method,
		URL:    url,
		Class:  classifyError(err),
		Err:    err,
	}
}

// classifyError categorizes a transport error for observability and handling.
func classifyError(err error) ErrorClass {
	var dnsErr *net.DNSError
	var netErr net.Error

	switch {
	case errors.Is(err, context.Canceled):
		return ErrorClassCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorClassTimeout
	case errors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			return ErrorClassTimeout
		}
		return ErrorClassDNS
	case errors.As(err, &netErr) && netErr.Timeout():
		return ErrorClassTimeout
	default:
		return ErrorClassNetwork
	}
}
