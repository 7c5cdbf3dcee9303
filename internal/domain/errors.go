package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

var (
	// ErrInvalidEventType is matched by every *InvalidEventTypeError.
	ErrInvalidEventType = errors.New("invalid event type")

	// ErrStorage is matched by every *StorageError.
	ErrStorage = errors.New("storage error")
)

// InvalidEventTypeError reports an event type outside the catalog.
type InvalidEventTypeError struct {
	Value string
}

func (e *InvalidEventTypeError) Error() string {
	return fmt.Sprintf("invalid event type: %q", e.Value)
}

func (e *InvalidEventTypeError) Is(target error) bool {
	return target == ErrInvalidEventType
}

// StorageError wraps a registry I/O failure. It is never retried internally.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// DeliveryErrorKind classifies a transport-level delivery failure.
type DeliveryErrorKind string

const (
	DeliveryTimeout           DeliveryErrorKind = "timeout"
	DeliveryConnectionRefused DeliveryErrorKind = "connection_refused"
	DeliveryDNS               DeliveryErrorKind = "dns"
	DeliveryRequest           DeliveryErrorKind = "request"
	DeliveryTransport         DeliveryErrorKind = "transport"
)

// DeliveryError is a per-subscriber transport failure. It only ever ends up
// rendered into a DeliveryResult; Trigger and PingAll never return it.
type DeliveryError struct {
	URL  string
	Kind DeliveryErrorKind
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// NewDeliveryError classifies err by its underlying network cause.
func NewDeliveryError(url string, err error) *DeliveryError {
	return &DeliveryError{URL: url, Kind: classifyDeliveryError(err), Err: err}
}

func classifyDeliveryError(err error) DeliveryErrorKind {
	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return DeliveryTimeout
	case errors.As(err, &dnsErr):
		return DeliveryDNS
	case errors.Is(err, syscall.ECONNREFUSED):
		return DeliveryConnectionRefused
	case errors.As(err, &netErr) && netErr.Timeout():
		return DeliveryTimeout
	default:
		return DeliveryTransport
	}
}
