package translator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ServiceError describes a failed call to a translation backend. Transient
// errors (rate limits, timeouts, upstream faults) may be retried with
// backoff; permanent errors (bad credentials, content-policy rejection)
// must not be.
type ServiceError struct {
	Service   string
	Status    int
	Message   string
	Transient bool
}

func (e *ServiceError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s error (HTTP %d): %s", e.Service, kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s error: %s", e.Service, kind, e.Message)
}

// IsTransient reports whether err is a retryable service failure. Network
// timeouts count as transient; context cancellation does not (the caller
// asked to stop).
func IsTransient(err error) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Transient
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

// statusError classifies an HTTP status from a translation backend.
func statusError(service string, status int, message string) *ServiceError {
	transient := status == http.StatusTooManyRequests ||
		status == http.StatusRequestTimeout ||
		status >= 500
	return &ServiceError{Service: service, Status: status, Message: message, Transient: transient}
}

// transportError wraps a failed HTTP round trip.
func transportError(service string, err error) *ServiceError {
	transient := true
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		transient = false
	}
	return &ServiceError{Service: service, Message: err.Error(), Transient: transient}
}
