package esp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ConnectionError means the provider could not be reached in time. Callers
// treat it as recoverable.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("esp connection failed during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// APIError is a rejection reported by the provider
type APIError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("esp api error %d %s: %s", e.Status, e.Title, e.Detail)
	}
	return fmt.Sprintf("esp api error %d %s", e.Status, e.Title)
}

// IsConnectionError reports whether err is, or wraps, a ConnectionError
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// classifyTransportError turns transport failures into ConnectionErrors and
// passes everything else through.
func classifyTransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ConnectionError{Op: op, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &ConnectionError{Op: op, Err: err}
	}
	return err
}

// isGatewayStatus marks responses from an unreachable upstream
func isGatewayStatus(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
