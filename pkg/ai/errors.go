package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/openai/openai-go"
)

// Status describes why an AI service call did not produce a usable result.
type Status string

const (
	StatusTimeout           Status = "timeout"
	StatusConnectionError   Status = "connection_error"
	StatusHTTPError         Status = "http_error"
	StatusMalformedResponse Status = "malformed_response"
)

// UnavailableError is returned by every client in this package when the remote
// service cannot be used. Callers treat it as "service down", never as "no data".
type UnavailableError struct {
	Service    string
	Status     Status
	StatusCode int
	Err        error
}

func (e *UnavailableError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s unavailable: %s (status %d)", e.Service, e.Status, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s unavailable: %s: %v", e.Service, e.Status, e.Err)
	default:
		return fmt.Sprintf("%s unavailable: %s", e.Service, e.Status)
	}
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// AsUnavailable extracts an *UnavailableError from err.
func AsUnavailable(err error) (*UnavailableError, bool) {
	var u *UnavailableError
	if errors.As(err, &u) {
		return u, true
	}
	return nil, false
}

// HTTPStatusError captures non-200 upstream responses.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func unavailable(service string, err error) *UnavailableError {
	if u, ok := AsUnavailable(err); ok {
		return u
	}
	u := &UnavailableError{Service: service, Err: err}

	var httpErr *HTTPStatusError
	var apiErr *openai.Error
	var netErr net.Error
	var syntaxErr *json.SyntaxError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		u.Status = StatusTimeout
	case errors.As(err, &httpErr):
		u.Status = StatusHTTPError
		u.StatusCode = httpErr.StatusCode
	case errors.As(err, &apiErr):
		u.Status = StatusHTTPError
		u.StatusCode = apiErr.StatusCode
		if u.StatusCode == http.StatusRequestTimeout || u.StatusCode == http.StatusGatewayTimeout {
			u.Status = StatusTimeout
		}
	case errors.As(err, &netErr) && netErr.Timeout():
		u.Status = StatusTimeout
	case errors.As(err, &syntaxErr), errors.Is(err, errMalformed):
		u.Status = StatusMalformedResponse
	default:
		u.Status = StatusConnectionError
	}
	return u
}

var errMalformed = errors.New("malformed response")

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errMalformed, fmt.Sprintf(format, args...))
}
