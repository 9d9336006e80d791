package checkfront

import (
	"fmt"
	"net/http"
)

// ErrorKind classifies a failed Checkfront API call.
type ErrorKind string

const (
	// KindNotConfigured means host, key or secret are missing.
	KindNotConfigured ErrorKind = "no_config"
	// KindTransport means the network call itself failed.
	KindTransport ErrorKind = "transport"
	// KindUpstream means Checkfront answered with an HTTP error status.
	KindUpstream ErrorKind = "api_error"
	// KindBadResponse means the response body was not valid JSON.
	KindBadResponse ErrorKind = "bad_json"
)

// Error is the typed result of a failed Checkfront API call. Status is the
// HTTP status the proxy should surface to its own caller; Body carries the
// upstream response body for diagnostics when one was readable.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Body    any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("checkfront: %s: %v", e.Message, e.Err)
	}
	return "checkfront: " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus implements the status mapping consumed by the respond package.
func (e *Error) HTTPStatus() int {
	if e.Status > 0 {
		return e.Status
	}
	return http.StatusBadGateway
}

// ErrorCode implements the error-code mapping consumed by the respond package.
func (e *Error) ErrorCode() string { return string(e.Kind) }

// ErrorBody exposes the captured upstream body for diagnostics.
func (e *Error) ErrorBody() any { return e.Body }

func notConfigured() *Error {
	return &Error{
		Kind:    KindNotConfigured,
		Status:  http.StatusServiceUnavailable,
		Message: "Checkfront API not configured.",
	}
}

func transportError(err error) *Error {
	return &Error{
		Kind:    KindTransport,
		Status:  http.StatusBadGateway,
		Message: "Checkfront API unreachable",
		Err:     err,
	}
}

func upstreamError(status int, body any) *Error {
	return &Error{
		Kind:    KindUpstream,
		Status:  status,
		Message: fmt.Sprintf("Checkfront API error (HTTP %d)", status),
		Body:    body,
	}
}

func badResponse(body string) *Error {
	return &Error{
		Kind:    KindBadResponse,
		Status:  http.StatusBadGateway,
		Message: "Unable to decode Checkfront response",
		Body:    body,
	}
}
