// Package respond writes the proxy's uniform JSON responses. Error payloads
// mirror the {code, message, data:{status}} shape the booking widget expects.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"
)

// statusCoder is implemented by the typed errors of the proxy layer.
type statusCoder interface {
	error
	HTTPStatus() int
	ErrorCode() string
}

// bodyCarrier is implemented by errors that captured an upstream body.
type bodyCarrier interface {
	ErrorBody() any
}

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error maps a proxy error onto the wire. Typed errors carry their own
// status and code; anything else becomes a generic 500.
func Error(w http.ResponseWriter, err error) {
	var sc statusCoder
	if !errors.As(err, &sc) {
		JSON(w, http.StatusInternalServerError, errorPayload("internal_error", "Internal server error", http.StatusInternalServerError, nil))
		return
	}

	var body any
	var bc bodyCarrier
	if errors.As(err, &bc) {
		body = bc.ErrorBody()
	}
	JSON(w, sc.HTTPStatus(), errorPayload(sc.ErrorCode(), sc.Error(), sc.HTTPStatus(), body))
}

func errorPayload(code, message string, status int, body any) map[string]any {
	data := map[string]any{"status": status}
	if body != nil {
		data["body"] = body
	}
	return map[string]any{
		"code":    code,
		"message": message,
		"data":    data,
	}
}
