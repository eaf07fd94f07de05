// Package httputil holds the JSON response helpers shared by HTTP handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"auditkit/pkg/platform/sentinel"
)

// ErrorResponse is the body written for failed requests.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status code via the sentinel errors. Internal
// errors omit the description.
func WriteError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	body := ErrorResponse{Error: code}
	if status != http.StatusInternalServerError {
		body.ErrorDescription = err.Error()
	}
	WriteJSON(w, status, body)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, sentinel.ErrInvalidInput):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, sentinel.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, sentinel.ErrInvalidState):
		return http.StatusConflict, "conflict"
	case errors.Is(err, sentinel.ErrUnavailable), errors.Is(err, sentinel.ErrCapacity):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// DecodeJSON decodes the request body into a T, rejecting unknown fields.
func DecodeJSON[T any](r *http.Request) (T, error) {
	var v T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("%w: malformed JSON body: %v", sentinel.ErrInvalidInput, err)
	}
	return v, nil
}
