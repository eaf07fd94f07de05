// Package testutil provides request helpers for handler tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"auditkit/pkg/platform/middleware/initiator"
)

// NewJSONRequest builds a request with body marshaled as JSON; nil sends no body.
func NewJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body), "marshal request body")
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AsInitiator tags the request with the initiator and request id headers the
// audit middleware reads.
func AsInitiator(req *http.Request, initiatorID, requestID string) *http.Request {
	if initiatorID != "" {
		req.Header.Set(initiator.HeaderInitiatorID, initiatorID)
	}
	if requestID != "" {
		req.Header.Set(initiator.HeaderRequestID, requestID)
	}
	return req
}

// DoRequest executes a request against a handler and returns the recorder.
func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// UnmarshalResponse decodes the response body into a T.
func UnmarshalResponse[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var result T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result), "unmarshal response: %s", rr.Body.String())
	return result
}
