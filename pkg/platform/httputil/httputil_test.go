package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auditkit/pkg/platform/sentinel"
)

func TestWriteError(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		status   int
		code     string
		withDesc bool
	}{
		{"internal error omits description", fmt.Errorf("db failed"), http.StatusInternalServerError, "internal_error", false},
		{"invalid input", fmt.Errorf("%w: name is required", sentinel.ErrInvalidInput), http.StatusBadRequest, "bad_request", true},
		{"not found", fmt.Errorf("asset a1: %w", sentinel.ErrNotFound), http.StatusNotFound, "not_found", true},
		{"invalid state", sentinel.ErrInvalidState, http.StatusConflict, "conflict", true},
		{"buffer full", sentinel.ErrCapacity, http.StatusServiceUnavailable, "unavailable", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tc.err)

			assert.Equal(t, tc.status, w.Code)
			var body map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tc.code, body["error"])
			_, hasDesc := body["error_description"]
			assert.Equal(t, tc.withDesc, hasDesc)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	t.Run("valid body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"pump"}`))
		got, err := DecodeJSON[payload](r)
		require.NoError(t, err)
		assert.Equal(t, "pump", got.Name)
	})

	t.Run("unknown field", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"nam":"pump"}`))
		_, err := DecodeJSON[payload](r)
		assert.ErrorIs(t, err, sentinel.ErrInvalidInput)
	})
}
