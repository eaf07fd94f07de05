// Package initiator copies caller identity headers into the request context
// where the audit assembler picks them up.
package initiator

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"auditkit/pkg/requestcontext"
)

const (
	HeaderRequestID   = "X-Request-ID"
	HeaderInitiatorID = "X-Initiator-ID"
)

// RequestID propagates X-Request-ID, generating one when absent, and echoes
// it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(requestcontext.WithRequestID(r.Context(), id)))
	})
}

// Initiator records X-Initiator-ID as the initiator of any audit event raised
// while serving the request. Requests without the header keep the default.
func Initiator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(HeaderInitiatorID)); id != "" {
			r = r.WithContext(requestcontext.WithInitiatorID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
