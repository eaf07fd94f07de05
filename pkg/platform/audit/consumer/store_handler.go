package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	audit "auditkit/pkg/platform/audit"
)

// StoreHandler materializes audit events produced to Kafka into a Store.
type StoreHandler struct {
	store  audit.Store
	logger *slog.Logger
}

func NewStoreHandler(store audit.Store, logger *slog.Logger) *StoreHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &StoreHandler{store: store, logger: logger}
}

// Handle decodes the record value as an audit event and appends it.
// Malformed records are logged and skipped; store failures are returned so
// the record is not committed.
func (h *StoreHandler) Handle(ctx context.Context, msg *Message) error {
	var event audit.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.ErrorContext(ctx, "failed to unmarshal audit event",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}
	if event.EventID == "" {
		event.EventID = msg.Header(HeaderEventID)
	}
	if event.EventID == "" || event.Action == "" {
		h.logger.ErrorContext(ctx, "audit event missing id or action",
			"topic", msg.Topic,
			"offset", msg.Offset,
		)
		return nil
	}

	if err := h.store.Append(ctx, event); err != nil {
		return fmt.Errorf("store audit event %s: %w", event.EventID, err)
	}

	h.logger.DebugContext(ctx, "stored audit event",
		"event_id", event.EventID,
		"action", event.Action,
		"entity_type", event.EntityType,
	)
	return nil
}
