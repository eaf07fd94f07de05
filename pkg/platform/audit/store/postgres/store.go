package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "auditkit/pkg/platform/audit"
	txcontext "auditkit/pkg/platform/tx"
)

// Schema creates the audit_events table. Entity ids are denormalized into a
// text[] column so events can be found by entity without decoding JSON.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	event_id     TEXT PRIMARY KEY,
	action       TEXT NOT NULL,
	entity_type  TEXT NOT NULL DEFAULT '',
	entity_ids   TEXT[] NOT NULL DEFAULT '{}',
	entities     JSONB NOT NULL,
	initiator_id TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	request_id   TEXT NOT NULL DEFAULT '',
	occurred_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_events_entity_ids_idx ON audit_events USING GIN (entity_ids);
CREATE INDEX IF NOT EXISTS audit_events_occurred_at_idx ON audit_events (occurred_at DESC);
`

const selectColumns = `
	SELECT event_id, action, entity_type, entities,
		   initiator_id, description, request_id, occurred_at
	FROM audit_events
`

// Store implements audit.Store on PostgreSQL. Appends join the transaction
// carried by the context, if any, so events commit with the business write.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// EnsureSchema applies Schema.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

// Append inserts the event. Re-appending an event id is a no-op.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	entities := event.Entities
	if entities == nil {
		entities = []audit.EntityRef{}
	}
	payload, err := json.Marshal(entities)
	if err != nil {
		return fmt.Errorf("marshal audit entities: %w", err)
	}

	query := `
		INSERT INTO audit_events (
			event_id, action, entity_type, entity_ids, entities,
			initiator_id, description, request_id, occurred_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (event_id) DO NOTHING
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		event.EventID,
		event.Action,
		event.EntityType,
		pq.Array(event.EntityIDs()),
		payload,
		event.InitiatorID,
		event.Description,
		event.RequestID,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Publish lets the store act directly as an audit.Publisher.
func (s *Store) Publish(ctx context.Context, event audit.Event) error {
	return s.Append(ctx, event)
}

// ListRecent returns the N most recent events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY occurred_at DESC`)
		if err != nil {
			return nil, fmt.Errorf("query audit events: %w", err)
		}
		defer rows.Close()
		return scanEvents(rows)
	}

	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY occurred_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListByEntity returns the events referencing one entity, newest first.
func (s *Store) ListByEntity(ctx context.Context, entityType, entityID string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` WHERE entity_type = $1 AND $2 = ANY(entity_ids) ORDER BY occurred_at DESC`,
		entityType, entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events by entity: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event    audit.Event
			entities []byte
		)
		err := rows.Scan(
			&event.EventID,
			&event.Action,
			&event.EntityType,
			&entities,
			&event.InitiatorID,
			&event.Description,
			&event.RequestID,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if err := json.Unmarshal(entities, &event.Entities); err != nil {
			return nil, fmt.Errorf("decode audit entities of %s: %w", event.EventID, err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
