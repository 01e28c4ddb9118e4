// Package postgres implements the audit store using the transactional outbox
// pattern. Events are written to the outbox table and published to Kafka by
// the outbox relay; Kafka is the long-term source of truth for audit events.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "equitygate/pkg/platform/audit"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	// Category always derives from the action; the catalog is the source of truth.
	category := audit.Action(event.Action).Category()

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_outbox (
			id, category, severity, occurred_at, action,
			actor_type, actor_id, actor_authority,
			entity_kind, entity_id, ip, user_agent, device_summary,
			request_id, decision, reason, payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		eventID,
		string(category),
		string(event.Severity),
		event.Timestamp,
		event.Action,
		event.ActorType,
		event.ActorID,
		pq.Array(event.ActorAuthority),
		event.EntityKind,
		event.EntityID,
		event.IP,
		event.UserAgent,
		event.DeviceSummary,
		event.RequestID,
		event.Decision,
		event.Reason,
		payload,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByEntity(ctx context.Context, entityKind, entityID string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, severity, occurred_at, action,
		       actor_type, actor_id, actor_authority,
		       entity_kind, entity_id, ip, user_agent, device_summary,
		       request_id, decision, reason, payload
		FROM audit_outbox
		WHERE entity_kind = $1 AND entity_id = $2
		ORDER BY occurred_at ASC`,
		entityKind, entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e       audit.Event
			cat     string
			sev     string
			payload []byte
		)
		if err := rows.Scan(
			&cat, &sev, &e.Timestamp, &e.Action,
			&e.ActorType, &e.ActorID, pq.Array(&e.ActorAuthority),
			&e.EntityKind, &e.EntityID, &e.IP, &e.UserAgent, &e.DeviceSummary,
			&e.RequestID, &e.Decision, &e.Reason, &payload,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(cat)
		e.Severity = audit.Severity(sev)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal audit payload: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// OutboxRow is an unpublished outbox entry ready for relay to Kafka.
type OutboxRow struct {
	ID       uuid.UUID
	Category string
	Body     []byte
}

// FetchUnpublished returns up to limit unpublished outbox rows in insertion
// order, each serialized as the JSON body to publish.
func (s *Store) FetchUnpublished(ctx context.Context, limit int) ([]OutboxRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, occurred_at, action,
		       actor_type, actor_id, actor_authority,
		       entity_kind, entity_id, ip, user_agent, device_summary,
		       request_id, decision, reason, severity, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch outbox rows: %w", err)
	}
	defer rows.Close()

	var out []OutboxRow
	for rows.Next() {
		var (
			row      OutboxRow
			e        audit.Event
			payload  []byte
			occurred time.Time
			severity string
		)
		if err := rows.Scan(
			&row.ID, &row.Category, &occurred, &e.Action,
			&e.ActorType, &e.ActorID, pq.Array(&e.ActorAuthority),
			&e.EntityKind, &e.EntityID, &e.IP, &e.UserAgent, &e.DeviceSummary,
			&e.RequestID, &e.Decision, &e.Reason, &severity, &payload,
		); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		body := map[string]any{
			"id":              row.ID.String(),
			"category":        row.Category,
			"severity":        severity,
			"timestamp":       occurred.Format(time.RFC3339Nano),
			"action":          e.Action,
			"actor_type":      e.ActorType,
			"actor_id":        e.ActorID,
			"actor_authority": e.ActorAuthority,
			"entity_kind":     e.EntityKind,
			"entity_id":       e.EntityID,
			"ip":              e.IP,
			"user_agent":      e.UserAgent,
			"device_summary":  e.DeviceSummary,
			"request_id":      e.RequestID,
			"decision":        e.Decision,
			"reason":          e.Reason,
		}
		if len(payload) > 0 {
			var p map[string]any
			if err := json.Unmarshal(payload, &p); err == nil {
				body["payload"] = p
			}
		}
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode outbox body: %w", err)
		}
		row.Body = encoded
		out = append(out, row)
	}
	return out, rows.Err()
}

// MarkPublished stamps outbox rows as delivered. Idempotent.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE audit_outbox SET published_at = $1
		WHERE id = ANY($2) AND published_at IS NULL`,
		time.Now(), pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("mark outbox rows published: %w", err)
	}
	return nil
}
