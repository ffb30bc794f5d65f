package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
	"github.com/davicafu/crudlab/internal/shared/infra/platform/db/sqlbuilder"
)

// ------------------ Helper DRY para insertar en outbox ------------------

func insertOutboxTx(ctx context.Context, tx *sql.Tx, d sqlbuilder.Dialect, evt sharedDomain.OutboxEvent) error {
	payloadBytes, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	b := sqlbuilder.New(d)
	b.Write("INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at, processed) VALUES (").
		Arg(evt.ID.String()).Write(", ").
		Arg(evt.AggregateType).Write(", ").
		Arg(evt.AggregateID).Write(", ").
		Arg(evt.EventType).Write(", ").
		Arg(string(payloadBytes)).Write(", ").
		Arg(evt.CreatedAt).Write(", ").
		Arg(false).Write(")")

	if _, err := tx.ExecContext(ctx, b.String(), b.Args()...); err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// Outbox implementa sharedDomain.OutboxRepository sobre la tabla outbox compartida.
type Outbox struct {
	db      *sql.DB
	dialect sqlbuilder.Dialect
}

func NewOutbox(db *sql.DB, dialect sqlbuilder.Dialect) *Outbox {
	return &Outbox{db: db, dialect: dialect}
}

// FetchPendingOutbox obtiene los eventos no procesados, los más antiguos primero.
func (r *Outbox) FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	b := sqlbuilder.New(r.dialect)
	b.Write("SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at FROM outbox WHERE processed = ").
		Arg(false).
		Write(" ORDER BY created_at LIMIT ").Arg(limit)

	rows, err := r.db.QueryContext(ctx, b.String(), b.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []sharedDomain.OutboxEvent
	for rows.Next() {
		var evt sharedDomain.OutboxEvent
		var payloadBytes []byte // JSONB en Postgres, TEXT en SQLite

		if err := rows.Scan(&evt.ID, &evt.AggregateType, &evt.AggregateID, &evt.EventType, &payloadBytes, &evt.CreatedAt); err != nil {
			return nil, err
		}

		var payload map[string]interface{}
		if err := json.Unmarshal(payloadBytes, &payload); err != nil {
			return nil, fmt.Errorf("invalid JSON payload in outbox row %s: %w", evt.ID, err)
		}
		evt.Payload = payload

		events = append(events, evt)
	}

	return events, rows.Err()
}

// MarkOutboxProcessed marca un evento como procesado.
func (r *Outbox) MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error {
	b := sqlbuilder.New(r.dialect)
	b.Write("UPDATE outbox SET processed = ").Arg(true).Write(" WHERE id = ").Arg(id.String())

	res, err := r.db.ExecContext(ctx, b.String(), b.Args()...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get RowsAffected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("outbox event not found: %s", id)
	}
	return nil
}

// Verificación en tiempo de compilación.
var _ sharedDomain.OutboxRepository = (*Outbox)(nil)
