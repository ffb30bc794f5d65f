package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutboxEvent representa un evento pendiente de publicar en el broker.
type OutboxEvent struct {
	ID            uuid.UUID   `json:"id"`
	AggregateType string      `json:"aggregate_type"` // ej. "user", "task"
	AggregateID   string      `json:"aggregate_id"`
	EventType     string      `json:"event_type"` // ej. "user.updated"
	Payload       interface{} `json:"payload"`    // JSON serializable
	CreatedAt     time.Time   `json:"created_at"`
	Processed     bool        `json:"processed"` // si ya se publicó
}

// OutboxRepository define el contrato para acceder a la tabla outbox.
// Es la única dependencia que tendrá el worker.
type OutboxRepository interface {
	FetchPendingOutbox(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error
}

// Sufijos de los tipos de evento que emite el servicio CRUD genérico.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// EventType forma el tipo de evento "<aggregate>.<action>".
func EventType(aggregate, action string) string {
	return fmt.Sprintf("%s.%s", aggregate, action)
}

// NewOutboxEvent crea un evento listo para guardarse junto a la entidad.
func NewOutboxEvent(aggregate, action, aggregateID string, payload interface{}) OutboxEvent {
	return OutboxEvent{
		ID:            uuid.New(),
		AggregateType: aggregate,
		AggregateID:   aggregateID,
		EventType:     EventType(aggregate, action),
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
	}
}
