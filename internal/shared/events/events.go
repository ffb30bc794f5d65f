// Package events define los contratos de integración que se publican a partir del outbox.
package events

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
)

// IntegrationEvent es el sobre común de todos los eventos publicados.
type IntegrationEvent struct {
	ID            uuid.UUID       `json:"id"`
	Type          string          `json:"type"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	Timestamp     time.Time       `json:"timestamp"`
	Data          json.RawMessage `json:"data"`

	topic string
}

// PartitionKey: los eventos de un mismo agregado van a la misma partición.
func (e IntegrationEvent) PartitionKey() string { return e.AggregateID }

func (e IntegrationEvent) Topic() string { return e.topic }

// EventMetadata indica en qué tipo se decodifica el payload y a qué topic se publica.
type EventMetadata struct {
	Type  reflect.Type
	Topic string
}

// Registry asocia cada tipo de evento ("user.created") con su metadata.
type Registry map[string]EventMetadata

// Deleted es el payload de los eventos de borrado.
type Deleted struct {
	ID string `json:"id"`
}

// CRUD registra los tres eventos que emite el servicio genérico para un tipo de registro.
func (r Registry) CRUD(aggregate, topic string, payload reflect.Type) Registry {
	r[sharedDomain.EventType(aggregate, sharedDomain.ActionCreated)] = EventMetadata{Type: payload, Topic: topic}
	r[sharedDomain.EventType(aggregate, sharedDomain.ActionUpdated)] = EventMetadata{Type: payload, Topic: topic}
	r[sharedDomain.EventType(aggregate, sharedDomain.ActionDeleted)] = EventMetadata{Type: reflect.TypeOf(Deleted{}), Topic: topic}
	return r
}

// Wrap decodifica el payload del outbox al tipo registrado y lo envuelve en un IntegrationEvent.
// Un payload que no encaja con el tipo es un error.
func Wrap(evt sharedDomain.OutboxEvent, meta EventMetadata) (IntegrationEvent, error) {
	raw, err := json.Marshal(evt.Payload)
	if err != nil {
		return IntegrationEvent{}, err
	}

	typed := reflect.New(meta.Type).Interface()
	if err := json.Unmarshal(raw, typed); err != nil {
		return IntegrationEvent{}, err
	}
	data, err := json.Marshal(typed)
	if err != nil {
		return IntegrationEvent{}, err
	}

	return IntegrationEvent{
		ID:            evt.ID,
		Type:          evt.EventType,
		AggregateType: evt.AggregateType,
		AggregateID:   evt.AggregateID,
		Timestamp:     evt.CreatedAt,
		Data:          data,
		topic:         meta.Topic,
	}, nil
}
