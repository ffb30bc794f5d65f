package bus

import "context"

// Keyer lo implementan los eventos que eligen su clave de partición.
type Keyer interface {
	PartitionKey() string
}

// Topicer lo implementan los eventos que eligen su topic.
type Topicer interface {
	Topic() string
}

// EventBus publica eventos ya serializables; el formato del mensaje lo decide el adaptador.
type EventBus interface {
	Publish(ctx context.Context, event interface{}) error
}
