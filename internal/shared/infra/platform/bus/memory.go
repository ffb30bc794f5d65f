package bus

import (
	"context"
	"encoding/json"
	"sync"
)

// Message es lo que reciben los suscriptores del bus en memoria.
type Message struct {
	Topic string
	Key   string
	Value []byte
}

// InMemoryEventBus reparte los eventos por topic entre suscriptores locales. Se usa cuando no
// hay Kafka configurado. Un suscriptor lento pierde mensajes en vez de bloquear al publicador.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Message
	closed      bool
}

var _ EventBus = (*InMemoryEventBus)(nil)

func NewInMemoryEventBus() *InMemoryEventBus {
	return &InMemoryEventBus{subscribers: make(map[string][]chan Message)}
}

func (b *InMemoryEventBus) Publish(ctx context.Context, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := Message{Value: data}
	if t, ok := event.(Topicer); ok {
		msg.Topic = t.Topic()
	}
	if k, ok := event.(Keyer); ok {
		msg.Key = k.PartitionKey()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}
	for _, ch := range b.subscribers[msg.Topic] {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe devuelve un canal con los mensajes del topic.
func (b *InMemoryEventBus) Subscribe(topic string, bufferSize int) <-chan Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Message, bufferSize)
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	return ch
}

// Close cierra los canales de todos los suscriptores.
func (b *InMemoryEventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
}
