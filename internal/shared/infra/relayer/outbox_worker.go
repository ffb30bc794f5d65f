package relayer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
	sharedEvents "github.com/davicafu/crudlab/internal/shared/events"
	sharedBus "github.com/davicafu/crudlab/internal/shared/infra/platform/bus"
)

// ErrUndeliverable marca los eventos que nunca se podrán publicar: tipo sin registrar o payload
// ilegible. Se sacan del outbox para que no bloqueen los lotes siguientes.
var ErrUndeliverable = errors.New("undeliverable outbox event")

// Observer recibe el resultado de cada publicación. Lo implementa metrics.Metrics.
type Observer interface {
	OutboxPublished(eventType string, err error)
}

// Worker publica los eventos pendientes del outbox y los marca como procesados. Un evento que
// no se pudo publicar se queda pendiente y se reintenta en el siguiente ciclo; uno que no se
// podrá publicar nunca se descarta.
type Worker struct {
	repo      sharedDomain.OutboxRepository
	publisher sharedBus.EventBus
	registry  sharedEvents.Registry
	interval  time.Duration
	batchSize int
	observer  Observer
	log       *zap.Logger
}

func NewOutboxWorker(
	repo sharedDomain.OutboxRepository,
	publisher sharedBus.EventBus,
	registry sharedEvents.Registry,
	interval time.Duration,
	batchSize int,
	log *zap.Logger,
) *Worker {
	return &Worker{
		repo:      repo,
		publisher: publisher,
		registry:  registry,
		interval:  interval,
		batchSize: batchSize,
		log:       log,
	}
}

// WithObserver añade un observador de publicaciones.
func (w *Worker) WithObserver(o Observer) *Worker {
	w.observer = o
	return w
}

// Start hace polling del outbox hasta que se cancela ctx.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("Outbox worker started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Outbox worker stopped")
			return
		case <-ticker.C:
			w.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch publica un lote; devuelve cuántos eventos quedaron marcados.
func (w *Worker) ProcessBatch(ctx context.Context) int {
	events, err := w.repo.FetchPendingOutbox(ctx, w.batchSize)
	if err != nil {
		w.log.Warn("Failed to fetch pending outbox events", zap.Error(err))
		return 0
	}
	if len(events) > 0 {
		w.log.Debug("Pending outbox events", zap.Int("count", len(events)))
	}

	published := 0
	for _, evt := range events {
		if w.publishAndMark(ctx, evt) {
			published++
		}
	}
	return published
}

func (w *Worker) publishAndMark(ctx context.Context, evt sharedDomain.OutboxEvent) bool {
	log := w.log.With(zap.String("event_id", evt.ID.String()), zap.String("event_type", evt.EventType))

	meta, ok := w.registry[evt.EventType]
	if !ok {
		w.discard(ctx, evt, fmt.Errorf("%w: unknown event type %q", ErrUndeliverable, evt.EventType), log)
		return false
	}

	ie, err := sharedEvents.Wrap(evt, meta)
	if err != nil {
		w.discard(ctx, evt, fmt.Errorf("%w: %v", ErrUndeliverable, err), log)
		return false
	}

	err = w.publisher.Publish(ctx, ie)
	if w.observer != nil {
		w.observer.OutboxPublished(evt.EventType, err)
	}
	if err != nil {
		log.Warn("Failed to publish event", zap.Error(err))
		return false
	}

	if err := w.repo.MarkOutboxProcessed(ctx, evt.ID); err != nil {
		log.Warn("Failed to mark event as processed", zap.Error(err))
		return false
	}
	log.Debug("Event published and marked")
	return true
}

// discard saca del outbox un evento imposible de publicar. El evento completo queda en el log.
func (w *Worker) discard(ctx context.Context, evt sharedDomain.OutboxEvent, cause error, log *zap.Logger) {
	log.Error("Discarding outbox event", zap.Error(cause), zap.String("aggregate_id", evt.AggregateID), zap.Any("payload", evt.Payload))
	if w.observer != nil {
		w.observer.OutboxPublished(evt.EventType, cause)
	}
	if err := w.repo.MarkOutboxProcessed(ctx, evt.ID); err != nil {
		log.Warn("Failed to mark event as processed", zap.Error(err))
	}
}
