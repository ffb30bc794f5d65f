package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/davicafu/crudlab/internal/shared/infra/platform/bus"
)

// ConsumeChan entrega al handler los mensajes de un canal del bus en memoria hasta que se
// cancela ctx o se cierra el canal. Es la alternativa local a ConsumerAdapter.
func ConsumeChan(ctx context.Context, ch <-chan bus.Message, handler MessageHandler, log *zap.Logger) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				log.Info("In-memory consumer stopped")
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler.HandleMessage(ctx, msg.Key, msg.Value)
			}
		}
	}()
}
