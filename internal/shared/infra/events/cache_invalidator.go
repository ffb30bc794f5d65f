package events

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
	sharedEvents "github.com/davicafu/crudlab/internal/shared/events"
	sharedCache "github.com/davicafu/crudlab/internal/shared/infra/platform/cache"
)

// CacheInvalidator borra de la caché los registros que otra instancia ha modificado.
type CacheInvalidator struct {
	cache sharedCache.Cache
	log   *zap.Logger
}

func NewCacheInvalidator(cache sharedCache.Cache, log *zap.Logger) *CacheInvalidator {
	return &CacheInvalidator{cache: cache, log: log}
}

func (h *CacheInvalidator) HandleMessage(ctx context.Context, key string, payload []byte) {
	var evt sharedEvents.IntegrationEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		h.log.Warn("Discarding undecodable event", zap.String("key", key), zap.Error(err))
		return
	}
	switch evt.Type {
	case sharedDomain.EventType(evt.AggregateType, sharedDomain.ActionUpdated),
		sharedDomain.EventType(evt.AggregateType, sharedDomain.ActionDeleted):
	default:
		return
	}

	cacheKey := sharedCache.KeyByID(evt.AggregateType, evt.AggregateID)
	if err := h.cache.Delete(ctx, cacheKey); err != nil {
		h.log.Warn("Cache invalidation failed", zap.String("key", cacheKey), zap.Error(err))
	}
}

var _ MessageHandler = (*CacheInvalidator)(nil)
