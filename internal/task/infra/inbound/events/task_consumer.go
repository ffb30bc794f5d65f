package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	sharedEvents "github.com/davicafu/crudlab/internal/shared/events"
	sharedInfraEvents "github.com/davicafu/crudlab/internal/shared/infra/events"
	sharedUtils "github.com/davicafu/crudlab/internal/shared/infra/utils"
	userDomain "github.com/davicafu/crudlab/internal/user/domain"
)

const handleTimeout = 5 * time.Second

// TaskService es lo que el consumidor necesita del servicio de tareas.
type TaskService interface {
	UnassignTasksOf(ctx context.Context, userID uuid.UUID) (int, error)
}

// TaskConsumer escucha el topic de usuarios y libera las tareas de los usuarios borrados.
type TaskConsumer struct {
	service TaskService
	log     *zap.Logger
}

// NewTaskConsumer es el constructor.
func NewTaskConsumer(service TaskService, logger *zap.Logger) *TaskConsumer {
	return &TaskConsumer{
		service: service,
		log:     logger,
	}
}

// HandleMessage es el punto de entrada para un nuevo mensaje/evento.
func (c *TaskConsumer) HandleMessage(ctx context.Context, key string, payload []byte) {
	var base sharedEvents.IntegrationEvent
	if err := json.Unmarshal(payload, &base); err != nil {
		c.log.Warn("Failed to unmarshal integration event", zap.String("key", key), zap.Error(err))
		return
	}

	switch base.Type {
	case userDomain.UserDeleted:
		sharedUtils.UnmarshalAndHandle(c.log, base.Type, base.Data, func(evt sharedEvents.Deleted) {
			userID, err := uuid.Parse(evt.ID)
			if err != nil {
				c.log.Warn("Invalid user id in event", zap.String("id", evt.ID), zap.Error(err))
				return
			}
			c.withContext(ctx, func(ctx context.Context) error {
				_, err := c.service.UnassignTasksOf(ctx, userID)
				return err
			}, userID)
		})

	default:
		// created/updated de usuarios no afectan a las tareas
	}
}

// Helper para ejecutar acción con contexto limitado y log.
func (c *TaskConsumer) withContext(ctx context.Context, action func(ctx context.Context) error, userID uuid.UUID) {
	ctxTask, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	if err := action(ctxTask); err != nil {
		c.log.Warn("Failed to release tasks of deleted user",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
}

var _ sharedInfraEvents.MessageHandler = (*TaskConsumer)(nil)
