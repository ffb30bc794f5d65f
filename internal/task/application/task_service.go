package application

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	sharedApp "github.com/davicafu/crudlab/internal/shared/application"
	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
	"github.com/davicafu/crudlab/internal/task/domain"
)

// unassignBatch es el tamaño de página al recorrer las tareas de un usuario borrado.
const unassignBatch = 100

// TaskService define los casos de uso de Task sobre el CRUD genérico.
type TaskService struct {
	*sharedApp.CrudService[TaskRecord, domain.Task]
	log *zap.Logger
}

// NewTaskService es el constructor para el servicio de tareas.
func NewTaskService(crud *sharedApp.CrudService[TaskRecord, domain.Task], log *zap.Logger) *TaskService {
	if log == nil {
		log = zap.NewNop()
	}
	return &TaskService{CrudService: crud, log: log}
}

// IDs son los identificadores numéricos de las tareas.
func IDs() sharedApp.IDGenerator[domain.Task] {
	return sharedApp.NewIDGenerator(domain.Identity(), sharedApp.TimestampIDs())
}

// ---------------- Transiciones ----------------

// CompleteTask marca la tarea como completada.
func (s *TaskService) CompleteTask(ctx context.Context, id string) (TaskRecord, error) {
	return s.transition(ctx, id, (*domain.Task).Complete)
}

// FailTask marca la tarea como fallida.
func (s *TaskService) FailTask(ctx context.Context, id string) (TaskRecord, error) {
	return s.transition(ctx, id, (*domain.Task).Fail)
}

func (s *TaskService) transition(ctx context.Context, id string, apply func(*domain.Task)) (TaskRecord, error) {
	rec, found, err := s.Find(ctx, id)
	if err != nil {
		return TaskRecord{}, err
	}
	if !found {
		return TaskRecord{}, &sharedDomain.NotFoundError{Type: domain.RecordType, ID: id}
	}

	t := toEntity(rec)
	apply(t)
	return s.Update(ctx, toRecord(t))
}

// ---------------- Consultas ----------------

// ListPendingTasksForUser lista las tareas pendientes de un usuario, las más antiguas primero.
func (s *TaskService) ListPendingTasksForUser(ctx context.Context, userID uuid.UUID) ([]TaskRecord, error) {
	return s.listForUser(ctx, userID, domain.TaskPending)
}

func (s *TaskService) ListCompletedTasksForUser(ctx context.Context, userID uuid.UUID) ([]TaskRecord, error) {
	return s.listForUser(ctx, userID, domain.TaskCompleted)
}

func (s *TaskService) listForUser(ctx context.Context, userID uuid.UUID, status domain.TaskStatus) ([]TaskRecord, error) {
	req := sharedDomain.NewFilterRequest(0, 100).
		Where(
			domain.AssigneeIDCriteria{ID: userID},
			domain.StatusCriteria{Status: status},
		).
		SortBy("createdAt", true)

	return s.Filter(ctx, req)
}

// ListByAssigneeName busca tareas por el nombre de su responsable.
func (s *TaskService) ListByAssigneeName(ctx context.Context, name string, page, pageSize int) ([]TaskRecord, error) {
	req := sharedDomain.NewFilterRequest(page, pageSize).
		Where(domain.AssigneeNameCriteria{Name: name}).
		SortBy("createdAt", false)

	return s.Filter(ctx, req)
}

// ListUnassigned devuelve las tareas sin responsable.
func (s *TaskService) ListUnassigned(ctx context.Context, page, pageSize int) ([]TaskRecord, error) {
	req := sharedDomain.NewFilterRequest(page, pageSize).
		Where(domain.UnassignedCriteria{}).
		SortBy("createdAt", true)

	return s.Filter(ctx, req)
}

// UnassignTasksOf libera las tareas de un usuario que ya no existe. Devuelve cuántas se tocaron.
func (s *TaskService) UnassignTasksOf(ctx context.Context, userID uuid.UUID) (int, error) {
	req := sharedDomain.NewFilterRequest(0, unassignBatch).
		Where(domain.AssigneeIDCriteria{ID: userID}).
		SortBy("id", true)

	total := 0
	for {
		// siempre la primera página del primario: las tareas liberadas dejan de cumplir el filtro
		batch, err := s.FilterPrimary(ctx, req)
		if err != nil {
			return total, err
		}
		for _, rec := range batch {
			t := toEntity(rec)
			t.Unassign()
			if t.Status == domain.TaskCompleted {
				// una tarea completada exige responsable; se marca fallida
				t.Fail()
			}
			if _, err := s.Update(ctx, toRecord(t)); err != nil {
				return total, err
			}
			total++
		}
		if len(batch) < unassignBatch {
			break
		}
	}

	s.log.Info("Tasks unassigned", zap.String("userId", userID.String()), zap.Int("count", total))
	return total, nil
}
