package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	sharedBus "github.com/davicafu/crudlab/internal/shared/infra/platform/bus"
)

const (
	RecordType = "task"
	Table      = "tasks"
	Topic      = "task"
)

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

var Statuses = []string{string(TaskPending), string(TaskCompleted), string(TaskFailed)}

// Task es una tarea con identificador numérico (milisegundos + sufijo aleatorio).
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	AssigneeID  *uuid.UUID `json:"assigneeId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Version     int64      `json:"version"`
}

func (t *Task) PartitionKey() string {
	return strconv.FormatInt(t.ID, 10)
}

// --- Métodos de dominio ---
func (t *Task) Complete() {
	t.Status = TaskCompleted
	t.UpdatedAt = time.Now().UTC()
}

func (t *Task) Fail() {
	t.Status = TaskFailed
	t.UpdatedAt = time.Now().UTC()
}

func (t *Task) Update(title, description string) {
	t.Title = title
	t.Description = description
	t.UpdatedAt = time.Now().UTC()
}

// Unassign deja la tarea sin responsable.
func (t *Task) Unassign() {
	t.AssigneeID = nil
	t.UpdatedAt = time.Now().UTC()
}

// Verificación estática para asegurar que Task implementa la interfaz
var _ sharedBus.Keyer = (*Task)(nil)
