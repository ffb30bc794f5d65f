package application

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	sharedApp "github.com/davicafu/crudlab/internal/shared/application"
	"github.com/davicafu/crudlab/internal/task/domain"
)

// TaskRecord es la representación de Task que entra y sale del servicio. El ID viaja como
// texto para no perder precisión en clientes JavaScript.
type TaskRecord struct {
	ID          string    `json:"id,omitempty" validate:"omitempty,numeric"`
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description,omitempty" validate:"max=2000"`
	Status      string    `json:"status,omitempty" validate:"omitempty,oneof=pending completed failed"`
	AssigneeID  string    `json:"assigneeId,omitempty" validate:"omitempty,uuid"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Version     int64     `json:"version"`
}

func SetID(r *TaskRecord, id string) { r.ID = id }

func Mapper() sharedApp.Mapper[TaskRecord, domain.Task] {
	return sharedApp.MapperFuncs[TaskRecord, domain.Task]{
		Entity: toEntity,
		Record: toRecord,
	}
}

func toEntity(r TaskRecord) *domain.Task {
	t := &domain.Task{
		Title:       r.Title,
		Description: r.Description,
		Status:      domain.TaskStatus(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		Version:     r.Version,
	}
	t.ID, _ = strconv.ParseInt(r.ID, 10, 64)
	if a, err := uuid.Parse(r.AssigneeID); err == nil {
		t.AssigneeID = &a
	}
	return t
}

func toRecord(t *domain.Task) TaskRecord {
	r := TaskRecord{
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		Version:     t.Version,
	}
	if t.ID != 0 {
		r.ID = strconv.FormatInt(t.ID, 10)
	}
	if t.AssigneeID != nil {
		r.AssigneeID = t.AssigneeID.String()
	}
	return r
}
