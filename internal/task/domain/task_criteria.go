package domain

import (
	"time"

	"github.com/google/uuid"

	shared "github.com/davicafu/crudlab/internal/shared/domain"
)

// --- Criterios Específicos para el Dominio Task ---

// StatusCriteria busca tareas por su estado (pending, completed, etc.).
type StatusCriteria struct {
	Status TaskStatus
}

func (c StatusCriteria) ToConditions() []shared.Criterion {
	return []shared.Criterion{shared.Where("status", shared.OpEqual, string(c.Status))}
}

// AssigneeIDCriteria busca tareas asignadas a un usuario específico.
type AssigneeIDCriteria struct {
	ID uuid.UUID
}

func (c AssigneeIDCriteria) ToConditions() []shared.Criterion {
	return []shared.Criterion{shared.Where("assigneeId", shared.OpEqual, c.ID)}
}

// UnassignedCriteria busca tareas sin responsable.
type UnassignedCriteria struct{}

func (UnassignedCriteria) ToConditions() []shared.Criterion {
	return []shared.Criterion{shared.Where("assignee.name", shared.OpBlank, nil)}
}

// TitleLikeCriteria busca tareas cuyo título contenga un texto.
type TitleLikeCriteria struct {
	Title string
}

func (c TitleLikeCriteria) ToConditions() []shared.Criterion {
	return []shared.Criterion{shared.Where("title", shared.OpLike, c.Title)}
}

// AssigneeNameCriteria busca por el nombre del usuario asignado (join con user).
type AssigneeNameCriteria struct {
	Name string
}

func (c AssigneeNameCriteria) ToConditions() []shared.Criterion {
	return []shared.Criterion{shared.Where("assignee.name", shared.OpLike, c.Name)}
}

// CreatedAtRangeCriteria busca tareas creadas en un rango de fechas.
// Usamos punteros para que los filtros de fecha de inicio y fin sean opcionales.
type CreatedAtRangeCriteria struct {
	Start *time.Time
	End   *time.Time
}

func (c CreatedAtRangeCriteria) ToConditions() []shared.Criterion {
	var conds []shared.Criterion
	if c.Start != nil {
		conds = append(conds, shared.Where("createdAt", shared.OpGreaterThanOrEqual, *c.Start))
	}
	if c.End != nil {
		conds = append(conds, shared.Where("createdAt", shared.OpLessThanOrEqual, *c.End))
	}
	return conds
}
