package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
)

// ---------------- Implementaciones concretas ----------------

// Filtrado por ID exacto
type IDCriteria struct {
	ID uuid.UUID
}

func (c IDCriteria) ToConditions() []sharedDomain.Criterion {
	return []sharedDomain.Criterion{sharedDomain.Where("id", sharedDomain.OpEqual, c.ID)}
}

// Filtrado por email exacto (los emails se guardan en minúsculas)
type EmailCriteria struct {
	Email string
}

func (c EmailCriteria) ToConditions() []sharedDomain.Criterion {
	return []sharedDomain.Criterion{sharedDomain.Where("email", sharedDomain.OpEqual, NormalizeEmail(c.Email))}
}

// Filtrado por nombre que contiene el texto
type NameLikeCriteria struct {
	Name string
}

func (c NameLikeCriteria) ToConditions() []sharedDomain.Criterion {
	return []sharedDomain.Criterion{sharedDomain.Where("name", sharedDomain.OpLike, c.Name)}
}

// Filtrado por estado; varios estados se combinan con IN
type StatusCriteria struct {
	Statuses []UserStatus
}

func (c StatusCriteria) ToConditions() []sharedDomain.Criterion {
	values := make([]string, len(c.Statuses))
	for i, s := range c.Statuses {
		values[i] = string(s)
	}
	return []sharedDomain.Criterion{sharedDomain.Where("status", sharedDomain.OpIn, values)}
}

// Filtrado por nombre del responsable (recorre la relación manager)
type ManagerNameCriteria struct {
	Name string
}

func (c ManagerNameCriteria) ToConditions() []sharedDomain.Criterion {
	return []sharedDomain.Criterion{sharedDomain.Where("manager.name", sharedDomain.OpLike, c.Name)}
}

// Filtrado por rango de edad, ambos extremos incluidos. Now fija la fecha de referencia.
type AgeRangeCriteria struct {
	Min *int
	Max *int
	Now time.Time
}

func (c AgeRangeCriteria) ToConditions() []sharedDomain.Criterion {
	now := c.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	var conds []sharedDomain.Criterion
	if c.Min != nil {
		conds = append(conds, sharedDomain.Where("birthDate", sharedDomain.OpLessThanOrEqual, now.AddDate(-*c.Min, 0, 0)))
	}
	if c.Max != nil {
		conds = append(conds, sharedDomain.Where("birthDate", sharedDomain.OpGreaterThan, now.AddDate(-(*c.Max+1), 0, 0)))
	}
	return conds
}

// NormalizeEmail es la forma en la que se guardan y comparan los emails.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
