package domain

import (
	"time"

	"github.com/google/uuid"

	sharedBus "github.com/davicafu/crudlab/internal/shared/infra/platform/bus"
)

const (
	RecordType = "user"
	Table      = "users"
	Topic      = "user"
)

type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusInactive UserStatus = "inactive"
	StatusBlocked  UserStatus = "blocked"
)

// Statuses es el enumerado declarado en el esquema.
var Statuses = []string{string(StatusActive), string(StatusInactive), string(StatusBlocked)}

// User representa un usuario del sistema.
type User struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	FirstName string     `json:"firstName,omitempty"`
	Status    UserStatus `json:"status"`
	BirthDate *time.Time `json:"birthDate,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	ManagerID *uuid.UUID `json:"managerId,omitempty"`
	Version   int64      `json:"version"`
}

func (u *User) PartitionKey() string {
	return u.ID.String()
}

// Age calcula la edad en la fecha now. Sin fecha de nacimiento devuelve 0.
func (u *User) Age(now time.Time) int {
	if u.BirthDate == nil {
		return 0
	}
	birth := *u.BirthDate
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	return years
}

// Verificación estática para asegurar que User implementa la interfaz
var _ sharedBus.Keyer = (*User)(nil)
