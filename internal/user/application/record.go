package application

import (
	"time"

	"github.com/google/uuid"

	sharedApp "github.com/davicafu/crudlab/internal/shared/application"
	"github.com/davicafu/crudlab/internal/user/domain"
)

// UserRecord es la representación de User que entra y sale del servicio.
type UserRecord struct {
	ID        string     `json:"id,omitempty" validate:"omitempty,uuid"`
	Email     string     `json:"email" validate:"required,email"`
	Name      string     `json:"name" validate:"required,max=120"`
	FirstName string     `json:"firstName,omitempty" validate:"max=120"`
	Status    string     `json:"status,omitempty" validate:"omitempty,oneof=active inactive blocked"`
	BirthDate *time.Time `json:"birthDate,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	ManagerID string     `json:"managerId,omitempty" validate:"omitempty,uuid"`
	Version   int64      `json:"version"`
}

// SetID es el setter que usa el handler HTTP con el :id de la ruta.
func SetID(r *UserRecord, id string) { r.ID = id }

// Mapper: los UUID ya vienen validados por las etiquetas; uno vacío queda como uuid.Nil / nil.
func Mapper() sharedApp.Mapper[UserRecord, domain.User] {
	return sharedApp.MapperFuncs[UserRecord, domain.User]{
		Entity: toEntity,
		Record: toRecord,
	}
}

func toEntity(r UserRecord) *domain.User {
	u := &domain.User{
		Email:     r.Email,
		Name:      r.Name,
		FirstName: r.FirstName,
		Status:    domain.UserStatus(r.Status),
		BirthDate: r.BirthDate,
		CreatedAt: r.CreatedAt,
		Version:   r.Version,
	}
	u.ID, _ = uuid.Parse(r.ID)
	if m, err := uuid.Parse(r.ManagerID); err == nil {
		u.ManagerID = &m
	}
	return u
}

func toRecord(u *domain.User) UserRecord {
	r := UserRecord{
		Email:     u.Email,
		Name:      u.Name,
		FirstName: u.FirstName,
		Status:    string(u.Status),
		BirthDate: u.BirthDate,
		CreatedAt: u.CreatedAt,
		Version:   u.Version,
	}
	if u.ID != uuid.Nil {
		r.ID = u.ID.String()
	}
	if u.ManagerID != nil {
		r.ManagerID = u.ManagerID.String()
	}
	return r
}
