package domain

import (
	"reflect"

	"github.com/google/uuid"

	sharedEvents "github.com/davicafu/crudlab/internal/shared/events"
	"github.com/davicafu/crudlab/internal/shared/schema"
)

// Tipos de evento que emite el servicio de usuarios.
const (
	UserCreated = "user.created"
	UserUpdated = "user.updated"
	UserDeleted = "user.deleted"
)

// RegisterEvents añade los eventos de usuario al registro del relayer.
func RegisterEvents(r sharedEvents.Registry) sharedEvents.Registry {
	return r.CRUD(RecordType, Topic, reflect.TypeOf(User{}))
}

// DeclareSchema declara el tipo user y su relación manager (a sí mismo).
func DeclareSchema(b *schema.Builder) {
	b.Entity(RecordType, Table).
		ID("id", "id", schema.KindUUID).
		Field("email", "email", schema.KindString).
		Field("name", "name", schema.KindString).
		Field("firstName", "first_name", schema.KindString).
		Field("status", "status", schema.KindEnum, schema.Enum(Statuses...)).
		Field("birthDate", "birth_date", schema.KindTime).
		Field("createdAt", "created_at", schema.KindTime).
		Field("managerId", "manager_id", schema.KindUUID).
		Version("version", "version").
		Relation("manager", RecordType, "manager_id", "id")
}

// Identity expone el ID (UUID en texto; vacío si no se ha asignado) y la versión.
func Identity() schema.Identity[User] {
	return schema.Identity[User]{
		GetID: func(u *User) string {
			if u.ID == uuid.Nil {
				return ""
			}
			return u.ID.String()
		},
		SetID: func(u *User, id string) {
			u.ID, _ = uuid.Parse(id)
		},
		GetVersion: func(u *User) int64 { return u.Version },
		SetVersion: func(u *User, v int64) { u.Version = v },
	}
}
