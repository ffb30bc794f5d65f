package domain

import (
	"reflect"
	"strconv"

	sharedEvents "github.com/davicafu/crudlab/internal/shared/events"
	"github.com/davicafu/crudlab/internal/shared/schema"
)

const (
	TaskCreated = "task.created"
	TaskUpdated = "task.updated"
	TaskDeleted = "task.deleted"
)

func RegisterEvents(r sharedEvents.Registry) sharedEvents.Registry {
	return r.CRUD(RecordType, Topic, reflect.TypeOf(Task{}))
}

// DeclareSchema declara el tipo task; la relación assignee apunta a user, que debe declararse
// en el mismo Builder.
func DeclareSchema(b *schema.Builder) {
	b.Entity(RecordType, Table).
		ID("id", "id", schema.KindInt).
		Field("title", "title", schema.KindString).
		Field("description", "description", schema.KindString).
		Field("status", "status", schema.KindEnum, schema.Enum(Statuses...)).
		Field("assigneeId", "assignee_id", schema.KindUUID).
		Field("createdAt", "created_at", schema.KindTime).
		Field("updatedAt", "updated_at", schema.KindTime).
		Version("version", "version").
		Relation("assignee", "user", "assignee_id", "id")
}

// Identity: el ID 0 significa "sin asignar".
func Identity() schema.Identity[Task] {
	return schema.Identity[Task]{
		GetID: func(t *Task) string {
			if t.ID == 0 {
				return ""
			}
			return strconv.FormatInt(t.ID, 10)
		},
		SetID: func(t *Task, id string) {
			t.ID, _ = strconv.ParseInt(id, 10, 64)
		},
		GetVersion: func(t *Task) int64 { return t.Version },
		SetVersion: func(t *Task, v int64) { t.Version = v },
	}
}
