// Package db contiene los codecs de fila y de documento de Task.
package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/davicafu/crudlab/internal/shared/infra/platform/db/mongostore"
	sharedUtils "github.com/davicafu/crudlab/internal/shared/infra/utils"
	"github.com/davicafu/crudlab/internal/shared/schema"
	"github.com/davicafu/crudlab/internal/task/domain"
)

func Binding(reg *schema.Registry) schema.Binding[domain.Task] {
	return schema.Binding[domain.Task]{
		Type:     reg.MustLookup(domain.RecordType),
		Identity: domain.Identity(),
		Codec:    Codec{},
	}
}

// Codec sigue el orden de columnas de domain.DeclareSchema. Lo comparten SQL, memoria y ClickHouse.
type Codec struct{}

func (Codec) Values(t *domain.Task) []any {
	var assignee any
	if t.AssigneeID != nil {
		assignee = t.AssigneeID.String()
	}
	return []any{
		t.ID,
		t.Title,
		sharedUtils.NullIfZero(t.Description),
		string(t.Status),
		assignee,
		t.CreatedAt.UTC(),
		t.UpdatedAt.UTC(),
		t.Version,
	}
}

func (Codec) Scan(s schema.Scanner) (*domain.Task, error) {
	var (
		t           domain.Task
		description sql.NullString
		status      string
		assignee    sql.NullString
	)
	if err := s.Scan(&t.ID, &t.Title, &description, &status, &assignee, &t.CreatedAt, &t.UpdatedAt, &t.Version); err != nil {
		return nil, err
	}

	t.Description = description.String
	t.Status = domain.TaskStatus(status)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	if assignee.Valid {
		a, err := uuid.Parse(assignee.String)
		if err != nil {
			return nil, err
		}
		t.AssigneeID = &a
	}
	return &t, nil
}

// ---------------- MongoDB ----------------

type Doc struct {
	ID          int64     `bson:"_id"`
	Title       string    `bson:"title"`
	Description *string   `bson:"description"`
	Status      string    `bson:"status"`
	AssigneeID  *string   `bson:"assignee_id"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
	Version     int64     `bson:"version"`
}

func DocCodec() mongostore.DocCodec[domain.Task, Doc] {
	return mongostore.DocCodec[domain.Task, Doc]{ToDoc: ToDoc, FromDoc: FromDoc}
}

func ToDoc(t *domain.Task) *Doc {
	d := &Doc{
		ID:        t.ID,
		Title:     t.Title,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		Version:   t.Version,
	}
	if t.Description != "" {
		d.Description = &t.Description
	}
	if t.AssigneeID != nil {
		a := t.AssigneeID.String()
		d.AssigneeID = &a
	}
	return d
}

func FromDoc(d *Doc) *domain.Task {
	t := &domain.Task{
		ID:          d.ID,
		Title:       d.Title,
		Description: sharedUtils.Deref(d.Description),
		Status:      domain.TaskStatus(d.Status),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
		Version:     d.Version,
	}
	if d.AssigneeID != nil {
		if a, err := uuid.Parse(*d.AssigneeID); err == nil {
			t.AssigneeID = &a
		}
	}
	return t
}
