// Package db contiene los codecs de fila (SQL y memoria) y de documento (MongoDB) de User.
package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/davicafu/crudlab/internal/shared/infra/platform/db/mongostore"
	sharedUtils "github.com/davicafu/crudlab/internal/shared/infra/utils"
	"github.com/davicafu/crudlab/internal/shared/schema"
	"github.com/davicafu/crudlab/internal/user/domain"
)

// Binding une el tipo user del registro con su identidad y su codec de fila.
func Binding(reg *schema.Registry) schema.Binding[domain.User] {
	return schema.Binding[domain.User]{
		Type:     reg.MustLookup(domain.RecordType),
		Identity: domain.Identity(),
		Codec:    Codec{},
	}
}

// Codec sigue el orden de columnas de domain.DeclareSchema.
type Codec struct{}

func (Codec) Values(u *domain.User) []any {
	var birth, manager any
	if u.BirthDate != nil {
		birth = u.BirthDate.UTC()
	}
	if u.ManagerID != nil {
		manager = u.ManagerID.String()
	}
	return []any{
		u.ID.String(),
		u.Email,
		u.Name,
		sharedUtils.NullIfZero(u.FirstName),
		string(u.Status),
		birth,
		u.CreatedAt.UTC(),
		manager,
		u.Version,
	}
}

func (Codec) Scan(s schema.Scanner) (*domain.User, error) {
	var (
		u         domain.User
		id        string
		firstName sql.NullString
		status    string
		birth     sql.NullTime
		manager   sql.NullString
	)
	if err := s.Scan(&id, &u.Email, &u.Name, &firstName, &status, &birth, &u.CreatedAt, &manager, &u.Version); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	u.ID = parsed
	u.FirstName = firstName.String
	u.Status = domain.UserStatus(status)
	u.CreatedAt = u.CreatedAt.UTC()
	if birth.Valid {
		b := birth.Time.UTC()
		u.BirthDate = &b
	}
	if manager.Valid {
		m, err := uuid.Parse(manager.String)
		if err != nil {
			return nil, err
		}
		u.ManagerID = &m
	}
	return &u, nil
}

// ---------------- MongoDB ----------------

// Doc es el documento de la colección users; las claves coinciden con las columnas.
type Doc struct {
	ID        string     `bson:"_id"`
	Email     string     `bson:"email"`
	Name      string     `bson:"name"`
	FirstName *string    `bson:"first_name"`
	Status    string     `bson:"status"`
	BirthDate *time.Time `bson:"birth_date"`
	CreatedAt time.Time  `bson:"created_at"`
	ManagerID *string    `bson:"manager_id"`
	Version   int64      `bson:"version"`
}

// DocCodec es el codec que usa mongostore para la colección users.
func DocCodec() mongostore.DocCodec[domain.User, Doc] {
	return mongostore.DocCodec[domain.User, Doc]{ToDoc: ToDoc, FromDoc: FromDoc}
}

func ToDoc(u *domain.User) *Doc {
	d := &Doc{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		Status:    string(u.Status),
		BirthDate: u.BirthDate,
		CreatedAt: u.CreatedAt,
		Version:   u.Version,
	}
	if u.FirstName != "" {
		d.FirstName = &u.FirstName
	}
	if u.ManagerID != nil {
		m := u.ManagerID.String()
		d.ManagerID = &m
	}
	return d
}

// FromDoc ignora IDs mal formados: la colección sólo la escribe ToDoc.
func FromDoc(d *Doc) *domain.User {
	u := &domain.User{
		Email:     d.Email,
		Name:      d.Name,
		FirstName: sharedUtils.Deref(d.FirstName),
		Status:    domain.UserStatus(d.Status),
		BirthDate: d.BirthDate,
		CreatedAt: d.CreatedAt.UTC(),
		Version:   d.Version,
	}
	u.ID, _ = uuid.Parse(d.ID)
	if d.ManagerID != nil {
		if m, err := uuid.Parse(*d.ManagerID); err == nil {
			u.ManagerID = &m
		}
	}
	return u
}
