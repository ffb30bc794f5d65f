package application

import (
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/davicafu/crudlab/internal/shared/schema"
)

// IDGenerator asigna un identificador sólo si la entidad no tiene uno. Assign nunca
// sobrescribe; Renew sustituye un ID generado que resultó estar ocupado.
type IDGenerator[E any] interface {
	Assign(e *E)
	Renew(e *E)
}

// IDFunc produce identificadores nuevos.
type IDFunc func() string

// UUIDs genera UUID v4.
func UUIDs() IDFunc {
	return func() string { return uuid.NewString() }
}

// TimestampIDs genera identificadores numéricos: milisegundos desde epoch seguidos de un sufijo
// aleatorio de tres cifras (100-999). Dos IDs del mismo milisegundo pueden coincidir; Save
// reintenta la inserción con un ID nuevo.
func TimestampIDs() IDFunc {
	return func() string {
		return strconv.FormatInt(time.Now().UnixMilli()*1000+int64(100+rand.Intn(900)), 10)
	}
}

type idGenerator[E any] struct {
	ident schema.Identity[E]
	next  IDFunc
}

func NewIDGenerator[E any](ident schema.Identity[E], next IDFunc) IDGenerator[E] {
	return idGenerator[E]{ident: ident, next: next}
}

func (g idGenerator[E]) Assign(e *E) {
	if g.ident.GetID(e) != "" {
		return
	}
	g.ident.SetID(e, g.next())
}

func (g idGenerator[E]) Renew(e *E) {
	g.ident.SetID(e, g.next())
}
