// Package schema describe los tipos persistentes (campos, relaciones, identidad) en una
// tabla de consulta que se construye una sola vez al arrancar y después sólo se lee.
package schema

import (
	"errors"
	"fmt"
)

var ErrUnknownType = errors.New("unknown record type")

// Kind es el tipo de valor de un campo escalar.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindTime
	KindEnum
	KindUUID
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindEnum:
		return "enum"
	case KindUUID:
		return "uuid"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Field es un campo escalar consultable.
type Field struct {
	Name      string // nombre lógico usado en las claves de filtro
	Column    string // columna / clave del documento
	Kind      Kind
	Text      bool // admite LIKE y BLANK
	Orderable bool // admite comparaciones de orden
	Enum      []string
}

// AllowsEnumValue comprueba la pertenencia a un enumerado (sin valores declarados, todo vale).
func (f Field) AllowsEnumValue(v string) bool {
	if len(f.Enum) == 0 {
		return true
	}
	for _, e := range f.Enum {
		if e == v {
			return true
		}
	}
	return false
}

// Relation es una referencia a-uno hacia otro tipo (se resuelve con LEFT JOIN).
type Relation struct {
	Name         string
	Target       string
	LocalColumn  string
	TargetColumn string
}

// EntityType describe un tipo persistente.
type EntityType struct {
	Name         string
	Table        string
	IDField      string
	VersionField string

	fields    []Field
	byName    map[string]int
	relations map[string]Relation
}

func (t *EntityType) Field(name string) (Field, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Field{}, false
	}
	return t.fields[i], true
}

func (t *EntityType) Relation(name string) (Relation, bool) {
	r, ok := t.relations[name]
	return r, ok
}

// Fields devuelve los campos en orden de declaración.
func (t *EntityType) Fields() []Field {
	return append([]Field(nil), t.fields...)
}

// Columns devuelve las columnas en orden de declaración; Codec.Values se alinea con ellas.
func (t *EntityType) Columns() []string {
	cols := make([]string, len(t.fields))
	for i, f := range t.fields {
		cols[i] = f.Column
	}
	return cols
}

func (t *EntityType) IDColumn() string {
	f, _ := t.Field(t.IDField)
	return f.Column
}

// VersionColumn devuelve "" si el tipo no usa concurrencia optimista.
func (t *EntityType) VersionColumn() string {
	if t.VersionField == "" {
		return ""
	}
	f, _ := t.Field(t.VersionField)
	return f.Column
}

// ---------------- Registry ----------------

// Registry es de sólo lectura tras Build y seguro para lecturas concurrentes.
type Registry struct {
	types map[string]*EntityType
}

func (r *Registry) Lookup(name string) (*EntityType, error) {
	t, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return t, nil
}

// MustLookup es para el cableado de arranque, donde un tipo ausente es un error de programación.
func (r *Registry) MustLookup(name string) *EntityType {
	t, err := r.Lookup(name)
	if err != nil {
		panic(err)
	}
	return t
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.types))
	for n := range r.types {
		names = append(names, n)
	}
	return names
}

// ---------------- Identidad y codec ----------------

// Identity da acceso explícito al identificador y a la versión de una entidad.
type Identity[E any] struct {
	GetID      func(*E) string
	SetID      func(*E, string)
	GetVersion func(*E) int64
	SetVersion func(*E, int64)
}

// Versioned indica si la entidad participa en concurrencia optimista.
func (i Identity[E]) Versioned() bool {
	return i.GetVersion != nil && i.SetVersion != nil
}

// Scanner lo cumplen *sql.Row y *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Codec convierte entre la entidad y una fila alineada con EntityType.Columns().
type Codec[E any] interface {
	Values(e *E) []any
	Scan(s Scanner) (*E, error)
}

// Binding agrupa todo lo que un adaptador necesita para persistir un tipo.
type Binding[E any] struct {
	Type     *EntityType
	Identity Identity[E]
	Codec    Codec[E]
}
