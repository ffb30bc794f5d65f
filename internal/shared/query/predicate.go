// Package query compila un FilterRequest en un árbol de predicados neutral, con joins
// deduplicados, paginación y orden. Los adaptadores de almacenamiento lo traducen a SQL o bson.
package query

import (
	"fmt"

	"github.com/davicafu/crudlab/internal/shared/schema"
)

// RootAlias es el alias del tipo raíz en la consulta.
const RootAlias = "t0"

// Predicate es la unión cerrada de fragmentos: True, And, Or, Not, Compare, Like, In, IsNull.
type Predicate interface {
	isPredicate()
}

// True es el elemento neutro de la conjunción.
type True struct{}

type And struct {
	Terms []Predicate
}

// Or vacío es falso.
type Or struct {
	Terms []Predicate
}

type Not struct {
	Term Predicate
}

type CompareOp int

const (
	Eq CompareOp = iota
	Ne
	Gt
	Lt
	Gte
	Lte
)

func (o CompareOp) String() string {
	switch o {
	case Eq:
		return "="
	case Ne:
		return "<>"
	case Gt:
		return ">"
	case Lt:
		return "<"
	case Gte:
		return ">="
	case Lte:
		return "<="
	}
	return fmt.Sprintf("cmp(%d)", int(o))
}

type Compare struct {
	Field FieldRef
	Op    CompareOp
	Value any
}

// Like es "contiene": Substring se busca en cualquier posición y sin comodines propios.
type Like struct {
	Field     FieldRef
	Substring string
}

// In con Values vacío es falso.
type In struct {
	Field  FieldRef
	Values []any
}

type IsNull struct {
	Field FieldRef
}

func (True) isPredicate() {}
func (And) isPredicate() {}
func (Or) isPredicate() {}
func (Not) isPredicate() {}
func (Compare) isPredicate() {}
func (Like) isPredicate() {}
func (In) isPredicate() {}
func (IsNull) isPredicate() {}

// ---------------- Rutas y joins ----------------

// Join es un LEFT JOIN a-uno desde Parent (nil = raíz) a través de Relation.
type Join struct {
	Alias    string
	Relation schema.Relation
	Parent   *Join
	Target   *schema.EntityType
}

// ParentAlias devuelve el alias del nodo desde el que sale el join.
func (j *Join) ParentAlias() string {
	if j.Parent == nil {
		return RootAlias
	}
	return j.Parent.Alias
}

// FieldRef localiza un campo escalar: en la raíz (Join nil) o en el destino de un join.
type FieldRef struct {
	Join  *Join
	Field schema.Field
	Path  string
}

func (f FieldRef) Alias() string {
	if f.Join == nil {
		return RootAlias
	}
	return f.Join.Alias
}

// Segments devuelve los nombres de relación recorridos desde la raíz, en orden.
func (f FieldRef) Segments() []string {
	var rels []string
	for j := f.Join; j != nil; j = j.Parent {
		rels = append([]string{j.Relation.Name}, rels...)
	}
	return rels
}
