package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ---------------- Operadores ----------------

type Operator string

const (
	OpEqual              Operator = "EQUAL"
	OpNotEqual           Operator = "NOT_EQUAL"
	OpLike               Operator = "LIKE"
	OpGreaterThan        Operator = "GREATER_THAN"
	OpLessThan           Operator = "LESS_THAN"
	OpGreaterThanOrEqual Operator = "GREATER_THAN_OR_EQUAL"
	OpLessThanOrEqual    Operator = "LESS_THAN_OR_EQUAL"
	OpIn                 Operator = "IN"
	OpNotIn              Operator = "NOT_IN"
	OpBlank              Operator = "BLANK" // null o cadena vacía, no lleva valor
)

var operators = []Operator{
	OpEqual, OpNotEqual, OpLike,
	OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual,
	OpIn, OpNotIn, OpBlank,
}

// Valid indica si el operador pertenece al conjunto cerrado.
func (o Operator) Valid() bool {
	for _, op := range operators {
		if o == op {
			return true
		}
	}
	return false
}

// Ordered indica si el operador es una comparación de orden.
func (o Operator) Ordered() bool {
	switch o {
	case OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual:
		return true
	}
	return false
}

// ParseOperator traduce el operador recibido por la red. Falla con operadores desconocidos.
func ParseOperator(s string) (Operator, error) {
	op := Operator(strings.ToUpper(strings.TrimSpace(s)))
	if !op.Valid() {
		return "", &UnsupportedOperatorError{Op: Operator(s)}
	}
	return op, nil
}

func (o Operator) MarshalText() ([]byte, error) {
	return []byte(o), nil
}

func (o *Operator) UnmarshalText(text []byte) error {
	op, err := ParseOperator(string(text))
	if err != nil {
		return err
	}
	*o = op
	return nil
}

type LogicalOperator string

const (
	OpAnd LogicalOperator = "AND"
	OpOr  LogicalOperator = "OR"
)

// ---------------- Criterion ----------------

// Criterion describe una condición neutral de filtrado (clave, operador, valor).
// Es inmutable: sólo se construye con Where.
type Criterion struct {
	key   string
	op    Operator
	value interface{}
}

// Where construye un criterio. La clave puede ser una ruta con puntos ("assignee.name").
func Where(key string, op Operator, value interface{}) Criterion {
	return Criterion{key: key, op: op, value: value}
}

func (c Criterion) Key() string { return c.key }

func (c Criterion) Op() Operator { return c.op }

func (c Criterion) Value() interface{} { return c.value }

func (c Criterion) String() string { return fmt.Sprintf("%s %s %v", c.key, c.op, c.value) }

// ToConditions permite usar un Criterion suelto donde se espera Criteria.
func (c Criterion) ToConditions() []Criterion { return []Criterion{c} }

type criterionJSON struct {
	Key   string      `json:"key"`
	Op    Operator    `json:"operation"`
	Value interface{} `json:"value,omitempty"`
}

func (c Criterion) MarshalJSON() ([]byte, error) {
	return json.Marshal(criterionJSON{Key: c.key, Op: c.op, Value: c.value})
}

func (c *Criterion) UnmarshalJSON(data []byte) error {
	var raw criterionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Where(raw.Key, raw.Op, raw.Value)
	return nil
}

// ---------------- Criteria interface ----------------

// Criteria permite transformar filtros a condiciones neutrales
type Criteria interface {
	ToConditions() []Criterion
}

// ---------------- Composite Criteria ----------------

type CompositeCriteria struct {
	Operator  LogicalOperator
	Criterias []Criteria
}

func (c CompositeCriteria) ToConditions() []Criterion {
	var all []Criterion
	for _, crit := range c.Criterias {
		all = append(all, crit.ToConditions()...)
	}
	return all
}

// ---------------- Helpers ----------------

// And crea un CompositeCriteria con operador AND
func And(criterias ...Criteria) CompositeCriteria {
	return CompositeCriteria{Operator: OpAnd, Criterias: criterias}
}

// Or crea un CompositeCriteria con operador OR
func Or(criterias ...Criteria) CompositeCriteria {
	return CompositeCriteria{Operator: OpOr, Criterias: criterias}
}

// ---------------- FilterRequest ----------------

// FilterRequest agrupa criterios, paginación y orden de una consulta dinámica.
// Se evalúa como (AND de AndCriteria) AND (OR de OrCriteria); un grupo vacío es TRUE.
type FilterRequest struct {
	AndCriteria   []Criterion `json:"andCriteria"`
	OrCriteria    []Criterion `json:"orCriteria"`
	Page          int         `json:"page"`
	PageSize      int         `json:"pageSize"`
	SortField     string      `json:"sortField"`
	SortAscending bool        `json:"sortAscending"`
}

// NewFilterRequest crea una petición vacía (devuelve todo) con la paginación indicada.
func NewFilterRequest(page, pageSize int) FilterRequest {
	return FilterRequest{Page: page, PageSize: pageSize, SortAscending: true}
}

// Where añade criterios al grupo AND. Un CompositeCriteria con OpOr va al grupo OR.
func (f FilterRequest) Where(criterias ...Criteria) FilterRequest {
	for _, c := range criterias {
		if comp, ok := c.(CompositeCriteria); ok && comp.Operator == OpOr {
			f = f.AnyOf(comp)
			continue
		}
		f.AndCriteria = append(append([]Criterion(nil), f.AndCriteria...), c.ToConditions()...)
	}
	return f
}

// AnyOf añade criterios al grupo OR.
func (f FilterRequest) AnyOf(criterias ...Criteria) FilterRequest {
	for _, c := range criterias {
		f.OrCriteria = append(append([]Criterion(nil), f.OrCriteria...), c.ToConditions()...)
	}
	return f
}

// SortBy fija el campo (puede ser una ruta con puntos) y la dirección del orden.
func (f FilterRequest) SortBy(field string, ascending bool) FilterRequest {
	f.SortField = field
	f.SortAscending = ascending
	return f
}
