package query

import (
	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
	"github.com/davicafu/crudlab/internal/shared/schema"
)

// Selection es la parte común a fetch y count: raíz, joins y predicado.
type Selection struct {
	Root  *schema.EntityType
	Joins []*Join
	Where Predicate
}

type SortSpec struct {
	Field     FieldRef
	Ascending bool
}

// QuerySpec es una consulta paginada y ordenada lista para un adaptador.
type QuerySpec struct {
	Selection
	Sort   []SortSpec
	Limit  int
	Offset int
}

// All selecciona todas las filas de un tipo.
func All(root *schema.EntityType) Selection {
	return Selection{Root: root, Where: True{}}
}

type Compiler struct {
	reg         *schema.Registry
	maxPageSize int
}

type Option func(*Compiler)

// WithMaxPageSize rechaza (no recorta) páginas mayores que n. 0 desactiva el límite.
func WithMaxPageSize(n int) Option {
	return func(c *Compiler) { c.maxPageSize = n }
}

func NewCompiler(reg *schema.Registry, opts ...Option) *Compiler {
	c := &Compiler{reg: reg}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Build compila el filtro completo: predicado, paginación y orden.
func (c *Compiler) Build(rootType string, req sharedDomain.FilterRequest) (QuerySpec, error) {
	if req.Page < 0 {
		return QuerySpec{}, &sharedDomain.InvalidValueError{Key: "page", Value: req.Page, Reason: "must be >= 0"}
	}
	if req.PageSize < 1 {
		return QuerySpec{}, &sharedDomain.InvalidValueError{Key: "pageSize", Value: req.PageSize, Reason: "must be >= 1"}
	}
	if c.maxPageSize > 0 && req.PageSize > c.maxPageSize {
		return QuerySpec{}, &sharedDomain.InvalidValueError{Key: "pageSize", Value: req.PageSize, Reason: "exceeds the maximum page size"}
	}

	r, where, err := c.where(rootType, req)
	if err != nil {
		return QuerySpec{}, err
	}

	sort, err := r.sort(req.SortField, req.SortAscending)
	if err != nil {
		return QuerySpec{}, err
	}

	return QuerySpec{
		Selection: Selection{Root: r.root, Joins: r.graph.joins, Where: where},
		Sort:      sort,
		Limit:     req.PageSize,
		Offset:    req.Page * req.PageSize,
	}, nil
}

// BuildCount usa la misma compilación del predicado que Build e ignora paginación y orden.
func (c *Compiler) BuildCount(rootType string, req sharedDomain.FilterRequest) (Selection, error) {
	r, where, err := c.where(rootType, req)
	if err != nil {
		return Selection{}, err
	}
	return Selection{Root: r.root, Joins: r.graph.joins, Where: where}, nil
}

// where: (AND de andCriteria) AND (OR de orCriteria). Un grupo vacío aporta True.
func (c *Compiler) where(rootType string, req sharedDomain.FilterRequest) (*resolver, Predicate, error) {
	root, err := c.reg.Lookup(rootType)
	if err != nil {
		return nil, nil, err
	}
	r := newResolver(c.reg, root)

	andTerms, err := r.compileAll(req.AndCriteria)
	if err != nil {
		return nil, nil, err
	}
	orTerms, err := r.compileAll(req.OrCriteria)
	if err != nil {
		return nil, nil, err
	}

	var groups []Predicate
	if len(andTerms) > 0 {
		groups = append(groups, And{Terms: andTerms})
	}
	if len(orTerms) > 0 {
		groups = append(groups, Or{Terms: orTerms})
	}

	switch len(groups) {
	case 0:
		return r, True{}, nil
	case 1:
		return r, groups[0], nil
	}
	return r, And{Terms: groups}, nil
}

func (r *resolver) compileAll(criteria []sharedDomain.Criterion) ([]Predicate, error) {
	terms := make([]Predicate, 0, len(criteria))
	for _, crit := range criteria {
		p, err := r.compile(crit)
		if err != nil {
			return nil, err
		}
		terms = append(terms, p)
	}
	return terms, nil
}

// sort resuelve el campo de orden y añade el ID como desempate. Sin campo: ID ascendente.
func (r *resolver) sort(field string, ascending bool) ([]SortSpec, error) {
	idField, _ := r.root.Field(r.root.IDField)
	idSort := SortSpec{Field: FieldRef{Field: idField, Path: r.root.IDField}, Ascending: true}

	if field == "" {
		return []SortSpec{idSort}, nil
	}

	ref, err := r.resolve(field)
	if err != nil {
		return nil, err
	}
	specs := []SortSpec{{Field: ref, Ascending: ascending}}
	if ref.Join != nil || ref.Field.Name != r.root.IDField {
		specs = append(specs, idSort)
	}
	return specs, nil
}
