package schema

import (
	"errors"
	"fmt"
)

// Builder acumula declaraciones de tipos; Build las valida y congela en un Registry.
type Builder struct {
	entities []*EntityBuilder
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Entity declara un tipo persistente almacenado en table.
func (b *Builder) Entity(name, table string) *EntityBuilder {
	eb := &EntityBuilder{t: &EntityType{
		Name:      name,
		Table:     table,
		byName:    make(map[string]int),
		relations: make(map[string]Relation),
	}}
	b.entities = append(b.entities, eb)
	return eb
}

// FieldOption ajusta los valores por defecto que se derivan del Kind.
type FieldOption func(*Field)

// Enum restringe los valores admitidos de un campo KindEnum.
func Enum(values ...string) FieldOption {
	return func(f *Field) { f.Enum = values }
}

// Orderable fuerza (o retira) el soporte de comparaciones de orden.
func Orderable(v bool) FieldOption {
	return func(f *Field) { f.Orderable = v }
}

type EntityBuilder struct {
	t    *EntityType
	errs []error
}

// Field declara un campo escalar. Los textos admiten LIKE/BLANK y orden; números y fechas, orden.
func (eb *EntityBuilder) Field(name, column string, kind Kind, opts ...FieldOption) *EntityBuilder {
	f := Field{Name: name, Column: column, Kind: kind}
	switch kind {
	case KindString:
		f.Text, f.Orderable = true, true
	case KindInt, KindFloat, KindTime:
		f.Orderable = true
	}
	for _, opt := range opts {
		opt(&f)
	}

	if _, dup := eb.t.byName[name]; dup {
		eb.errs = append(eb.errs, fmt.Errorf("%s: duplicate field %q", eb.t.Name, name))
		return eb
	}
	eb.t.byName[name] = len(eb.t.fields)
	eb.t.fields = append(eb.t.fields, f)
	return eb
}

// ID declara el campo identificador.
func (eb *EntityBuilder) ID(name, column string, kind Kind) *EntityBuilder {
	eb.t.IDField = name
	return eb.Field(name, column, kind)
}

// Version declara el campo de versión para concurrencia optimista.
func (eb *EntityBuilder) Version(name, column string) *EntityBuilder {
	eb.t.VersionField = name
	return eb.Field(name, column, KindInt)
}

// Relation declara una referencia a-uno: localColumn de este tipo apunta a targetColumn de target.
func (eb *EntityBuilder) Relation(name, target, localColumn, targetColumn string) *EntityBuilder {
	if _, dup := eb.t.relations[name]; dup {
		eb.errs = append(eb.errs, fmt.Errorf("%s: duplicate relation %q", eb.t.Name, name))
		return eb
	}
	eb.t.relations[name] = Relation{Name: name, Target: target, LocalColumn: localColumn, TargetColumn: targetColumn}
	return eb
}

// Build valida las declaraciones y devuelve un Registry inmutable.
func (b *Builder) Build() (*Registry, error) {
	reg := &Registry{types: make(map[string]*EntityType, len(b.entities))}
	var errs []error

	for _, eb := range b.entities {
		errs = append(errs, eb.errs...)
		if _, dup := reg.types[eb.t.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate record type %q", eb.t.Name))
			continue
		}
		if eb.t.IDField == "" {
			errs = append(errs, fmt.Errorf("%s: no identifier field declared", eb.t.Name))
		}
		for name := range eb.t.relations {
			if _, clash := eb.t.byName[name]; clash {
				errs = append(errs, fmt.Errorf("%s: %q is both a field and a relation", eb.t.Name, name))
			}
		}
		reg.types[eb.t.Name] = eb.t
	}

	for _, t := range reg.types {
		for _, rel := range t.relations {
			target, ok := reg.types[rel.Target]
			if !ok {
				errs = append(errs, fmt.Errorf("%s.%s: unknown target %q", t.Name, rel.Name, rel.Target))
				continue
			}
			if !hasColumn(t, rel.LocalColumn) {
				errs = append(errs, fmt.Errorf("%s.%s: unknown local column %q", t.Name, rel.Name, rel.LocalColumn))
			}
			if !hasColumn(target, rel.TargetColumn) {
				errs = append(errs, fmt.Errorf("%s.%s: unknown target column %q", t.Name, rel.Name, rel.TargetColumn))
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return reg, nil
}

func hasColumn(t *EntityType, column string) bool {
	for _, f := range t.fields {
		if f.Column == column {
			return true
		}
	}
	return false
}
