package query

import (
	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
)

var compareOps = map[sharedDomain.Operator]CompareOp{
	sharedDomain.OpEqual:              Eq,
	sharedDomain.OpNotEqual:           Ne,
	sharedDomain.OpGreaterThan:        Gt,
	sharedDomain.OpLessThan:           Lt,
	sharedDomain.OpGreaterThanOrEqual: Gte,
	sharedDomain.OpLessThanOrEqual:    Lte,
}

// compile traduce un criterio a su fragmento de predicado. Un operador fuera del conjunto
// cerrado falla siempre, nunca se degrada a "no coincide nada".
func (r *resolver) compile(c sharedDomain.Criterion) (Predicate, error) {
	ref, err := r.resolve(c.Key())
	if err != nil {
		return nil, err
	}
	op := c.Op()

	unsupported := func() error {
		return &sharedDomain.UnsupportedOperatorError{Op: op, Key: c.Key(), Kind: ref.Field.Kind.String()}
	}

	switch op {
	case sharedDomain.OpEqual, sharedDomain.OpNotEqual:
		v, err := coerce(ref, op, c.Value())
		if err != nil {
			return nil, err
		}
		return Compare{Field: ref, Op: compareOps[op], Value: v}, nil

	case sharedDomain.OpGreaterThan, sharedDomain.OpLessThan,
		sharedDomain.OpGreaterThanOrEqual, sharedDomain.OpLessThanOrEqual:
		if !ref.Field.Orderable {
			return nil, unsupported()
		}
		v, err := coerce(ref, op, c.Value())
		if err != nil {
			return nil, err
		}
		return Compare{Field: ref, Op: compareOps[op], Value: v}, nil

	case sharedDomain.OpLike:
		if !ref.Field.Text {
			return nil, unsupported()
		}
		v, err := coerce(ref, op, c.Value())
		if err != nil {
			return nil, err
		}
		return Like{Field: ref, Substring: v.(string)}, nil

	case sharedDomain.OpIn, sharedDomain.OpNotIn:
		values, err := coerceList(ref, op, c.Value())
		if err != nil {
			return nil, err
		}
		in := In{Field: ref, Values: values}
		if op == sharedDomain.OpNotIn {
			// NOT_IN [] sigue excluyendo los nulos, igual que NOT_IN con valores.
			if len(values) == 0 {
				return Not{Term: IsNull{Field: ref}}, nil
			}
			return Not{Term: in}, nil
		}
		return in, nil

	case sharedDomain.OpBlank:
		if !ref.Field.Text {
			return nil, unsupported()
		}
		return Or{Terms: []Predicate{
			IsNull{Field: ref},
			Compare{Field: ref, Op: Eq, Value: ""},
		}}, nil
	}

	return nil, &sharedDomain.UnsupportedOperatorError{Op: op, Key: c.Key()}
}
