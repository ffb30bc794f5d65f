package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Lookup devuelve el valor del campo para una fila; nil si es NULL o si el join no encontró fila.
type Lookup func(ref FieldRef) any

// truth es lógica trivalente al estilo SQL: una comparación con NULL es desconocida.
type truth int8

const (
	tFalse truth = iota
	tTrue
	tUnknown
)

// Evaluate aplica el predicado en memoria con la misma semántica de NULL que SQL: una fila sólo
// cumple si el resultado es verdadero.
func Evaluate(p Predicate, lookup Lookup) (bool, error) {
	t, err := eval(p, lookup)
	return t == tTrue, err
}

func eval(p Predicate, lookup Lookup) (truth, error) {
	switch p := p.(type) {
	case True:
		return tTrue, nil

	case And:
		result := tTrue
		for _, term := range p.Terms {
			t, err := eval(term, lookup)
			if err != nil {
				return tFalse, err
			}
			if t == tFalse {
				return tFalse, nil
			}
			if t == tUnknown {
				result = tUnknown
			}
		}
		return result, nil

	case Or:
		result := tFalse
		for _, term := range p.Terms {
			t, err := eval(term, lookup)
			if err != nil {
				return tFalse, err
			}
			if t == tTrue {
				return tTrue, nil
			}
			if t == tUnknown {
				result = tUnknown
			}
		}
		return result, nil

	case Not:
		t, err := eval(p.Term, lookup)
		if err != nil {
			return tFalse, err
		}
		switch t {
		case tTrue:
			return tFalse, nil
		case tFalse:
			return tTrue, nil
		}
		return tUnknown, nil

	case Compare:
		v := lookup(p.Field)
		if v == nil {
			return tUnknown, nil
		}
		cmp, err := CompareValues(v, p.Value)
		if err != nil {
			return tFalse, fmt.Errorf("%s: %w", p.Field.Path, err)
		}
		return boolTruth(compareResult(p.Op, cmp)), nil

	case Like:
		v := lookup(p.Field)
		if v == nil {
			return tUnknown, nil
		}
		s, ok := v.(string)
		if !ok {
			return tFalse, fmt.Errorf("%s: LIKE on non-string value %T", p.Field.Path, v)
		}
		return boolTruth(strings.Contains(s, p.Substring)), nil

	case In:
		v := lookup(p.Field)
		if v == nil {
			return tUnknown, nil
		}
		for _, candidate := range p.Values {
			cmp, err := CompareValues(v, candidate)
			if err != nil {
				return tFalse, fmt.Errorf("%s: %w", p.Field.Path, err)
			}
			if cmp == 0 {
				return tTrue, nil
			}
		}
		return tFalse, nil

	case IsNull:
		return boolTruth(lookup(p.Field) == nil), nil
	}

	return tFalse, fmt.Errorf("unsupported predicate %T", p)
}

func boolTruth(b bool) truth {
	if b {
		return tTrue
	}
	return tFalse
}

func compareResult(op CompareOp, cmp int) bool {
	switch op {
	case Eq:
		return cmp == 0
	case Ne:
		return cmp != 0
	case Gt:
		return cmp > 0
	case Lt:
		return cmp < 0
	case Gte:
		return cmp >= 0
	case Lte:
		return cmp <= 0
	}
	return false
}

// CompareValues ordena dos valores no nulos del mismo tipo lógico (-1, 0, 1).
// Enteros y flotantes se comparan entre sí.
func CompareValues(a, b any) (int, error) {
	a, b = normalize(a), normalize(b)

	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return cmpOrdered(x, y), nil
		case float64:
			return cmpOrdered(float64(x), y), nil
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return cmpOrdered(x, y), nil
		case int64:
			return cmpOrdered(x, float64(y)), nil
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), nil
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, nil
			case !x:
				return -1, nil
			}
			return 1, nil
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), nil
		}
	}
	return 0, fmt.Errorf("cannot compare %T with %T", a, b)
}

func cmpOrdered[T int64 | float64](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint32:
		return int64(n)
	case float32:
		return float64(n)
	case uuid.UUID:
		return n.String()
	case time.Time:
		return n
	case *time.Time:
		if n == nil {
			return nil
		}
		return *n
	case fmt.Stringer:
		return n.String()
	}
	return v
}
