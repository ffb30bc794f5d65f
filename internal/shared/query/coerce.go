package query

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
	"github.com/davicafu/crudlab/internal/shared/schema"
)

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// coerce convierte el valor al tipo declarado del campo o falla con InvalidValueError.
// Los valores llegan de JSON (float64, string) o de código Go (int, time.Time, uuid.UUID...).
func coerce(ref FieldRef, op sharedDomain.Operator, v any) (any, error) {
	fail := func(reason string) error {
		return &sharedDomain.InvalidValueError{Key: ref.Path, Op: op, Value: v, Reason: reason}
	}
	if v == nil {
		return nil, fail("value is required")
	}

	switch ref.Field.Kind {
	case schema.KindString:
		s, ok := v.(string)
		if !ok {
			return nil, fail("expected a string")
		}
		return s, nil

	case schema.KindEnum:
		s, ok := v.(string)
		if !ok {
			return nil, fail("expected a string")
		}
		if !ref.Field.AllowsEnumValue(s) {
			return nil, fail("expected one of " + strings.Join(ref.Field.Enum, ", "))
		}
		return s, nil

	case schema.KindInt:
		n, ok := toInt64(v)
		if !ok {
			return nil, fail("expected an integer")
		}
		return n, nil

	case schema.KindFloat:
		f, ok := toFloat64(v)
		if !ok {
			return nil, fail("expected a number")
		}
		return f, nil

	case schema.KindBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			parsed, err := strconv.ParseBool(b)
			if err != nil {
				return nil, fail("expected a boolean")
			}
			return parsed, nil
		}
		return nil, fail("expected a boolean")

	case schema.KindTime:
		switch t := v.(type) {
		case time.Time:
			return t.UTC(), nil
		case *time.Time:
			if t == nil {
				return nil, fail("value is required")
			}
			return t.UTC(), nil
		case string:
			for _, layout := range dateLayouts {
				if parsed, err := time.Parse(layout, t); err == nil {
					return parsed.UTC(), nil
				}
			}
		}
		return nil, fail("expected an RFC3339 timestamp or a YYYY-MM-DD date")

	case schema.KindUUID:
		switch id := v.(type) {
		case uuid.UUID:
			return id.String(), nil
		case string:
			parsed, err := uuid.Parse(id)
			if err != nil {
				return nil, fail("expected a UUID")
			}
			return parsed.String(), nil
		}
		return nil, fail("expected a UUID")
	}

	return nil, fail("unsupported field kind " + ref.Field.Kind.String())
}

// coerceList exige una secuencia (nunca una cadena) y convierte cada elemento.
func coerceList(ref FieldRef, op sharedDomain.Operator, v any) ([]any, error) {
	rv := reflect.ValueOf(v)
	if v == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, &sharedDomain.InvalidValueError{Key: ref.Path, Op: op, Value: v, Reason: "expected a list of values"}
	}
	// []byte es un escalar en la práctica
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, &sharedDomain.InvalidValueError{Key: ref.Path, Op: op, Value: v, Reason: "expected a list of values"}
	}

	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		item, err := coerce(ref, op, rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), uint64(n) <= math.MaxInt64
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func floatToInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}
