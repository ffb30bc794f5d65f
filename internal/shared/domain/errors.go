package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ---------- Errores de dominio ----------
var (
	// Errores de construcción de consultas: se detectan antes de tocar el almacenamiento.
	ErrUnknownField        = errors.New("unknown field")
	ErrInvalidPath         = errors.New("invalid path")
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrInvalidValue        = errors.New("invalid value")

	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("resource modified by another user, reload and retry")
	ErrNotFound   = errors.New("not found")

	// ErrStaleVersion lo devuelven los repositorios cuando la versión no coincide al escribir.
	ErrStaleVersion = errors.New("stale version")
)

// UnknownFieldError: el tipo no declara el campo o relación pedido.
type UnknownFieldError struct {
	Type  string
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q on %s", e.Field, e.Type)
}

func (e *UnknownFieldError) Unwrap() error { return ErrUnknownField }

// InvalidPathError: la ruta no se puede recorrer (escalar intermedio, relación final, segmento vacío).
type InvalidPathError struct {
	Type   string
	Key    string
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid path %q on %s: %s", e.Key, e.Type, e.Reason)
}

func (e *InvalidPathError) Unwrap() error { return ErrInvalidPath }

// UnsupportedOperatorError: operador desconocido o no aplicable al tipo del campo.
type UnsupportedOperatorError struct {
	Op   Operator
	Key  string
	Kind string
}

func (e *UnsupportedOperatorError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("unsupported operator %q", string(e.Op))
	}
	return fmt.Sprintf("operator %s is not supported on %s field %q", e.Op, e.Kind, e.Key)
}

func (e *UnsupportedOperatorError) Unwrap() error { return ErrUnsupportedOperator }

// InvalidValueError: el valor no es compatible con el operador o con el tipo del campo.
type InvalidValueError struct {
	Key    string
	Op     Operator
	Value  interface{}
	Reason string
}

func (e *InvalidValueError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("invalid value %v for %q: %s", e.Value, e.Key, e.Reason)
	}
	return fmt.Sprintf("invalid value %v for %s on %q: %s", e.Value, e.Op, e.Key, e.Reason)
}

func (e *InvalidValueError) Unwrap() error { return ErrInvalidValue }

// ValidationError lleva todos los mensajes de las reglas violadas, no sólo el primero.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError es el error de concurrencia optimista presentado al usuario.
type ConflictError struct {
	Type string
	ID   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Type, e.ID, ErrConflict.Error())
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// NotFoundError sólo se usa donde la operación exige que el recurso exista.
type NotFoundError struct {
	Type string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Type, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// IsQueryError indica si err es un error de construcción de la consulta (culpa de la entrada).
func IsQueryError(err error) bool {
	return errors.Is(err, ErrUnknownField) ||
		errors.Is(err, ErrInvalidPath) ||
		errors.Is(err, ErrUnsupportedOperator) ||
		errors.Is(err, ErrInvalidValue)
}
