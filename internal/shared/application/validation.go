package application

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
)

// Rule es una regla de negocio sobre el registro. Ojo con la polaridad: si Violated devuelve
// true la regla está violada y Message se añade a los errores.
type Rule[D any] struct {
	Message  string
	Violated func(D) bool
	// OnCreate: la regla sólo se comprueba al crear (Save), no en Update.
	OnCreate bool
}

// Validator devuelve los mensajes de todas las reglas violadas; vacío si el registro es válido.
type Validator[D any] interface {
	Validate(d D, creating bool) []string
}

// Rules es un Validator formado por una lista de reglas.
type Rules[D any] []Rule[D]

func (rs Rules[D]) Validate(d D, creating bool) []string {
	var msgs []string
	for _, r := range rs {
		if r.OnCreate && !creating {
			continue
		}
		if r.Violated(d) {
			msgs = append(msgs, r.Message)
		}
	}
	return msgs
}

// ---------------- Struct tags ----------------

type tagValidator[D any] struct {
	v *validator.Validate
}

// Tag valida las etiquetas `validate:"..."` del registro con go-playground/validator.
// Cada campo que falla aporta un mensaje.
func Tag[D any](v *validator.Validate) Validator[D] {
	if v == nil {
		v = validator.New()
	}
	return tagValidator[D]{v: v}
}

func (t tagValidator[D]) Validate(d D, _ bool) []string {
	err := t.v.Struct(d)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
	}
	return msgs
}

// validate ejecuta todos los validadores y junta los mensajes en un único ValidationError.
func validate[D any](validators []Validator[D], d D, creating bool) error {
	var msgs []string
	for _, v := range validators {
		msgs = append(msgs, v.Validate(d, creating)...)
	}
	if len(msgs) > 0 {
		return &sharedDomain.ValidationError{Messages: msgs}
	}
	return nil
}
