package application

import (
	"fmt"
	"sync"
)

// Registry asocia cada tipo de registro con sus validadores y su estrategia de negocio.
// Se rellena al arrancar; las búsquedas posteriores son concurrentes.
type Registry struct {
	mu         sync.RWMutex
	validators map[string][]any
	strategies map[string]any
}

func NewRegistry() *Registry {
	return &Registry{
		validators: make(map[string][]any),
		strategies: make(map[string]any),
	}
}

// RegisterValidator añade un validador al tipo; un tipo puede tener varios.
func RegisterValidator[D any](r *Registry, recordType string, v Validator[D]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[recordType] = append(r.validators[recordType], v)
}

// RegisterStrategy fija la estrategia de negocio del tipo (reemplaza la anterior).
func RegisterStrategy[D, E any](r *Registry, recordType string, s BusinessStrategy[D, E]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[recordType] = s
}

// ValidatorsFor devuelve los validadores del tipo; ninguno no es un error.
func ValidatorsFor[D any](r *Registry, recordType string) ([]Validator[D], error) {
	if r == nil {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	registered := r.validators[recordType]
	out := make([]Validator[D], 0, len(registered))
	for _, v := range registered {
		typed, ok := v.(Validator[D])
		if !ok {
			return nil, fmt.Errorf("validator registered for %q has unexpected type %T", recordType, v)
		}
		out = append(out, typed)
	}
	return out, nil
}

// StrategyFor devuelve la estrategia del tipo, o nil si no hay ninguna.
func StrategyFor[D, E any](r *Registry, recordType string) (BusinessStrategy[D, E], error) {
	if r == nil {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[recordType]
	if !ok {
		return nil, nil
	}
	typed, ok := s.(BusinessStrategy[D, E])
	if !ok {
		return nil, fmt.Errorf("strategy registered for %q has unexpected type %T", recordType, s)
	}
	return typed, nil
}
