package application

import (
	"context"
	"time"

	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
	"github.com/davicafu/crudlab/internal/shared/query"
)

// Finder ejecuta consultas ya compiladas. Lo cumplen los repositorios y las réplicas de lectura.
type Finder[E any] interface {
	Find(ctx context.Context, spec query.QuerySpec) ([]*E, error)
	Count(ctx context.Context, sel query.Selection) (int64, error)
}

// Repository es el puerto de persistencia de un tipo. Cada escritura guarda evt en el outbox
// dentro de la misma transacción.
//
//   - Insert: crea la fila con versión 1. Un ID repetido devuelve ErrStaleVersion.
//   - Update: escritura condicionada a la versión. Fila ausente: ErrNotFound; versión distinta: ErrStaleVersion.
//   - GetByID / DeleteByID: ErrNotFound si no existe.
type Repository[E any] interface {
	Finder[E]
	Insert(ctx context.Context, e *E, evt sharedDomain.OutboxEvent) error
	Update(ctx context.Context, e *E, evt sharedDomain.OutboxEvent) error
	GetByID(ctx context.Context, id string) (*E, error)
	FindAll(ctx context.Context) ([]*E, error)
	DeleteByID(ctx context.Context, id string, evt sharedDomain.OutboxEvent) error
}

// Mapper convierte entre el registro expuesto al llamador (D) y la entidad persistente (E).
// Debe ser puro.
type Mapper[D, E any] interface {
	ToEntity(d D) *E
	ToRecord(e *E) D
}

// MapperFuncs adapta dos funciones a Mapper.
type MapperFuncs[D, E any] struct {
	Entity func(D) *E
	Record func(*E) D
}

func (m MapperFuncs[D, E]) ToEntity(d D) *E { return m.Entity(d) }

func (m MapperFuncs[D, E]) ToRecord(e *E) D { return m.Record(e) }

// BusinessStrategy puede modificar la entidad a partir de ella misma y del registro de entrada
// antes de persistir.
type BusinessStrategy[D, E any] interface {
	Treat(ctx context.Context, e *E, d D) error
}

// StrategyFunc adapta una función a BusinessStrategy.
type StrategyFunc[D, E any] func(ctx context.Context, e *E, d D) error

func (f StrategyFunc[D, E]) Treat(ctx context.Context, e *E, d D) error { return f(ctx, e, d) }

// Metrics registra el resultado de las operaciones del servicio. Es opcional.
type Metrics interface {
	ObserveOperation(recordType, operation string, elapsed time.Duration, err error)
	QueryRejected(recordType string, err error)
}
