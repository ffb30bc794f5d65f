package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
	sharedCache "github.com/davicafu/crudlab/internal/shared/infra/platform/cache"
	"github.com/davicafu/crudlab/internal/shared/query"
	"github.com/davicafu/crudlab/internal/shared/schema"
)

const (
	defaultCacheTTL = 60
	// intentos de inserción cuando el ID generado ya existe
	generatedIDAttempts = 3
)

// Deps son las dependencias explícitas de un CrudService.
type Deps[D, E any] struct {
	Binding  schema.Binding[E]
	Repo     Repository[E]
	Mapper   Mapper[D, E]
	Compiler *query.Compiler

	// Opcionales.
	Reader   Finder[E] // réplica de lectura para Filter/Count; por defecto Repo
	Registry *Registry
	IDs      IDGenerator[E] // por defecto UUIDs
	Cache    sharedCache.Cache
	CacheTTL int // segundos
	Metrics  Metrics
	Log      *zap.Logger
}

// CrudService orquesta validación, mapeo, generación de IDs, estrategia de negocio y
// persistencia de un tipo de registro D persistido como E.
type CrudService[D, E any] struct {
	binding  schema.Binding[E]
	repo     Repository[E]
	reader   Finder[E]
	mapper   Mapper[D, E]
	compiler *query.Compiler
	registry *Registry
	ids      IDGenerator[E]
	cache    sharedCache.Cache
	cacheTTL int
	metrics  Metrics
	log      *zap.Logger
}

func NewCrudService[D, E any](deps Deps[D, E]) (*CrudService[D, E], error) {
	switch {
	case deps.Binding.Type == nil:
		return nil, errors.New("crud service: binding type is required")
	case deps.Repo == nil:
		return nil, errors.New("crud service: repository is required")
	case deps.Mapper == nil:
		return nil, errors.New("crud service: mapper is required")
	case deps.Compiler == nil:
		return nil, errors.New("crud service: query compiler is required")
	}

	s := &CrudService[D, E]{
		binding:  deps.Binding,
		repo:     deps.Repo,
		reader:   deps.Reader,
		mapper:   deps.Mapper,
		compiler: deps.Compiler,
		registry: deps.Registry,
		ids:      deps.IDs,
		cache:    deps.Cache,
		cacheTTL: deps.CacheTTL,
		metrics:  deps.Metrics,
		log:      deps.Log,
	}
	if s.reader == nil {
		s.reader = deps.Repo
	}
	if s.ids == nil {
		s.ids = NewIDGenerator(deps.Binding.Identity, UUIDs())
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = defaultCacheTTL
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.log = s.log.With(zap.String("recordType", s.recordType()))
	return s, nil
}

func (s *CrudService[D, E]) recordType() string { return s.binding.Type.Name }

// --- Escritura ---

// Save crea el registro, o lo actualiza si ya trae un ID que existe.
func (s *CrudService[D, E]) Save(ctx context.Context, d D) (out D, err error) {
	defer s.observe("save", time.Now(), &err)

	e, err := s.prepare(ctx, d, true)
	if err != nil {
		return out, err
	}

	ident := s.binding.Identity
	hadID := ident.GetID(e) != ""
	s.ids.Assign(e)
	id := ident.GetID(e)

	if err = s.treat(ctx, e, d); err != nil {
		return out, err
	}

	if hadID {
		err = s.repo.Update(ctx, e, s.event(sharedDomain.ActionUpdated, id, e))
		if errors.Is(err, sharedDomain.ErrNotFound) {
			err = s.repo.Insert(ctx, e, s.event(sharedDomain.ActionCreated, id, e))
		}
	} else {
		err = s.repo.Insert(ctx, e, s.event(sharedDomain.ActionCreated, id, e))
		// un ID generado que ya existe es una colisión del generador, no un conflicto
		for attempt := 1; errors.Is(err, sharedDomain.ErrStaleVersion) && attempt < generatedIDAttempts; attempt++ {
			s.log.Warn("Generated ID already in use, retrying", zap.String("id", id))
			s.ids.Renew(e)
			id = ident.GetID(e)
			err = s.repo.Insert(ctx, e, s.event(sharedDomain.ActionCreated, id, e))
		}
	}
	if err != nil {
		return out, s.storeError("save", id, err)
	}

	out = s.mapper.ToRecord(e)
	sharedCache.AsyncCacheSet(s.cache, sharedCache.KeyByID(s.recordType(), id), out, s.cacheTTL, s.log)
	return out, nil
}

// Update exige que el registro exista. Las reglas marcadas OnCreate no se comprueban.
func (s *CrudService[D, E]) Update(ctx context.Context, d D) (out D, err error) {
	defer s.observe("update", time.Now(), &err)

	e, err := s.prepare(ctx, d, false)
	if err != nil {
		return out, err
	}

	id := s.binding.Identity.GetID(e)
	if id == "" {
		return out, &sharedDomain.NotFoundError{Type: s.recordType()}
	}
	if err = s.treat(ctx, e, d); err != nil {
		return out, err
	}

	if err = s.repo.Update(ctx, e, s.event(sharedDomain.ActionUpdated, id, e)); err != nil {
		return out, s.storeError("update", id, err)
	}

	out = s.mapper.ToRecord(e)
	sharedCache.AsyncCacheSet(s.cache, sharedCache.KeyByID(s.recordType(), id), out, s.cacheTTL, s.log)
	return out, nil
}

func (s *CrudService[D, E]) DeleteByID(ctx context.Context, id string) (err error) {
	defer s.observe("delete", time.Now(), &err)

	evt := s.event(sharedDomain.ActionDeleted, id, map[string]string{"id": id})
	if err = s.repo.DeleteByID(ctx, id, evt); err != nil {
		return s.storeError("delete", id, err)
	}

	sharedCache.AsyncCacheDelete(s.cache, sharedCache.KeyByID(s.recordType(), id), s.log)
	return nil
}

// --- Lectura ---

// Find devuelve (registro, true) o (cero, false) si no existe; la ausencia no es un error.
func (s *CrudService[D, E]) Find(ctx context.Context, id string) (out D, found bool, err error) {
	defer s.observe("find", time.Now(), &err)

	key := sharedCache.KeyByID(s.recordType(), id)
	if s.cache != nil {
		var cached D
		if ok, cerr := s.cache.Get(ctx, key, &cached); cerr != nil {
			s.log.Warn("Cache read failed", zap.String("key", key), zap.Error(cerr))
		} else if ok {
			return cached, true, nil
		}
	}

	e, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, sharedDomain.ErrNotFound) {
		return out, false, nil
	}
	if err != nil {
		s.log.Error("Failed to get record", zap.String("id", id), zap.Error(err))
		return out, false, err
	}

	out = s.mapper.ToRecord(e)
	sharedCache.AsyncCacheSet(s.cache, key, out, s.cacheTTL, s.log)
	return out, true, nil
}

func (s *CrudService[D, E]) FindAll(ctx context.Context) (out []D, err error) {
	defer s.observe("find_all", time.Now(), &err)

	entities, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.toRecords(entities), nil
}

// Filter compila el filtro y devuelve la página pedida.
func (s *CrudService[D, E]) Filter(ctx context.Context, req sharedDomain.FilterRequest) (out []D, err error) {
	defer s.observe("filter", time.Now(), &err)

	spec, err := s.compiler.Build(s.recordType(), req)
	if err != nil {
		return nil, s.rejected(err)
	}
	entities, err := s.reader.Find(ctx, spec)
	if err != nil {
		return nil, err
	}
	return s.toRecords(entities), nil
}

// FilterPrimary es Filter contra el repositorio, nunca contra la réplica de lectura. Lo usan
// los flujos que leen para volver a escribir: la versión leída tiene que ser la vigente.
func (s *CrudService[D, E]) FilterPrimary(ctx context.Context, req sharedDomain.FilterRequest) (out []D, err error) {
	defer s.observe("filter_primary", time.Now(), &err)

	spec, err := s.compiler.Build(s.recordType(), req)
	if err != nil {
		return nil, s.rejected(err)
	}
	entities, err := s.repo.Find(ctx, spec)
	if err != nil {
		return nil, err
	}
	return s.toRecords(entities), nil
}

// Count usa la misma compilación del predicado que Filter, sin paginación ni orden.
func (s *CrudService[D, E]) Count(ctx context.Context, req sharedDomain.FilterRequest) (n int64, err error) {
	defer s.observe("count", time.Now(), &err)

	sel, err := s.compiler.BuildCount(s.recordType(), req)
	if err != nil {
		return 0, s.rejected(err)
	}
	return s.reader.Count(ctx, sel)
}

func (s *CrudService[D, E]) CountAll(ctx context.Context) (n int64, err error) {
	defer s.observe("count_all", time.Now(), &err)
	return s.reader.Count(ctx, query.All(s.binding.Type))
}

// --- Helpers ---

// prepare valida el registro y lo convierte en entidad. Con errores de validación no se toca
// el almacenamiento.
func (s *CrudService[D, E]) prepare(ctx context.Context, d D, creating bool) (*E, error) {
	validators, err := ValidatorsFor[D](s.registry, s.recordType())
	if err != nil {
		return nil, err
	}
	if err := validate(validators, d, creating); err != nil {
		s.log.Debug("Validation failed", zap.Error(err))
		return nil, err
	}
	return s.mapper.ToEntity(d), nil
}

func (s *CrudService[D, E]) treat(ctx context.Context, e *E, d D) error {
	strategy, err := StrategyFor[D, E](s.registry, s.recordType())
	if err != nil || strategy == nil {
		return err
	}
	return strategy.Treat(ctx, e, d)
}

func (s *CrudService[D, E]) event(action, id string, payload interface{}) sharedDomain.OutboxEvent {
	return sharedDomain.NewOutboxEvent(s.recordType(), action, id, payload)
}

// storeError traduce los errores del repositorio a los errores presentados al llamador.
func (s *CrudService[D, E]) storeError(op, id string, err error) error {
	switch {
	case errors.Is(err, sharedDomain.ErrStaleVersion):
		sharedCache.AsyncCacheDelete(s.cache, sharedCache.KeyByID(s.recordType(), id), s.log)
		return &sharedDomain.ConflictError{Type: s.recordType(), ID: id}
	case errors.Is(err, sharedDomain.ErrNotFound):
		return &sharedDomain.NotFoundError{Type: s.recordType(), ID: id}
	}
	s.log.Error("Failed to "+op+" record", zap.String("id", id), zap.Error(err))
	return fmt.Errorf("%s %s %s: %w", op, s.recordType(), id, err)
}

func (s *CrudService[D, E]) rejected(err error) error {
	if s.metrics != nil {
		s.metrics.QueryRejected(s.recordType(), err)
	}
	return err
}

func (s *CrudService[D, E]) observe(op string, start time.Time, err *error) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(s.recordType(), op, time.Since(start), *err)
	}
}

func (s *CrudService[D, E]) toRecords(entities []*E) []D {
	out := make([]D, 0, len(entities))
	for _, e := range entities {
		out = append(out, s.mapper.ToRecord(e))
	}
	return out
}
