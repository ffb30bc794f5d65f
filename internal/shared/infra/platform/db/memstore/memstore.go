// Package memstore es un repositorio en memoria con la misma semántica que sqlstore
// (versiones, outbox, joins y NULL trivalente). Sirve para tests y para arrancar sin base de datos.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	sharedApp "github.com/davicafu/crudlab/internal/shared/application"
	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
	"github.com/davicafu/crudlab/internal/shared/query"
	"github.com/davicafu/crudlab/internal/shared/schema"
)

type row map[string]any

type entry struct {
	seq    int64
	row    row
	entity any
}

// DB agrupa todas las tablas y el outbox; varios Store comparten una DB para que los joins vean
// las filas de otros tipos.
type DB struct {
	mu     sync.RWMutex
	seq    int64
	tables map[string]map[string]*entry
	outbox []sharedDomain.OutboxEvent
}

func NewDB() *DB {
	return &DB{tables: make(map[string]map[string]*entry)}
}

// table crea la tabla si no existe; sólo con el lock de escritura tomado.
func (db *DB) table(name string) map[string]*entry {
	t, ok := db.tables[name]
	if !ok {
		t = make(map[string]*entry)
		db.tables[name] = t
	}
	return t
}

// ---------------- Outbox ----------------

func (db *DB) FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var out []sharedDomain.OutboxEvent
	for _, evt := range db.outbox {
		if evt.Processed {
			continue
		}
		out = append(out, evt)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (db *DB) MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.outbox {
		if db.outbox[i].ID == id {
			db.outbox[i].Processed = true
			return nil
		}
	}
	return fmt.Errorf("outbox event not found: %s", id)
}

var _ sharedDomain.OutboxRepository = (*DB)(nil)

// ---------------- Store ----------------

type Store[E any] struct {
	db      *DB
	binding schema.Binding[E]
}

func New[E any](db *DB, binding schema.Binding[E]) *Store[E] {
	return &Store[E]{db: db, binding: binding}
}

func (s *Store[E]) Insert(ctx context.Context, e *E, evt sharedDomain.OutboxEvent) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	t := s.binding.Type
	id := s.binding.Identity.GetID(e)
	table := s.db.table(t.Table)
	if _, dup := table[id]; dup {
		return fmt.Errorf("%s %s already exists: %w", t.Name, id, sharedDomain.ErrStaleVersion)
	}
	if s.binding.Identity.Versioned() {
		s.binding.Identity.SetVersion(e, 1)
	}

	s.db.seq++
	table[id] = &entry{seq: s.db.seq, row: s.toRow(e), entity: *e}
	s.db.outbox = append(s.db.outbox, evt)
	return nil
}

func (s *Store[E]) Update(ctx context.Context, e *E, evt sharedDomain.OutboxEvent) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	t := s.binding.Type
	ident := s.binding.Identity
	id := ident.GetID(e)
	current, ok := s.db.table(t.Table)[id]
	if !ok {
		return fmt.Errorf("%s %s: %w", t.Name, id, sharedDomain.ErrNotFound)
	}
	if ident.Versioned() {
		stored := current.entity.(E)
		if ident.GetVersion(&stored) != ident.GetVersion(e) {
			return fmt.Errorf("%s %s: %w", t.Name, id, sharedDomain.ErrStaleVersion)
		}
		ident.SetVersion(e, ident.GetVersion(e)+1)
	}

	current.row = s.toRow(e)
	current.entity = *e
	s.db.outbox = append(s.db.outbox, evt)
	return nil
}

func (s *Store[E]) DeleteByID(ctx context.Context, id string, evt sharedDomain.OutboxEvent) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	t := s.binding.Type
	table := s.db.table(t.Table)
	if _, ok := table[id]; !ok {
		return fmt.Errorf("%s %s: %w", t.Name, id, sharedDomain.ErrNotFound)
	}
	delete(table, id)
	s.db.outbox = append(s.db.outbox, evt)
	return nil
}

func (s *Store[E]) GetByID(ctx context.Context, id string) (*E, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	t := s.binding.Type
	current, ok := s.db.tables[t.Table][id]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", t.Name, id, sharedDomain.ErrNotFound)
	}
	e := current.entity.(E)
	return &e, nil
}

func (s *Store[E]) FindAll(ctx context.Context) ([]*E, error) {
	return s.Find(ctx, query.QuerySpec{
		Selection: query.All(s.binding.Type),
		Sort:      []query.SortSpec{s.idSort()},
	})
}

// Find filtra, ordena y pagina en memoria con query.Evaluate.
func (s *Store[E]) Find(ctx context.Context, spec query.QuerySpec) ([]*E, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	matches, err := s.match(spec.Selection)
	if err != nil {
		return nil, err
	}

	var sortErr error
	sort.SliceStable(matches, func(i, j int) bool {
		for _, order := range spec.Sort {
			a, b := matches[i].lookup(order.Field), matches[j].lookup(order.Field)
			cmp, err := compareNullable(a, b)
			if err != nil {
				sortErr = err
				return false
			}
			if cmp != 0 {
				if order.Ascending {
					return cmp < 0
				}
				return cmp > 0
			}
		}
		return matches[i].root.seq < matches[j].root.seq
	})
	if sortErr != nil {
		return nil, sortErr
	}

	if spec.Limit > 0 {
		if spec.Offset >= len(matches) {
			matches = nil
		} else {
			end := spec.Offset + spec.Limit
			if end > len(matches) {
				end = len(matches)
			}
			matches = matches[spec.Offset:end]
		}
	}

	out := make([]*E, 0, len(matches))
	for _, m := range matches {
		e := m.root.entity.(E)
		out = append(out, &e)
	}
	return out, nil
}

func (s *Store[E]) Count(ctx context.Context, sel query.Selection) (int64, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	matches, err := s.match(sel)
	if err != nil {
		return 0, err
	}
	return int64(len(matches)), nil
}

// ---------------- Evaluación ----------------

// joined es una fila raíz con las filas de sus joins (nil si el LEFT JOIN no encontró nada).
type joined struct {
	root  *entry
	joins map[string]row
}

func (j joined) lookup(ref query.FieldRef) any {
	r := j.root.row
	if ref.Join != nil {
		r = j.joins[ref.Join.Alias]
	}
	if r == nil {
		return nil
	}
	return r[ref.Field.Column]
}

func (s *Store[E]) match(sel query.Selection) ([]joined, error) {
	var out []joined
	for _, e := range s.db.tables[sel.Root.Table] {
		j := joined{root: e, joins: make(map[string]row, len(sel.Joins))}
		// los joins vienen en orden de creación: el padre siempre antes que el hijo
		for _, jn := range sel.Joins {
			parent := e.row
			if jn.Parent != nil {
				parent = j.joins[jn.Parent.Alias]
			}
			j.joins[jn.Alias] = s.findRow(jn.Target.Table, jn.Relation.TargetColumn, parent[jn.Relation.LocalColumn])
		}

		ok, err := query.Evaluate(sel.Where, j.lookup)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, j)
		}
	}
	// el orden de un map no es estable
	sort.Slice(out, func(a, b int) bool { return out[a].root.seq < out[b].root.seq })
	return out, nil
}

func (s *Store[E]) findRow(table, column string, value any) row {
	if value == nil {
		return nil
	}
	for _, e := range s.db.tables[table] {
		v := e.row[column]
		if v == nil {
			continue
		}
		if cmp, err := query.CompareValues(v, value); err == nil && cmp == 0 {
			return e.row
		}
	}
	return nil
}

func (s *Store[E]) toRow(e *E) row {
	cols := s.binding.Type.Columns()
	values := s.binding.Codec.Values(e)
	r := make(row, len(cols))
	for i, c := range cols {
		r[c] = values[i]
	}
	return r
}

func (s *Store[E]) idSort() query.SortSpec {
	t := s.binding.Type
	f, _ := t.Field(t.IDField)
	return query.SortSpec{Field: query.FieldRef{Field: f, Path: t.IDField}, Ascending: true}
}

// compareNullable ordena NULL antes que cualquier valor.
func compareNullable(a, b any) (int, error) {
	switch {
	case a == nil && b == nil:
		return 0, nil
	case a == nil:
		return -1, nil
	case b == nil:
		return 1, nil
	}
	return query.CompareValues(a, b)
}

// Verificación en tiempo de compilación.
var _ sharedApp.Repository[struct{}] = (*Store[struct{}])(nil)
