// Package clickhouse es la réplica analítica de sólo lectura: los filtros y conteos pesados se
// ejecutan contra una copia de las tablas en ClickHouse.
package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	sharedApp "github.com/davicafu/crudlab/internal/shared/application"
	"github.com/davicafu/crudlab/internal/shared/infra/platform/db/sqlbuilder"
	"github.com/davicafu/crudlab/internal/shared/query"
	"github.com/davicafu/crudlab/internal/shared/schema"
)

// Open abre la conexión database/sql de clickhouse-go y comprueba que responde.
func Open(addr, dbName string) (*sql.DB, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
	})

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("could not ping clickhouse: %w", err)
	}
	return conn, nil
}

// Finder implementa application.Finder sobre ClickHouse.
type Finder[E any] struct {
	db      *sql.DB
	binding schema.Binding[E]
}

func NewFinder[E any](db *sql.DB, binding schema.Binding[E]) *Finder[E] {
	return &Finder[E]{db: db, binding: binding}
}

func (f *Finder[E]) Find(ctx context.Context, spec query.QuerySpec) ([]*E, error) {
	q, args, err := sqlbuilder.Select(sqlbuilder.ClickHouse, spec)
	if err != nil {
		return nil, err
	}

	rows, err := f.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("clickhouse query error: %w", err)
	}
	defer rows.Close()

	var out []*E
	for rows.Next() {
		e, err := f.binding.Codec.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("clickhouse scan error: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (f *Finder[E]) Count(ctx context.Context, sel query.Selection) (int64, error) {
	q, args, err := sqlbuilder.Count(sqlbuilder.ClickHouse, sel)
	if err != nil {
		return 0, err
	}
	// count() de ClickHouse es UInt64
	var n uint64
	if err := f.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("clickhouse count error: %w", err)
	}
	return int64(n), nil
}

// Snapshot reemplaza el contenido de la tabla réplica por entities en un único lote.
func (f *Finder[E]) Snapshot(ctx context.Context, entities []*E) error {
	d := sqlbuilder.ClickHouse
	t := f.binding.Type

	if _, err := f.db.ExecContext(ctx, "TRUNCATE TABLE "+d.Quote(t.Table)); err != nil {
		return fmt.Errorf("clickhouse truncate %s: %w", t.Table, err)
	}

	// ClickHouse funciona mejor con inserciones en lotes.
	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	cols := t.Columns()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.Quote(c)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s)", d.Quote(t.Table), strings.Join(quoted, ", ")))
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, e := range entities {
		if _, err := stmt.ExecContext(ctx, f.binding.Codec.Values(e)...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("clickhouse insert %s %s: %w", t.Name, f.binding.Identity.GetID(e), err)
		}
	}
	return tx.Commit()
}

// Source es de donde se copian las filas: normalmente el repositorio principal.
type Source[E any] interface {
	FindAll(ctx context.Context) ([]*E, error)
}

// SyncFrom copia todas las filas de src a la réplica y devuelve cuántas se escribieron.
func (f *Finder[E]) SyncFrom(ctx context.Context, src Source[E]) (int, error) {
	entities, err := src.FindAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("read %s for snapshot: %w", f.binding.Type.Name, err)
	}
	if err := f.Snapshot(ctx, entities); err != nil {
		return 0, err
	}
	return len(entities), nil
}

// EnsureTables ejecuta las sentencias CREATE TABLE IF NOT EXISTS de la réplica.
func EnsureTables(ctx context.Context, db *sql.DB, ddl ...string) error {
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clickhouse schema: %w", err)
		}
	}
	return nil
}

// Verificación en tiempo de compilación.
var _ sharedApp.Finder[struct{}] = (*Finder[struct{}])(nil)
