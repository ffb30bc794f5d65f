// Package sqlstore es el repositorio genérico sobre database/sql (Postgres vía pgx, SQLite vía
// modernc). Las consultas dinámicas se generan con sqlbuilder; las escrituras usan concurrencia
// optimista y guardan el evento de outbox en la misma transacción.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	sharedApp "github.com/davicafu/crudlab/internal/shared/application"
	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
	"github.com/davicafu/crudlab/internal/shared/infra/platform/db/sqlbuilder"
	"github.com/davicafu/crudlab/internal/shared/query"
	"github.com/davicafu/crudlab/internal/shared/schema"
)

type Store[E any] struct {
	db      *sql.DB
	dialect sqlbuilder.Dialect
	binding schema.Binding[E]
}

func New[E any](db *sql.DB, dialect sqlbuilder.Dialect, binding schema.Binding[E]) *Store[E] {
	return &Store[E]{db: db, dialect: dialect, binding: binding}
}

// ------------------ Escrituras + Outbox ------------------

// Insert crea la fila (versión 1) y el evento en una transacción.
func (s *Store[E]) Insert(ctx context.Context, e *E, evt sharedDomain.OutboxEvent) error {
	t := s.binding.Type
	id := s.binding.Identity
	if id.Versioned() {
		id.SetVersion(e, 1)
	}

	cols := t.Columns()
	b := sqlbuilder.New(s.dialect)
	b.Write("INSERT INTO ").Write(s.dialect.Quote(t.Table)).Write(" (")
	for i, c := range cols {
		if i > 0 {
			b.Write(", ")
		}
		b.Write(s.dialect.Quote(c))
	}
	b.Write(") VALUES (")
	for i, v := range s.binding.Codec.Values(e) {
		if i > 0 {
			b.Write(", ")
		}
		b.Arg(v)
	}
	b.Write(")")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback() // Se ignora si el Commit() es exitoso

	if _, err := tx.ExecContext(ctx, b.String(), b.Args()...); err != nil {
		if isPrimaryKeyViolation(err) {
			return fmt.Errorf("%s %s already exists: %w", t.Name, id.GetID(e), sharedDomain.ErrStaleVersion)
		}
		return fmt.Errorf("db error: %w", err)
	}

	if err := insertOutboxTx(ctx, tx, s.dialect, evt); err != nil {
		return err
	}
	return tx.Commit()
}

// Update escribe todas las columnas salvo ID y versión. Con versión: WHERE id AND version, y la
// versión avanza en uno.
func (s *Store[E]) Update(ctx context.Context, e *E, evt sharedDomain.OutboxEvent) error {
	t := s.binding.Type
	ident := s.binding.Identity
	idCol, versionCol := t.IDColumn(), t.VersionColumn()

	idArg, err := s.idArg(ident.GetID(e))
	if err != nil {
		return err
	}

	b := sqlbuilder.New(s.dialect)
	b.Write("UPDATE ").Write(s.dialect.Quote(t.Table)).Write(" SET ")
	first := true
	values := s.binding.Codec.Values(e)
	for i, c := range t.Columns() {
		if c == idCol || c == versionCol {
			continue
		}
		if !first {
			b.Write(", ")
		}
		first = false
		b.Write(s.dialect.Quote(c)).Write(" = ").Arg(values[i])
	}
	if versionCol != "" {
		q := s.dialect.Quote(versionCol)
		b.Write(", ").Write(q).Write(" = ").Write(q).Write(" + 1")
	}
	b.Write(" WHERE ").Write(s.dialect.Quote(idCol)).Write(" = ").Arg(idArg)
	versioned := versionCol != "" && ident.Versioned()
	if versioned {
		b.Write(" AND ").Write(s.dialect.Quote(versionCol)).Write(" = ").Arg(ident.GetVersion(e))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, b.String(), b.Args()...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get RowsAffected: %w", err)
	}
	if rows == 0 {
		exists, err := s.exists(ctx, tx, idArg)
		if err != nil {
			return err
		}
		if exists && versioned {
			return fmt.Errorf("%s %s: %w", t.Name, ident.GetID(e), sharedDomain.ErrStaleVersion)
		}
		return fmt.Errorf("%s %s: %w", t.Name, ident.GetID(e), sharedDomain.ErrNotFound)
	}

	if versioned {
		ident.SetVersion(e, ident.GetVersion(e)+1)
	}

	if err := insertOutboxTx(ctx, tx, s.dialect, evt); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteByID elimina la fila y crea el evento en una transacción.
func (s *Store[E]) DeleteByID(ctx context.Context, id string, evt sharedDomain.OutboxEvent) error {
	t := s.binding.Type
	idArg, err := s.idArg(id)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	b := sqlbuilder.New(s.dialect)
	b.Write("DELETE FROM ").Write(s.dialect.Quote(t.Table)).
		Write(" WHERE ").Write(s.dialect.Quote(t.IDColumn())).Write(" = ").Arg(idArg)

	res, err := tx.ExecContext(ctx, b.String(), b.Args()...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get RowsAffected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %s: %w", t.Name, id, sharedDomain.ErrNotFound)
	}

	if err := insertOutboxTx(ctx, tx, s.dialect, evt); err != nil {
		return err
	}
	return tx.Commit()
}

// ------------------ Lectura ------------------

// GetByID devuelve ErrNotFound si no hay fila.
func (s *Store[E]) GetByID(ctx context.Context, id string) (*E, error) {
	t := s.binding.Type
	idArg, err := s.idArg(id)
	if err != nil {
		return nil, err
	}

	b := sqlbuilder.New(s.dialect)
	b.Write("SELECT ").Write(s.columnList()).
		Write(" FROM ").Write(s.dialect.Quote(t.Table)).
		Write(" WHERE ").Write(s.dialect.Quote(t.IDColumn())).Write(" = ").Arg(idArg)

	e, err := s.binding.Codec.Scan(s.db.QueryRowContext(ctx, b.String(), b.Args()...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %s: %w", t.Name, id, sharedDomain.ErrNotFound)
		}
		return nil, fmt.Errorf("db scan error: %w", err)
	}
	return e, nil
}

// FindAll devuelve todas las filas ordenadas por ID.
func (s *Store[E]) FindAll(ctx context.Context) ([]*E, error) {
	t := s.binding.Type
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		s.columnList(), s.dialect.Quote(t.Table), s.dialect.Quote(t.IDColumn()))
	return s.query(ctx, q)
}

// Find ejecuta una consulta dinámica compilada.
func (s *Store[E]) Find(ctx context.Context, spec query.QuerySpec) ([]*E, error) {
	q, args, err := sqlbuilder.Select(s.dialect, spec)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, q, args...)
}

// Count cuenta las filas que cumplen la selección.
func (s *Store[E]) Count(ctx context.Context, sel query.Selection) (int64, error) {
	q, args, err := sqlbuilder.Count(s.dialect, sel)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("db count error: %w", err)
	}
	return n, nil
}

func (s *Store[E]) query(ctx context.Context, q string, args ...any) ([]*E, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	defer rows.Close()

	var out []*E
	for rows.Next() {
		e, err := s.binding.Codec.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("db scan error: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ------------------ Helpers ------------------

func (s *Store[E]) columnList() string {
	cols := s.binding.Type.Columns()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = s.dialect.Quote(c)
	}
	return strings.Join(quoted, ", ")
}

// idArg convierte el ID textual al tipo de la columna. Un ID que no se puede convertir no existe.
func (s *Store[E]) idArg(id string) (any, error) {
	t := s.binding.Type
	f, _ := t.Field(t.IDField)
	if f.Kind == schema.KindInt {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", t.Name, id, sharedDomain.ErrNotFound)
		}
		return n, nil
	}
	return id, nil
}

func (s *Store[E]) exists(ctx context.Context, tx *sql.Tx, idArg any) (bool, error) {
	t := s.binding.Type
	b := sqlbuilder.New(s.dialect)
	b.Write("SELECT COUNT(*) FROM ").Write(s.dialect.Quote(t.Table)).
		Write(" WHERE ").Write(s.dialect.Quote(t.IDColumn())).Write(" = ").Arg(idArg)

	var n int64
	if err := tx.QueryRowContext(ctx, b.String(), b.Args()...).Scan(&n); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

// isPrimaryKeyViolation detecta la carrera de dos inserciones con el mismo ID.
func isPrimaryKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && strings.HasSuffix(pgErr.ConstraintName, "_pkey")
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
		// sin códigos extendidos sólo llega SQLITE_CONSTRAINT; la PK es la única restricción única
		return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE")
	}
	return false
}

// Verificación en tiempo de compilación.
var _ sharedApp.Repository[struct{}] = (*Store[struct{}])(nil)
