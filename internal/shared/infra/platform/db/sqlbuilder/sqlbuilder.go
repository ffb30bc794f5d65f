// Package sqlbuilder traduce un query.QuerySpec a SQL parametrizado. Los valores viajan
// siempre como argumentos; sólo identificadores del esquema se escriben en el texto.
package sqlbuilder

import (
	"fmt"
	"strings"

	"github.com/davicafu/crudlab/internal/shared/query"
)

// Dialect recoge las diferencias entre motores que afectan al SQL generado.
type Dialect struct {
	Name string
	// numbered: $1, $2... (Postgres); si no, ?
	numbered bool
	// likeEscape añade ESCAPE '\' a LIKE; ClickHouse ya usa \ por defecto y no admite la cláusula.
	likeEscape bool
	// nullOrder fija NULL primero en ASC y último en DESC, como hace SQLite por defecto.
	nullOrder bool
}

var (
	Postgres   = Dialect{Name: "postgres", numbered: true, likeEscape: true, nullOrder: true}
	SQLite     = Dialect{Name: "sqlite", likeEscape: true}
	ClickHouse = Dialect{Name: "clickhouse", nullOrder: true}
)

// ByName resuelve el dialecto configurado.
func ByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "clickhouse":
		return ClickHouse, nil
	}
	return Dialect{}, fmt.Errorf("unknown SQL dialect %q", name)
}

// Placeholder devuelve el marcador del argumento n (base 1).
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Quote entrecomilla un identificador.
func (d Dialect) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// Column devuelve alias."columna".
func (d Dialect) Column(alias, column string) string {
	return alias + "." + d.Quote(column)
}

// Builder acumula texto y argumentos; los marcadores se numeran en orden de aparición.
type Builder struct {
	d    Dialect
	sb   strings.Builder
	args []any
}

func New(d Dialect) *Builder {
	return &Builder{d: d}
}

func (b *Builder) Write(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// Arg registra un argumento y escribe su marcador.
func (b *Builder) Arg(v any) *Builder {
	b.args = append(b.args, v)
	b.sb.WriteString(b.d.Placeholder(len(b.args)))
	return b
}

func (b *Builder) String() string { return b.sb.String() }

func (b *Builder) Args() []any { return b.args }

// ---------------- SELECT / COUNT ----------------

// Select genera la consulta paginada: columnas de la raíz, LEFT JOINs, WHERE, ORDER BY, LIMIT/OFFSET.
func Select(d Dialect, spec query.QuerySpec) (string, []any, error) {
	b := New(d)
	cols := spec.Root.Columns()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.Column(query.RootAlias, c)
	}
	b.Write("SELECT ").Write(strings.Join(quoted, ", "))

	if err := b.from(spec.Selection); err != nil {
		return "", nil, err
	}

	if len(spec.Sort) > 0 {
		order := make([]string, len(spec.Sort))
		for i, s := range spec.Sort {
			order[i] = d.Column(s.Field.Alias(), s.Field.Field.Column) + " " + d.direction(s.Ascending)
		}
		b.Write(" ORDER BY ").Write(strings.Join(order, ", "))
	}
	if spec.Limit > 0 {
		b.Write(" LIMIT ").Arg(spec.Limit).Write(" OFFSET ").Arg(spec.Offset)
	}
	return b.String(), b.Args(), nil
}

func (d Dialect) direction(asc bool) string {
	switch {
	case asc && d.nullOrder:
		return "ASC NULLS FIRST"
	case asc:
		return "ASC"
	case d.nullOrder:
		return "DESC NULLS LAST"
	}
	return "DESC"
}

// Count genera SELECT COUNT(*) con el mismo FROM/WHERE que Select.
func Count(d Dialect, sel query.Selection) (string, []any, error) {
	b := New(d)
	b.Write("SELECT COUNT(*)")
	if err := b.from(sel); err != nil {
		return "", nil, err
	}
	return b.String(), b.Args(), nil
}

func (b *Builder) from(sel query.Selection) error {
	b.Write(" FROM ").Write(b.d.Quote(sel.Root.Table)).Write(" ").Write(query.RootAlias)
	for _, j := range sel.Joins {
		b.Write(" LEFT JOIN ").Write(b.d.Quote(j.Target.Table)).Write(" ").Write(j.Alias).
			Write(" ON ").Write(b.d.Column(j.Alias, j.Relation.TargetColumn)).
			Write(" = ").Write(b.d.Column(j.ParentAlias(), j.Relation.LocalColumn))
	}
	if _, all := sel.Where.(query.True); all || sel.Where == nil {
		return nil
	}
	b.Write(" WHERE ")
	return b.Predicate(sel.Where)
}

// ---------------- Predicados ----------------

// Predicate escribe el fragmento SQL de p. Un And vacío es 1=1; un Or o un IN vacíos, 1=0.
func (b *Builder) Predicate(p query.Predicate) error {
	switch p := p.(type) {
	case query.True:
		b.Write("1=1")

	case query.And:
		return b.group(p.Terms, " AND ", "1=1")

	case query.Or:
		return b.group(p.Terms, " OR ", "1=0")

	case query.Not:
		b.Write("NOT (")
		if err := b.Predicate(p.Term); err != nil {
			return err
		}
		b.Write(")")

	case query.Compare:
		b.Write(b.field(p.Field)).Write(" ").Write(p.Op.String()).Write(" ").Arg(p.Value)

	case query.Like:
		b.Write(b.field(p.Field)).Write(" LIKE ").Arg("%" + EscapeLike(p.Substring) + "%")
		if b.d.likeEscape {
			b.Write(` ESCAPE '\'`)
		}

	case query.In:
		if len(p.Values) == 0 {
			b.Write("1=0")
			return nil
		}
		b.Write(b.field(p.Field)).Write(" IN (")
		for i, v := range p.Values {
			if i > 0 {
				b.Write(", ")
			}
			b.Arg(v)
		}
		b.Write(")")

	case query.IsNull:
		b.Write(b.field(p.Field)).Write(" IS NULL")

	default:
		return fmt.Errorf("sqlbuilder: unsupported predicate %T", p)
	}
	return nil
}

func (b *Builder) group(terms []query.Predicate, sep, empty string) error {
	if len(terms) == 0 {
		b.Write(empty)
		return nil
	}
	b.Write("(")
	for i, t := range terms {
		if i > 0 {
			b.Write(sep)
		}
		if err := b.Predicate(t); err != nil {
			return err
		}
	}
	b.Write(")")
	return nil
}

func (b *Builder) field(ref query.FieldRef) string {
	return b.d.Column(ref.Alias(), ref.Field.Column)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike neutraliza los comodines para que LIKE busque el texto literal.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
