package sqlbuilder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
	"github.com/davicafu/crudlab/internal/shared/query"
	"github.com/davicafu/crudlab/internal/shared/schema"
)

func compiler(t *testing.T) *query.Compiler {
	t.Helper()
	b := schema.NewBuilder()
	b.Entity("user", "users").
		ID("id", "id", schema.KindUUID).
		Field("name", "name", schema.KindString).
		Field("email", "email", schema.KindString)
	b.Entity("task", "tasks").
		ID("id", "id", schema.KindInt).
		Field("title", "title", schema.KindString).
		Field("assigneeId", "assignee_id", schema.KindUUID).
		Relation("assignee", "user", "assignee_id", "id")
	reg, err := b.Build()
	require.NoError(t, err)
	return query.NewCompiler(reg)
}

func TestSelect_Postgres(t *testing.T) {
	req := sharedDomain.NewFilterRequest(1, 20).
		Where(
			sharedDomain.Where("assignee.name", sharedDomain.OpLike, "50%_off"),
			sharedDomain.Where("title", sharedDomain.OpEqual, "Deploy"),
		).
		AnyOf(
			sharedDomain.Where("assignee.email", sharedDomain.OpBlank, nil),
			sharedDomain.Where("id", sharedDomain.OpNotIn, []int{1, 2}),
		).
		SortBy("assignee.name", false)

	spec, err := compiler(t).Build("task", req)
	require.NoError(t, err)

	sql, args, err := Select(Postgres, spec)
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT t0."id", t0."title", t0."assignee_id" FROM "tasks" t0`+
			` LEFT JOIN "users" j1 ON j1."id" = t0."assignee_id"`+
			` WHERE ((j1."name" LIKE $1 ESCAPE '\' AND t0."title" = $2)`+
			` AND ((j1."email" IS NULL OR j1."email" = $3) OR NOT (t0."id" IN ($4, $5))))`+
			` ORDER BY j1."name" DESC NULLS LAST, t0."id" ASC NULLS FIRST LIMIT $6 OFFSET $7`,
		sql)
	assert.Equal(t, []any{`%50\%\_off%`, "Deploy", "", int64(1), int64(2), 20, 20}, args)
	assert.Equal(t, 1, strings.Count(sql, "LEFT JOIN"))
}

func TestCount_SQLiteIgnoresPaging(t *testing.T) {
	req := sharedDomain.NewFilterRequest(3, 10).
		Where(sharedDomain.Where("title", sharedDomain.OpLike, "x")).
		SortBy("title", true)

	sel, err := compiler(t).BuildCount("task", req)
	require.NoError(t, err)

	sql, args, err := Count(SQLite, sel)
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) FROM "tasks" t0 WHERE (t0."title" LIKE ? ESCAPE '\')`, sql)
	assert.Equal(t, []any{"%x%"}, args)
}

func TestSelect_EmptyFilterHasNoWhere(t *testing.T) {
	spec, err := compiler(t).Build("user", sharedDomain.NewFilterRequest(0, 5))
	require.NoError(t, err)

	sql, args, err := Select(ClickHouse, spec)
	require.NoError(t, err)
	assert.Equal(t, `SELECT t0."id", t0."name", t0."email" FROM "users" t0 ORDER BY t0."id" ASC NULLS FIRST LIMIT ? OFFSET ?`, sql)
	assert.Equal(t, []any{5, 0}, args)
}

func TestPredicate_EmptyGroups(t *testing.T) {
	b := New(SQLite)
	require.NoError(t, b.Predicate(query.And{Terms: []query.Predicate{query.Or{}, query.In{}}}))
	assert.Equal(t, "(1=0 AND 1=0)", b.String())
	assert.Empty(t, b.Args())
}

func TestByName(t *testing.T) {
	d, err := ByName("pgx")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d)

	_, err = ByName("oracle")
	assert.Error(t, err)
}

func TestSelect_NullOrderingPerDialect(t *testing.T) {
	spec, err := compiler(t).Build("task", sharedDomain.NewFilterRequest(0, 5).SortBy("assignee.name", true))
	require.NoError(t, err)

	pg, _, err := Select(Postgres, spec)
	require.NoError(t, err)
	assert.Contains(t, pg, `ORDER BY j1."name" ASC NULLS FIRST, t0."id" ASC NULLS FIRST`)

	// SQLite ya ordena NULL primero en ASC
	lite, _, err := Select(SQLite, spec)
	require.NoError(t, err)
	assert.Contains(t, lite, `ORDER BY j1."name" ASC, t0."id" ASC LIMIT`)
}

func TestCount_EmptyNotInExcludesNull(t *testing.T) {
	sel, err := compiler(t).BuildCount("task", sharedDomain.NewFilterRequest(0, 5).
		Where(sharedDomain.Where("assigneeId", sharedDomain.OpNotIn, []string{})))
	require.NoError(t, err)

	sql, args, err := Count(SQLite, sel)
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) FROM "tasks" t0 WHERE (NOT (t0."assignee_id" IS NULL))`, sql)
	assert.Empty(t, args)
}
