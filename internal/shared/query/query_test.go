package query

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
	"github.com/davicafu/crudlab/internal/shared/schema"
)

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	b := schema.NewBuilder()
	b.Entity("user", "users").
		ID("id", "id", schema.KindUUID).
		Field("email", "email", schema.KindString).
		Field("name", "name", schema.KindString).
		Field("firstName", "first_name", schema.KindString).
		Field("status", "status", schema.KindEnum, schema.Enum("ACTIVE", "INACTIVE")).
		Field("score", "score", schema.KindInt).
		Field("birthDate", "birth_date", schema.KindTime).
		Field("managerId", "manager_id", schema.KindUUID).
		Version("version", "version").
		Relation("manager", "user", "manager_id", "id")
	b.Entity("task", "tasks").
		ID("id", "id", schema.KindInt).
		Field("title", "title", schema.KindString).
		Field("done", "done", schema.KindBool).
		Field("assigneeId", "assignee_id", schema.KindUUID).
		Relation("assignee", "user", "assignee_id", "id")

	reg, err := b.Build()
	require.NoError(t, err)
	return reg
}

func TestCompiler_EmptyFilterIsTrue(t *testing.T) {
	c := NewCompiler(testRegistry(t))

	spec, err := c.Build("user", sharedDomain.NewFilterRequest(2, 10))
	require.NoError(t, err)
	assert.Equal(t, True{}, spec.Where)
	assert.Empty(t, spec.Joins)
	assert.Equal(t, 10, spec.Limit)
	assert.Equal(t, 20, spec.Offset)

	require.Len(t, spec.Sort, 1)
	assert.Equal(t, "id", spec.Sort[0].Field.Field.Name)
	assert.True(t, spec.Sort[0].Ascending)
}

func TestCompiler_AndGroupAndOrGroup(t *testing.T) {
	c := NewCompiler(testRegistry(t))
	req := sharedDomain.NewFilterRequest(0, 10).
		Where(sharedDomain.Where("status", sharedDomain.OpEqual, "ACTIVE")).
		AnyOf(
			sharedDomain.Where("name", sharedDomain.OpLike, "Jean"),
			sharedDomain.Where("firstName", sharedDomain.OpLike, "Jean"),
		)

	sel, err := c.BuildCount("user", req)
	require.NoError(t, err)

	top, ok := sel.Where.(And)
	require.True(t, ok)
	require.Len(t, top.Terms, 2)
	assert.IsType(t, And{}, top.Terms[0])
	or, ok := top.Terms[1].(Or)
	require.True(t, ok)
	assert.Len(t, or.Terms, 2)
}

func TestCompiler_OnlyOrGroup(t *testing.T) {
	c := NewCompiler(testRegistry(t))
	req := sharedDomain.NewFilterRequest(0, 10).
		AnyOf(sharedDomain.Where("name", sharedDomain.OpEqual, "Ana"))

	sel, err := c.BuildCount("user", req)
	require.NoError(t, err)
	assert.IsType(t, Or{}, sel.Where)
}

func TestCompiler_ReusesJoinForSameRelation(t *testing.T) {
	c := NewCompiler(testRegistry(t))
	req := sharedDomain.NewFilterRequest(0, 10).
		Where(
			sharedDomain.Where("assignee.name", sharedDomain.OpLike, "Jean"),
			sharedDomain.Where("assignee.status", sharedDomain.OpEqual, "ACTIVE"),
		).
		AnyOf(sharedDomain.Where("assignee.email", sharedDomain.OpBlank, nil)).
		SortBy("assignee.name", false)

	spec, err := c.Build("task", req)
	require.NoError(t, err)
	require.Len(t, spec.Joins, 1)
	assert.Equal(t, "j1", spec.Joins[0].Alias)
	assert.Equal(t, "assignee", spec.Joins[0].Relation.Name)
	assert.Same(t, spec.Joins[0], spec.Sort[0].Field.Join)
}

func TestCompiler_NestedJoinsAreDistinctPerParent(t *testing.T) {
	c := NewCompiler(testRegistry(t))
	req := sharedDomain.NewFilterRequest(0, 10).Where(
		sharedDomain.Where("assignee.manager.name", sharedDomain.OpEqual, "Boss"),
		sharedDomain.Where("assignee.manager.email", sharedDomain.OpLike, "@corp"),
		sharedDomain.Where("assignee.name", sharedDomain.OpEqual, "Ana"),
	)

	spec, err := c.Build("task", req)
	require.NoError(t, err)
	require.Len(t, spec.Joins, 2)
	assert.Equal(t, "t0", spec.Joins[0].ParentAlias())
	assert.Equal(t, "j1", spec.Joins[1].ParentAlias())
	assert.Equal(t, "manager", spec.Joins[1].Relation.Name)
}

func TestCompiler_PathErrors(t *testing.T) {
	c := NewCompiler(testRegistry(t))

	cases := []struct {
		name string
		key  string
		want error
	}{
		{"unknown field", "nickname", sharedDomain.ErrUnknownField},
		{"unknown nested field", "assignee.nickname", sharedDomain.ErrUnknownField},
		{"traverse scalar", "title.length", sharedDomain.ErrInvalidPath},
		{"final relation", "assignee", sharedDomain.ErrInvalidPath},
		{"empty segment", "assignee..name", sharedDomain.ErrInvalidPath},
		{"empty key", "", sharedDomain.ErrInvalidPath},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := sharedDomain.NewFilterRequest(0, 10).Where(sharedDomain.Where(tc.key, sharedDomain.OpEqual, "x"))
			_, err := c.Build("task", req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	var unknown *sharedDomain.UnknownFieldError
	_, err := c.Build("task", sharedDomain.NewFilterRequest(0, 10).Where(sharedDomain.Where("assignee.nickname", sharedDomain.OpEqual, "x")))
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "user", unknown.Type)
	assert.Equal(t, "nickname", unknown.Field)
}

func TestCompiler_OperatorChecks(t *testing.T) {
	c := NewCompiler(testRegistry(t))
	build := func(cr sharedDomain.Criterion) error {
		_, err := c.Build("user", sharedDomain.NewFilterRequest(0, 10).Where(cr))
		return err
	}

	assert.ErrorIs(t, build(sharedDomain.Where("score", sharedDomain.OpLike, "1")), sharedDomain.ErrUnsupportedOperator)
	assert.ErrorIs(t, build(sharedDomain.Where("status", sharedDomain.OpGreaterThan, "ACTIVE")), sharedDomain.ErrUnsupportedOperator)
	assert.ErrorIs(t, build(sharedDomain.Where("score", sharedDomain.OpBlank, nil)), sharedDomain.ErrUnsupportedOperator)
	assert.ErrorIs(t, build(sharedDomain.Where("name", sharedDomain.Operator("SOUNDS_LIKE"), "x")), sharedDomain.ErrUnsupportedOperator)

	assert.ErrorIs(t, build(sharedDomain.Where("status", sharedDomain.OpIn, "ACTIVE")), sharedDomain.ErrInvalidValue)
	assert.ErrorIs(t, build(sharedDomain.Where("status", sharedDomain.OpIn, []string{"ACTIVE", "GONE"})), sharedDomain.ErrInvalidValue)
	assert.ErrorIs(t, build(sharedDomain.Where("score", sharedDomain.OpEqual, "many")), sharedDomain.ErrInvalidValue)
	assert.ErrorIs(t, build(sharedDomain.Where("score", sharedDomain.OpEqual, 1.5)), sharedDomain.ErrInvalidValue)
	assert.ErrorIs(t, build(sharedDomain.Where("name", sharedDomain.OpEqual, nil)), sharedDomain.ErrInvalidValue)
	assert.ErrorIs(t, build(sharedDomain.Where("managerId", sharedDomain.OpEqual, "not-a-uuid")), sharedDomain.ErrInvalidValue)
	assert.ErrorIs(t, build(sharedDomain.Where("birthDate", sharedDomain.OpLessThan, "yesterday")), sharedDomain.ErrInvalidValue)

	assert.NoError(t, build(sharedDomain.Where("score", sharedDomain.OpGreaterThan, float64(3))))
	assert.NoError(t, build(sharedDomain.Where("birthDate", sharedDomain.OpLessThan, "2000-01-01")))
	assert.NoError(t, build(sharedDomain.Where("status", sharedDomain.OpNotIn, []interface{}{"INACTIVE"})))
}

func TestCompiler_CoercesValues(t *testing.T) {
	c := NewCompiler(testRegistry(t))
	req := sharedDomain.NewFilterRequest(0, 10).Where(
		sharedDomain.Where("score", sharedDomain.OpGreaterThanOrEqual, float64(18)),
		sharedDomain.Where("birthDate", sharedDomain.OpLessThan, "1990-05-01"),
		sharedDomain.Where("name", sharedDomain.OpBlank, "ignored"),
	)

	sel, err := c.BuildCount("user", req)
	require.NoError(t, err)
	terms := sel.Where.(And).Terms

	score := terms[0].(Compare)
	assert.Equal(t, Gte, score.Op)
	assert.Equal(t, int64(18), score.Value)

	birth := terms[1].(Compare)
	assert.Equal(t, time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC), birth.Value)

	blank := terms[2].(Or)
	require.Len(t, blank.Terms, 2)
	assert.IsType(t, IsNull{}, blank.Terms[0])
	assert.Equal(t, "", blank.Terms[1].(Compare).Value)
}

func TestCompiler_Pagination(t *testing.T) {
	c := NewCompiler(testRegistry(t), WithMaxPageSize(50))

	_, err := c.Build("user", sharedDomain.NewFilterRequest(-1, 10))
	assert.ErrorIs(t, err, sharedDomain.ErrInvalidValue)

	_, err = c.Build("user", sharedDomain.NewFilterRequest(0, 0))
	assert.ErrorIs(t, err, sharedDomain.ErrInvalidValue)

	_, err = c.Build("user", sharedDomain.NewFilterRequest(0, 51))
	assert.ErrorIs(t, err, sharedDomain.ErrInvalidValue)

	// count ignora la paginación
	_, err = c.BuildCount("user", sharedDomain.NewFilterRequest(-1, 0))
	assert.NoError(t, err)
}

func TestCompiler_SortAddsIDTieBreaker(t *testing.T) {
	c := NewCompiler(testRegistry(t))

	spec, err := c.Build("user", sharedDomain.NewFilterRequest(0, 10).SortBy("name", false))
	require.NoError(t, err)
	require.Len(t, spec.Sort, 2)
	assert.Equal(t, "name", spec.Sort[0].Field.Field.Name)
	assert.False(t, spec.Sort[0].Ascending)
	assert.Equal(t, "id", spec.Sort[1].Field.Field.Name)

	spec, err = c.Build("user", sharedDomain.NewFilterRequest(0, 10).SortBy("id", false))
	require.NoError(t, err)
	require.Len(t, spec.Sort, 1)

	_, err = c.Build("task", sharedDomain.NewFilterRequest(0, 10).SortBy("assignee", true))
	assert.ErrorIs(t, err, sharedDomain.ErrInvalidPath)
}

func TestCompiler_UnknownRootType(t *testing.T) {
	c := NewCompiler(testRegistry(t))
	_, err := c.Build("invoice", sharedDomain.NewFilterRequest(0, 10))
	assert.ErrorIs(t, err, schema.ErrUnknownType)
}

func TestCompiler_EmptyNotInStillExcludesNull(t *testing.T) {
	c := NewCompiler(testRegistry(t))

	sel, err := c.BuildCount("user", sharedDomain.NewFilterRequest(0, 10).
		Where(sharedDomain.Where("managerId", sharedDomain.OpNotIn, []string{})))
	require.NoError(t, err)
	terms := sel.Where.(And).Terms
	require.Len(t, terms, 1)
	not, ok := terms[0].(Not)
	require.True(t, ok)
	isNull, ok := not.Term.(IsNull)
	require.True(t, ok)
	assert.Equal(t, "managerId", isNull.Field.Field.Name)

	sel, err = c.BuildCount("user", sharedDomain.NewFilterRequest(0, 10).
		Where(sharedDomain.Where("status", sharedDomain.OpNotIn, []string{"ACTIVE"})))
	require.NoError(t, err)
	assert.IsType(t, In{}, sel.Where.(And).Terms[0].(Not).Term)
}
