package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
)

type row map[string]any

func (r row) lookup(ref FieldRef) any {
	return r[ref.Field.Column]
}

var people = []row{
	{"name": "Jean", "first_name": "Paul", "status": "ACTIVE", "score": int64(10), "email": "jean@x.io"},
	{"name": "Julien", "first_name": "Marc", "status": "INACTIVE", "score": int64(20), "email": ""},
	{"name": "Ana", "first_name": "Jeanne", "status": "ACTIVE", "score": int64(30), "email": nil},
	{"name": "Bob", "first_name": "Bob", "status": "ACTIVE", "score": nil, "email": "bob@x.io"},
}

func matching(t *testing.T, c *Compiler, req sharedDomain.FilterRequest) []string {
	t.Helper()
	sel, err := c.BuildCount("user", req)
	require.NoError(t, err)

	var names []string
	for _, r := range people {
		ok, err := Evaluate(sel.Where, r.lookup)
		require.NoError(t, err)
		if ok {
			names = append(names, r["name"].(string))
		}
	}
	return names
}

func TestEvaluate_Operators(t *testing.T) {
	c := NewCompiler(testRegistry(t))
	req := func(crit sharedDomain.Criterion) sharedDomain.FilterRequest {
		return sharedDomain.NewFilterRequest(0, 10).Where(crit)
	}

	assert.Equal(t, []string{"Jean", "Julien", "Ana", "Bob"}, matching(t, c, sharedDomain.NewFilterRequest(0, 10)))
	assert.Equal(t, []string{"Jean", "Ana", "Bob"}, matching(t, c, req(sharedDomain.Where("status", sharedDomain.OpEqual, "ACTIVE"))))
	assert.Equal(t, []string{"Jean", "Julien"}, matching(t, c, req(sharedDomain.Where("name", sharedDomain.OpLike, "J"))))
	assert.Equal(t, []string{"Julien"}, matching(t, c, req(sharedDomain.Where("name", sharedDomain.OpLike, "lie"))))
	assert.Equal(t, []string{"Julien", "Ana"}, matching(t, c, req(sharedDomain.Where("score", sharedDomain.OpGreaterThan, 10))))
	assert.Equal(t, []string{"Jean", "Julien"}, matching(t, c, req(sharedDomain.Where("score", sharedDomain.OpLessThanOrEqual, 20))))
	assert.Equal(t, []string{"Julien", "Ana"}, matching(t, c, req(sharedDomain.Where("email", sharedDomain.OpBlank, nil))))
}

func TestEvaluate_InAndNotInAreComplements(t *testing.T) {
	c := NewCompiler(testRegistry(t))
	values := []string{"Jean", "Bob"}

	in := matching(t, c, sharedDomain.NewFilterRequest(0, 10).Where(sharedDomain.Where("name", sharedDomain.OpIn, values)))
	notIn := matching(t, c, sharedDomain.NewFilterRequest(0, 10).Where(sharedDomain.Where("name", sharedDomain.OpNotIn, values)))

	assert.Equal(t, []string{"Jean", "Bob"}, in)
	assert.Equal(t, []string{"Julien", "Ana"}, notIn)
	assert.ElementsMatch(t, []string{"Jean", "Julien", "Ana", "Bob"}, append(in, notIn...))
}

func TestEvaluate_AndOrPrecedence(t *testing.T) {
	c := NewCompiler(testRegistry(t))
	req := sharedDomain.NewFilterRequest(0, 10).
		Where(sharedDomain.Where("status", sharedDomain.OpEqual, "ACTIVE")).
		AnyOf(
			sharedDomain.Where("name", sharedDomain.OpLike, "Jean"),
			sharedDomain.Where("firstName", sharedDomain.OpLike, "Jean"),
		)

	// Julien es INACTIVE; Bob no contiene "Jean" en ningún nombre
	assert.Equal(t, []string{"Jean", "Ana"}, matching(t, c, req))
}

func TestEvaluate_NullNeverMatchesComparisons(t *testing.T) {
	c := NewCompiler(testRegistry(t))

	ne := matching(t, c, sharedDomain.NewFilterRequest(0, 10).Where(sharedDomain.Where("score", sharedDomain.OpNotEqual, 10)))
	assert.Equal(t, []string{"Julien", "Ana"}, ne)

	notIn := matching(t, c, sharedDomain.NewFilterRequest(0, 10).Where(sharedDomain.Where("score", sharedDomain.OpNotIn, []int{10})))
	assert.Equal(t, []string{"Julien", "Ana"}, notIn)
}

func TestEvaluate_EmptyOrIsFalse(t *testing.T) {
	ok, err := Evaluate(Or{}, row{}.lookup)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Evaluate(And{}, row{}.lookup)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompareValues(t *testing.T) {
	cmp, err := CompareValues(int64(3), 3.0)
	require.NoError(t, err)
	assert.Equal(t, 0, cmp)

	cmp, err = CompareValues("a", "b")
	require.NoError(t, err)
	assert.Equal(t, -1, cmp)

	_, err = CompareValues("a", int64(1))
	assert.Error(t, err)
}
