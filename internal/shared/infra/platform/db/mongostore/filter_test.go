package mongostore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
	"github.com/davicafu/crudlab/internal/shared/query"
	"github.com/davicafu/crudlab/internal/shared/schema"
)

func testCompiler(t *testing.T) *query.Compiler {
	t.Helper()
	b := schema.NewBuilder()
	b.Entity("author", "authors").
		ID("id", "id", schema.KindString).
		Field("name", "name", schema.KindString)
	b.Entity("book", "books").
		ID("id", "id", schema.KindString).
		Field("title", "title", schema.KindString).
		Field("authorId", "author_id", schema.KindString).
		Field("pages", "pages", schema.KindInt).
		Version("version", "version").
		Relation("author", "author", "author_id", "id")
	reg, err := b.Build()
	require.NoError(t, err)
	return query.NewCompiler(reg)
}

func TestPipeline_AndOrWithJoin(t *testing.T) {
	c := testCompiler(t)
	req := sharedDomain.NewFilterRequest(1, 10).
		Where(sharedDomain.Where("author.name", sharedDomain.OpLike, "a.b")).
		AnyOf(
			sharedDomain.Where("pages", sharedDomain.OpNotEqual, 100),
			sharedDomain.Where("id", sharedDomain.OpIn, []string{"b1", "b2"}),
		).
		SortBy("pages", false)

	spec, err := c.Build("book", req)
	require.NoError(t, err)

	stages, err := pipeline(spec)
	require.NoError(t, err)

	expected := bson.A{
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "authors"},
			{Key: "localField", Value: "author_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "j1"},
		}}},
		bson.D{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$j1"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
		bson.D{{Key: "$match", Value: bson.D{{Key: "$and", Value: bson.A{
			bson.D{{Key: "$and", Value: bson.A{
				bson.D{{Key: "j1.name", Value: bson.D{{Key: "$regex", Value: `a\.b`}}}},
			}}},
			bson.D{{Key: "$or", Value: bson.A{
				bson.D{{Key: "pages", Value: bson.D{{Key: "$nin", Value: bson.A{int64(100), nil}}}}},
				bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: bson.A{"b1", "b2"}}}}},
			}}},
		}}}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "pages", Value: -1}, {Key: "_id", Value: 1}}}},
		bson.D{{Key: "$skip", Value: int64(10)}},
		bson.D{{Key: "$limit", Value: int64(10)}},
	}
	assert.Equal(t, expected, stages)
}

func TestPipeline_EmptyFilterSkipsMatch(t *testing.T) {
	c := testCompiler(t)
	spec, err := c.Build("book", sharedDomain.NewFilterRequest(0, 5))
	require.NoError(t, err)

	stages, err := pipeline(spec)
	require.NoError(t, err)
	assert.Equal(t, bson.A{
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
		bson.D{{Key: "$skip", Value: int64(0)}},
		bson.D{{Key: "$limit", Value: int64(5)}},
	}, stages)
}

func TestCountPipeline_NotInExcludesNull(t *testing.T) {
	c := testCompiler(t)
	sel, err := c.BuildCount("book", sharedDomain.NewFilterRequest(0, 5).
		Where(sharedDomain.Where("title", sharedDomain.OpNotIn, []string{"Go"})))
	require.NoError(t, err)

	stages, err := countPipeline(sel)
	require.NoError(t, err)
	assert.Equal(t, bson.A{
		bson.D{{Key: "$match", Value: bson.D{{Key: "$and", Value: bson.A{
			bson.D{{Key: "title", Value: bson.D{{Key: "$nin", Value: bson.A{"Go", nil}}}}},
		}}}}},
		bson.D{{Key: "$count", Value: "n"}},
	}, stages)
}

func TestToFilter_EdgeCases(t *testing.T) {
	c := testCompiler(t)
	spec, err := c.Build("book", sharedDomain.NewFilterRequest(0, 5))
	require.NoError(t, err)
	root := spec.Root
	title, _ := root.Field("title")
	ref := query.FieldRef{Field: title, Path: "title"}

	tests := []struct {
		name string
		pred query.Predicate
		want bson.D
	}{
		{"empty or matches nothing", query.Or{}, bson.D{{Key: "$nor", Value: bson.A{bson.D{}}}}},
		{"empty and matches everything", query.And{}, bson.D{}},
		{"is null", query.IsNull{Field: ref}, bson.D{{Key: "title", Value: nil}}},
		{"generic not", query.Not{Term: query.IsNull{Field: ref}}, bson.D{{Key: "$nor", Value: bson.A{bson.D{{Key: "title", Value: nil}}}}}},
		{"greater than", query.Compare{Field: ref, Op: query.Gt, Value: "m"}, bson.D{{Key: "title", Value: bson.D{{Key: "$gt", Value: "m"}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toFilter(tt.pred, root)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
