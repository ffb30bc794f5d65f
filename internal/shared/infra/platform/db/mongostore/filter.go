package mongostore

import (
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/davicafu/crudlab/internal/shared/query"
	"github.com/davicafu/crudlab/internal/shared/schema"
)

// docKey traduce una columna a su clave en el documento: el ID vive en _id.
func docKey(t *schema.EntityType, column string) string {
	if column == t.IDColumn() {
		return "_id"
	}
	return column
}

// fieldPath devuelve la ruta del campo en el documento agregado: los joins se materializan
// bajo su alias ("j1.name").
func fieldPath(ref query.FieldRef, root *schema.EntityType) string {
	if ref.Join == nil {
		return docKey(root, ref.Field.Column)
	}
	return ref.Join.Alias + "." + docKey(ref.Join.Target, ref.Field.Column)
}

// joinStages genera un $lookup + $unwind por join (LEFT JOIN a-uno).
func joinStages(sel query.Selection) bson.A {
	stages := bson.A{}
	for _, j := range sel.Joins {
		local := docKey(sel.Root, j.Relation.LocalColumn)
		if j.Parent != nil {
			local = j.Parent.Alias + "." + docKey(j.Parent.Target, j.Relation.LocalColumn)
		}
		stages = append(stages,
			bson.D{{Key: "$lookup", Value: bson.D{
				{Key: "from", Value: j.Target.Table},
				{Key: "localField", Value: local},
				{Key: "foreignField", Value: docKey(j.Target, j.Relation.TargetColumn)},
				{Key: "as", Value: j.Alias},
			}}},
			bson.D{{Key: "$unwind", Value: bson.D{
				{Key: "path", Value: "$" + j.Alias},
				{Key: "preserveNullAndEmptyArrays", Value: true},
			}}},
		)
	}
	return stages
}

// toFilter traduce el predicado a un filtro de MongoDB con la semántica de NULL de SQL:
// NOT_EQUAL y NOT_IN no devuelven documentos con el campo nulo o ausente.
func toFilter(p query.Predicate, root *schema.EntityType) (bson.D, error) {
	switch p := p.(type) {
	case query.True:
		return bson.D{}, nil

	case query.And:
		if len(p.Terms) == 0 {
			return bson.D{}, nil
		}
		terms, err := toFilters(p.Terms, root)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$and", Value: terms}}, nil

	case query.Or:
		if len(p.Terms) == 0 {
			return bson.D{{Key: "$nor", Value: bson.A{bson.D{}}}}, nil
		}
		terms, err := toFilters(p.Terms, root)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$or", Value: terms}}, nil

	case query.Not:
		if in, ok := p.Term.(query.In); ok {
			values := append(bson.A{}, in.Values...)
			values = append(values, nil)
			return bson.D{{Key: fieldPath(in.Field, root), Value: bson.D{{Key: "$nin", Value: values}}}}, nil
		}
		inner, err := toFilter(p.Term, root)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$nor", Value: bson.A{inner}}}, nil

	case query.Compare:
		path := fieldPath(p.Field, root)
		if p.Op == query.Ne {
			return bson.D{{Key: path, Value: bson.D{{Key: "$nin", Value: bson.A{p.Value, nil}}}}}, nil
		}
		op, ok := compareOps[p.Op]
		if !ok {
			return nil, fmt.Errorf("mongostore: unsupported comparison %s", p.Op)
		}
		return bson.D{{Key: path, Value: bson.D{{Key: op, Value: p.Value}}}}, nil

	case query.Like:
		return bson.D{{Key: fieldPath(p.Field, root), Value: bson.D{{Key: "$regex", Value: regexp.QuoteMeta(p.Substring)}}}}, nil

	case query.In:
		return bson.D{{Key: fieldPath(p.Field, root), Value: bson.D{{Key: "$in", Value: append(bson.A{}, p.Values...)}}}}, nil

	case query.IsNull:
		return bson.D{{Key: fieldPath(p.Field, root), Value: nil}}, nil
	}

	return nil, fmt.Errorf("mongostore: unsupported predicate %T", p)
}

func toFilters(preds []query.Predicate, root *schema.EntityType) (bson.A, error) {
	out := make(bson.A, 0, len(preds))
	for _, p := range preds {
		f, err := toFilter(p, root)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

var compareOps = map[query.CompareOp]string{
	query.Eq:  "$eq",
	query.Gt:  "$gt",
	query.Lt:  "$lt",
	query.Gte: "$gte",
	query.Lte: "$lte",
}

// pipeline arma la agregación completa: joins, $match, $sort, $skip y $limit.
func pipeline(spec query.QuerySpec) (bson.A, error) {
	stages, err := matchStages(spec.Selection)
	if err != nil {
		return nil, err
	}
	if len(spec.Sort) > 0 {
		sort := bson.D{}
		for _, s := range spec.Sort {
			dir := 1
			if !s.Ascending {
				dir = -1
			}
			sort = append(sort, bson.E{Key: fieldPath(s.Field, spec.Root), Value: dir})
		}
		stages = append(stages, bson.D{{Key: "$sort", Value: sort}})
	}
	if spec.Limit > 0 {
		stages = append(stages,
			bson.D{{Key: "$skip", Value: int64(spec.Offset)}},
			bson.D{{Key: "$limit", Value: int64(spec.Limit)}},
		)
	}
	return stages, nil
}

// countPipeline usa los mismos joins y $match que pipeline.
func countPipeline(sel query.Selection) (bson.A, error) {
	stages, err := matchStages(sel)
	if err != nil {
		return nil, err
	}
	return append(stages, bson.D{{Key: "$count", Value: "n"}}), nil
}

func matchStages(sel query.Selection) (bson.A, error) {
	stages := joinStages(sel)
	if sel.Where == nil {
		return stages, nil
	}
	if _, all := sel.Where.(query.True); all {
		return stages, nil
	}
	filter, err := toFilter(sel.Where, sel.Root)
	if err != nil {
		return nil, err
	}
	return append(stages, bson.D{{Key: "$match", Value: filter}}), nil
}
