package query

import (
	"fmt"
	"strings"

	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
	"github.com/davicafu/crudlab/internal/shared/schema"
)

type joinKey struct {
	parent   string
	relation string
}

// joinGraph vive lo que dura la compilación de una consulta; nunca se comparte.
type joinGraph struct {
	joins []*Join
	index map[joinKey]*Join
}

func newJoinGraph() *joinGraph {
	return &joinGraph{index: make(map[joinKey]*Join)}
}

// join reutiliza el join existente para (nodo padre, relación) o crea uno nuevo.
func (g *joinGraph) join(parent *Join, rel schema.Relation, target *schema.EntityType) *Join {
	key := joinKey{relation: rel.Name, parent: RootAlias}
	if parent != nil {
		key.parent = parent.Alias
	}
	if j, ok := g.index[key]; ok {
		return j
	}
	j := &Join{
		Alias:    fmt.Sprintf("j%d", len(g.joins)+1),
		Relation: rel,
		Parent:   parent,
		Target:   target,
	}
	g.joins = append(g.joins, j)
	g.index[key] = j
	return j
}

type resolver struct {
	reg   *schema.Registry
	root  *schema.EntityType
	graph *joinGraph
}

func newResolver(reg *schema.Registry, root *schema.EntityType) *resolver {
	return &resolver{reg: reg, root: root, graph: newJoinGraph()}
}

// resolve recorre una clave con puntos. Los segmentos intermedios deben ser relaciones y el
// último un campo escalar.
func (r *resolver) resolve(key string) (FieldRef, error) {
	if strings.TrimSpace(key) == "" {
		return FieldRef{}, &sharedDomain.InvalidPathError{Type: r.root.Name, Key: key, Reason: "empty key"}
	}

	segments := strings.Split(key, ".")
	current := r.root
	var node *Join

	for i, seg := range segments {
		if seg == "" {
			return FieldRef{}, &sharedDomain.InvalidPathError{Type: current.Name, Key: key, Reason: "empty segment"}
		}
		last := i == len(segments)-1

		if f, ok := current.Field(seg); ok {
			if !last {
				return FieldRef{}, &sharedDomain.InvalidPathError{
					Type: current.Name, Key: key,
					Reason: fmt.Sprintf("cannot traverse scalar field %q", seg),
				}
			}
			return FieldRef{Join: node, Field: f, Path: key}, nil
		}

		rel, ok := current.Relation(seg)
		if !ok {
			return FieldRef{}, &sharedDomain.UnknownFieldError{Type: current.Name, Field: seg}
		}
		if last {
			return FieldRef{}, &sharedDomain.InvalidPathError{
				Type: current.Name, Key: key,
				Reason: fmt.Sprintf("%q is a relation, name one of its fields", seg),
			}
		}

		target, err := r.reg.Lookup(rel.Target)
		if err != nil {
			return FieldRef{}, err
		}
		node = r.graph.join(node, rel, target)
		current = target
	}

	// inalcanzable: el bucle siempre devuelve en el último segmento
	return FieldRef{}, &sharedDomain.InvalidPathError{Type: r.root.Name, Key: key, Reason: "empty key"}
}
