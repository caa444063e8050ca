package graph

import (
	"slices"

	"github.com/roach88/northwind/internal/model"
)

// CheckAcyclic returns a CycleError when linking src to dst over an acyclic
// edge would close a loop. Edges without the flag always pass.
//
// The check follows the to-one side of the pair: for reportsTo the chain
// starts at the proposed manager, and for managedEmployees the roles swap.
func CheckAcyclic(l *Links, src model.ID, name string, dst model.ID) error {
	e, err := l.edgeFrom(src, name)
	if err != nil {
		return err
	}
	if !e.Acyclic {
		return nil
	}

	up := e
	child, parent := src, dst
	if e.Cardinality != ToOne {
		up = l.schema.InverseOf(e)
		child, parent = dst, src
	}

	path := []model.ID{child}
	visited := map[model.ID]struct{}{}
	for cur := parent; ; {
		path = append(path, cur)
		if cur == child {
			return &CycleError{Edge: up.Key(), Path: path}
		}
		if _, seen := visited[cur]; seen {
			// A pre-existing loop that does not involve child.
			return nil
		}
		visited[cur] = struct{}{}
		next, ok := l.Target(cur, up.Name)
		if !ok {
			return nil
		}
		cur = next
	}
}

// Chain returns the nodes reached by repeatedly following a to-one edge from
// start, stopping at the end of the chain or on revisiting a node.
func Chain(l *Links, start model.ID, name string) []model.ID {
	var out []model.ID
	for cur, ok := l.Target(start, name); ok; cur, ok = l.Target(cur, name) {
		if slices.Contains(out, cur) {
			break
		}
		out = append(out, cur)
	}
	return out
}
