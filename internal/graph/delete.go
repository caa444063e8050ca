package graph

import (
	"fmt"

	"github.com/roach88/northwind/internal/model"
)

// Plan is the complete effect of deleting Root.
type Plan struct {
	Root Ref
	// Deleted lists Root and every node reached through cascade edges, in
	// depth-first discovery order. No node appears twice.
	Deleted []Ref
	// Nullified lists surviving nodes that lose at least one link.
	Nullified []Ref
}

// Contains reports whether id is deleted by the plan.
func (p Plan) Contains(id model.ID) bool {
	for _, r := range p.Deleted {
		if r.ID == id {
			return true
		}
	}
	return false
}

// PlanDelete walks the cascade closure of root without modifying l.
//
// Cascade edges are followed depth-first with an explicit visited set, so
// shared or cyclic cascade paths visit each node once. Deny edges whose
// targets survive the cascade become blockers; any blocker fails the whole
// plan with a DeleteDeniedError.
func PlanDelete(l *Links, root model.ID) (Plan, error) {
	rootRef, ok := l.Ref(root)
	if !ok {
		return Plan{}, fmt.Errorf("%w: %s", ErrUnknownNode, root)
	}

	plan := Plan{Root: rootRef}
	visited := map[model.ID]struct{}{root: {}}
	stack := []model.ID{root}

	type pending struct {
		owner model.ID
		edge  string
		dep   model.ID
	}
	var denied []pending
	var nullified []model.ID

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		ref, _ := l.Ref(id)
		plan.Deleted = append(plan.Deleted, ref)

		edges := l.schema.EdgesOf(ref.Type)
		// Push in reverse so the first declared edge is explored first.
		for i := len(edges) - 1; i >= 0; i-- {
			e := edges[i]
			targets := l.Targets(id, e.Name)
			switch e.Rule {
			case Cascade:
				for j := len(targets) - 1; j >= 0; j-- {
					t := targets[j]
					if _, seen := visited[t]; seen {
						continue
					}
					visited[t] = struct{}{}
					stack = append(stack, t)
				}
			case Deny:
				for _, t := range targets {
					denied = append(denied, pending{owner: id, edge: e.Name, dep: t})
				}
			case Nullify:
				nullified = append(nullified, targets...)
			}
		}
	}

	var blockers []Blocker
	for _, d := range denied {
		if _, gone := visited[d.dep]; gone {
			continue
		}
		owner, _ := l.Ref(d.owner)
		dep, _ := l.Ref(d.dep)
		blockers = append(blockers, Blocker{Owner: owner, Edge: d.edge, Dependent: dep})
	}
	if len(blockers) > 0 {
		return Plan{}, &DeleteDeniedError{Root: rootRef, Blockers: blockers}
	}

	seen := make(map[model.ID]struct{})
	for _, id := range nullified {
		if _, gone := visited[id]; gone {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ref, _ := l.Ref(id)
		plan.Nullified = append(plan.Nullified, ref)
	}
	return plan, nil
}

// Apply removes every node in plan from l, which detaches all of their links
// in both directions. The plan must have been computed against l.
func Apply(l *Links, plan Plan) {
	for _, r := range plan.Deleted {
		l.Remove(r.ID)
	}
}
