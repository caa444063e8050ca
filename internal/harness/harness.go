package harness

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/northwind/internal/container"
	"github.com/roach88/northwind/internal/graph"
	"github.com/roach88/northwind/internal/ir"
	"github.com/roach88/northwind/internal/model"
	"github.com/roach88/northwind/internal/registry"
	"github.com/roach88/northwind/internal/schema"
	"github.com/roach88/northwind/internal/store"
	"github.com/roach88/northwind/internal/testutil"
)

// OutcomeOK is the outcome of a step that succeeded.
const OutcomeOK = "ok"

var errUnresolved = errors.New("unresolved reference")

// Harness executes the steps of one scenario.
type Harness struct {
	store   *store.Store
	c       *container.Container
	ids     *testutil.DeterministicIDs
	fixture *testutil.Fixture
	aliases map[string]model.ID
}

// Run executes a scenario in a fresh store under dir and returns the result.
// Step outcomes and assertion failures are reported in the result; the
// returned error is reserved for failures of the run itself.
func Run(ctx context.Context, scenario *Scenario, dir string) (*Result, error) {
	st, err := store.Open(ctx, filepath.Join(dir, "scenario.store"), store.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:   st,
		ids:     testutil.NewDeterministicIDs(),
		aliases: map[string]model.ID{},
	}
	if err := h.open(ctx); err != nil {
		return nil, err
	}
	if scenario.Fixture == FixtureNorthwind {
		f, err := testutil.LoadNorthwind(h.c)
		if err != nil {
			return nil, fmt.Errorf("failed to load fixture: %w", err)
		}
		if err := h.c.Save(ctx); err != nil {
			return nil, fmt.Errorf("failed to save fixture: %w", err)
		}
		h.fixture = f
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		ev, err := h.execute(ctx, step)
		ev.Step, ev.Op, ev.Ref = i+1, step.Op, stepRef(step)
		ev.Outcome = Outcome(err)
		result.Trace = append(result.Trace, ev)

		want := OutcomeOK
		if step.Expect != nil && step.Expect.Error != "" {
			want = step.Expect.Error
		}
		if ev.Outcome != want {
			result.AddError("step %d (%s %s): expected %s, got %s: %v", ev.Step, ev.Op, ev.Ref, want, ev.Outcome, err)
			continue
		}
		if step.Expect != nil && step.Expect.Deleted != nil && ev.Deleted != *step.Expect.Deleted {
			result.AddError("step %d (%s %s): expected %d deleted, got %d", ev.Step, ev.Op, ev.Ref, *step.Expect.Deleted, ev.Deleted)
		}
	}

	for _, errMsg := range h.evaluate(scenario.Assertions) {
		result.AddError("%s", errMsg)
	}
	return result, nil
}

// open replaces the container with one loaded from the store, dropping any
// unsaved changes.
func (h *Harness) open(ctx context.Context) error {
	c, err := container.Open(ctx, h.store, container.Options{NewID: h.ids.Next})
	if err != nil {
		return fmt.Errorf("failed to open container: %w", err)
	}
	h.c = c
	return nil
}

func (h *Harness) execute(ctx context.Context, step Step) (TraceEvent, error) {
	var ev TraceEvent
	switch step.Op {
	case OpInsert:
		e, err := model.New(schema.EntityType(step.Entity))
		if err != nil {
			return ev, err
		}
		if err := h.setFields(e, step.Fields); err != nil {
			return ev, err
		}
		id, err := h.c.Insert(e)
		if err != nil {
			return ev, err
		}
		if step.As != "" {
			h.aliases[step.As] = id
		}
		return ev, nil

	case OpUpdate:
		id, err := h.resolve(step.Ref)
		if err != nil {
			return ev, err
		}
		return ev, h.c.Update(id, func(e model.Entity) error {
			return h.setFields(e, step.Fields)
		})

	case OpRelate, OpUnrelate:
		src, err := h.resolve(step.Ref)
		if err != nil {
			return ev, err
		}
		dst, err := h.resolve(step.Target)
		if err != nil {
			return ev, err
		}
		if step.Op == OpRelate {
			return ev, h.c.Relate(src, step.Edge, dst)
		}
		return ev, h.c.Unrelate(src, step.Edge, dst)

	case OpClear:
		id, err := h.resolve(step.Ref)
		if err != nil {
			return ev, err
		}
		return ev, h.c.ClearRelation(id, step.Edge)

	case OpDelete:
		id, err := h.resolve(step.Ref)
		if err != nil {
			return ev, err
		}
		plan, err := h.c.Delete(id)
		ev.Deleted = len(plan.Deleted)
		return ev, err

	case OpSave:
		return ev, h.c.Save(ctx)

	case OpRollback:
		h.c.Rollback()
		return ev, nil

	case OpReload:
		return ev, h.open(ctx)
	}
	return ev, fmt.Errorf("unknown op %q", step.Op)
}

func stepRef(step Step) string {
	switch {
	case step.Ref != "" && step.Target != "":
		return step.Ref + "." + step.Edge + " -> " + step.Target
	case step.Ref != "" && step.Edge != "":
		return step.Ref + "." + step.Edge
	case step.Ref != "":
		return step.Ref
	case step.As != "":
		return step.Entity + " as $" + step.As
	}
	return step.Entity
}

// resolve turns a reference into an identity. See the package documentation
// for the reference forms.
func (h *Harness) resolve(ref string) (model.ID, error) {
	if alias, ok := strings.CutPrefix(ref, "$"); ok {
		id, found := h.aliases[alias]
		if !found {
			return "", fmt.Errorf("%w: no entity inserted as %q", errUnresolved, alias)
		}
		return id, nil
	}

	typ, name, ok := strings.Cut(ref, ":")
	if !ok || typ == "" || name == "" {
		return "", fmt.Errorf("%w: %q is not Type:name", errUnresolved, ref)
	}
	t := schema.EntityType(typ)
	if h.fixture != nil {
		if id, found := h.fixture.Lookup(t, name); found {
			return id, nil
		}
	}
	e, err := h.c.ByNaturalKey(t, ir.String(name))
	if err != nil {
		return "", err
	}
	return e.Identity(), nil
}

// setFields writes fields to e by attribute name, in name order.
func (h *Harness) setFields(e model.Entity, fields map[string]any) error {
	reg := h.c.Registry()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		a, err := reg.ResolveField(e.EntityType(), name)
		if err != nil {
			return err
		}
		v, err := toValue(fields[name])
		if err != nil {
			return fmt.Errorf("%s: %w", a.Key, err)
		}
		if err := a.Write(e, v); err != nil {
			return err
		}
	}
	return nil
}

// toValue converts a decoded YAML value to a Value. Timestamps become times
// and floats become decimals; everything else follows ir.FromAny.
func toValue(raw any) (ir.Value, error) {
	switch v := raw.(type) {
	case nil:
		return ir.Null{}, nil
	case time.Time:
		return ir.NewTime(v), nil
	case float64:
		return ir.NewDecimal(decimal.NewFromFloat(v)), nil
	case map[string]any:
		obj := make(ir.Object, len(v))
		for k, elem := range v {
			item, err := toValue(elem)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			obj[k] = item
		}
		return obj, nil
	case []any:
		list := make(ir.List, len(v))
		for i, elem := range v {
			item, err := toValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			list[i] = item
		}
		return list, nil
	}
	return ir.FromAny(raw)
}

// Outcome names the class of a step error. Scenarios expect errors by class.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, errUnresolved):
		return "unresolved"
	case errors.Is(err, graph.ErrDeleteDenied):
		return "delete_denied"
	case errors.Is(err, graph.ErrCycle):
		return "cycle"
	case errors.Is(err, graph.ErrUnknownEdge):
		return "unknown_edge"
	case errors.Is(err, graph.ErrWrongTarget):
		return "wrong_target"
	case errors.Is(err, graph.ErrUnknownNode), errors.Is(err, container.ErrNotFound):
		return "not_found"
	case errors.Is(err, container.ErrDuplicateKey):
		return "duplicate_key"
	case errors.Is(err, container.ErrRequiredRelationship):
		return "required_relationship"
	case errors.Is(err, container.ErrReadOnly):
		return "read_only"
	case registry.IsUnknownField(err):
		return "unknown_field"
	}
	return "error"
}
