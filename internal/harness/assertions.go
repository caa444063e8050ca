package harness

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/northwind/internal/container"
	"github.com/roach88/northwind/internal/ir"
	"github.com/roach88/northwind/internal/predicate"
	"github.com/roach88/northwind/internal/schema"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Subject  string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s %s\n", e.Type, e.Subject)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// evaluate runs every assertion and returns the failure messages.
func (h *Harness) evaluate(assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := h.evaluateAssertion(a); err != nil {
			failures = append(failures, fmt.Sprintf("assertion %d: %v", i+1, err))
		}
	}
	return failures
}

func (h *Harness) evaluateAssertion(a Assertion) error {
	switch a.Type {
	case AssertCount:
		return h.assertCount(a)
	case AssertRelated:
		return h.assertRelated(a)
	case AssertAbsent:
		return h.assertAbsent(a)
	case AssertField:
		return h.assertField(a)
	case AssertPending:
		if got := h.c.HasChanges(); got != *a.Pending {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprint(*a.Pending), Actual: fmt.Sprint(got)}
		}
		return nil
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// assertCount checks the number of entities of a type matching Where.
func (h *Harness) assertCount(a Assertion) error {
	var p predicate.Predicate
	if a.Where != nil {
		v, err := toValue(a.Where)
		if err != nil {
			return fmt.Errorf("where: %w", err)
		}
		if p, err = predicate.FromValue(v); err != nil {
			return fmt.Errorf("where: %w", err)
		}
	}
	matches, err := h.c.Fetch(schema.EntityType(a.Entity), p)
	if err != nil {
		return err
	}
	if len(matches) != *a.Count {
		return &AssertionError{
			Type:     a.Type,
			Subject:  a.Entity,
			Expected: fmt.Sprintf("%d match(es)", *a.Count),
			Actual:   fmt.Sprintf("%d match(es)", len(matches)),
		}
	}
	return nil
}

// assertRelated checks the targets of an edge. Count is exact; Targets must
// all be present.
func (h *Harness) assertRelated(a Assertion) error {
	id, err := h.resolve(a.Ref)
	if err != nil {
		return err
	}
	targets, err := h.c.RelatedIDs(id, a.Edge)
	if err != nil {
		return err
	}
	subject := a.Ref + "." + a.Edge
	if a.Count != nil && len(targets) != *a.Count {
		return &AssertionError{
			Type:     a.Type,
			Subject:  subject,
			Expected: fmt.Sprintf("%d target(s)", *a.Count),
			Actual:   fmt.Sprintf("%d target(s)", len(targets)),
		}
	}
	for _, ref := range a.Targets {
		want, err := h.resolve(ref)
		if err != nil {
			return err
		}
		if !slices.Contains(targets, want) {
			return &AssertionError{
				Type:     a.Type,
				Subject:  subject,
				Expected: "target " + ref,
				Actual:   fmt.Sprintf("targets %v", targets),
			}
		}
	}
	return nil
}

// assertAbsent checks that a reference no longer names a live entity.
func (h *Harness) assertAbsent(a Assertion) error {
	id, err := h.resolve(a.Ref)
	if errors.Is(err, container.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = h.c.Get(id)
	if errors.Is(err, container.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return &AssertionError{Type: a.Type, Subject: a.Ref, Expected: "absent", Actual: "present as " + string(id)}
}

// assertField compares one attribute value. A null expected value checks
// that the attribute is unset.
func (h *Harness) assertField(a Assertion) error {
	id, err := h.resolve(a.Ref)
	if err != nil {
		return err
	}
	e, err := h.c.Get(id)
	if err != nil {
		return err
	}
	acc, err := h.c.Registry().ResolveField(e.EntityType(), a.Field)
	if err != nil {
		return err
	}
	got, err := acc.Read(e)
	if err != nil {
		return err
	}
	want, err := expectedValue(a.Value, acc.Kind)
	if err != nil {
		return fmt.Errorf("%s: %w", acc.Key, err)
	}
	if !ir.Equal(got, want) {
		return &AssertionError{
			Type:     a.Type,
			Subject:  a.Ref + "." + a.Field,
			Expected: render(want),
			Actual:   render(got),
		}
	}
	return nil
}

func expectedValue(raw any, k ir.Kind) (ir.Value, error) {
	v, err := toValue(raw)
	if err != nil || ir.IsNull(v) {
		return v, err
	}
	return ir.Coerce(v, k)
}

func render(v ir.Value) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
